package routes

import (
	"net/http"

	"task-tracker-api/internal/auth"
	"task-tracker-api/internal/config"
	"task-tracker-api/internal/handlers"
	"task-tracker-api/internal/identity"
	"task-tracker-api/internal/metrics"
	"task-tracker-api/internal/middleware"
	"task-tracker-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config *config.Config
	Logger logrus.FieldLogger
	Tokens *auth.Tokens
	Users  *identity.Directory
	Tasks  *handlers.TaskHandler
	Hub    *realtime.Hub
}

// Setup builds the gin engine with public and protected routes.
func Setup(d Deps) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLog(d.Logger),
		middleware.CORS(),
		middleware.RateLimit(d.Config.RateLimit.RPS, d.Config.RateLimit.Burst),
	)

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Tracker API is running",
		})
	})
	ginRouter.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", handlers.NewAuthHandler(d.Users, d.Tokens, d.Logger).Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuth(d.Tokens))
	{
		protectedRoutes.GET("/ws", handlers.WebSocketHandler(d.Hub, d.Logger))
		protectedRoutes.GET("/users", handlers.NewUserHandler(d.Users, d.Logger).List)

		// Task endpoints
		protectedRoutes.GET("/tasks", d.Tasks.List)
		protectedRoutes.POST("/tasks", d.Tasks.Create)
		protectedRoutes.GET("/tasks/:id", d.Tasks.Get)
		protectedRoutes.DELETE("/tasks/:id", d.Tasks.Delete)
		protectedRoutes.PATCH("/tasks/:id/status", d.Tasks.UpdateStatus)
		protectedRoutes.POST("/tasks/:id/work", d.Tasks.LogWork)
		protectedRoutes.GET("/tasks/:id/hours", d.Tasks.Hours)
		protectedRoutes.POST("/tasks/:id/support", d.Tasks.CreateSupport)
		protectedRoutes.GET("/tasks/:id/support", d.Tasks.Support)
		protectedRoutes.GET("/tasks/:id/primary", d.Tasks.Primary)

		protectedRoutes.POST("/sweeps/delayed", d.Tasks.Sweep)
		protectedRoutes.GET("/stats/:userid", d.Tasks.Stats)
	}

	ginRouter.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return ginRouter
}
