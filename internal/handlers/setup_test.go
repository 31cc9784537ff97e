package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker-api/internal/auth"
	"task-tracker-api/internal/config"
	"task-tracker-api/internal/delayed"
	"task-tracker-api/internal/identity"
	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/middleware"
	"task-tracker-api/internal/realtime"
	"task-tracker-api/internal/repository"
	"task-tracker-api/internal/support"
	"task-tracker-api/internal/testutil"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// today for every handler test
var testNow = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	router  *gin.Engine
	tokens  *auth.Tokens
	users   *identity.Directory
	tasks   *lifecycle.Manager
	repo    repository.TaskRepository
	hub     *realtime.Hub
	handler *TaskHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	return newTestEnvWithRepo(t, identity.NewDirectory(db, time.Minute), repository.NewTaskRepository(db))
}

func newTestEnvWithRepo(t *testing.T, users *identity.Directory, repo repository.TaskRepository) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()

	tasks := lifecycle.NewManager(repo,
		lifecycle.WithClock(testutil.FixedClock(testNow)),
		lifecycle.WithLogger(logger),
		lifecycle.WithResolver(users),
	)
	hub := realtime.NewHub(logger)
	h := NewTaskHandler(tasks, support.NewService(tasks, users, logger), delayed.NewDetector(tasks, logger), hub, logger)
	tokens := auth.NewTokens(config.Default().Auth)

	r := gin.New()
	r.POST("/api/login", NewAuthHandler(users, tokens, logger).Login)
	api := r.Group("/api")
	api.Use(middleware.JWTAuth(tokens))
	api.GET("/ws", WebSocketHandler(hub, logger))
	api.GET("/users", NewUserHandler(users, logger).List)
	api.GET("/tasks", h.List)
	api.POST("/tasks", h.Create)
	api.GET("/tasks/:id", h.Get)
	api.DELETE("/tasks/:id", h.Delete)
	api.PATCH("/tasks/:id/status", h.UpdateStatus)
	api.POST("/tasks/:id/work", h.LogWork)
	api.GET("/tasks/:id/hours", h.Hours)
	api.POST("/tasks/:id/support", h.CreateSupport)
	api.GET("/tasks/:id/support", h.Support)
	api.GET("/tasks/:id/primary", h.Primary)
	api.POST("/sweeps/delayed", h.Sweep)
	api.GET("/stats/:userid", h.Stats)

	return &testEnv{router: r, tokens: tokens, users: users, tasks: tasks, repo: repo, hub: hub, handler: h}
}

func (e *testEnv) register(t *testing.T, id, username string) {
	t.Helper()
	_, err := e.users.Register(context.Background(), id, username, username, "secret")
	require.NoError(t, err)
}

// do sends a JSON request as user u-1 unless asUser says otherwise.
func (e *testEnv) do(t *testing.T, method, path string, body any, asUser ...string) *httptest.ResponseRecorder {
	t.Helper()
	user := "u-1"
	if len(asUser) > 0 {
		user = asUser[0]
	}
	token, err := e.tokens.Generate(user, user)
	require.NoError(t, err)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func validTaskBody() map[string]any {
	return map[string]any{
		"description":    "Prepare audit",
		"owner":          "u-1",
		"startDate":      "2024-03-01",
		"dueDate":        "2024-03-20",
		"priority":       "UrgentImportant",
		"estimatedHours": 6,
	}
}
