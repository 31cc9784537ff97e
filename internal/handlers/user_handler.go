package handlers

import (
	"net/http"

	"task-tracker-api/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler lists the identity directory.
type UserHandler struct {
	users *identity.Directory
	log   logrus.FieldLogger
}

func NewUserHandler(users *identity.Directory, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// List handles GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}
