package handlers

import (
	"errors"
	"net/http"

	"task-tracker-api/internal/auth"
	"task-tracker-api/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}

// AuthHandler serves login.
type AuthHandler struct {
	users  *identity.Directory
	tokens *auth.Tokens
	log    logrus.FieldLogger
}

func NewAuthHandler(users *identity.Directory, tokens *auth.Tokens, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, log: log}
}

// Login handles POST /api/login. Unknown usernames are registered with the
// given password on first login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Username and password are required.")
		return
	}

	profile, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, identity.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, err := h.tokens.Generate(profile.ID, profile.Username)
	if err != nil {
		h.log.WithError(err).Error("sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:       token,
		UserID:      profile.ID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		Message:     "Login successful",
	})
}
