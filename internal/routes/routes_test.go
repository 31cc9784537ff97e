package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-tracker-api/internal/auth"
	"task-tracker-api/internal/config"
	"task-tracker-api/internal/delayed"
	"task-tracker-api/internal/handlers"
	"task-tracker-api/internal/identity"
	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/realtime"
	"task-tracker-api/internal/repository"
	"task-tracker-api/internal/support"
	"task-tracker-api/internal/testutil"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()
	cfg := config.Default()

	users := identity.NewDirectory(db, time.Minute)
	tasks := lifecycle.NewManager(repository.NewTaskRepository(db), lifecycle.WithLogger(logger), lifecycle.WithResolver(users))
	hub := realtime.NewHub(logger)
	h := handlers.NewTaskHandler(tasks, support.NewService(tasks, users, logger), delayed.NewDetector(tasks, logger), hub, logger)

	return Setup(Deps{
		Config: cfg,
		Logger: logger,
		Tokens: auth.NewTokens(cfg.Auth),
		Users:  users,
		Tasks:  h,
		Hub:    hub,
	})
}

func TestHealth(t *testing.T) {
	r := setup(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetrics(t *testing.T) {
	r := setup(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "tracker_api_requests_total")
}

func TestLoginThenCreateTask(t *testing.T) {
	r := setup(t)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "pw"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var login handlers.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	task := `{"description":"Write docs","owner":"` + login.UserID + `","startDate":"2030-01-01","dueDate":"2030-01-02","priority":"NotUrgentImportant","estimatedHours":3}`
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(task))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	r := setup(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
