package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/delayed"
	"task-tracker-api/internal/ledger"
	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/middleware"
	"task-tracker-api/internal/models"
	"task-tracker-api/internal/realtime"
	"task-tracker-api/internal/support"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateTaskRequest carries the new task's fields plus the optional helpers to fan out to.
type CreateTaskRequest struct {
	lifecycle.TaskSpec
	Helpers []string `json:"helpers"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// SupportRequest lists the helpers to create support tasks for.
type SupportRequest struct {
	Helpers []string `json:"helpers" binding:"required"`
}

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	tasks    *lifecycle.Manager
	fanOut   *support.Service
	detector *delayed.Detector
	hub      *realtime.Hub
	log      logrus.FieldLogger

	// SweepOnList runs the delayed sweep before every list.
	SweepOnList bool
}

// NewTaskHandler creates a TaskHandler. hub may be nil.
func NewTaskHandler(tasks *lifecycle.Manager, fanOut *support.Service, detector *delayed.Detector, hub *realtime.Hub, log logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{tasks: tasks, fanOut: fanOut, detector: detector, hub: hub, log: log}
}

// List handles GET /api/tasks?owner=&status=&support=&page=&limit=
func (h *TaskHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	if h.SweepOnList {
		h.sweep(ctx, middleware.Actor(c))
	}

	filter := lifecycle.ListFilter{
		Owner:       c.Query("owner"),
		Status:      models.TaskStatus(c.Query("status")),
		SupportOnly: c.Query("support") == "true",
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		respondError(c, h.log, apperr.Invalid("status", "unknown status %q", filter.Status))
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	tasks, err := h.tasks.List(ctx, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	total := len(tasks)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks[start:end],
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Create handles POST /api/tasks. Helpers, when given, receive support
// tasks right after the primary is stored.
func (h *TaskHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, h.log, err, "Invalid request body")
		return
	}
	ctx := c.Request.Context()
	actor := middleware.Actor(c)

	task, err := h.tasks.Create(ctx, actor, req.TaskSpec)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.publish(realtime.Event{Type: realtime.EventTaskCreated, Task: task, Actor: actor})

	if len(req.Helpers) == 0 {
		c.JSON(http.StatusCreated, gin.H{"task": task})
		return
	}

	res, err := h.fanOut.CreateSupportTasks(ctx, actor, task, req.Helpers)
	if res != nil {
		h.publishFanOut(res, actor)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": res.Primary, "support": res})
}

// Get handles GET /api/tasks/:id. The id may be the opaque id or the task code.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.Actor(c)
	task, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.tasks.Delete(ctx, actor, task.ID); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.publish(realtime.Event{Type: realtime.EventTaskDeleted, Task: task, Actor: actor})
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully", "id": task.ID})
}

// UpdateStatus handles PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. status is required.")
		return
	}
	ctx := c.Request.Context()
	actor := middleware.Actor(c)
	task, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	updated, err := h.tasks.Transition(ctx, actor, task, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if updated.Version != task.Version {
		h.publish(realtime.Event{Type: realtime.EventTaskUpdated, Task: updated, Actor: actor})
	}
	c.JSON(http.StatusOK, updated)
}

// LogWork handles POST /api/tasks/:id/work
func (h *TaskHandler) LogWork(c *gin.Context) {
	var entry lifecycle.WorkEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		bindFailed(c, h.log, err, "Invalid request body")
		return
	}
	ctx := c.Request.Context()
	actor := middleware.Actor(c)
	task, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	updated, err := h.tasks.LogWork(ctx, actor, task.ID, entry)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.publish(realtime.Event{Type: realtime.EventTaskUpdated, Task: updated, Actor: actor})
	c.JSON(http.StatusOK, updated)
}

// Hours handles GET /api/tasks/:id/hours?start=&end=. Without bounds it
// reports the whole ledger.
func (h *TaskHandler) Hours(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	verr := &apperr.ValidationError{}
	if start != "" && !ledger.ValidDate(start) {
		verr.Add("start", "must be a YYYY-MM-DD date")
	}
	if end != "" && !ledger.ValidDate(end) {
		verr.Add("end", "must be a YYYY-MM-DD date")
	}
	if (start == "") != (end == "") {
		verr.Add("range", "start and end must be given together")
	}
	if err := verr.OrNil(); err != nil {
		respondError(c, h.log, err)
		return
	}

	task, err := h.load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	l := ledger.Parse(task.DailyHours)
	hours := l.Total()
	if start != "" {
		hours = l.InRange(start, end)
	}
	c.JSON(http.StatusOK, gin.H{
		"taskId":     task.TaskID,
		"start":      start,
		"end":        end,
		"hours":      hours,
		"total":      task.ActualHours,
		"dailyHours": l,
	})
}

// CreateSupport handles POST /api/tasks/:id/support
func (h *TaskHandler) CreateSupport(c *gin.Context) {
	var req SupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, h.log, err, "Invalid request. helpers are required.")
		return
	}
	ctx := c.Request.Context()
	actor := middleware.Actor(c)
	primary, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	res, err := h.fanOut.CreateSupportTasks(ctx, actor, primary, req.Helpers)
	if res != nil {
		h.publishFanOut(res, actor)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Support handles GET /api/tasks/:id/support
func (h *TaskHandler) Support(c *gin.Context) {
	ctx := c.Request.Context()
	primary, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	summary, err := h.fanOut.SummarizeSupport(ctx, primary.TaskID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	linked, err := h.fanOut.ListSupportTasks(ctx, primary.TaskID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "tasks": linked})
}

// Primary handles GET /api/tasks/:id/primary
func (h *TaskHandler) Primary(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := h.load(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	primary, err := h.fanOut.FindPrimaryTask(ctx, task)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, primary)
}

// Sweep handles POST /api/sweeps/delayed
func (h *TaskHandler) Sweep(c *gin.Context) {
	res, err := h.detector.Run(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.PublishSweep(res)
	c.JSON(http.StatusOK, res)
}

// Stats handles GET /api/stats/:userid with task counts per status for the owner.
func (h *TaskHandler) Stats(c *gin.Context) {
	owner := strings.TrimSpace(c.Param("userid"))
	if owner == "" {
		badRequest(c, "userid is required")
		return
	}
	tasks, err := h.tasks.List(c.Request.Context(), lifecycle.ListFilter{Owner: owner})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	counts := make(map[models.TaskStatus]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		counts[s] = 0
	}
	var hours float64
	for _, t := range tasks {
		counts[t.Status]++
		hours += t.ActualHours
	}
	c.JSON(http.StatusOK, gin.H{
		"owner":       owner,
		"counts":      counts,
		"total":       len(tasks),
		"actualHours": ledger.Round(hours),
	})
}

// PublishSweep pushes a tasks_delayed event when a sweep promoted anything.
// The scheduler uses it too.
func (h *TaskHandler) PublishSweep(res *delayed.SweepResult) {
	if res == nil || res.PromotedCount == 0 {
		return
	}
	h.publish(realtime.Event{Type: realtime.EventTasksDelayed, Tasks: res.Promoted, Actor: delayed.SystemActor})
}

// load resolves ref as an opaque id and then as a task code.
func (h *TaskHandler) load(ctx context.Context, ref string) (*models.Task, error) {
	task, err := h.tasks.Get(ctx, ref)
	if errors.Is(err, apperr.ErrNotFound) {
		return h.tasks.GetByTaskID(ctx, ref)
	}
	return task, err
}

func (h *TaskHandler) sweep(ctx context.Context, actor string) {
	res, err := h.detector.Run(ctx, actor)
	if err != nil {
		// listing still works on the unswept data
		h.log.WithError(err).Warn("delayed sweep before list failed")
		return
	}
	h.PublishSweep(res)
}

func (h *TaskHandler) publishFanOut(res *support.FanOutResult, actor string) {
	if len(res.Tasks) == 0 {
		return
	}
	h.publish(realtime.Event{Type: realtime.EventSupportCreated, Task: res.Primary, Tasks: res.Tasks, Actor: actor})
}

func (h *TaskHandler) publish(ev realtime.Event) {
	if h.hub != nil {
		h.hub.Publish(ev)
	}
}
