// Package lifecycle owns the status machine and the hours ledger of a task.
// Every mutation is validated before any write, stamps UpdatedAt and is
// persisted through the injected repository in a single call.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/identity"
	"task-tracker-api/internal/ledger"
	"task-tracker-api/internal/metrics"
	"task-tracker-api/internal/models"
	"task-tracker-api/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxTaskIDAttempts bounds regeneration of a task code that collided.
const maxTaskIDAttempts = 5

// Manager applies lifecycle operations to tasks.
type Manager struct {
	repo      repository.TaskRepository
	log       logrus.FieldLogger
	now       func() time.Time
	newTaskID func(time.Time) string
	validate  *validator.Validate
	users     identity.Resolver
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger. Defaults to logrus' standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithTaskIDGenerator replaces the task code generator.
func WithTaskIDGenerator(gen func(time.Time) string) Option {
	return func(m *Manager) { m.newTaskID = gen }
}

// WithResolver makes owners canonical: an owner given by username is stored
// and filtered by its user id. Owners the resolver does not know are kept as given.
func WithResolver(users identity.Resolver) Option {
	return func(m *Manager) { m.users = users }
}

// NewManager creates a Manager over repo.
func NewManager(repo repository.TaskRepository, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		newTaskID: NewTaskID,
		validate:  newValidator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time { return m.now() }

// Today returns the manager's current calendar date.
func (m *Manager) Today() string { return ledger.DateOf(m.now()) }

// Repository exposes the underlying store to read-side collaborators.
func (m *Manager) Repository() repository.TaskRepository { return m.repo }

// Create validates spec and stores a new YetToStart task assigned by actor.
func (m *Manager) Create(ctx context.Context, actor string, spec TaskSpec) (*models.Task, error) {
	spec = spec.normalize()
	if err := validateSpec(m.validate, actor, spec); err != nil {
		return nil, err
	}
	owner, err := m.CanonicalUser(ctx, spec.Owner)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Kind:               spec.Kind,
		RecurrenceInterval: spec.RecurrenceInterval,
		Description:        spec.Description,
		Owner:              owner,
		AssignedBy:         strings.TrimSpace(actor),
		Supporters:         []string{},
		StartDate:          spec.StartDate,
		DueDate:            spec.DueDate,
		Priority:           spec.Priority,
		EstimatedHours:     spec.EstimatedHours,
	}
	created, err := m.Insert(ctx, task)
	if err != nil {
		return nil, err
	}

	metrics.RecordTaskCreated(false)
	m.log.WithFields(logrus.Fields{
		"task_id": created.TaskID,
		"owner":   created.Owner,
		"actor":   actor,
	}).Info("task created")
	return created, nil
}

// Insert stores an already validated task. It assigns the opaque id, a fresh
// task code, timestamps and the initial status and empty logs, regenerating
// the code when the repository reports a collision.
func (m *Manager) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	ts := m.now()
	row := task.Clone()
	row.ID = uuid.NewString()
	row.Status = models.StatusYetToStart
	row.DailyHours = ledger.Empty
	row.Remarks = ""
	row.Difficulties = ""
	row.Version = 1
	row.CreatedAt = ts
	row.UpdatedAt = ts
	row.SyncDerived()

	for attempt := 1; ; attempt++ {
		row.TaskID = m.newTaskID(ts)
		created, err := m.repo.Create(ctx, row)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, apperr.ErrDuplicateTaskID) || attempt >= maxTaskIDAttempts {
			return nil, err
		}
		m.log.WithField("task_id", row.TaskID).Warn("task id collision, regenerating")
	}
}

// CanonicalUser maps an identity to its user id. Without a resolver, or when
// the resolver does not know the identity, it is returned unchanged.
func (m *Manager) CanonicalUser(ctx context.Context, ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if m.users == nil || ident == "" {
		return ident, nil
	}
	p, err := m.users.Resolve(ctx, ident)
	if errors.Is(err, apperr.ErrNotFound) {
		return ident, nil
	}
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Get returns the task with the given opaque id.
func (m *Manager) Get(ctx context.Context, id string) (*models.Task, error) {
	return m.repo.Get(ctx, id)
}

// GetByTaskID returns the task with the given human-readable code.
func (m *Manager) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	return m.repo.GetByTaskID(ctx, taskID)
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Owner       string
	Status      models.TaskStatus
	SupportOnly bool
}

// List returns the tasks matching filter in repository order.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*models.Task, error) {
	if filter.Owner != "" {
		owner, err := m.CanonicalUser(ctx, filter.Owner)
		if err != nil {
			return nil, err
		}
		filter.Owner = owner
	}
	all, err := m.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if filter.Owner != "" && t.Owner != filter.Owner {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.SupportOnly && !t.IsSupportTask() {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// UpdateStatus loads the task and moves it to status.
func (m *Manager) UpdateStatus(ctx context.Context, actor, id string, status models.TaskStatus) (*models.Task, error) {
	if err := validateStatus(actor, status); err != nil {
		return nil, err
	}
	task, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.Transition(ctx, actor, task, status)
}

// Transition moves an already loaded task to status. Any status may follow
// any other, except that a closed task (Done, Cancel, Stop) only moves to
// ReOpened. Setting the current status again returns the task unchanged.
// The write is guarded by the version of task, so a stale task yields
// apperr.ErrConflict.
func (m *Manager) Transition(ctx context.Context, actor string, task *models.Task, status models.TaskStatus) (*models.Task, error) {
	if err := validateStatus(actor, status); err != nil {
		return nil, err
	}
	if task.Status == status {
		return task, nil
	}
	if task.Status.IsClosed() && status != models.StatusReOpened {
		return nil, fmt.Errorf("%w: %s task %s can only be ReOpened", apperr.ErrIllegalTransition, task.Status, task.TaskID)
	}

	updated, err := m.repo.Update(ctx, task.ID, repository.Patch{
		Status:          &status,
		UpdatedAt:       m.now(),
		ExpectedVersion: task.Version,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(task.Status), string(status))
	m.log.WithFields(logrus.Fields{
		"task_id": task.TaskID,
		"from":    task.Status,
		"to":      status,
		"actor":   actor,
	}).Info("task status changed")
	return updated, nil
}

// LogWork adds hours to the ledger for entry.Date (today when empty) and
// appends the optional remark and difficulty to their logs.
func (m *Manager) LogWork(ctx context.Context, actor, id string, entry WorkEntry) (*models.Task, error) {
	entry.Date = strings.TrimSpace(entry.Date)
	if err := validateWork(actor, entry); err != nil {
		return nil, err
	}
	if entry.Date == "" {
		entry.Date = m.Today()
	}

	task, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	hours := ledger.Parse(task.DailyHours).String()
	if entry.Hours > 0 {
		hours, err = ledger.AddHours(task.DailyHours, entry.Date, entry.Hours)
		if err != nil {
			return nil, apperr.Invalid("hours", "%v", err)
		}
	}
	ts := m.now()
	remarks := models.AppendLog(task.Remarks, ts, entry.Remark)
	difficulties := models.AppendLog(task.Difficulties, ts, entry.Difficulty)

	updated, err := m.repo.Update(ctx, task.ID, repository.Patch{
		DailyHours:      &hours,
		Remarks:         &remarks,
		Difficulties:    &difficulties,
		UpdatedAt:       ts,
		ExpectedVersion: task.Version,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordHoursLogged(entry.Hours)
	m.log.WithFields(logrus.Fields{
		"task_id": task.TaskID,
		"date":    entry.Date,
		"hours":   entry.Hours,
		"total":   updated.ActualHours,
		"actor":   actor,
	}).Info("work logged")
	return updated, nil
}

// AddSupporters extends the supporters set of task with identities it does
// not already hold.
func (m *Manager) AddSupporters(ctx context.Context, actor string, task *models.Task, identities []string) (*models.Task, error) {
	next := task.Clone()
	for _, id := range identities {
		if id != "" && !next.HasSupporter(id) {
			next.Supporters = append(next.Supporters, id)
		}
	}
	if len(next.Supporters) == len(task.Supporters) {
		return task, nil
	}
	supporters := next.Supporters

	updated, err := m.repo.Update(ctx, task.ID, repository.Patch{
		Supporters:      &supporters,
		UpdatedAt:       m.now(),
		ExpectedVersion: task.Version,
	})
	if err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{
		"task_id":    task.TaskID,
		"supporters": supporters,
		"actor":      actor,
	}).Debug("supporters updated")
	return updated, nil
}

// Delete removes the task from the repository.
func (m *Manager) Delete(ctx context.Context, actor, id string) error {
	if strings.TrimSpace(actor) == "" {
		return apperr.Invalid("actor", "is required")
	}
	task, err := m.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"task_id": task.TaskID,
		"actor":   actor,
	}).Info("task deleted")
	return nil
}

func validateStatus(actor string, status models.TaskStatus) error {
	verr := &apperr.ValidationError{}
	if strings.TrimSpace(actor) == "" {
		verr.Add("actor", "is required")
	}
	if !status.IsValid() {
		verr.Add("status", "must be one of YetToStart, InProgress, Done, Delayed, Hold, Cancel, Stop, ReOpened")
	}
	return verr.OrNil()
}
