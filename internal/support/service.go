// Package support fans a primary task out into one linked support task per
// helper and answers questions about those links.
package support

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/identity"
	"task-tracker-api/internal/ledger"
	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/metrics"
	"task-tracker-api/internal/models"

	"github.com/sirupsen/logrus"
)

// Skip reasons reported in FanOutResult.Skipped.
const (
	ReasonUnresolved = "identity could not be resolved"
	ReasonDuplicate  = "helper listed more than once"
	ReasonOwner      = "helper already owns the primary task"
)

// SkippedHelper is a helper that did not receive a support task.
type SkippedHelper struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
}

// FanOutResult reports what CreateSupportTasks did.
type FanOutResult struct {
	Primary *models.Task    `json:"primary"`
	Created []string        `json:"created"`
	Tasks   []*models.Task  `json:"tasks"`
	Skipped []SkippedHelper `json:"skipped"`
}

// Summary aggregates the support tasks linked to one primary task.
type Summary struct {
	PrimaryTaskID   string                       `json:"primaryTaskId"`
	Count           int                          `json:"count"`
	CompletedCount  int                          `json:"completedCount"`
	TotalHours      float64                      `json:"totalHours"`
	PerHelperStatus map[string]models.TaskStatus `json:"perHelperStatus"`
}

// Service creates and inspects support tasks.
type Service struct {
	tasks *lifecycle.Manager
	users identity.Resolver
	log   logrus.FieldLogger
}

// NewService wires the fan-out service. A nil log uses logrus' standard logger.
func NewService(tasks *lifecycle.Manager, users identity.Resolver, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{tasks: tasks, users: users, log: log}
}

// CreateSupportTasks creates one support task per distinct resolvable helper,
// sequentially, and then adds those helpers to the primary's supporters.
//
// Helpers that cannot be resolved, repeat an earlier helper or own the
// primary are skipped with a warning. A storage failure stops the fan-out;
// the tasks created so far are kept and returned along with the error.
func (s *Service) CreateSupportTasks(ctx context.Context, actor string, primary *models.Task, helpers []string) (*FanOutResult, error) {
	if err := checkPrimary(actor, primary); err != nil {
		return nil, err
	}

	ownerID, err := s.ownerID(ctx, primary)
	if err != nil {
		return nil, err
	}

	result := &FanOutResult{Primary: primary, Created: []string{}, Tasks: []*models.Task{}, Skipped: []SkippedHelper{}}
	seen := make(map[string]struct{}, len(helpers))
	var granted []string

	var fanOutErr error
	for _, raw := range helpers {
		helper := strings.TrimSpace(raw)
		if helper == "" {
			continue
		}

		profile, err := s.users.Resolve(ctx, helper)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				fanOutErr = err
				break
			}
			s.skip(result, primary, helper, ReasonUnresolved)
			continue
		}
		if _, dup := seen[profile.ID]; dup {
			s.skip(result, primary, helper, ReasonDuplicate)
			continue
		}
		seen[profile.ID] = struct{}{}
		if profile.ID == ownerID {
			s.skip(result, primary, helper, ReasonOwner)
			continue
		}

		created, err := s.tasks.Insert(ctx, supportTaskFor(primary, profile.ID))
		if err != nil {
			fanOutErr = err
			break
		}
		metrics.RecordTaskCreated(true)
		result.Created = append(result.Created, created.TaskID)
		result.Tasks = append(result.Tasks, created)
		granted = append(granted, profile.ID)
	}
	metrics.RecordSupportSkipped(len(result.Skipped))

	if len(granted) > 0 {
		updated, err := s.extendSupporters(ctx, actor, primary, granted)
		if err != nil && fanOutErr == nil {
			fanOutErr = err
		}
		if updated != nil {
			result.Primary = updated
		}
	}

	s.log.WithFields(logrus.Fields{
		"task_id": primary.TaskID,
		"created": len(result.Created),
		"skipped": len(result.Skipped),
		"actor":   actor,
	}).Info("support tasks created")
	return result, fanOutErr
}

// ownerID resolves the primary's owner so it compares with helper ids even
// when the task stored a username.
func (s *Service) ownerID(ctx context.Context, primary *models.Task) (string, error) {
	profile, err := s.users.Resolve(ctx, primary.Owner)
	if errors.Is(err, apperr.ErrNotFound) {
		return primary.Owner, nil
	}
	if err != nil {
		return "", err
	}
	return profile.ID, nil
}

// extendSupporters reloads the primary so a fan-out never trips over a
// version bumped while it was running.
func (s *Service) extendSupporters(ctx context.Context, actor string, primary *models.Task, granted []string) (*models.Task, error) {
	fresh, err := s.tasks.Get(ctx, primary.ID)
	if err != nil {
		return nil, err
	}
	return s.tasks.AddSupporters(ctx, actor, fresh, granted)
}

func (s *Service) skip(result *FanOutResult, primary *models.Task, helper, reason string) {
	s.log.WithFields(logrus.Fields{
		"task_id": primary.TaskID,
		"helper":  helper,
	}).Warn("support task skipped: " + reason)
	result.Skipped = append(result.Skipped, SkippedHelper{Identity: helper, Reason: reason})
}

func checkPrimary(actor string, primary *models.Task) error {
	verr := &apperr.ValidationError{}
	if strings.TrimSpace(actor) == "" {
		verr.Add("actor", "is required")
	}
	switch {
	case primary == nil:
		verr.Add("primary", "is required")
	case primary.IsSupportTask():
		verr.Add("primary", "%s is itself a support task", primary.TaskID)
	case primary.Status.IsClosed():
		verr.Add("primary", "%s is %s and cannot receive support tasks", primary.TaskID, primary.Status)
	}
	return verr.OrNil()
}

func supportTaskFor(primary *models.Task, owner string) *models.Task {
	return &models.Task{
		Kind:               primary.Kind,
		RecurrenceInterval: primary.RecurrenceInterval,
		Description:        models.SupportPrefix + primary.Description,
		Owner:              owner,
		AssignedBy:         primary.AssignedBy,
		Supporters:         []string{},
		StartDate:          primary.StartDate,
		DueDate:            primary.DueDate,
		Priority:           primary.Priority,
		EstimatedHours:     0,
		SubTaskLink:        primary.TaskID,
	}
}

// IsSupportTask reports whether task was created by a fan-out.
func IsSupportTask(task *models.Task) bool {
	return task != nil && task.IsSupportTask()
}

// FindPrimaryTask returns the primary task a support task links to.
func (s *Service) FindPrimaryTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	if !IsSupportTask(task) {
		return nil, fmt.Errorf("%w: task is not a support task", apperr.ErrNotFound)
	}
	return s.tasks.GetByTaskID(ctx, task.SubTaskLink)
}

// ListSupportTasks returns the support tasks linked to primaryTaskID.
func (s *Service) ListSupportTasks(ctx context.Context, primaryTaskID string) ([]*models.Task, error) {
	all, err := s.tasks.List(ctx, lifecycle.ListFilter{SupportOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Task, 0)
	for _, t := range all {
		if t.SubTaskLink == primaryTaskID {
			out = append(out, t)
		}
	}
	return out, nil
}

// SummarizeSupport aggregates count, completion and hours of the support
// tasks of primaryTaskID. A helper with several support tasks reports the
// status of the most recent one.
func (s *Service) SummarizeSupport(ctx context.Context, primaryTaskID string) (*Summary, error) {
	linked, err := s.ListSupportTasks(ctx, primaryTaskID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		PrimaryTaskID:   primaryTaskID,
		PerHelperStatus: make(map[string]models.TaskStatus, len(linked)),
	}
	var hours float64
	for _, t := range linked {
		sum.Count++
		if t.Status == models.StatusDone {
			sum.CompletedCount++
		}
		hours += t.ActualHours
		// ListAll is ordered by creation time
		sum.PerHelperStatus[t.Owner] = t.Status
	}
	sum.TotalHours = ledger.Round(hours)
	return sum, nil
}
