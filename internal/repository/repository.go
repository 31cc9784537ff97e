// Package repository holds the task stores the lifecycle engine persists through.
package repository

import (
	"context"
	"time"

	"task-tracker-api/internal/models"
)

// TaskRepository is the durability boundary of the engine.
//
// Implementations return apperr.ErrNotFound for unknown ids,
// apperr.ErrDuplicateTaskID when a task code is taken and apperr.ErrConflict
// when Patch.ExpectedVersion does not match the stored version.
type TaskRepository interface {
	Get(ctx context.Context, id string) (*models.Task, error)
	GetByTaskID(ctx context.Context, taskID string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	Update(ctx context.Context, id string, patch Patch) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]*models.Task, error)
}

// Patch lists the mutable fields of a task. Nil fields are left untouched.
type Patch struct {
	Status       *models.TaskStatus
	DailyHours   *string
	Remarks      *string
	Difficulties *string
	Supporters   *[]string
	UpdatedAt    time.Time

	// ExpectedVersion must equal the stored version; 0 skips the check.
	ExpectedVersion int
}

// Apply returns a copy of t with the patch applied and the version bumped.
func (p Patch) Apply(t *models.Task) *models.Task {
	next := t.Clone()
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.DailyHours != nil {
		next.DailyHours = *p.DailyHours
	}
	if p.Remarks != nil {
		next.Remarks = *p.Remarks
	}
	if p.Difficulties != nil {
		next.Difficulties = *p.Difficulties
	}
	if p.Supporters != nil {
		next.Supporters = append([]string(nil), (*p.Supporters)...)
	}
	if !p.UpdatedAt.IsZero() {
		next.UpdatedAt = p.UpdatedAt
	}
	next.Version = t.Version + 1
	next.SyncDerived()
	return next
}

// VersionMatches reports whether the patch may be applied to a record at version.
func (p Patch) VersionMatches(version int) bool {
	return p.ExpectedVersion == 0 || p.ExpectedVersion == version
}
