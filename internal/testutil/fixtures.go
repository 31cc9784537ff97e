package testutil

import (
	"time"

	"task-tracker-api/internal/models"
)

// FixedClock returns a clock frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Date is a terse constructor for midday UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// NewTask returns a minimal valid stored task.
func NewTask(id, code string, status models.TaskStatus, due string) *models.Task {
	return &models.Task{
		ID:             id,
		TaskID:         code,
		Kind:           models.KindNormal,
		Description:    "task " + code,
		Owner:          "u-1",
		AssignedBy:     "u-1",
		StartDate:      "2024-01-01",
		DueDate:        due,
		Priority:       models.PriorityUrgentImportant,
		EstimatedHours: 4,
		Status:         status,
		DailyHours:     "{}",
		Version:        1,
	}
}
