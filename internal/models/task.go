package models

import (
	"strings"
	"time"

	"task-tracker-api/internal/ledger"

	"gorm.io/gorm"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusYetToStart TaskStatus = "YetToStart"
	StatusInProgress TaskStatus = "InProgress"
	StatusDone       TaskStatus = "Done"
	StatusDelayed    TaskStatus = "Delayed"
	StatusHold       TaskStatus = "Hold"
	StatusCancel     TaskStatus = "Cancel"
	StatusStop       TaskStatus = "Stop"
	StatusReOpened   TaskStatus = "ReOpened"
)

// AllStatuses lists every status in display order.
var AllStatuses = []TaskStatus{
	StatusYetToStart, StatusInProgress, StatusHold, StatusDelayed,
	StatusReOpened, StatusDone, StatusCancel, StatusStop,
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsClosed reports whether the task has finished its cycle. A closed task
// only leaves this state through ReOpened.
func (s TaskStatus) IsClosed() bool {
	return s == StatusDone || s == StatusCancel || s == StatusStop
}

// CanBeDelayed reports whether a task in this status is watched by the delayed sweep.
func (s TaskStatus) CanBeDelayed() bool {
	switch s {
	case StatusYetToStart, StatusInProgress, StatusHold, StatusReOpened:
		return true
	}
	return false
}

// TaskPriority is one of the four urgent/important quadrants
type TaskPriority string

const (
	PriorityUrgentImportant       TaskPriority = "UrgentImportant"
	PriorityNotUrgentImportant    TaskPriority = "NotUrgentImportant"
	PriorityUrgentNotImportant    TaskPriority = "UrgentNotImportant"
	PriorityNotUrgentNotImportant TaskPriority = "NotUrgentNotImportant"
)

// TaskKind distinguishes one-off tasks from recurring ones
type TaskKind string

const (
	KindNormal    TaskKind = "Normal"
	KindRecursive TaskKind = "Recursive"
)

// RecurrenceInterval is how often a Recursive task repeats
type RecurrenceInterval string

const (
	RecurDaily    RecurrenceInterval = "Daily"
	RecurWeekly   RecurrenceInterval = "Weekly"
	RecurMonthly  RecurrenceInterval = "Monthly"
	RecurAnnually RecurrenceInterval = "Annually"
)

// SupportPrefix is prepended to the description of every support task.
const SupportPrefix = "[SUPPORT] "

// Task represents a unit of work in the tracker
type Task struct {
	ID                 string             `json:"id" gorm:"primaryKey"`
	TaskID             string             `json:"taskId" gorm:"column:task_code;uniqueIndex;not null"`
	Kind               TaskKind           `json:"kind" gorm:"not null;default:'Normal'"`
	RecurrenceInterval RecurrenceInterval `json:"recurrenceInterval,omitempty" gorm:"column:recurrence_interval"`
	Description        string             `json:"description" gorm:"not null"`
	Owner              string             `json:"owner" gorm:"column:owner_id;index"`
	AssignedBy         string             `json:"assignedBy" gorm:"column:assigned_by"`
	Supporters         []string           `json:"supporters" gorm:"serializer:json"`
	StartDate          string             `json:"startDate" gorm:"column:start_date"`
	DueDate            string             `json:"dueDate" gorm:"column:due_date;index"`
	Priority           TaskPriority       `json:"priority"`
	EstimatedHours     float64            `json:"estimatedHours" gorm:"column:estimated_hours"`
	Status             TaskStatus         `json:"status" gorm:"not null;default:'YetToStart';index"`
	DailyHours         string             `json:"dailyHours" gorm:"column:daily_hours;type:text"`
	ActualHours        float64            `json:"actualHours" gorm:"-"`
	Remarks            string             `json:"remarks" gorm:"type:text"`
	Difficulties       string             `json:"difficulties" gorm:"type:text"`
	SubTaskLink        string             `json:"subTaskLink,omitempty" gorm:"column:sub_task_link;index"`
	Version            int                `json:"version" gorm:"not null;default:1"`
	CreatedAt          time.Time          `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt          time.Time          `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// AfterFind keeps the derived hours in sync with the ledger on every load.
func (t *Task) AfterFind(tx *gorm.DB) error {
	t.SyncDerived()
	return nil
}

// SyncDerived recomputes ActualHours from the ledger and normalizes empty
// ledgers and supporter sets.
func (t *Task) SyncDerived() {
	if t.Supporters == nil {
		t.Supporters = []string{}
	}
	l := ledger.Parse(t.DailyHours)
	t.DailyHours = l.String()
	t.ActualHours = l.Total()
}

// IsSupportTask reports whether the task was fanned out from a primary task.
func (t *Task) IsSupportTask() bool {
	return strings.TrimSpace(t.SubTaskLink) != ""
}

// Clone returns a deep copy so callers never share slices with stored values.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Supporters != nil {
		c.Supporters = append([]string(nil), t.Supporters...)
	}
	return &c
}

// HasSupporter reports whether identity is already in the supporters set.
func (t *Task) HasSupporter(identity string) bool {
	for _, s := range t.Supporters {
		if s == identity {
			return true
		}
	}
	return false
}
