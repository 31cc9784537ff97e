// Package delayed reclassifies overdue active tasks as Delayed.
package delayed

import (
	"context"
	"time"

	"task-tracker-api/internal/ledger"
	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/metrics"
	"task-tracker-api/internal/models"

	"github.com/sirupsen/logrus"
)

// SystemActor is recorded as the actor of scheduled sweeps.
const SystemActor = "system:delayed-sweep"

// Failure is a task the sweep could not promote.
type Failure struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// SweepResult reports one sweep.
type SweepResult struct {
	PromotedCount   int            `json:"promotedCount"`
	PromotedTaskIDs []string       `json:"promotedTaskIds"`
	Promoted        []*models.Task `json:"-"`
	Failed          []Failure      `json:"failed"`
}

// Scan returns the tasks whose due date lies strictly before today and whose
// status is still active. Tasks due today, closed or already Delayed tasks
// and tasks with an unparseable due date are never returned.
func Scan(tasks []*models.Task, today time.Time) []*models.Task {
	cutoff := ledger.DateOf(today)
	eligible := make([]*models.Task, 0)
	for _, t := range tasks {
		if t == nil || !t.Status.CanBeDelayed() {
			continue
		}
		due, err := ledger.ParseDate(t.DueDate)
		if err != nil {
			continue
		}
		if ledger.DateOf(due) < cutoff {
			eligible = append(eligible, t)
		}
	}
	return eligible
}

// Detector applies sweeps through the lifecycle manager.
type Detector struct {
	tasks *lifecycle.Manager
	log   logrus.FieldLogger
}

// NewDetector creates a Detector. A nil log uses logrus' standard logger.
func NewDetector(tasks *lifecycle.Manager, log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{tasks: tasks, log: log}
}

// Apply moves every eligible task to Delayed. A failing task is reported in
// Failed and does not stop the batch.
func (d *Detector) Apply(ctx context.Context, actor string, eligible []*models.Task) *SweepResult {
	res := &SweepResult{PromotedTaskIDs: []string{}, Promoted: []*models.Task{}, Failed: []Failure{}}
	for _, t := range eligible {
		if !t.Status.CanBeDelayed() {
			continue
		}
		updated, err := d.tasks.Transition(ctx, actor, t, models.StatusDelayed)
		if err != nil {
			d.log.WithError(err).WithField("task_id", t.TaskID).Warn("delayed sweep: task not promoted")
			res.Failed = append(res.Failed, Failure{TaskID: t.TaskID, Error: err.Error()})
			continue
		}
		res.PromotedTaskIDs = append(res.PromotedTaskIDs, updated.TaskID)
		res.Promoted = append(res.Promoted, updated)
	}
	res.PromotedCount = len(res.PromotedTaskIDs)
	return res
}

// Run loads every task, scans it against the manager's today and applies
// the result. Running it twice in a row promotes nothing the second time.
func (d *Detector) Run(ctx context.Context, actor string) (*SweepResult, error) {
	all, err := d.tasks.Repository().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	eligible := Scan(all, d.tasks.Now())
	res := d.Apply(ctx, actor, eligible)

	metrics.RecordSweep(res.PromotedCount)
	entry := d.log.WithFields(logrus.Fields{
		"scanned":  len(all),
		"promoted": res.PromotedCount,
		"failed":   len(res.Failed),
		"actor":    actor,
	})
	if res.PromotedCount > 0 || len(res.Failed) > 0 {
		entry.Info("delayed sweep finished")
	} else {
		entry.Debug("delayed sweep finished")
	}
	return res, nil
}
