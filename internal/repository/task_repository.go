package repository

import (
	"context"
	"errors"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/models"

	"gorm.io/gorm"
)

// taskRepository stores tasks in a SQL database through gorm
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a gorm-backed TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate("get", err)
	}
	return &task, nil
}

func (r *taskRepository) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("task_code = ?", taskID).First(&task).Error; err != nil {
		return nil, translate("get by task id", err)
	}
	return &task, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	row := task.Clone()
	if row.Version == 0 {
		row.Version = 1
	}
	row.SyncDerived()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Task{}).Where("task_code = ?", row.TaskID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return apperr.ErrDuplicateTaskID
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, translate("create", err)
	}
	return row, nil
}

func (r *taskRepository) Update(ctx context.Context, id string, patch Patch) (*models.Task, error) {
	var updated *models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Task
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		if !patch.VersionMatches(current.Version) {
			return apperr.ErrConflict
		}

		next := patch.Apply(&current)
		// guard on the version we read so a concurrent writer turns into a conflict
		res := tx.Model(&models.Task{ID: id}).
			Where("version = ?", current.Version).
			Select("status", "daily_hours", "remarks", "difficulties", "supporters", "version", "updated_at").
			Updates(next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, translate("update", err)
	}
	return updated, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if res.Error != nil {
		return translate("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *taskRepository) ListAll(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	if err := r.db.WithContext(ctx).Order("created_at asc").Order("task_code asc").Find(&tasks).Error; err != nil {
		return nil, translate("list", err)
	}
	return tasks, nil
}

func translate(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return apperr.Repo(op, err)
}
