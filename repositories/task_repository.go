package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
)

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilter narrows task listings; zero fields are ignored
type TaskFilter struct {
	CustomerID *uuid.UUID
	Status     models.TaskStatus
	Assignee   string
	Origin     models.TaskOrigin
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := conn(ctx, r.db).Omit("Customer").Create(task).Error; err != nil {
		return apperrors.Transient("create task", err)
	}
	return nil
}

// Get retrieves a task by its ID
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := conn(ctx, r.db).First(&task, "id = ?", id).Error; err != nil {
		return nil, dbError("get task", "task", id, err)
	}
	return &task, nil
}

// Update writes the editable columns of task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	err := conn(ctx, r.db).Model(task).
		Select("title", "description", "assignee", "priority", "due_at", "status", "updated_at").
		Updates(task).Error
	if err != nil {
		return apperrors.Transient("update task", err)
	}
	return nil
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Transient("delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("task", id)
	}
	return nil
}

// List returns one page of tasks matching filter, earliest due first
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter, page Page) ([]models.Task, int64, error) {
	page = page.Normalize()
	q := conn(ctx, r.db).Model(&models.Task{})
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Assignee != "" {
		q = q.Where("assignee = ?", filter.Assignee)
	}
	if filter.Origin != "" {
		q = q.Where("origin = ?", filter.Origin)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Transient("count tasks", err)
	}

	var tasks []models.Task
	err := q.Order("due_at IS NULL, due_at ASC, created_at ASC").
		Offset(page.offset()).Limit(page.Size).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, apperrors.Transient("list tasks", err)
	}
	return tasks, total, nil
}

// HasOpenChurnTask reports whether the customer already has a pending or
// in-progress churn-alert task
func (r *TaskRepository) HasOpenChurnTask(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Task{}).
		Where("customer_id = ? AND origin = ? AND status IN ?", customerID, models.TaskOriginChurnAlert,
			[]models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress}).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Transient("check open churn task", err)
	}
	return count > 0, nil
}
