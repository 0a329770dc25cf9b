package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/repositories"
)

// TaskRepository is the task persistence used by TaskService
type TaskRepository interface {
	TaskStore
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter repositories.TaskFilter, page repositories.Page) ([]models.Task, int64, error)
}

// TaskInput carries the editable fields of a task
type TaskInput struct {
	CustomerID  *uuid.UUID
	Title       string
	Description string
	Assignee    string
	Priority    models.TaskPriority
	DueAt       *time.Time
	Status      models.TaskStatus
	Origin      models.TaskOrigin
}

// TaskService manages operator tasks
type TaskService struct {
	tasks     TaskRepository
	customers CustomerGetter
	logger    logrus.FieldLogger
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks TaskRepository, customers CustomerGetter, logger logrus.FieldLogger) *TaskService {
	return &TaskService{tasks: tasks, customers: customers, logger: logger}
}

// Create stores a new task. Status defaults to pending, priority to medium
// and origin to manual.
func (s *TaskService) Create(ctx context.Context, in TaskInput) (*models.Task, error) {
	task := &models.Task{
		Status:   models.TaskStatusPending,
		Priority: models.TaskPriorityMedium,
		Origin:   models.TaskOriginManual,
	}
	switch in.Origin {
	case "":
	case models.TaskOriginManual, models.TaskOriginChurnAlert:
		task.Origin = in.Origin
	default:
		return nil, apperrors.Validationf("invalid task origin %q", in.Origin)
	}
	if err := applyTask(task, in); err != nil {
		return nil, err
	}

	if in.CustomerID != nil {
		if _, err := s.customers.Get(ctx, *in.CustomerID); err != nil {
			return nil, err
		}
		id := *in.CustomerID
		task.CustomerID = &id
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"task_id": task.ID, "origin": task.Origin}).Info("task created")
	return task, nil
}

// Get returns a task by ID
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.tasks.Get(ctx, id)
}

// Update replaces the editable fields of a task. The customer link and
// origin never change.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, in TaskInput) (*models.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyTask(task, in); err != nil {
		return nil, err
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tasks.Delete(ctx, id)
}

// ListByCustomer returns one page of the customer's tasks
func (s *TaskService) ListByCustomer(ctx context.Context, customerID uuid.UUID, page repositories.Page) (PageResult[models.Task], error) {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return PageResult[models.Task]{}, err
	}
	return s.List(ctx, repositories.TaskFilter{CustomerID: &customerID}, page)
}

// List returns one page of tasks matching the filter. Status and assignee
// may be combined.
func (s *TaskService) List(ctx context.Context, filter repositories.TaskFilter, page repositories.Page) (PageResult[models.Task], error) {
	if filter.Status != "" && !validTaskStatus(filter.Status) {
		return PageResult[models.Task]{}, apperrors.Validationf("invalid task status %q", filter.Status)
	}
	tasks, total, err := s.tasks.List(ctx, filter, page)
	if err != nil {
		return PageResult[models.Task]{}, err
	}
	return newPageResult(tasks, total, page), nil
}

func applyTask(task *models.Task, in TaskInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperrors.Validation("title is required")
	}
	task.Title = title
	task.Description = strings.TrimSpace(in.Description)
	task.Assignee = strings.TrimSpace(in.Assignee)
	task.DueAt = in.DueAt

	if in.Priority != "" {
		switch in.Priority {
		case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
			task.Priority = in.Priority
		default:
			return apperrors.Validationf("invalid task priority %q", in.Priority)
		}
	}
	if in.Status != "" {
		if !validTaskStatus(in.Status) {
			return apperrors.Validationf("invalid task status %q", in.Status)
		}
		task.Status = in.Status
	}
	return nil
}

func validTaskStatus(status models.TaskStatus) bool {
	switch status {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusDone, models.TaskStatusCancelled:
		return true
	}
	return false
}
