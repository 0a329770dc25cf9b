package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskPriority ranks follow-up urgency
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskStatus tracks operator progress on a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskOrigin tells manually created tasks apart from generated ones
type TaskOrigin string

const (
	TaskOriginManual     TaskOrigin = "manual"
	TaskOriginChurnAlert TaskOrigin = "churn-alert"
)

// Task represents an operator to-do, optionally tied to a customer
type Task struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID  *uuid.UUID   `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Customer    *Customer    `gorm:"foreignKey:CustomerID" json:"-"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Assignee    string       `gorm:"size:100;index" json:"assignee,omitempty"`
	Priority    TaskPriority `gorm:"size:50;not null;default:'medium'" json:"priority"`
	DueAt       *time.Time   `gorm:"index" json:"due_at,omitempty"`
	Status      TaskStatus   `gorm:"size:50;not null;default:'pending';index" json:"status"`
	Origin      TaskOrigin   `gorm:"size:50;not null;default:'manual'" json:"origin"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new task
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}
