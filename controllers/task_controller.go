package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/repositories"
	"github.com/anacarla/crm-api/services"
)

// TaskRequest represents the request body for creating or updating a task
type TaskRequest struct {
	CustomerID  *uuid.UUID `json:"customer_id"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee" binding:"max=100"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueAt       *time.Time `json:"due_at"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending in_progress done cancelled"`
	Origin      string     `json:"origin" binding:"omitempty,oneof=manual churn-alert"`
}

func (r TaskRequest) input() services.TaskInput {
	return services.TaskInput{
		CustomerID:  r.CustomerID,
		Title:       r.Title,
		Description: r.Description,
		Assignee:    r.Assignee,
		Priority:    models.TaskPriority(r.Priority),
		DueAt:       r.DueAt,
		Status:      models.TaskStatus(r.Status),
		Origin:      models.TaskOrigin(r.Origin),
	}
}

// TaskController serves operator tasks
type TaskController struct {
	tasks *services.TaskService
}

// NewTaskController creates a new TaskController
func NewTaskController(tasks *services.TaskService) *TaskController {
	return &TaskController{tasks: tasks}
}

// CreateTask handles POST /api/v1/tasks - creates a manual task
func (h *TaskController) CreateTask(c *gin.Context) {
	var req TaskRequest
	if !bindJSON(c, &req) {
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, task)
}

// CreateCustomerTask handles POST /api/v1/customers/:id/tasks - creates a task for the customer in the path
func (h *TaskController) CreateCustomerTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TaskRequest
	if !bindJSON(c, &req) {
		return
	}
	req.CustomerID = &id

	task, err := h.tasks.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, task)
}

// GetTasks handles GET /api/v1/tasks - lists tasks by status and assignee
func (h *TaskController) GetTasks(c *gin.Context) {
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	filter := repositories.TaskFilter{
		Status:   models.TaskStatus(c.Query("status")),
		Assignee: c.Query("assignee"),
		Origin:   models.TaskOrigin(c.Query("origin")),
	}
	result, err := h.tasks.List(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// GetCustomerTasks handles GET /api/v1/customers/:id/tasks
func (h *TaskController) GetCustomerTasks(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	result, err := h.tasks.ListByCustomer(c.Request.Context(), id, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TaskController) GetTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, task)
}

// UpdateTask handles PUT /api/v1/tasks/:id
func (h *TaskController) UpdateTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TaskRequest
	if !bindJSON(c, &req) {
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *TaskController) DeleteTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
