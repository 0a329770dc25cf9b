package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/middleware"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/services"
)

// CreateInteractionRequest represents the request body for recording a contact
type CreateInteractionRequest struct {
	Type       string     `json:"type" binding:"required,oneof=whatsapp phone email in_person note"`
	Summary    string     `json:"summary"`
	Author     string     `json:"author" binding:"max=100"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// InteractionController serves the contact history of customers
type InteractionController struct {
	interactions *services.InteractionService
}

// NewInteractionController creates a new InteractionController
func NewInteractionController(interactions *services.InteractionService) *InteractionController {
	return &InteractionController{interactions: interactions}
}

// CreateInteraction handles POST /api/v1/customers/:id/interactions - records a contact.
// The author defaults to the authenticated user.
func (h *InteractionController) CreateInteraction(c *gin.Context) {
	customerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreateInteractionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Author == "" {
		if userID, err := middleware.GetUserID(c); err == nil {
			req.Author = userID
		}
	}

	interaction, err := h.interactions.Create(c.Request.Context(), customerID, services.InteractionInput{
		Type:       models.InteractionType(req.Type),
		Summary:    req.Summary,
		Author:     req.Author,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, interaction)
}

// GetCustomerInteractions handles GET /api/v1/customers/:id/interactions - most recent first
func (h *InteractionController) GetCustomerInteractions(c *gin.Context) {
	customerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	interactions, err := h.interactions.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, interactions)
}

// GetInteraction handles GET /api/v1/interactions/:id
func (h *InteractionController) GetInteraction(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	interaction, err := h.interactions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, interaction)
}

// UploadAttachment handles POST /api/v1/interactions/:id/attachment - attaches a PNG, JPEG or PDF file
func (h *InteractionController) UploadAttachment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.Validation("A file is required in the 'file' form field").
			WithDetails(map[string]string{"file": "required"}))
		return
	}

	interaction, err := h.interactions.Attach(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, interaction)
}

// DeleteInteraction handles DELETE /api/v1/interactions/:id - also removes the stored attachment
func (h *InteractionController) DeleteInteraction(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.interactions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
