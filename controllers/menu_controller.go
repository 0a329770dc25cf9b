package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/services"
)

// MenuItemRequest represents the request body for creating or updating a menu item
type MenuItemRequest struct {
	Category    string           `json:"category" binding:"required,oneof=protein salad side drink bowl dessert"`
	Name        string           `json:"name" binding:"required,max=200"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Description string           `json:"description"`
	Active      *bool            `json:"active"`
	Position    int              `json:"position" binding:"gte=0"`
}

func (r MenuItemRequest) input() services.MenuItemInput {
	return services.MenuItemInput{
		Category:    models.MenuCategory(r.Category),
		Name:        r.Name,
		Price:       *r.Price,
		Description: r.Description,
		Active:      r.Active,
		Position:    r.Position,
	}
}

// SetActiveRequest represents the request body for toggling a menu item
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// MenuController serves the menu
type MenuController struct {
	menu *services.MenuService
}

// NewMenuController creates a new MenuController
func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{menu: menu}
}

// GetMenu handles GET /api/v1/menu - lists menu items, optionally only active ones
func (h *MenuController) GetMenu(c *gin.Context) {
	active, ok := boolQuery(c, "active")
	if !ok {
		return
	}
	items, err := h.menu.List(c.Request.Context(), active)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, items)
}

// GetMenuItem handles GET /api/v1/menu/:id
func (h *MenuController) GetMenuItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	item, err := h.menu.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// CreateMenuItem handles POST /api/v1/menu
func (h *MenuController) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.menu.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /api/v1/menu/:id
func (h *MenuController) UpdateMenuItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req MenuItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.menu.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// SetMenuItemActive handles PATCH /api/v1/menu/:id/active
func (h *MenuController) SetMenuItemActive(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.menu.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /api/v1/menu/:id
func (h *MenuController) DeleteMenuItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.menu.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
