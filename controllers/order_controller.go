package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/services"
)

// OrderItemRequest represents one line of an order request
type OrderItemRequest struct {
	MenuItemID *uuid.UUID       `json:"menu_item_id"`
	Name       string           `json:"name" binding:"max=200"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Quantity   int              `json:"quantity" binding:"required,gt=0"`
	Notes      string           `json:"notes"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	CustomerID uuid.UUID          `json:"customer_id" binding:"required"`
	Status     string             `json:"status"`
	Channel    string             `json:"channel"`
	Notes      string             `json:"notes"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderRequest represents the request body for replacing an order's items
type UpdateOrderRequest struct {
	Channel string             `json:"channel"`
	Notes   string             `json:"notes"`
	Items   []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderStatusRequest represents the request body for moving an order
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func itemInputs(items []OrderItemRequest) []services.OrderItemInput {
	out := make([]services.OrderItemInput, len(items))
	for i, it := range items {
		out[i] = services.OrderItemInput{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}
	return out
}

// OrderController serves the order kanban
type OrderController struct {
	orders *services.OrderService
}

// NewOrderController creates a new OrderController
func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// CreateOrder handles POST /api/v1/orders - creates a new order
func (h *OrderController) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.Create(c.Request.Context(), services.OrderInput{
		CustomerID: req.CustomerID,
		Status:     models.OrderStatus(req.Status),
		Channel:    models.OrderChannel(req.Channel),
		Notes:      req.Notes,
		Items:      itemInputs(req.Items),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, order)
}

// GetOrders handles GET /api/v1/orders - lists orders, optionally by status
func (h *OrderController) GetOrders(c *gin.Context) {
	var status *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s := models.OrderStatus(raw)
		status = &s
	}

	orders, err := h.orders.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderController) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// UpdateOrder handles PUT /api/v1/orders/:id - replaces items, channel and notes
func (h *OrderController) UpdateOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.Update(c.Request.Context(), id, services.OrderUpdateInput{
		Channel: models.OrderChannel(req.Channel),
		Notes:   req.Notes,
		Items:   itemInputs(req.Items),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status - moves an order to the next kanban column
func (h *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (h *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCustomerOrders handles GET /api/v1/customers/:id/orders - one page of a customer's orders
func (h *OrderController) GetCustomerOrders(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	result, err := h.orders.ListByCustomer(c.Request.Context(), id, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
