package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the kanban stage of an order
type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// stage orders the forward flow; cancelled sits outside it.
var orderStage = map[OrderStatus]int{
	OrderStatusReceived:  0,
	OrderStatusPreparing: 1,
	OrderStatusReady:     2,
	OrderStatusDelivered: 3,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderStage[s]
	return ok || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
// Orders only move forward; anything not yet cancelled may be cancelled,
// including delivered orders.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == OrderStatusCancelled || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return orderStage[next] > orderStage[s]
}

// OrderChannel is where the order came from
type OrderChannel string

const (
	OrderChannelWhatsApp    OrderChannel = "whatsapp"
	OrderChannelPhone       OrderChannel = "phone"
	OrderChannelInPerson    OrderChannel = "in_person"
	OrderChannelDeliveryApp OrderChannel = "delivery_app"
	OrderChannelOther       OrderChannel = "other"
)

// Order represents a customer order
type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	Status      OrderStatus     `gorm:"size:50;not null;default:'received';index" json:"status"`
	Channel     OrderChannel    `gorm:"size:50;not null;default:'other'" json:"channel"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	DeliveredAt *time.Time      `gorm:"index" json:"delivered_at"` // set once, on first transition to delivered
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsDelivered reports whether the order counts toward customer metrics.
func (o *Order) IsDelivered() bool {
	return o.DeliveredAt != nil
}

// RecomputeTotal sets Total to the sum of the item subtotals.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = total
}

// OrderItem is a line of an order
type OrderItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	MenuItemID *uuid.UUID      `gorm:"type:uuid" json:"menu_item_id,omitempty"`
	Name       string          `gorm:"size:200;not null" json:"name"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity   int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	Position   int             `gorm:"not null;default:0" json:"position"`
}

// BeforeCreate generates a UUID before creating a new order item
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is unit price times quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
