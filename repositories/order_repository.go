package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
)

// OrderRepository handles database operations for orders and their items
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts an order together with its items
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := conn(ctx, r.db).Omit("Customer").Create(order).Error; err != nil {
		return apperrors.Transient("create order", err)
	}
	return nil
}

// Get retrieves an order by its ID with items in position order
func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := conn(ctx, r.db).Preload("Items", orderedItems).First(&order, "id = ?", id).Error; err != nil {
		return nil, dbError("get order", "order", id, err)
	}
	return &order, nil
}

// ReplaceItems deletes the current items of order and writes order.Items
// plus the order's own editable columns.
func (r *OrderRepository) ReplaceItems(ctx context.Context, order *models.Order) error {
	db := conn(ctx, r.db)
	if err := db.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return apperrors.Transient("delete order items", err)
	}
	for i := range order.Items {
		order.Items[i].ID = uuid.Nil
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := db.Create(&order.Items).Error; err != nil {
			return apperrors.Transient("create order items", err)
		}
	}
	return r.saveColumns(ctx, order, "channel", "notes", "total", "status", "delivered_at", "updated_at")
}

// UpdateStatus writes the status and delivery timestamp of order
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order) error {
	return r.saveColumns(ctx, order, "status", "delivered_at", "updated_at")
}

func (r *OrderRepository) saveColumns(ctx context.Context, order *models.Order, columns ...string) error {
	err := conn(ctx, r.db).Model(order).Omit("Items", "Customer").Select(columns).Updates(order).Error
	if err != nil {
		return apperrors.Transient("update order", err)
	}
	return nil
}

// Delete removes an order and its items
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return apperrors.Transient("delete order items", err)
	}
	result := db.Delete(&models.Order{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Transient("delete order", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// List returns orders newest first, optionally filtered by status
func (r *OrderRepository) List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	q := conn(ctx, r.db).Preload("Items", orderedItems)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, apperrors.Transient("list orders", err)
	}
	return orders, nil
}

// ListByCustomer returns one page of a customer's orders, newest first
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page Page) ([]models.Order, int64, error) {
	page = page.Normalize()
	q := conn(ctx, r.db).Model(&models.Order{}).Where("customer_id = ?", customerID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Transient("count orders", err)
	}

	var orders []models.Order
	err := q.Preload("Items", orderedItems).
		Order("created_at DESC").
		Offset(page.offset()).Limit(page.Size).
		Find(&orders).Error
	if err != nil {
		return nil, 0, apperrors.Transient("list customer orders", err)
	}
	return orders, total, nil
}

// FindDeliveredOrders returns every order of the customer with a delivery timestamp
func (r *OrderRepository) FindDeliveredOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := conn(ctx, r.db).
		Where("customer_id = ? AND delivered_at IS NOT NULL", customerID).
		Order("delivered_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Transient("find delivered orders", err)
	}
	return orders, nil
}

// ExistsOrdersForCustomer reports whether the customer has any order at all
func (r *OrderRepository) ExistsOrdersForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Order{}).Where("customer_id = ?", customerID).Limit(1).Count(&count).Error
	if err != nil {
		return false, apperrors.Transient("count customer orders", err)
	}
	return count > 0, nil
}
