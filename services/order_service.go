package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/repositories"
)

// OrderRepository is the full order persistence used by OrderService
type OrderRepository interface {
	OrderStore
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ReplaceItems(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page repositories.Page) ([]models.Order, int64, error)
}

// CustomerGetter loads a single customer
type CustomerGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// MenuItemGetter loads a single menu item
type MenuItemGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
}

// Recalculator rebuilds customer metrics
type Recalculator interface {
	Recalculate(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
}

// OrderItemInput is one requested order line. When MenuItemID is set, a
// missing name or price is taken from the menu.
type OrderItemInput struct {
	MenuItemID *uuid.UUID
	Name       string
	UnitPrice  *decimal.Decimal
	Quantity   int
	Notes      string
}

// OrderInput is the payload for creating an order
type OrderInput struct {
	CustomerID uuid.UUID
	Status     models.OrderStatus
	Channel    models.OrderChannel
	Notes      string
	Items      []OrderItemInput
}

// OrderUpdateInput replaces the editable parts of an order
type OrderUpdateInput struct {
	Channel models.OrderChannel
	Notes   string
	Items   []OrderItemInput
}

// PageResult is one page of a listing
type PageResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

func newPageResult[T any](items []T, total int64, page repositories.Page) PageResult[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Total: total, Page: page.Number, Size: page.Size}
}

// OrderService manages the order lifecycle and triggers metrics
// recalculation whenever delivered orders change.
type OrderService struct {
	orders    OrderRepository
	customers CustomerGetter
	menu      MenuItemGetter
	recalc    Recalculator
	tx        TxRunner
	logger    logrus.FieldLogger

	Now func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(orders OrderRepository, customers CustomerGetter, menu MenuItemGetter, recalc Recalculator, tx TxRunner, logger logrus.FieldLogger) *OrderService {
	return &OrderService{
		orders:    orders,
		customers: customers,
		menu:      menu,
		recalc:    recalc,
		tx:        tx,
		logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new order. Orders created directly as
// delivered are stamped and counted immediately.
func (s *OrderService) Create(ctx context.Context, in OrderInput) (*models.Order, error) {
	status := in.Status
	if status == "" {
		status = models.OrderStatusReceived
	}
	if !status.Valid() {
		return nil, apperrors.Validationf("invalid order status %q", status)
	}
	channel, err := normalizeChannel(in.Channel)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.Get(ctx, in.CustomerID); err != nil {
			return err
		}
		items, err := s.buildItems(ctx, in.Items)
		if err != nil {
			return err
		}

		order := &models.Order{
			CustomerID: in.CustomerID,
			Status:     status,
			Channel:    channel,
			Notes:      strings.TrimSpace(in.Notes),
			Items:      items,
		}
		order.RecomputeTotal()
		if status == models.OrderStatusDelivered {
			now := s.Now().UTC()
			order.DeliveredAt = &now
		}

		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		if order.IsDelivered() {
			if _, err := s.recalc.Recalculate(ctx, order.CustomerID); err != nil {
				return err
			}
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
		"total":       created.Total.StringFixed(2),
	}).Info("order created")
	return created, nil
}

// Update replaces the items, channel and notes of an order
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, in OrderUpdateInput) (*models.Order, error) {
	channel, err := normalizeChannel(in.Channel)
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		items, err := s.buildItems(ctx, in.Items)
		if err != nil {
			return err
		}

		order.Channel = channel
		order.Notes = strings.TrimSpace(in.Notes)
		order.Items = items
		order.RecomputeTotal()

		if err := s.orders.ReplaceItems(ctx, order); err != nil {
			return err
		}
		if order.IsDelivered() {
			if _, err := s.recalc.Recalculate(ctx, order.CustomerID); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus moves an order through the kanban. The first move to
// delivered stamps the delivery time and recalculates the customer in the
// same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperrors.Validationf("invalid order status %q", next)
	}

	var result *models.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == next {
			result = order
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			return apperrors.Validationf("cannot move order from %s to %s", order.Status, next)
		}

		previous := order.Status
		order.Status = next
		recalc := false
		if next == models.OrderStatusDelivered && order.DeliveredAt == nil {
			now := s.Now().UTC()
			order.DeliveredAt = &now
			recalc = true
		}

		if err := s.orders.UpdateStatus(ctx, order); err != nil {
			return err
		}
		if recalc {
			if _, err := s.recalc.Recalculate(ctx, order.CustomerID); err != nil {
				return err
			}
		}

		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"from":     previous,
			"to":       next,
		}).Info("order status changed")
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an order, recalculating the customer if it had been delivered
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, id); err != nil {
			return err
		}
		if order.IsDelivered() {
			if _, err := s.recalc.Recalculate(ctx, order.CustomerID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns a single order with its items
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns all orders, optionally only those in status
func (s *OrderService) List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.Validationf("invalid order status %q", *status)
	}
	orders, err := s.orders.List(ctx, status)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// ListByCustomer returns one page of the customer's orders
func (s *OrderService) ListByCustomer(ctx context.Context, customerID uuid.UUID, page repositories.Page) (PageResult[models.Order], error) {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return PageResult[models.Order]{}, err
	}
	orders, total, err := s.orders.ListByCustomer(ctx, customerID, page)
	if err != nil {
		return PageResult[models.Order]{}, err
	}
	return newPageResult(orders, total, page), nil
}

func (s *OrderService) buildItems(ctx context.Context, inputs []OrderItemInput) ([]models.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, apperrors.Validation("order must have at least one item")
	}

	items := make([]models.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		item := models.OrderItem{
			MenuItemID: in.MenuItemID,
			Name:       strings.TrimSpace(in.Name),
			Quantity:   in.Quantity,
			Notes:      strings.TrimSpace(in.Notes),
			Position:   i,
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}

		if in.MenuItemID != nil && (item.Name == "" || in.UnitPrice == nil) {
			if s.menu == nil {
				return nil, apperrors.Validationf("item %d: name and unit price are required", i+1)
			}
			menuItem, err := s.menu.Get(ctx, *in.MenuItemID)
			if err != nil {
				if apperrors.IsNotFound(err) {
					return nil, apperrors.Validationf("item %d: menu item %s not found", i+1, in.MenuItemID)
				}
				return nil, err
			}
			if item.Name == "" {
				item.Name = menuItem.Name
			}
			if in.UnitPrice == nil {
				item.UnitPrice = menuItem.Price
			}
		}

		switch {
		case item.Name == "":
			return nil, apperrors.Validationf("item %d: name is required", i+1)
		case in.UnitPrice == nil && in.MenuItemID == nil:
			return nil, apperrors.Validationf("item %d: unit price is required", i+1)
		case item.UnitPrice.IsNegative():
			return nil, apperrors.Validationf("item %d: unit price must not be negative", i+1)
		case item.Quantity <= 0:
			return nil, apperrors.Validationf("item %d: quantity must be greater than zero", i+1)
		}
		items = append(items, item)
	}
	return items, nil
}

func normalizeChannel(channel models.OrderChannel) (models.OrderChannel, error) {
	switch channel {
	case "":
		return models.OrderChannelOther, nil
	case models.OrderChannelWhatsApp, models.OrderChannelPhone, models.OrderChannelInPerson,
		models.OrderChannelDeliveryApp, models.OrderChannelOther:
		return channel, nil
	default:
		return "", apperrors.Validationf("invalid order channel %q", channel)
	}
}
