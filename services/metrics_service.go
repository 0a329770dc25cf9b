package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/telemetry"
)

// OrderStore is the read side of orders needed by the recalculator
type OrderStore interface {
	FindDeliveredOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	ExistsOrdersForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
}

// CustomerStore loads customers and persists their metrics
type CustomerStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	SaveMetrics(ctx context.Context, customer *models.Customer) error
	AverageInterval(ctx context.Context) (*float64, error)
	FindWithRecencyAbove(ctx context.Context, threshold int) ([]models.Customer, error)
}

// TxRunner runs fn inside a transaction carried by ctx
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	AfterTransaction(ctx context.Context, fn func())
}

const (
	recalcLockTTL  = 30 * time.Second
	recalcLockWait = 5 * time.Second
	day            = 24 * time.Hour
)

// MetricsRecalculator rebuilds a customer's materialized purchase metrics
// from their delivered orders.
type MetricsRecalculator struct {
	orders    OrderStore
	customers CustomerStore
	tx        TxRunner
	locker    Locker
	metrics   *telemetry.Registry
	logger    logrus.FieldLogger

	// Now is the clock used for recency; replaceable in tests
	Now func() time.Time
}

// NewMetricsRecalculator creates a new MetricsRecalculator
func NewMetricsRecalculator(orders OrderStore, customers CustomerStore, tx TxRunner, locker Locker, metrics *telemetry.Registry, logger logrus.FieldLogger) *MetricsRecalculator {
	return &MetricsRecalculator{
		orders:    orders,
		customers: customers,
		tx:        tx,
		locker:    locker,
		metrics:   metrics,
		logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Recalculate rebuilds the metrics of the customer. It returns a not found
// error when the customer does not exist and propagates storage failures.
// When ctx carries a transaction the customer lock is held until that
// transaction ends.
func (s *MetricsRecalculator) Recalculate(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	unlock, err := s.locker.Acquire(ctx, "recalc:"+customerID.String(), LockOptions{TTL: recalcLockTTL, Wait: recalcLockWait})
	if err != nil {
		s.metrics.ObserveRecalculation(telemetry.ResultError)
		return nil, fmt.Errorf("recalculate customer %s: %w", customerID, lockError(err))
	}
	defer s.tx.AfterTransaction(ctx, unlock)

	var customer *models.Customer
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customers.Get(ctx, customerID)
		if err != nil {
			return err
		}

		delivered, err := s.orders.FindDeliveredOrders(ctx, customerID)
		if err != nil {
			return err
		}

		applyMetrics(c, delivered, s.Now().UTC())

		if err := s.customers.SaveMetrics(ctx, c); err != nil {
			return err
		}
		customer = c
		return nil
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.metrics.ObserveRecalculation(telemetry.ResultNotFound)
		} else {
			s.metrics.ObserveRecalculation(telemetry.ResultError)
			s.logger.WithError(err).WithField("customer_id", customerID).Error("metrics recalculation failed")
		}
		return nil, err
	}

	s.metrics.ObserveRecalculation(telemetry.ResultOK)
	s.logger.WithFields(logrus.Fields{
		"customer_id":  customerID,
		"total_orders": customer.TotalOrders,
		"cluster":      clusterOf(customer.RFM),
	}).Debug("customer metrics recalculated")
	return customer, nil
}

func lockError(err error) error {
	if errors.Is(err, ErrLockNotObtained) {
		return apperrors.Transient("customer metrics lock busy", err)
	}
	return err
}

func clusterOf(rfm *models.RFMScore) string {
	if rfm == nil {
		return ""
	}
	return rfm.Cluster
}

// applyMetrics overwrites the metrics fields of c from its delivered orders
// as seen at now.
func applyMetrics(c *models.Customer, delivered []models.Order, now time.Time) {
	if len(delivered) == 0 {
		c.ResetMetrics()
		return
	}

	n := len(delivered)
	totalValue := decimal.Zero
	deliveries := make([]time.Time, 0, n)
	for _, o := range delivered {
		totalValue = totalValue.Add(o.Total)
		deliveries = append(deliveries, o.DeliveredAt.UTC())
	}
	sort.Slice(deliveries, func(i, j int) bool { return deliveries[i].Before(deliveries[j]) })

	avgTicket := totalValue.DivRound(decimal.NewFromInt(int64(n)), 2)
	lastPurchase := deliveries[n-1]
	recency := daysBetween(lastPurchase, now)

	var avgInterval *int
	if n > 1 {
		sum := 0
		for i := 1; i < n; i++ {
			sum += daysBetween(deliveries[i-1], deliveries[i])
		}
		v := sum / (n - 1)
		avgInterval = &v
	}

	c.TotalOrders = n
	c.TotalValue = totalValue.Round(2)
	c.AverageTicket = avgTicket
	c.LastPurchaseAt = &lastPurchase
	c.RecencyDays = &recency
	c.AvgRepurchaseIntervalDays = avgInterval
	c.LTV = totalValue.Round(2)
	c.RFM = ScoreRFM(&recency, n, &avgTicket)
}

// daysBetween counts whole 24h periods from a to b, truncated toward zero
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / day)
}
