package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/models"
	"github.com/anacarla/crm-api/telemetry"
)

// TaskStore persists follow-up tasks for the churn job
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	HasOpenChurnTask(ctx context.Context, customerID uuid.UUID) (bool, error)
}

// ChurnSettings configures the churn alert job
type ChurnSettings struct {
	Enabled         bool
	BufferDays      int
	DedupeOpenTasks bool
}

// ChurnRunResult summarizes one run of the churn alert job
type ChurnRunResult struct {
	Enabled           bool      `json:"enabled"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	GlobalAvgInterval *float64  `json:"global_avg_interval"`
	ThresholdDays     int       `json:"threshold_days"`
	Candidates        int       `json:"candidates"`
	Created           int       `json:"created"`
	Skipped           int       `json:"skipped"`
	Failed            int       `json:"failed"`
	Error             string    `json:"error,omitempty"`
}

const (
	churnJobLockKey = "churn-alert-job"
	churnJobLockTTL = 10 * time.Minute
	churnTaskDueIn  = 3 * 24 * time.Hour
)

var (
	highPriorityLTV     = decimal.NewFromInt(200)
	mediumPriorityCount = 5
)

// ChurnAlertJob creates follow-up tasks for customers whose recency exceeds
// the dynamic churn threshold.
type ChurnAlertJob struct {
	customers CustomerStore
	tasks     TaskStore
	locker    Locker
	settings  ChurnSettings
	metrics   *telemetry.Registry
	logger    logrus.FieldLogger

	Now func() time.Time
}

// NewChurnAlertJob creates a new ChurnAlertJob
func NewChurnAlertJob(customers CustomerStore, tasks TaskStore, locker Locker, settings ChurnSettings, metrics *telemetry.Registry, logger logrus.FieldLogger) *ChurnAlertJob {
	return &ChurnAlertJob{
		customers: customers,
		tasks:     tasks,
		locker:    locker,
		settings:  settings,
		metrics:   metrics,
		logger:    logger.WithField("job", "churn-alert"),
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one churn check. It never fails: problems are logged and
// reported in the result.
func (j *ChurnAlertJob) Run(ctx context.Context) ChurnRunResult {
	result := ChurnRunResult{Enabled: j.settings.Enabled, StartedAt: j.Now().UTC()}
	if !j.settings.Enabled {
		j.logger.Debug("churn alerts disabled")
		result.FinishedAt = result.StartedAt
		return result
	}

	unlock, err := j.locker.Acquire(ctx, churnJobLockKey, LockOptions{TTL: churnJobLockTTL})
	if err != nil {
		if errors.Is(err, ErrLockNotObtained) {
			j.logger.Info("churn check already running elsewhere, skipping")
			result.Error = "already running"
		} else {
			j.logger.WithError(err).Error("failed to obtain churn job lock")
			result.Error = err.Error()
		}
		result.FinishedAt = j.Now().UTC()
		return result
	}
	defer unlock()

	start := time.Now()
	defer func() {
		if j.metrics != nil {
			j.metrics.ChurnRunSec.Observe(time.Since(start).Seconds())
		}
	}()

	j.logger.Info("starting churn risk check")
	if err := j.run(ctx, &result); err != nil {
		j.logger.WithError(err).Error("churn risk check failed")
		result.Error = err.Error()
	}
	result.FinishedAt = j.Now().UTC()
	return result
}

func (j *ChurnAlertJob) run(ctx context.Context, result *ChurnRunResult) error {
	avg, err := j.customers.AverageInterval(ctx)
	if err != nil {
		return fmt.Errorf("global average interval: %w", err)
	}
	result.GlobalAvgInterval = avg
	result.ThresholdDays = ChurnThreshold(avg, j.settings.BufferDays)
	if j.metrics != nil {
		j.metrics.ChurnThresholdDays.Set(float64(result.ThresholdDays))
	}
	j.logger.WithField("threshold_days", result.ThresholdDays).Info("churn recency threshold computed")

	candidates, err := j.customers.FindWithRecencyAbove(ctx, result.ThresholdDays)
	if err != nil {
		return fmt.Errorf("find churn candidates: %w", err)
	}
	result.Candidates = len(candidates)
	if len(candidates) == 0 {
		j.logger.Info("no customers at churn risk")
		return nil
	}
	if !j.settings.DedupeOpenTasks {
		j.logger.WithField("candidates", len(candidates)).
			Warn("open churn tasks are not deduplicated; every candidate gets a new task")
	}

	now := j.Now().UTC()
	for i := range candidates {
		customer := &candidates[i]
		log := j.logger.WithField("customer_id", customer.ID)

		if j.settings.DedupeOpenTasks {
			open, err := j.tasks.HasOpenChurnTask(ctx, customer.ID)
			if err != nil {
				log.WithError(err).Error("failed to check open churn task")
				j.countFailed(result)
				continue
			}
			if open {
				result.Skipped++
				if j.metrics != nil {
					j.metrics.ChurnTasksSkipped.Inc()
				}
				continue
			}
		}

		task := FollowUpTask(customer, now)
		if err := j.tasks.Create(ctx, task); err != nil {
			log.WithError(err).Error("failed to create churn follow-up task")
			j.countFailed(result)
			continue
		}
		result.Created++
		if j.metrics != nil {
			j.metrics.ChurnTasksCreated.Inc()
		}
		log.WithField("recency_days", derefInt(customer.RecencyDays)).Info("churn follow-up task created")
	}

	j.logger.WithFields(logrus.Fields{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("churn risk check finished")
	return nil
}

func (j *ChurnAlertJob) countFailed(result *ChurnRunResult) {
	result.Failed++
	if j.metrics != nil {
		j.metrics.ChurnTasksFailed.Inc()
	}
}

// ChurnThreshold is the recency in days above which a customer is at risk:
// the global average interval plus the buffer, truncated, or just the buffer
// when no average is known.
func ChurnThreshold(globalAvgInterval *float64, bufferDays int) int {
	if globalAvgInterval == nil {
		return bufferDays
	}
	return int(*globalAvgInterval + float64(bufferDays))
}

// FollowUpTask builds the churn follow-up task for customer
func FollowUpTask(customer *models.Customer, now time.Time) *models.Task {
	lastPurchase := "N/A"
	if customer.LastPurchaseAt != nil {
		lastPurchase = customer.LastPurchaseAt.UTC().Format(time.RFC3339)
	}
	description := fmt.Sprintf(
		"Customer has not ordered for %d days (last order on %s). "+
			"Average repurchase interval: %d days. "+
			"Total orders: %d. "+
			"Reach out to win the customer back.",
		derefInt(customer.RecencyDays),
		lastPurchase,
		derefInt(customer.AvgRepurchaseIntervalDays),
		customer.TotalOrders,
	)

	customerID := customer.ID
	due := now.Add(churnTaskDueIn)
	return &models.Task{
		CustomerID:  &customerID,
		Title:       fmt.Sprintf("Follow-up: %s - churn risk", customer.Name),
		Description: description,
		Priority:    ChurnPriority(customer),
		DueAt:       &due,
		Status:      models.TaskStatusPending,
		Origin:      models.TaskOriginChurnAlert,
	}
}

// ChurnPriority ranks a follow-up by customer value
func ChurnPriority(customer *models.Customer) models.TaskPriority {
	if customer.LTV.GreaterThan(highPriorityLTV) {
		return models.TaskPriorityHigh
	}
	if customer.TotalOrders > mediumPriorityCount {
		return models.TaskPriorityMedium
	}
	return models.TaskPriorityLow
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
