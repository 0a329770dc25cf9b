// Package scheduler triggers periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/services"
)

// DefaultTimeout bounds a single scheduled churn check
const DefaultTimeout = 10 * time.Minute

// ChurnRunner runs one churn check
type ChurnRunner interface {
	Run(ctx context.Context) services.ChurnRunResult
}

// Scheduler runs the churn check on a cron expression in UTC. Overlapping
// ticks are skipped.
type Scheduler struct {
	cron    *cron.Cron
	job     ChurnRunner
	timeout time.Duration
	logger  logrus.FieldLogger

	// base parents every run; Stop cancels it
	base   context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	last *services.ChurnRunResult
}

// New creates a Scheduler for spec, a standard five field cron expression
func New(spec string, job ChurnRunner, timeout time.Duration, logger logrus.FieldLogger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, job: job, timeout: timeout, logger: logger, base: base, cancel: cancel}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid churn schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.WithField("next_run", entry.Next.Format(time.RFC3339)).Info("churn check scheduled")
	}
}

// Stop prevents new runs and waits for a running one to finish. When ctx
// expires first the running check is cancelled and ctx's error returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	defer s.cancel()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		s.logger.Warn("cancelling running churn check")
		return ctx.Err()
	}
}

// LastResult returns the result of the most recent scheduled run
func (s *Scheduler) LastResult() (services.ChurnRunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return services.ChurnRunResult{}, false
	}
	return *s.last, true
}

func (s *Scheduler) tick() {
	ctx := s.base
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := s.job.Run(ctx)

	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
