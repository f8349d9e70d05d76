package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/portfolio"
	"github.com/wonny/bistpro/pkg/logger"
)

// StatusSource reports the current selection and lock (portfolio.Manager)
type StatusSource interface {
	Status(ctx context.Context) (*portfolio.Status, error)
}

// LockGauge publishes the lock state (metrics.Registry)
type LockGauge interface {
	SetLockState(state contracts.LockState)
}

// LockWatchJob refreshes the lock gauge and logs when a holding period ends
type LockWatchJob struct {
	status   StatusSource
	gauge    LockGauge
	schedule string
	logger   *logger.Logger

	mu      sync.Mutex
	last    contracts.LockState
	checked bool
}

// NewLockWatchJob creates a new lock watch job. gauge may be nil.
func NewLockWatchJob(status StatusSource, gauge LockGauge, schedule string, log *logger.Logger) *LockWatchJob {
	if schedule == "" {
		schedule = "0 5 0 * * *" // daily, just after midnight
	}
	return &LockWatchJob{
		status:   status,
		gauge:    gauge,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *LockWatchJob) Name() string {
	return "lock_watch"
}

// Schedule returns the cron schedule
func (j *LockWatchJob) Schedule() string {
	return j.schedule
}

// Run evaluates the lock once
func (j *LockWatchJob) Run(ctx context.Context) error {
	st, err := j.status.Status(ctx)
	if err != nil {
		return fmt.Errorf("portfolio status: %w", err)
	}

	if j.gauge != nil {
		j.gauge.SetLockState(st.Lock)
	}
	if st.Malformed {
		j.logger.Warn("Stored portfolio is malformed, treating as open")
	}

	j.mu.Lock()
	prev, checked := j.last, j.checked
	j.last, j.checked = st.Lock, true
	j.mu.Unlock()

	switch {
	case checked && prev.Locked && !st.Lock.Locked:
		j.logger.Info("Holding period ended, portfolio open for a new selection")
	case checked && !prev.Locked && st.Lock.Locked:
		j.logger.WithField("days_remaining", st.Lock.DaysRemaining).Info("Portfolio locked")
	default:
		j.logger.WithFields(map[string]interface{}{
			"locked":         st.Lock.Locked,
			"days_remaining": st.Lock.DaysRemaining,
		}).Debug("Lock checked")
	}

	return nil
}

// Last returns the lock state seen by the most recent run
func (j *LockWatchJob) Last() (contracts.LockState, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last, j.checked
}
