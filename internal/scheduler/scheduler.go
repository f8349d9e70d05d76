package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/bistpro/pkg/logger"
)

// Observer receives job outcomes. Implemented by internal/metrics.
type Observer interface {
	ObserveJob(job string, err error)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLocation evaluates cron specs in loc instead of the local zone
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithRetry sets how often a failing job is retried and the pause between attempts
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		s.retryDelay = delay
	}
}

// WithJobTimeout bounds a single attempt. Zero means no bound.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.jobTimeout = d
	}
}

// WithObserver reports every finished run to o
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

type entry struct {
	job Job
	id  cron.EntryID
}

// Scheduler runs registered jobs on their cron schedules
// ⭐ SSOT: 주기 작업 실행은 여기서만
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *logger.Logger
	observer Observer
	history  *history

	mu   sync.RWMutex
	jobs map[string]entry

	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Defaults: 3 retries one minute apart, local time zone.
func New(log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		location:   time.Local,
		logger:     log,
		history:    newHistory(),
		jobs:       make(map[string]entry),
		maxRetries: 3,
		retryDelay: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(s.location))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// AddJob registers a job on its schedule
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.wg.Add(1)
		defer s.wg.Done()
		s.execute(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	s.jobs[name] = entry{job: job, id: id}
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
		"location": s.location.String(),
	}).Info("Job registered")

	return nil
}

// RemoveJob unregisters a job; a run already in flight finishes
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(e.id)
	delete(s.jobs, name)

	s.logger.WithField("job", name).Info("Job removed")
	return nil
}

// Start begins firing jobs
func (s *Scheduler) Start() {
	s.logger.WithField("jobs", len(s.Jobs())).Info("Scheduler started")
	s.cron.Start()
}

// Stop stops firing jobs, cancels running ones and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	stopped := s.cron.Stop()
	s.cancel()
	<-stopped.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// RunNow runs a registered job immediately and waits for the result
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}

	s.wg.Add(1)
	defer s.wg.Done()
	return s.execute(ctx, e.job), nil
}

// execute runs job with retries and records the result
func (s *Scheduler) execute(ctx context.Context, job Job) JobResult {
	name := job.Name()
	result := JobResult{JobName: name, StartTime: time.Now()}

	s.logger.WithField("job", name).Info("Job started")

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.WithFields(map[string]interface{}{
				"job":     name,
				"attempt": attempt,
				"delay":   s.retryDelay.String(),
			}).Warn("Retrying job")

			select {
			case <-ctx.Done():
				err = ctx.Err()
			case <-time.After(s.retryDelay):
			}
			if ctx.Err() != nil {
				break
			}
		}

		result.Attempts++
		err = s.attempt(ctx, job)
		if err == nil || ctx.Err() != nil {
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}

	s.history.add(result)
	if s.observer != nil {
		s.observer.ObserveJob(name, err)
	}

	fields := map[string]interface{}{
		"job":      name,
		"duration": result.Duration.String(),
		"attempts": result.Attempts,
	}
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Error("Job failed")
	} else {
		s.logger.WithFields(fields).Info("Job completed")
	}

	return result
}

func (s *Scheduler) attempt(ctx context.Context, job Job) error {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// History returns the recorded results of a job, oldest first
func (s *Scheduler) History(name string) []JobResult {
	return s.history.get(name)
}

// Stats summarises the recorded results of a job
func (s *Scheduler) Stats(name string) JobStats {
	return s.history.stats(name)
}

// Jobs returns the registered job names, sorted
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun reports when a job fires next
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(e.id).Next
	return next, !next.IsZero()
}
