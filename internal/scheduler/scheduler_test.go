package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // first N runs fail
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("upstream timeout")
	}
	return nil
}

type blockingJob struct{}

func (blockingJob) Name() string     { return "blocking" }
func (blockingJob) Schedule() string { return "@every 1h" }

func (blockingJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type recordingObserver struct {
	mu   sync.Mutex
	errs map[string][]error
}

func (o *recordingObserver) ObserveJob(job string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.errs == nil {
		o.errs = make(map[string][]error)
	}
	o.errs[job] = append(o.errs[job], err)
}

func TestScheduler_AddAndRemove(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 0 * * * *"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 30 18 * * 1-5"}))
	assert.Equal(t, []string{"a", "b"}, s.Jobs())

	err := s.AddJob(&countingJob{name: "a", schedule: "0 0 * * * *"})
	assert.Error(t, err, "duplicate name")

	err = s.AddJob(&countingJob{name: "bad", schedule: "not a cron"})
	assert.Error(t, err)

	require.NoError(t, s.RemoveJob("b"))
	assert.Equal(t, []string{"a"}, s.Jobs())
	assert.Error(t, s.RemoveJob("b"))
}

func TestScheduler_RunNowRetries(t *testing.T) {
	obs := &recordingObserver{}
	s := New(logger.Nop(), WithRetry(2, time.Millisecond), WithObserver(obs))

	job := &countingJob{name: "flaky", schedule: "0 0 * * * *", failures: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Error)

	require.Len(t, obs.errs["flaky"], 1)
	assert.NoError(t, obs.errs["flaky"][0])
}

func TestScheduler_RunNowGivesUp(t *testing.T) {
	obs := &recordingObserver{}
	s := New(logger.Nop(), WithRetry(1, time.Millisecond), WithObserver(obs))

	job := &countingJob{name: "broken", schedule: "0 0 * * * *", failures: 10}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "upstream timeout", res.Error)
	assert.Equal(t, int32(2), job.calls.Load())
	assert.Error(t, obs.errs["broken"][0])

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, 0), WithJobTimeout(20*time.Millisecond))
	require.NoError(t, s.AddJob(blockingJob{}))

	res, err := s.RunNow(context.Background(), "blocking")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, context.DeadlineExceeded.Error(), res.Error)
}

func TestScheduler_RetryStopsOnCancel(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &countingJob{name: "flaky", schedule: "0 0 * * * *", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res, err := s.RunNow(ctx, "flaky")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
}

func TestScheduler_Stats(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, 0))
	job := &countingJob{name: "warmup", schedule: "0 0 * * * *", failures: 1}
	require.NoError(t, s.AddJob(job))

	for i := 0; i < 4; i++ {
		_, err := s.RunNow(context.Background(), "warmup")
		require.NoError(t, err)
	}

	stats := s.Stats("warmup")
	assert.Equal(t, 4, stats.TotalRuns)
	assert.Equal(t, 3, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 75.0, stats.SuccessRate, 0.001)
	assert.True(t, stats.LastSucceeded)

	h := s.History("warmup")
	require.Len(t, h, 4)
	assert.False(t, h[0].Success)

	assert.Equal(t, 0, s.Stats("unknown").TotalRuns)
}

func TestHistory_Bounded(t *testing.T) {
	h := newHistory()
	for i := 0; i < maxHistory+10; i++ {
		h.add(JobResult{JobName: "x", Attempts: i})
	}

	got := h.get("x")
	require.Len(t, got, maxHistory)
	assert.Equal(t, 10, got[0].Attempts)
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron clock")
	}

	s := New(logger.Nop(), WithRetry(0, 0))
	job := &countingJob{name: "tick", schedule: "* * * * * *"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	assert.Eventually(t, func() bool { return job.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	next, ok := s.NextRun("tick")
	assert.True(t, ok)
	assert.False(t, next.IsZero())
}

func TestWithLocation(t *testing.T) {
	loc := time.FixedZone("TRT", 3*60*60)
	s := New(logger.Nop(), WithLocation(loc))
	assert.Equal(t, loc, s.location)
}
