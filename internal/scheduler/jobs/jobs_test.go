package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/portfolio"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/logger"
)

type stubUniverse struct {
	u   *contracts.Universe
	err error
}

func (s stubUniverse) Load(ctx context.Context) (*contracts.Universe, error) {
	return s.u, s.err
}

type stubScanner struct {
	result *contracts.ScanResult
	err    error
	opts   selection.ScanOptions
}

func (s *stubScanner) Scan(ctx context.Context, u *contracts.Universe, opts selection.ScanOptions) (*contracts.ScanResult, error) {
	s.opts = opts
	return s.result, s.err
}

type sink struct {
	universes int
	rankings  [][]contracts.ScoredCandidate
	err       error
}

func (s *sink) SaveUniverse(ctx context.Context, u *contracts.Universe) error {
	s.universes++
	return s.err
}

func (s *sink) SaveRankingResults(ctx context.Context, date time.Time, ranked []contracts.ScoredCandidate) error {
	s.rankings = append(s.rankings, ranked)
	return s.err
}

func okResult() *contracts.ScanResult {
	return &contracts.ScanResult{
		Status:       contracts.ScanStatusOK,
		Candidates:   []contracts.ScoredCandidate{{Code: "THYAO.IS", Score: 80}},
		UniverseSize: 2,
		ScannedAt:    time.Date(2024, 6, 3, 18, 30, 0, 0, time.UTC),
	}
}

func TestScanWarmupJob_Run(t *testing.T) {
	universe := &contracts.Universe{Stocks: []string{"THYAO.IS", "BIMAS.IS"}}
	scanner := &stubScanner{result: okResult()}
	store := &sink{}

	job := NewScanWarmupJob(stubUniverse{u: universe}, scanner, "0 30 18 * * 1-5", 10*time.Minute, logger.Nop()).
		WithPersistence(store, store)

	assert.Equal(t, "scan_warmup", job.Name())
	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, scanner.opts.Refresh)
	assert.Equal(t, 10*time.Minute, scanner.opts.CacheTTL)
	assert.Equal(t, 1, store.universes)
	require.Len(t, store.rankings, 1)
	assert.Equal(t, "THYAO.IS", store.rankings[0][0].Code)
}

func TestScanWarmupJob_Failures(t *testing.T) {
	universe := &contracts.Universe{Stocks: []string{"THYAO.IS"}}

	t.Run("universe error", func(t *testing.T) {
		job := NewScanWarmupJob(stubUniverse{err: contracts.ErrInvalidInput}, &stubScanner{}, "", time.Minute, logger.Nop())
		err := job.Run(context.Background())
		assert.True(t, errors.Is(err, contracts.ErrInvalidInput))
	})

	t.Run("no data is retried by the scheduler", func(t *testing.T) {
		scanner := &stubScanner{result: &contracts.ScanResult{Status: contracts.ScanStatusNoData, Reason: "provider down"}}
		store := &sink{}
		job := NewScanWarmupJob(stubUniverse{u: universe}, scanner, "", time.Minute, logger.Nop()).WithPersistence(store, store)

		err := job.Run(context.Background())
		assert.True(t, errors.Is(err, contracts.ErrProviderUnavailable))
		assert.Equal(t, 0, store.universes)
		assert.Empty(t, store.rankings)
	})

	t.Run("ranking store failure fails the run", func(t *testing.T) {
		store := &sink{err: errors.New("connection refused")}
		job := NewScanWarmupJob(stubUniverse{u: universe}, &stubScanner{result: okResult()}, "", time.Minute, logger.Nop()).
			WithPersistence(nil, store)

		assert.Error(t, job.Run(context.Background()))
	})
}

type stubStatus struct {
	states []contracts.LockState
	calls  int
	err    error
}

func (s *stubStatus) Status(ctx context.Context) (*portfolio.Status, error) {
	if s.err != nil {
		return nil, s.err
	}
	st := s.states[s.calls]
	s.calls++
	return &portfolio.Status{Lock: st}, nil
}

type gauge struct {
	last contracts.LockState
	sets int
}

func (g *gauge) SetLockState(st contracts.LockState) {
	g.last = st
	g.sets++
}

func TestLockWatchJob_Run(t *testing.T) {
	src := &stubStatus{states: []contracts.LockState{
		{Locked: true, DaysRemaining: 1},
		{Locked: false},
	}}
	g := &gauge{}
	job := NewLockWatchJob(src, g, "", logger.Nop())

	assert.Equal(t, "lock_watch", job.Name())
	assert.Equal(t, "0 5 0 * * *", job.Schedule())

	_, seen := job.Last()
	assert.False(t, seen)

	require.NoError(t, job.Run(context.Background()))
	last, seen := job.Last()
	assert.True(t, seen)
	assert.True(t, last.Locked)
	assert.Equal(t, 1, g.last.DaysRemaining)

	require.NoError(t, job.Run(context.Background()))
	last, _ = job.Last()
	assert.False(t, last.Locked)
	assert.Equal(t, 2, g.sets)
}

func TestLockWatchJob_StatusError(t *testing.T) {
	g := &gauge{}
	job := NewLockWatchJob(&stubStatus{err: errors.New("disk error")}, g, "0 */5 * * * *", logger.Nop())

	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, 0, g.sets)
}
