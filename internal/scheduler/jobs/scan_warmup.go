package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/logger"
)

// UniverseLoader resolves today's instrument universe
type UniverseLoader interface {
	Load(ctx context.Context) (*contracts.Universe, error)
}

// MarketScanner runs a full market scan
type MarketScanner interface {
	Scan(ctx context.Context, universe *contracts.Universe, opts selection.ScanOptions) (*contracts.ScanResult, error)
}

// UniverseSink stores universe snapshots (s1_universe.Repository)
type UniverseSink interface {
	SaveUniverse(ctx context.Context, universe *contracts.Universe) error
}

// RankingSink stores ranked scans (selection.Repository)
type RankingSink interface {
	SaveRankingResults(ctx context.Context, date time.Time, ranked []contracts.ScoredCandidate) error
}

// ScanWarmupJob rescans the market after the close so the first request of
// the evening is served from cache
// ⭐ SSOT: 장 마감 후 스캔 스케줄은 이 Job에서만
type ScanWarmupJob struct {
	universe UniverseLoader
	scanner  MarketScanner
	schedule string
	cacheTTL time.Duration
	logger   *logger.Logger

	universeSink UniverseSink
	rankingSink  RankingSink
}

// NewScanWarmupJob creates a new warmup job
func NewScanWarmupJob(universe UniverseLoader, scanner MarketScanner, schedule string, cacheTTL time.Duration, log *logger.Logger) *ScanWarmupJob {
	return &ScanWarmupJob{
		universe: universe,
		scanner:  scanner,
		schedule: schedule,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// WithPersistence stores each universe and ranking when a database is configured.
// Either sink may be nil.
func (j *ScanWarmupJob) WithPersistence(u UniverseSink, r RankingSink) *ScanWarmupJob {
	j.universeSink = u
	j.rankingSink = r
	return j
}

// Name returns the job name
func (j *ScanWarmupJob) Name() string {
	return "scan_warmup"
}

// Schedule returns the cron schedule (weekdays after the Istanbul close by default)
func (j *ScanWarmupJob) Schedule() string {
	return j.schedule
}

// Run loads the universe, scans with a fresh fetch and stores the result
func (j *ScanWarmupJob) Run(ctx context.Context) error {
	universe, err := j.universe.Load(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	result, err := j.scanner.Scan(ctx, universe, selection.ScanOptions{
		CacheTTL: j.cacheTTL,
		Refresh:  true,
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if !result.HasData() {
		return fmt.Errorf("%w: %s", contracts.ErrProviderUnavailable, result.Reason)
	}

	if j.universeSink != nil {
		if err := j.universeSink.SaveUniverse(ctx, universe); err != nil {
			j.logger.WithError(err).Warn("Failed to store universe snapshot")
		}
	}
	if j.rankingSink != nil {
		if err := j.rankingSink.SaveRankingResults(ctx, result.ScannedAt, result.Candidates); err != nil {
			return fmt.Errorf("save ranking: %w", err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"universe_size": result.UniverseSize,
		"qualified":     len(result.Candidates),
	}).Info("Scan cache warmed")

	return nil
}
