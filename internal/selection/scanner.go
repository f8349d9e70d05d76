package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/risk"
	"github.com/wonny/bistpro/internal/s2_signals"
	"github.com/wonny/bistpro/pkg/logger"
)

// Recorder receives scan telemetry. Implemented by internal/metrics.
type Recorder interface {
	ObserveScan(status contracts.ScanStatus, duration time.Duration, qualified int)
	ObserveOutcome(status contracts.OutcomeStatus)
	ObserveCacheHit(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveScan(contracts.ScanStatus, time.Duration, int) {}
func (nopRecorder) ObserveOutcome(contracts.OutcomeStatus)               {}
func (nopRecorder) ObserveCacheHit(bool)                                 {}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers  int                // concurrent instruments, default 8
	Lookback contracts.Lookback // history window requested from the price provider
}

// ScanOptions are per-call settings
type ScanOptions struct {
	Progress contracts.ProgressFunc
	CacheTTL time.Duration // 0 disables caching for this call
	Refresh  bool          // skip the cache lookup but store the fresh result
}

// Scanner runs the per-instrument pipeline over a universe
// ⭐ SSOT: 시장 스캔 오케스트레이션은 여기서만
type Scanner struct {
	prices   contracts.PriceProvider
	builder  *s2_signals.Builder
	risk     *risk.Engine
	cache    ResultCache
	recorder Recorder
	config   ScannerConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewScanner creates a new scanner. cache may be nil.
func NewScanner(
	prices contracts.PriceProvider,
	builder *s2_signals.Builder,
	riskEngine *risk.Engine,
	cache ResultCache,
	config ScannerConfig,
	logger *logger.Logger,
) *Scanner {
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.Lookback == "" {
		config.Lookback = contracts.LookbackYear
	}
	return &Scanner{
		prices:   prices,
		builder:  builder,
		risk:     riskEngine,
		cache:    cache,
		recorder: nopRecorder{},
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// WithRecorder attaches a telemetry recorder
func (s *Scanner) WithRecorder(r Recorder) *Scanner {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Scan screens every instrument of the universe and returns qualifying
// candidates ranked by score.
//
// A price provider failure yields Status=no_data with a nil error, and so
// does an empty but successful response; Cause tells the two apart. The only
// errors are an invalid universe and cancellation of ctx.
func (s *Scanner) Scan(ctx context.Context, universe *contracts.Universe, opts ScanOptions) (*contracts.ScanResult, error) {
	if universe == nil {
		return nil, fmt.Errorf("%w: nil universe", contracts.ErrInvalidInput)
	}

	start := s.now()
	codes := universe.Stocks
	key := CacheKey(codes, s.config.Lookback, start, opts.CacheTTL)

	if cached, ok := s.lookup(ctx, key, opts); ok {
		report(opts.Progress, 1.0)
		return cached, nil
	}

	s.logger.WithFields(map[string]interface{}{
		"universe_size": len(codes),
		"workers":       s.config.Workers,
		"lookback":      string(s.config.Lookback),
	}).Info("Market scan started")

	if len(codes) == 0 {
		report(opts.Progress, 1.0)
		return &contracts.ScanResult{
			Status:     contracts.ScanStatusOK,
			Candidates: []contracts.ScoredCandidate{},
			Outcomes:   []contracts.InstrumentOutcome{},
			ScannedAt:  start,
		}, nil
	}

	seriesByCode, err := s.prices.FetchSeries(ctx, codes, s.config.Lookback)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil || len(seriesByCode) == 0 {
		reason, cause := "price provider returned no data", contracts.CauseEmptyResponse
		if err != nil {
			reason, cause = err.Error(), contracts.CauseProviderError
		}
		s.logger.WithFields(map[string]interface{}{
			"universe_size": len(codes),
			"reason":        reason,
			"cause":         string(cause),
		}).Warn("Market scan has no price data")
		s.recorder.ObserveScan(contracts.ScanStatusNoData, s.now().Sub(start), 0)
		return &contracts.ScanResult{
			Status:       contracts.ScanStatusNoData,
			Reason:       reason,
			Cause:        cause,
			Candidates:   []contracts.ScoredCandidate{},
			Outcomes:     []contracts.InstrumentOutcome{},
			UniverseSize: len(codes),
			ScannedAt:    start,
		}, nil
	}

	type slot struct {
		outcome   contracts.InstrumentOutcome
		candidate *contracts.ScoredCandidate
	}
	slots := make([]slot, len(codes))

	var (
		progressMu sync.Mutex
		done       int
	)
	tick := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		report(opts.Progress, float64(done)/float64(len(codes)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			outcome, cand := s.scanOne(gctx, code, seriesByCode[code], universe.SectorOf(code))
			slots[i] = slot{outcome: outcome, candidate: cand}
			s.recorder.ObserveOutcome(outcome.Status)
			tick()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qualified := make([]contracts.ScoredCandidate, 0)
	outcomes := make([]contracts.InstrumentOutcome, len(slots))
	skipped := 0
	for i, sl := range slots {
		outcomes[i] = sl.outcome
		if sl.candidate != nil {
			qualified = append(qualified, *sl.candidate)
		} else if sl.outcome.Status != contracts.OutcomeBelowCutoff {
			skipped++
		}
	}

	result := &contracts.ScanResult{
		Status:       contracts.ScanStatusOK,
		Candidates:   Rank(qualified),
		Outcomes:     outcomes,
		UniverseSize: len(codes),
		ScannedAt:    start,
	}

	duration := s.now().Sub(start)
	s.recorder.ObserveScan(contracts.ScanStatusOK, duration, len(qualified))

	s.logger.WithFields(map[string]interface{}{
		"universe_size": len(codes),
		"qualified":     len(qualified),
		"skipped":       skipped,
		"duration":      duration.String(),
	}).Info("Market scan completed")

	if s.cache != nil && opts.CacheTTL > 0 {
		if err := s.cache.Set(ctx, key, result, opts.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to store scan result in cache")
		}
	}

	return result, nil
}

// lookup returns a cached result unless caching is off for this call
func (s *Scanner) lookup(ctx context.Context, key string, opts ScanOptions) (*contracts.ScanResult, bool) {
	if s.cache == nil || opts.CacheTTL <= 0 || opts.Refresh {
		return nil, false
	}

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Scan cache lookup failed")
		return nil, false
	}
	s.recorder.ObserveCacheHit(ok)
	if !ok || !cached.HasData() {
		return nil, false
	}

	cached.Cached = true
	s.logger.WithFields(map[string]interface{}{
		"key":        key,
		"candidates": len(cached.Candidates),
	}).Debug("Serving scan from cache")
	return cached, true
}

// scanOne runs indicators, fundamentals, risk and scoring for one instrument.
// It never returns an error: every failure becomes a named outcome.
func (s *Scanner) scanOne(ctx context.Context, code string, series contracts.PriceSeries, sector string) (contracts.InstrumentOutcome, *contracts.ScoredCandidate) {
	outcome := contracts.InstrumentOutcome{Code: code}

	if ctx.Err() != nil {
		outcome.Status = contracts.OutcomeCancelled
		return outcome, nil
	}

	if series.Len() == 0 {
		outcome.Status = contracts.OutcomeNoPriceData
		outcome.Reason = "no price series returned"
		s.logSkip(outcome)
		return outcome, nil
	}
	if series.Code == "" {
		series.Code = code
	}

	sig, err := s.builder.Build(ctx, series, sector)
	if err != nil {
		outcome.Reason = err.Error()
		switch {
		case errors.Is(err, contracts.ErrInsufficientData):
			outcome.Status = contracts.OutcomeInsufficient
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome.Status = contracts.OutcomeCancelled
		default:
			outcome.Status = contracts.OutcomeInvalid
		}
		s.logSkip(outcome)
		return outcome, nil
	}
	outcome.FundamentalsDegraded = sig.FundamentalsDegraded

	levels, err := s.risk.Levels(sig.Indicators.LastClose, sig.Indicators.ATR)
	if err != nil {
		outcome.Status = contracts.OutcomeInvalid
		outcome.Reason = err.Error()
		s.logSkip(outcome)
		return outcome, nil
	}

	score := Score(sig.Indicators, sig.Fundamentals)
	outcome.Score = score

	if !Qualifies(score) {
		outcome.Status = contracts.OutcomeBelowCutoff
		return outcome, nil
	}

	outcome.Status = contracts.OutcomeQualified
	cand := BuildCandidate(sig, levels, score)
	return outcome, &cand
}

func (s *Scanner) logSkip(o contracts.InstrumentOutcome) {
	s.logger.WithFields(map[string]interface{}{
		"code":   o.Code,
		"status": string(o.Status),
		"reason": o.Reason,
	}).Debug("Instrument skipped")
}

func report(fn contracts.ProgressFunc, fraction float64) {
	if fn != nil {
		fn(fraction)
	}
}
