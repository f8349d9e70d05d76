package selection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/risk"
	"github.com/wonny/bistpro/internal/s2_signals"
	"github.com/wonny/bistpro/pkg/logger"
)

// zigzag builds n daily bars alternating +up / -down from 100
func zigzag(code string, n int, up, down float64) contracts.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	c := 100.0
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%2 == 1 {
				c += up
			} else {
				c -= down
			}
		}
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return contracts.PriceSeries{Code: code, Bars: bars}
}

type fakePrices struct {
	series map[string]contracts.PriceSeries
	err    error
	calls  int32
}

func (f *fakePrices) FetchSeries(ctx context.Context, codes []string, lookback contracts.Lookback) (map[string]contracts.PriceSeries, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]contracts.PriceSeries)
	for _, c := range codes {
		if s, ok := f.series[c]; ok {
			out[c] = s
		}
	}
	return out, nil
}

type fakeFundamentals struct {
	mu    sync.Mutex
	snaps map[string]contracts.FundamentalSnapshot
	fail  map[string]bool
}

func (f *fakeFundamentals) FetchFundamentals(ctx context.Context, code string) (contracts.FundamentalSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[code] {
		return contracts.FundamentalSnapshot{}, contracts.ErrProviderUnavailable
	}
	if s, ok := f.snaps[code]; ok {
		return s, nil
	}
	return contracts.UnknownFundamentals(), nil
}

type countingRecorder struct {
	mu        sync.Mutex
	scans     []contracts.ScanStatus
	outcomes  map[contracts.OutcomeStatus]int
	cacheHits int
}

func (r *countingRecorder) ObserveScan(status contracts.ScanStatus, _ time.Duration, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, status)
}

func (r *countingRecorder) ObserveOutcome(status contracts.OutcomeStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[contracts.OutcomeStatus]int)
	}
	r.outcomes[status]++
}

func (r *countingRecorder) ObserveCacheHit(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.cacheHits++
	}
}

func newTestScanner(prices contracts.PriceProvider, fund contracts.FundamentalsProvider, cache ResultCache) *Scanner {
	log := logger.Nop()
	builder := s2_signals.NewBuilder(
		s2_signals.NewTechnicalCalculator(log),
		s2_signals.NewValueCalculator(fund, time.Second, log),
		log,
	)
	return NewScanner(prices, builder, risk.NewEngine(), cache, ScannerConfig{Workers: 3}, log)
}

func cheapSnap() contracts.FundamentalSnapshot {
	return contracts.FundamentalSnapshot{EarningsMultiple: contracts.KnownRatio(12), BookMultiple: contracts.KnownRatio(2)}
}

func TestScanner_Scan_RanksAndFilters(t *testing.T) {
	prices := &fakePrices{series: map[string]contracts.PriceSeries{
		"UP1.IS":    zigzag("UP1.IS", 60, 2, 1),
		"DOWN.IS":   zigzag("DOWN.IS", 60, -2, -1),
		"UP2.IS":    zigzag("UP2.IS", 60, 2, 1),
		"SHORT.IS":  zigzag("SHORT.IS", 10, 2, 1),
		"UP3.IS":    zigzag("UP3.IS", 60, 2, 1),
		"BROKEN.IS": {Code: "BROKEN.IS", Bars: []contracts.Bar{{Close: -1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}, {Close: 1}}},
	}}
	fund := &fakeFundamentals{
		snaps: map[string]contracts.FundamentalSnapshot{"UP2.IS": cheapSnap()},
		fail:  map[string]bool{"UP3.IS": true},
	}
	rec := &countingRecorder{}
	scanner := newTestScanner(prices, fund, nil).WithRecorder(rec)

	universe := &contracts.Universe{
		Stocks:  []string{"UP1.IS", "DOWN.IS", "UP2.IS", "MISSING.IS", "SHORT.IS", "UP3.IS", "BROKEN.IS"},
		Sectors: map[string]string{"UP1.IS": "Airlines"},
	}

	result, err := scanner.Scan(context.Background(), universe, ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, contracts.ScanStatusOK, result.Status)
	assert.Equal(t, 7, result.UniverseSize)
	require.Len(t, result.Candidates, 3)

	// 100-point UP2 first, then the two 60-point instruments in universe order
	assert.Equal(t, "UP2.IS", result.Candidates[0].Code)
	assert.Equal(t, 100, result.Candidates[0].Score)
	assert.Equal(t, "UP1.IS", result.Candidates[1].Code)
	assert.Equal(t, 60, result.Candidates[1].Score)
	assert.Equal(t, "Airlines", result.Candidates[1].Sector)
	assert.Equal(t, "UP3.IS", result.Candidates[2].Code)
	assert.Equal(t, contracts.DefaultSector, result.Candidates[2].Sector)

	top := result.Candidates[0]
	assert.Equal(t, 131.0, top.Price)
	assert.InDelta(t, 131-2.5*2.5, top.StopLoss, 1e-9)
	assert.InDelta(t, 131+3*2.5, top.TakeProfit1, 1e-9)
	assert.InDelta(t, 131+6*2.5, top.TakeProfit2, 1e-9)
	assert.NotEmpty(t, top.Narrative)

	byCode := make(map[string]contracts.InstrumentOutcome)
	for _, o := range result.Outcomes {
		byCode[o.Code] = o
	}
	require.Len(t, result.Outcomes, 7)
	assert.Equal(t, "UP1.IS", result.Outcomes[0].Code)
	assert.Equal(t, contracts.OutcomeBelowCutoff, byCode["DOWN.IS"].Status)
	assert.Equal(t, contracts.OutcomeNoPriceData, byCode["MISSING.IS"].Status)
	assert.Equal(t, contracts.OutcomeInsufficient, byCode["SHORT.IS"].Status)
	assert.Equal(t, contracts.OutcomeInvalid, byCode["BROKEN.IS"].Status)
	assert.Equal(t, contracts.OutcomeQualified, byCode["UP3.IS"].Status)
	assert.True(t, byCode["UP3.IS"].FundamentalsDegraded)

	assert.Equal(t, []contracts.ScanStatus{contracts.ScanStatusOK}, rec.scans)
	assert.Equal(t, 3, rec.outcomes[contracts.OutcomeQualified])
}

func TestScanner_Scan_ProviderUnavailable(t *testing.T) {
	prices := &fakePrices{err: errors.New("chart endpoint: " + contracts.ErrProviderUnavailable.Error())}
	scanner := newTestScanner(prices, &fakeFundamentals{}, nil)

	result, err := scanner.Scan(context.Background(), &contracts.Universe{Stocks: []string{"A.IS", "B.IS"}}, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, contracts.ScanStatusNoData, result.Status)
	assert.False(t, result.HasData())
	assert.NotEmpty(t, result.Reason)
	assert.Equal(t, contracts.CauseProviderError, result.Cause)
	assert.Empty(t, result.Candidates)
}

func TestScanner_Scan_EmptyProviderResponseIsNoData(t *testing.T) {
	scanner := newTestScanner(&fakePrices{}, &fakeFundamentals{}, nil)

	result, err := scanner.Scan(context.Background(), &contracts.Universe{Stocks: []string{"A.IS"}}, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, contracts.ScanStatusNoData, result.Status)
	assert.Equal(t, contracts.CauseEmptyResponse, result.Cause)
	assert.Equal(t, "price provider returned no data", result.Reason)
}

func TestScanner_Scan_RanButFoundNothing(t *testing.T) {
	prices := &fakePrices{series: map[string]contracts.PriceSeries{"DOWN.IS": zigzag("DOWN.IS", 60, -2, -1)}}
	scanner := newTestScanner(prices, &fakeFundamentals{}, nil)

	result, err := scanner.Scan(context.Background(), &contracts.Universe{Stocks: []string{"DOWN.IS"}}, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, contracts.ScanStatusOK, result.Status)
	assert.Empty(t, result.Candidates)
	assert.True(t, result.HasData())
}

func TestScanner_Scan_Progress(t *testing.T) {
	series := make(map[string]contracts.PriceSeries)
	codes := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		code := string(rune('A'+i)) + ".IS"
		codes = append(codes, code)
		series[code] = zigzag(code, 60, 2, 1)
	}
	scanner := newTestScanner(&fakePrices{series: series}, &fakeFundamentals{}, nil)

	var fractions []float64
	_, err := scanner.Scan(context.Background(), &contracts.Universe{Stocks: codes}, ScanOptions{
		Progress: func(f float64) { fractions = append(fractions, f) },
	})
	require.NoError(t, err)

	require.Len(t, fractions, 20)
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestScanner_Scan_Cache(t *testing.T) {
	prices := &fakePrices{series: map[string]contracts.PriceSeries{"UP.IS": zigzag("UP.IS", 60, 2, 1)}}
	cache := NewMemoryCache()
	rec := &countingRecorder{}
	scanner := newTestScanner(prices, &fakeFundamentals{}, cache).WithRecorder(rec)
	fixed := time.Date(2024, 6, 3, 10, 15, 0, 0, time.UTC)
	scanner.now = func() time.Time { return fixed }
	universe := &contracts.Universe{Stocks: []string{"UP.IS"}}
	opts := ScanOptions{CacheTTL: time.Hour}

	first, err := scanner.Scan(context.Background(), universe, opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := scanner.Scan(context.Background(), universe, opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, int32(1), atomic.LoadInt32(&prices.calls))
	assert.Equal(t, 1, rec.cacheHits)

	opts.Refresh = true
	third, err := scanner.Scan(context.Background(), universe, opts)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(&prices.calls))
}

func TestScanner_Scan_NoDataNotCached(t *testing.T) {
	prices := &fakePrices{err: contracts.ErrProviderUnavailable}
	cache := NewMemoryCache()
	scanner := newTestScanner(prices, &fakeFundamentals{}, cache)

	_, err := scanner.Scan(context.Background(), &contracts.Universe{Stocks: []string{"A.IS"}}, ScanOptions{CacheTTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestScanner_Scan_Cancelled(t *testing.T) {
	prices := &fakePrices{series: map[string]contracts.PriceSeries{"UP.IS": zigzag("UP.IS", 60, 2, 1)}}
	scanner := newTestScanner(prices, &fakeFundamentals{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Scan(ctx, &contracts.Universe{Stocks: []string{"UP.IS"}}, ScanOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_Scan_InvalidUniverse(t *testing.T) {
	scanner := newTestScanner(&fakePrices{}, &fakeFundamentals{}, nil)

	_, err := scanner.Scan(context.Background(), nil, ScanOptions{})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	result, err := scanner.Scan(context.Background(), &contracts.Universe{}, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, contracts.ScanStatusOK, result.Status)
	assert.Empty(t, result.Candidates)
}
