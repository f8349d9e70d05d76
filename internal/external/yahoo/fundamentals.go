package yahoo

import (
	"context"
	"fmt"
	"math"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"golang.org/x/time/rate"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/logger"
)

// EquityFetcher returns the quote-summary equity record for a symbol
type EquityFetcher func(symbol string) (*finance.Equity, error)

// Fundamentals reads valuation multiples through finance-go
// ⭐ SSOT: contracts.FundamentalsProvider 구현
type Fundamentals struct {
	fetch   EquityFetcher
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewFundamentals creates a fundamentals provider backed by equity.Get.
// rps <= 0 disables rate limiting.
func NewFundamentals(rps float64, burst int, log *logger.Logger) *Fundamentals {
	return NewFundamentalsWithFetcher(equity.Get, rps, burst, log)
}

// NewFundamentalsWithFetcher is NewFundamentals with a custom fetcher
func NewFundamentalsWithFetcher(fetch EquityFetcher, rps float64, burst int, log *logger.Logger) *Fundamentals {
	f := &Fundamentals{fetch: fetch, logger: log}
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return f
}

type equityResult struct {
	eq  *finance.Equity
	err error
}

// FetchFundamentals returns P/E and P/B for code. A zero or missing multiple
// is reported as unknown. Sector is left empty; the universe supplies it.
func (f *Fundamentals) FetchFundamentals(ctx context.Context, code string) (contracts.FundamentalSnapshot, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return contracts.FundamentalSnapshot{}, err
		}
	}

	// finance-go has no context support; the call is abandoned on cancel
	done := make(chan equityResult, 1)
	go func() {
		eq, err := f.fetch(code)
		done <- equityResult{eq: eq, err: err}
	}()

	var res equityResult
	select {
	case <-ctx.Done():
		return contracts.FundamentalSnapshot{}, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return contracts.FundamentalSnapshot{}, fmt.Errorf("%w: equity %s: %v", contracts.ErrProviderUnavailable, code, res.err)
	}
	if res.eq == nil {
		return contracts.FundamentalSnapshot{}, fmt.Errorf("%w: equity %s not found", contracts.ErrProviderUnavailable, code)
	}

	snap := contracts.FundamentalSnapshot{
		EarningsMultiple: multiple(res.eq.TrailingPE),
		BookMultiple:     multiple(res.eq.PriceToBook),
	}

	f.logger.WithFields(map[string]interface{}{
		"code": code,
		"pe":   snap.EarningsMultiple.Float64(),
		"pb":   snap.BookMultiple.Float64(),
	}).Debug("Fetched fundamentals")
	return snap, nil
}

func multiple(v float64) contracts.Ratio {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return contracts.UnknownRatio()
	}
	return contracts.KnownRatio(v)
}
