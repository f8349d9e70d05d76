package s2_signals

import (
	"context"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/logger"
)

// ValueCalculator resolves the valuation snapshot of one instrument
// ⭐ SSOT: 가치 지표 조회/대체값 처리는 여기서만
type ValueCalculator struct {
	provider contracts.FundamentalsProvider
	timeout  time.Duration
	logger   *logger.Logger
}

// NewValueCalculator creates a new value calculator.
// A zero timeout leaves the provider bounded only by the caller's context.
func NewValueCalculator(provider contracts.FundamentalsProvider, timeout time.Duration, log *logger.Logger) *ValueCalculator {
	return &ValueCalculator{
		provider: provider,
		timeout:  timeout,
		logger:   log,
	}
}

// Calculate fetches fundamentals for code.
// Provider failure never fails the instrument: the unknown snapshot is returned
// with degraded=true.
func (c *ValueCalculator) Calculate(ctx context.Context, code, sector string) (snap contracts.FundamentalSnapshot, degraded bool) {
	if c.provider == nil {
		return withSector(contracts.UnknownFundamentals(), sector), true
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	fund, err := c.provider.FetchFundamentals(ctx, code)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"code": code,
		}).WithError(err).Debug("Fundamentals unavailable, using unknown multiples")
		return withSector(contracts.UnknownFundamentals(), sector), true
	}

	fund = withSector(fund, sector)

	c.logger.WithFields(map[string]interface{}{
		"code":   code,
		"pe":     fund.EarningsMultiple.Float64(),
		"pb":     fund.BookMultiple.Float64(),
		"sector": fund.Sector,
	}).Debug("Fetched value metrics")

	return fund, false
}

// withSector fills the sector from the universe when the provider has none
func withSector(fund contracts.FundamentalSnapshot, sector string) contracts.FundamentalSnapshot {
	if fund.Sector == "" || fund.Sector == contracts.DefaultSector {
		if sector != "" {
			fund.Sector = sector
		} else {
			fund.Sector = contracts.DefaultSector
		}
	}
	return fund
}
