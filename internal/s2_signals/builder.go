package s2_signals

import (
	"context"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/logger"
)

// StockSignals is everything the scorer and risk engine need for one instrument
type StockSignals struct {
	Code         string
	Indicators   contracts.IndicatorSnapshot
	Fundamentals contracts.FundamentalSnapshot

	// FundamentalsDegraded is true when the provider failed and unknown
	// multiples were substituted
	FundamentalsDegraded bool
}

// Builder combines the technical and value calculators per instrument
// ⭐ SSOT: 종목별 시그널 조합은 여기서만
type Builder struct {
	technical *TechnicalCalculator
	value     *ValueCalculator
	logger    *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(technical *TechnicalCalculator, value *ValueCalculator, logger *logger.Logger) *Builder {
	return &Builder{
		technical: technical,
		value:     value,
		logger:    logger,
	}
}

// Build computes indicators for series, then resolves fundamentals.
// Fundamentals are only fetched once the series has passed the indicator
// checks, so skipped instruments cost no remote call.
func (b *Builder) Build(ctx context.Context, series contracts.PriceSeries, sector string) (*StockSignals, error) {
	ind, err := b.technical.Calculate(ctx, series)
	if err != nil {
		return nil, err
	}

	fund, degraded := b.value.Calculate(ctx, series.Code, sector)

	return &StockSignals{
		Code:                 series.Code,
		Indicators:           ind,
		Fundamentals:         fund,
		FundamentalsDegraded: degraded,
	}, nil
}
