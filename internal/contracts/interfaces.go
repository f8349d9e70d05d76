package contracts

import "context"

// PriceProvider fetches daily history for a batch of instruments.
// ⭐ SSOT: 가격 데이터 공급자 인터페이스
//
// A partial map with nil error is a successful fetch; instruments missing from
// the map had no data. A non-nil error wrapping ErrProviderUnavailable means the
// provider failed as a whole.
type PriceProvider interface {
	FetchSeries(ctx context.Context, codes []string, lookback Lookback) (map[string]PriceSeries, error)
}

// FundamentalsProvider fetches valuation data for one instrument.
// Any error maps to UnknownFundamentals at the call site.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, code string) (FundamentalSnapshot, error)
}

// SelectionStore persists the committed selection.
// Load returns (nil, nil) when nothing is stored and an error wrapping
// ErrMalformedState when the stored record cannot be decoded.
type SelectionStore interface {
	Load(ctx context.Context) (*PortfolioSelection, error)
	Save(ctx context.Context, sel *PortfolioSelection) error
	Clear(ctx context.Context) error
}

// ProgressFunc receives a monotonically increasing completion fraction in (0, 1]
type ProgressFunc func(fraction float64)
