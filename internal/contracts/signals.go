package contracts

import (
	"encoding/json"
	"math"
)

// IndicatorSnapshot is the technical state of one instrument at its last bar
// ⭐ SSOT: S2 → Scoring/Risk 전달
type IndicatorSnapshot struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	ATR        float64 `json:"atr"`
	LastClose  float64 `json:"last_close"`
	SMA50      float64 `json:"sma50"`
	HasSMA50   bool    `json:"has_sma50"` // false when fewer than 50 bars
}

// SentinelRatio is the persisted stand-in for an unknown multiple
const SentinelRatio = 999.0

// DefaultSector is used when the provider has no classification
const DefaultSector = "Unclassified"

// Ratio is a valuation multiple that may be unknown.
// Unknown ratios never pass a "below limit" check.
type Ratio struct {
	value float64
	known bool
}

// KnownRatio wraps an available multiple
func KnownRatio(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio{}
	}
	return Ratio{value: v, known: true}
}

// UnknownRatio is the "unavailable" multiple
func UnknownRatio() Ratio {
	return Ratio{}
}

// Known reports whether the provider supplied a value
func (r Ratio) Known() bool {
	return r.known
}

// Below is true only for a known value strictly under limit
func (r Ratio) Below(limit float64) bool {
	return r.known && r.value < limit
}

// Float64 returns the value, or SentinelRatio when unknown
func (r Ratio) Float64() float64 {
	if !r.known {
		return SentinelRatio
	}
	return r.value
}

// MarshalJSON writes the number, 999 for unknown
func (r Ratio) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Float64())
}

// UnmarshalJSON reads a number; 999 and null decode as unknown
func (r *Ratio) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil || *v == SentinelRatio {
		*r = UnknownRatio()
		return nil
	}
	*r = KnownRatio(*v)
	return nil
}

// FundamentalSnapshot holds valuation data for one instrument
type FundamentalSnapshot struct {
	EarningsMultiple Ratio  `json:"earnings_multiple"` // P/E
	BookMultiple     Ratio  `json:"book_multiple"`     // P/B
	Sector           string `json:"sector"`
}

// UnknownFundamentals is the snapshot used when the provider fails
func UnknownFundamentals() FundamentalSnapshot {
	return FundamentalSnapshot{
		EarningsMultiple: UnknownRatio(),
		BookMultiple:     UnknownRatio(),
		Sector:           DefaultSector,
	}
}
