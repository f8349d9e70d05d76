package selection

import (
	"github.com/wonny/bistpro/internal/contracts"
)

// Scoring constants
// ⭐ SSOT: 점수 기준값은 여기서만
const (
	PointsPerCheck      = 20
	QualifyingScore     = 60
	RSIMomentumFloor    = 50.0
	MaxEarningsMultiple = 20.0
	MaxBookMultiple     = 5.0
)

// Check is one 20-point boolean test
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// Breakdown lists the five checks in evaluation order
type Breakdown struct {
	Checks []Check `json:"checks"`
	Score  int     `json:"score"`
}

// Evaluate runs the five checks.
// Unknown multiples and a missing SMA50 always fail their check.
func Evaluate(ind contracts.IndicatorSnapshot, fund contracts.FundamentalSnapshot) Breakdown {
	checks := []Check{
		{Name: "rsi_above_50", Passed: ind.RSI > RSIMomentumFloor},
		{Name: "macd_above_signal", Passed: ind.MACD > ind.MACDSignal},
		{Name: "close_above_sma50", Passed: ind.HasSMA50 && ind.LastClose > ind.SMA50},
		{Name: "pe_below_20", Passed: fund.EarningsMultiple.Below(MaxEarningsMultiple)},
		{Name: "pb_below_5", Passed: fund.BookMultiple.Below(MaxBookMultiple)},
	}

	score := 0
	for _, c := range checks {
		if c.Passed {
			score += PointsPerCheck
		}
	}

	return Breakdown{Checks: checks, Score: score}
}

// Score returns the composite score in {0, 20, ..., 100}
func Score(ind contracts.IndicatorSnapshot, fund contracts.FundamentalSnapshot) int {
	return Evaluate(ind, fund).Score
}

// Qualifies reports whether score admits the instrument into scan output
func Qualifies(score int) bool {
	return score >= QualifyingScore
}
