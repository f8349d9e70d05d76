package risk

// =============================================================================
// Level Multiples
// =============================================================================

// ATR 배수 및 손절 하한
// ⭐ SSOT: 손절/익절 상수는 여기서만
const (
	StopLossATRMultiple    = 2.5
	TakeProfit1ATRMultiple = 3.0
	TakeProfit2ATRMultiple = 6.0

	// MaxLossFraction caps the stop-loss distance at 10% of entry
	MaxLossFraction = 0.10
)

// =============================================================================
// Level Types
// =============================================================================

// Levels 진입가 기준 손절/익절 가격
// - StopLoss ∈ [price×0.90, price]
// - TakeProfit1 ≤ TakeProfit2 (strict when ATR > 0)
type Levels struct {
	Price       float64 `json:"price"`
	ATR         float64 `json:"atr"`
	StopLoss    float64 `json:"stop_loss"`
	TakeProfit1 float64 `json:"take_profit_1"`
	TakeProfit2 float64 `json:"take_profit_2"`

	// FloorApplied is true when the 10% floor overrode the ATR stop
	FloorApplied bool `json:"floor_applied"`
}

// LossFraction is the fractional drawdown from entry to stop
func (l Levels) LossFraction() float64 {
	if l.Price <= 0 {
		return 0
	}
	return (l.Price - l.StopLoss) / l.Price
}

// RewardRisk is the TP1 gain per unit of stop-loss risk, 0 when risk is 0
func (l Levels) RewardRisk() float64 {
	risk := l.Price - l.StopLoss
	if risk <= 0 {
		return 0
	}
	return (l.TakeProfit1 - l.Price) / risk
}
