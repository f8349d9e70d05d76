package risk

import (
	"fmt"
	"math"

	"github.com/wonny/bistpro/internal/contracts"
)

// =============================================================================
// RiskEngine - 순수 계산기
// =============================================================================

// Engine 리스크 엔진 (순수 계산기)
// ⭐ SSOT: 손절/익절 계산은 여기서만
type Engine struct{}

// NewEngine 새 리스크 엔진 생성
func NewEngine() *Engine {
	return &Engine{}
}

// Levels computes stop-loss and take-profit levels
func (e *Engine) Levels(price, atr float64) (Levels, error) {
	return Calculate(price, atr)
}

// =============================================================================
// Level Calculation (Pure)
// =============================================================================

// Calculate derives stop-loss and take-profit levels from the last close and ATR.
//
//	stopLoss    = max(price - 2.5·ATR, price·0.90)
//	takeProfit1 = price + 3·ATR
//	takeProfit2 = price + 6·ATR
func Calculate(price, atr float64) (Levels, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return Levels{}, fmt.Errorf("%w: price must be positive, got %v", contracts.ErrInvalidInput, price)
	}
	if !(atr >= 0) || math.IsInf(atr, 0) {
		return Levels{}, fmt.Errorf("%w: ATR must be non-negative, got %v", contracts.ErrInvalidInput, atr)
	}

	atrStop := price - StopLossATRMultiple*atr
	floor := price * (1 - MaxLossFraction)

	l := Levels{
		Price:       price,
		ATR:         atr,
		StopLoss:    atrStop,
		TakeProfit1: price + TakeProfit1ATRMultiple*atr,
		TakeProfit2: price + TakeProfit2ATRMultiple*atr,
	}
	if floor > atrStop {
		l.StopLoss = floor
		l.FloorApplied = true
	}

	return l, nil
}
