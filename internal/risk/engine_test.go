package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/internal/contracts"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		atr       float64
		wantSL    float64
		wantTP1   float64
		wantTP2   float64
		wantFloor bool
	}{
		{
			name:    "normal volatility uses ATR stop",
			price:   100,
			atr:     2,
			wantSL:  95,
			wantTP1: 106,
			wantTP2: 112,
		},
		{
			name:      "extreme volatility hits 10% floor",
			price:     100,
			atr:       10,
			wantSL:    90,
			wantTP1:   130,
			wantTP2:   160,
			wantFloor: true,
		},
		{
			name:    "just inside floor",
			price:   100,
			atr:     3.9,
			wantSL:  90.25,
			wantTP1: 111.7,
			wantTP2: 123.4,
		},
		{
			name:    "zero ATR",
			price:   50,
			atr:     0,
			wantSL:  50,
			wantTP1: 50,
			wantTP2: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Calculate(tt.price, tt.atr)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantSL, l.StopLoss, 1e-9)
			assert.InDelta(t, tt.wantTP1, l.TakeProfit1, 1e-9)
			assert.InDelta(t, tt.wantTP2, l.TakeProfit2, 1e-9)
			assert.Equal(t, tt.wantFloor, l.FloorApplied)
		})
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		atr   float64
	}{
		{"zero price", 0, 1},
		{"negative price", -5, 1},
		{"negative atr", 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.price, tt.atr)
			assert.ErrorIs(t, err, contracts.ErrInvalidInput)
		})
	}
}

func TestCalculate_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := NewEngine()

	for i := 0; i < 1000; i++ {
		price := 0.5 + rng.Float64()*1000
		atr := rng.Float64() * price * 0.3

		l, err := e.Levels(price, atr)
		require.NoError(t, err)

		assert.LessOrEqual(t, l.StopLoss, price)
		assert.GreaterOrEqual(t, l.StopLoss, price*0.90-1e-9)
		assert.LessOrEqual(t, l.LossFraction(), MaxLossFraction+1e-12)
		if atr > 0 {
			assert.Less(t, l.TakeProfit1, l.TakeProfit2)
		}
	}
}

func TestLevels_RewardRisk(t *testing.T) {
	l, err := Calculate(100, 2)
	require.NoError(t, err)
	assert.InDelta(t, 6.0/5.0, l.RewardRisk(), 1e-9)

	flat, err := Calculate(100, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, flat.RewardRisk())
}
