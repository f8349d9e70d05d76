package s2_signals

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/logger"
)

const (
	rsiPeriod  = 14
	atrPeriod  = 14
	smaPeriod  = 50
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// MinBars is the shortest series RSI and ATR can be computed on
	MinBars = rsiPeriod + 1
)

// TechnicalCalculator computes the indicator snapshot of a series
// ⭐ SSOT: 기술적 지표 계산은 여기서만
type TechnicalCalculator struct {
	logger *logger.Logger
}

// NewTechnicalCalculator creates a new technical calculator
func NewTechnicalCalculator(log *logger.Logger) *TechnicalCalculator {
	return &TechnicalCalculator{
		logger: log,
	}
}

// Calculate computes indicators for one instrument and logs the outcome
func (c *TechnicalCalculator) Calculate(ctx context.Context, series contracts.PriceSeries) (contracts.IndicatorSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return contracts.IndicatorSnapshot{}, err
	}

	snap, err := Compute(series)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"code": series.Code,
			"bars": series.Len(),
		}).WithError(err).Debug("Indicator computation skipped")
		return contracts.IndicatorSnapshot{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"code":        series.Code,
		"rsi":         snap.RSI,
		"macd":        snap.MACD,
		"macd_signal": snap.MACDSignal,
		"atr":         snap.ATR,
		"sma50":       snap.SMA50,
	}).Debug("Calculated technical indicators")

	return snap, nil
}

// Compute derives RSI14, MACD(12,26,9), ATR14 and SMA50 at the last bar.
// Fewer than MinBars bars fails with ErrInsufficientData; fewer than 50 leaves
// HasSMA50 false.
func Compute(series contracts.PriceSeries) (contracts.IndicatorSnapshot, error) {
	if series.Len() < MinBars {
		return contracts.IndicatorSnapshot{}, fmt.Errorf("%s: %d bars, need %d: %w",
			series.Code, series.Len(), MinBars, contracts.ErrInsufficientData)
	}
	if err := series.Validate(); err != nil {
		return contracts.IndicatorSnapshot{}, fmt.Errorf("%s: %w", series.Code, err)
	}

	closes := series.Closes()
	macd, signal := MACD(closes)

	snap := contracts.IndicatorSnapshot{
		RSI:        RSI(closes, rsiPeriod),
		MACD:       macd,
		MACDSignal: signal,
		ATR:        ATR(series.Bars, atrPeriod),
		LastClose:  closes[len(closes)-1],
	}
	if sma, ok := SMA(closes, smaPeriod); ok {
		snap.SMA50 = sma
		snap.HasSMA50 = true
	}

	return snap, nil
}

// RSI is Wilder's relative strength index at the last close.
// Seeded with the simple mean of the first period differences. A zero average
// loss gives rs = 0 and therefore RSI 0.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	n := float64(period)
	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
	}

	rs := 0.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}

func split(diff float64) (gain, loss float64) {
	if diff > 0 {
		return diff, 0
	}
	return 0, -diff
}

// EMA returns the recursive exponential moving average series, seeded with the
// first value, alpha = 2/(span+1)
func EMA(values []float64, span int) []float64 {
	if len(values) == 0 || span <= 0 {
		return nil
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the MACD line and its signal line at the last close
func MACD(closes []float64) (float64, float64) {
	if len(closes) == 0 {
		return 0, 0
	}

	fast := EMA(closes, macdFast)
	slow := EMA(closes, macdSlow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := EMA(line, macdSignal)

	last := len(closes) - 1
	return line[last], signal[last]
}

// ATR is the simple mean of the last period true ranges.
// The first bar uses its own close as the previous close.
func ATR(bars []contracts.Bar, period int) float64 {
	if len(bars) == 0 || period <= 0 {
		return 0
	}

	start := len(bars) - period
	if start < 0 {
		start = 0
	}

	var sum float64
	for i := start; i < len(bars); i++ {
		prevClose := bars[i].Close
		if i > 0 {
			prevClose = bars[i-1].Close
		}
		sum += trueRange(bars[i], prevClose)
	}
	return sum / float64(len(bars)-start)
}

func trueRange(b contracts.Bar, prevClose float64) float64 {
	return math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
}

// SMA is the trailing simple moving average; false when the series is shorter
// than period
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}

	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}
