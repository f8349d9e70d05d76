package selection

import (
	"strings"

	"github.com/wonny/bistpro/internal/contracts"
)

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Narrate renders a deterministic one-paragraph commentary of the technical
// picture: RSI zone, MACD direction, price against the 50-day average
func Narrate(ind contracts.IndicatorSnapshot) string {
	parts := make([]string, 0, 3)

	switch {
	case ind.RSI > rsiOverbought:
		parts = append(parts, "RSI is overbought, caution is warranted.")
	case ind.RSI < rsiOversold:
		parts = append(parts, "RSI is oversold, a rebound may follow.")
	default:
		parts = append(parts, "RSI is in neutral territory.")
	}

	if ind.MACD > ind.MACDSignal {
		parts = append(parts, "MACD has crossed above its signal line, momentum is turning up.")
	} else {
		parts = append(parts, "MACD is below its signal line, momentum is weakening.")
	}

	switch {
	case !ind.HasSMA50:
		parts = append(parts, "Not enough history for the 50-day average.")
	case ind.LastClose > ind.SMA50:
		parts = append(parts, "Price is holding above its 50-day average.")
	default:
		parts = append(parts, "Price is under pressure below its 50-day average.")
	}

	return strings.Join(parts, " ")
}
