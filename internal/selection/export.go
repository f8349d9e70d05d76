package selection

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wonny/bistpro/internal/contracts"
)

// CSVHeader is the column order of WriteCSV
var CSVHeader = []string{
	"code", "price", "score", "rsi", "macd", "macd_signal", "sma50", "atr",
	"earnings_multiple", "book_multiple", "sector",
	"stop_loss", "take_profit_1", "take_profit_2", "narrative",
}

// WriteCSV writes the ranked candidates with a header row.
// Unknown multiples are written as 999.
func WriteCSV(w io.Writer, candidates []contracts.ScoredCandidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, c := range candidates {
		record := []string{
			c.Code,
			num(c.Price),
			strconv.Itoa(c.Score),
			num(c.RSI),
			num(c.MACD),
			num(c.MACDSignal),
			num(c.SMA50),
			num(c.ATR),
			num(c.EarningsMultiple.Float64()),
			num(c.BookMultiple.Float64()),
			c.Sector,
			num(c.StopLoss),
			num(c.TakeProfit1),
			num(c.TakeProfit2),
			c.Narrative,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.Code, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
