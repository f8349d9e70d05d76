package selection

import (
	"sort"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/risk"
	"github.com/wonny/bistpro/internal/s2_signals"
)

// BuildCandidate assembles the immutable candidate record for one instrument
func BuildCandidate(sig *s2_signals.StockSignals, levels risk.Levels, score int) contracts.ScoredCandidate {
	ind := sig.Indicators
	return contracts.ScoredCandidate{
		Code:             sig.Code,
		Price:            ind.LastClose,
		Score:            score,
		RSI:              ind.RSI,
		MACD:             ind.MACD,
		MACDSignal:       ind.MACDSignal,
		SMA50:            ind.SMA50,
		ATR:              ind.ATR,
		EarningsMultiple: sig.Fundamentals.EarningsMultiple,
		BookMultiple:     sig.Fundamentals.BookMultiple,
		Sector:           sig.Fundamentals.Sector,
		StopLoss:         levels.StopLoss,
		TakeProfit1:      levels.TakeProfit1,
		TakeProfit2:      levels.TakeProfit2,
		Narrative:        Narrate(ind),
	}
}

// Rank sorts candidates by score descending.
// The sort is stable, so equal scores keep their input (universe) order.
// ⭐ SSOT: 랭킹 정렬은 여기서만
func Rank(candidates []contracts.ScoredCandidate) []contracts.ScoredCandidate {
	ranked := make([]contracts.ScoredCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
