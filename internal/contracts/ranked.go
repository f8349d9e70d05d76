package contracts

import "time"

// ScoredCandidate is one qualifying instrument with its risk levels
// ⭐ SSOT: Scanner → Portfolio 전달, 영속화 레코드와 동일
type ScoredCandidate struct {
	Code  string  `json:"code"`
	Price float64 `json:"price"`
	Score int     `json:"score"` // 0, 20, ..., 100

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	SMA50      float64 `json:"sma50"`
	ATR        float64 `json:"atr"`

	EarningsMultiple Ratio  `json:"earnings_multiple"`
	BookMultiple     Ratio  `json:"book_multiple"`
	Sector           string `json:"sector"`

	StopLoss    float64 `json:"stop_loss"`
	TakeProfit1 float64 `json:"take_profit_1"`
	TakeProfit2 float64 `json:"take_profit_2"`

	Narrative string `json:"narrative"`
}

// ScanStatus distinguishes "ran" from "could not get data"
type ScanStatus string

const (
	ScanStatusOK     ScanStatus = "ok"
	ScanStatusNoData ScanStatus = "no_data"
)

// NoDataCause tells a failed price fetch from an empty but successful one
type NoDataCause string

const (
	CauseProviderError NoDataCause = "provider_error"
	CauseEmptyResponse NoDataCause = "empty_response"
)

// OutcomeStatus is the per-instrument result of a scan
type OutcomeStatus string

const (
	OutcomeQualified    OutcomeStatus = "qualified"
	OutcomeBelowCutoff  OutcomeStatus = "below_cutoff"
	OutcomeNoPriceData  OutcomeStatus = "no_price_data"
	OutcomeInsufficient OutcomeStatus = "insufficient_data"
	OutcomeInvalid      OutcomeStatus = "invalid_series"
	OutcomeCancelled    OutcomeStatus = "cancelled"
)

// InstrumentOutcome records what happened to one instrument
type InstrumentOutcome struct {
	Code   string        `json:"code"`
	Status OutcomeStatus `json:"status"`
	Score  int           `json:"score,omitempty"`
	Reason string        `json:"reason,omitempty"`

	// FundamentalsDegraded is set when the fundamentals provider failed
	FundamentalsDegraded bool `json:"fundamentals_degraded,omitempty"`
}

// ScanResult is the ranked output of one market scan
type ScanResult struct {
	Status       ScanStatus          `json:"status"`
	Reason       string              `json:"reason,omitempty"`
	Cause        NoDataCause         `json:"cause,omitempty"` // set only when Status is no_data
	Candidates   []ScoredCandidate   `json:"candidates"`      // score desc, universe order on ties
	Outcomes     []InstrumentOutcome `json:"outcomes"`
	UniverseSize int                 `json:"universe_size"`
	ScannedAt    time.Time           `json:"scanned_at"`
	Cached       bool                `json:"cached"`
}

// HasData reports whether the scan ran against real price data
func (r *ScanResult) HasData() bool {
	return r != nil && r.Status == ScanStatusOK
}

// Top returns at most n leading candidates
func (r *ScanResult) Top(n int) []ScoredCandidate {
	if r == nil || n <= 0 {
		return nil
	}
	if n > len(r.Candidates) {
		n = len(r.Candidates)
	}
	return r.Candidates[:n]
}
