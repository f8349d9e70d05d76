package portfolio

// Backtest is a fixed placeholder estimate. No historical simulation runs.
type Backtest struct {
	Simulated         bool     `json:"simulated"`
	TargetReturnLow   float64  `json:"target_return_low"`
	TargetReturnHigh  float64  `json:"target_return_high"`
	HoldingPeriodDays int      `json:"holding_period_days"`
	Holdings          []string `json:"holdings,omitempty"`
	Note              string   `json:"note"`
}

const (
	targetReturnLow  = 0.15
	targetReturnHigh = 0.20
)

// EstimateBacktest returns the placeholder estimate for the given holdings
func EstimateBacktest(holdings []string) Backtest {
	return Backtest{
		Simulated:         true,
		TargetReturnLow:   targetReturnLow,
		TargetReturnHigh:  targetReturnHigh,
		HoldingPeriodDays: HoldingPeriodDays,
		Holdings:          holdings,
		Note:              "simple simulation: the strategy targets a 15-20% return per period, depending on market conditions",
	}
}
