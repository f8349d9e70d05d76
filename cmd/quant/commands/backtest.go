package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/bistpro/internal/portfolio"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 추정치 (시뮬레이션)",
	Long: `현재 포트폴리오에 대한 고정 추정치를 출력합니다.

실제 과거 데이터 시뮬레이션은 수행하지 않습니다.
기간당 목표 수익률 15~20%는 시장 상황에 따른 추정치입니다.

Example:
  go run ./cmd/quant backtest`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.manager.Status(ctx)
	if err != nil {
		return fmt.Errorf("portfolio status: %w", err)
	}

	var codes []string
	if st.Selection != nil {
		codes = st.Selection.Codes()
	}
	bt := portfolio.EstimateBacktest(codes)

	out := cmd.OutOrStdout()
	PrintTitle(out, "Backtest (simulated)")
	holdings := "none"
	if len(bt.Holdings) > 0 {
		holdings = strings.Join(bt.Holdings, ", ")
	}
	PrintKeyValue(out, "Holdings", holdings, 14)
	PrintKeyValue(out, "Target return", fmt.Sprintf("%.0f%% ~ %.0f%%", bt.TargetReturnLow*100, bt.TargetReturnHigh*100), 14)
	PrintKeyValue(out, "Period", fmt.Sprintf("%d days", bt.HoldingPeriodDays), 14)
	PrintWarning(out, bt.Note)
	return nil
}
