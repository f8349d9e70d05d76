package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/bistpro/internal/contracts"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "30일 잠금 포트폴리오 관리",
	Long: `확정된 포트폴리오를 조회, 확정, 초기화합니다.

포트폴리오는 확정일로부터 30일간 잠기며, 잠금 중에는 새 확정이 거부됩니다.

Subcommands:
  status   - 현재 포트폴리오와 잠금 상태
  commit   - 스캔 후 상위 종목 확정
  clear    - 포트폴리오 초기화
  history  - 보유 종목 최근 1개월 종가

Example:
  go run ./cmd/quant portfolio status
  go run ./cmd/quant portfolio commit --refresh`,
}

var (
	portfolioStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "현재 포트폴리오와 잠금 상태",
		RunE:  runPortfolioStatus,
	}

	portfolioCommitCmd = &cobra.Command{
		Use:   "commit",
		Short: "스캔 후 상위 종목 확정 (잠금 중이면 거부)",
		RunE:  runPortfolioCommit,
	}

	portfolioClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "포트폴리오 초기화",
		RunE:  runPortfolioClear,
	}

	portfolioHistoryCmd = &cobra.Command{
		Use:   "history",
		Short: "보유 종목 최근 1개월 종가",
		RunE:  runPortfolioHistory,
	}

	commitRefresh bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioStatusCmd)
	portfolioCmd.AddCommand(portfolioCommitCmd)
	portfolioCmd.AddCommand(portfolioClearCmd)
	portfolioCmd.AddCommand(portfolioHistoryCmd)

	portfolioCommitCmd.Flags().BoolVar(&commitRefresh, "refresh", false, "캐시 무시하고 새로 스캔")
}

func runPortfolioStatus(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	PrintTitle(out, "Portfolio")
	fmt.Fprintln(out, renderLock(st.Lock, st.Selection))
	if st.Malformed {
		PrintWarning(out, "Stored portfolio could not be read and was ignored")
	}
	if st.Selection != nil && st.Selection.Count() > 0 {
		fmt.Fprintln(out, renderCandidates(st.Selection.Holdings))
	}
	return nil
}

func runPortfolioCommit(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	universe, err := a.universe.Load(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	sel, _, err := a.manager.ScanAndCommit(ctx, universe, a.scanOptions(commitRefresh, func(f float64) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", progressBar(f, 40))
	}))
	fmt.Fprintln(cmd.ErrOrStderr())

	switch {
	case errors.Is(err, contracts.ErrPortfolioLocked):
		PrintError(out, err.Error())
		return err
	case errors.Is(err, contracts.ErrNoCandidates):
		PrintWarning(out, "No instrument qualified, nothing committed")
		return err
	case err != nil:
		return fmt.Errorf("commit: %w", err)
	}

	PrintSuccess(out, fmt.Sprintf("Committed %d holdings on %s", sel.Count(), sel.StartDate.Format(contracts.DateLayout)))
	fmt.Fprintln(out, renderCandidates(sel.Holdings))
	return nil
}

func runPortfolioClear(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.Clear(ctx); err != nil {
		return fmt.Errorf("clear portfolio: %w", err)
	}
	PrintSuccess(cmd.OutOrStdout(), "Portfolio cleared")
	return nil
}

func runPortfolioHistory(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.manager.HoldingsHistory(ctx)
	if err != nil {
		return fmt.Errorf("holdings history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(history) == 0 {
		PrintWarning(out, "No holdings")
		return nil
	}

	codes := make([]string, 0, len(history))
	for code := range history {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		series := history[code]
		PrintTitle(out, code)
		if series.Len() == 0 {
			PrintWarning(out, "no prices")
			continue
		}
		first, last := series.Bars[0], series.Bars[series.Len()-1]
		change := (last.Close/first.Close - 1) * 100
		PrintKeyValue(out, "From", first.Date.Format(contracts.DateLayout)+"  "+money(first.Close), 6)
		PrintKeyValue(out, "To", last.Date.Format(contracts.DateLayout)+"  "+money(last.Close), 6)
		PrintKeyValue(out, "Change", fmt.Sprintf("%+.2f%%", change), 6)
	}
	return nil
}

// bootstrap loads config and wires the app for a one-shot command
func bootstrap(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg)
}
