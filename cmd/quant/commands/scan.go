package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/selection"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "시장 스캔 (점수 60 이상 종목 랭킹)",
	Long: `유니버스 전 종목을 스캔하여 점수순 랭킹을 출력합니다.

점수 = RSI>50, MACD>Signal, 종가>SMA50, PER<20, PBR<5 (각 20점)

Example:
  go run ./cmd/quant scan
  go run ./cmd/quant scan --top 10 --refresh
  go run ./cmd/quant scan --csv bist_analiz.csv`,
	RunE: runScan,
}

var (
	scanTop     int
	scanCSV     string
	scanRefresh bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVar(&scanTop, "top", 20, "표시할 상위 종목 수")
	scanCmd.Flags().StringVar(&scanCSV, "csv", "", "전체 랭킹을 CSV로 저장할 경로")
	scanCmd.Flags().BoolVar(&scanRefresh, "refresh", false, "캐시 무시하고 새로 스캔")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	universe, err := a.universe.Load(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	PrintTitle(out, fmt.Sprintf("BIST scan · %d instruments · %s", len(universe.Stocks), universe.Source))

	result, err := a.scanner.Scan(ctx, universe, a.scanOptions(scanRefresh, func(f float64) {
		fmt.Fprintf(errOut, "\r%s", progressBar(f, 40))
	}))
	fmt.Fprintln(errOut)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if !result.HasData() {
		PrintError(out, "No price data: "+result.Reason)
		return fmt.Errorf("%w: %s", contracts.ErrProviderUnavailable, result.Reason)
	}

	if len(result.Candidates) == 0 {
		PrintWarning(out, "No instrument reached the qualifying score")
	} else {
		fmt.Fprintln(out, renderCandidates(result.Top(scanTop)))
	}

	summary := fmt.Sprintf("%d of %d qualified", len(result.Candidates), result.UniverseSize)
	if result.Cached {
		summary += " (cached)"
	}
	PrintKeyValue(out, "Result", summary, 8)
	PrintKeyValue(out, "Skipped", fmt.Sprintf("%d", skipped(result.Outcomes)), 8)

	if scanCSV != "" {
		if err := writeCSVFile(scanCSV, result.Candidates); err != nil {
			return err
		}
		PrintSuccess(out, fmt.Sprintf("Saved %d rows to %s", len(result.Candidates), scanCSV))
	}

	return nil
}

func skipped(outcomes []contracts.InstrumentOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status != contracts.OutcomeQualified && o.Status != contracts.OutcomeBelowCutoff {
			n++
		}
	}
	return n
}

func writeCSVFile(path string, cands []contracts.ScoredCandidate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := selection.WriteCSV(f, cands); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
