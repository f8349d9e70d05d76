package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env       string
	logFormat string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "BIST 100 종목 스크리너 + 30일 잠금 포트폴리오",
	Long: `bistpro Unified CLI

Borsa Istanbul 종목을 기술적 지표(RSI, MACD, SMA50)와
밸류에이션(PER, PBR)으로 점수화하고, 상위 종목을 30일간 잠긴 포트폴리오로 확정합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant scan --top 20
  go run ./cmd/quant scan --csv bist_analiz.csv
  go run ./cmd/quant portfolio status
  go run ./cmd/quant portfolio commit
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production|test)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json|console)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
