package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/bistpro/internal/api"
	"github.com/wonny/bistpro/internal/api/handlers"
	"github.com/wonny/bistpro/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET    /health                 - Health check
  GET    /metrics                - Prometheus metrics
  GET    /api/scan               - 시장 스캔 랭킹 (?top=20&refresh=true)
  GET    /api/scan.csv           - 전체 랭킹 CSV
  GET    /api/portfolio          - 포트폴리오 + 잠금 상태
  DELETE /api/portfolio          - 포트폴리오 초기화
  POST   /api/portfolio/commit   - 스캔 후 상위 종목 확정 (잠금 중 409)
  GET    /api/portfolio/history  - 보유 종목 최근 1개월 종가
  GET    /api/backtest           - 백테스트 추정치
  GET    /ws/scan                - 스캔 진행률 WebSocket

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스케줄러를 같은 프로세스에서 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Wire components
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.WithFields(map[string]interface{}{
		"port":  cfg.Port,
		"env":   cfg.Env,
		"store": cfg.Portfolio.Store,
	}).Info("Initializing API server")

	// 3. Handlers and router
	ttl := cfg.Scan.CacheTTL
	router := api.NewRouter(api.Handlers{
		Scan:      handlers.NewScanHandler(a.scanner, a.universe, ttl, a.log),
		Stream:    handlers.NewStreamHandler(a.scanner, a.universe, ttl, a.log),
		Portfolio: handlers.NewPortfolioHandler(a.manager, a.universe, ttl, a.log),
		Metrics:   a.metrics,
	}, a.log)

	server := api.New(cfg, a.log, router)

	// 4. Optional in-process scheduler
	var sched *scheduler.Scheduler
	if apiWithScheduler {
		sched, err = newScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	// 5. Serve until Ctrl+C, then drain
	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", cfg.Port))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	err = server.Run(ctx)
	if sched != nil {
		sched.Stop()
	}
	return err
}
