package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/external/yahoo"
	"github.com/wonny/bistpro/internal/metrics"
	"github.com/wonny/bistpro/internal/portfolio"
	"github.com/wonny/bistpro/internal/risk"
	"github.com/wonny/bistpro/internal/s1_universe"
	"github.com/wonny/bistpro/internal/s2_signals"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/config"
	"github.com/wonny/bistpro/pkg/database"
	"github.com/wonny/bistpro/pkg/httputil"
	"github.com/wonny/bistpro/pkg/logger"
	"github.com/wonny/bistpro/pkg/redis"
)

const (
	userAgent        = "Mozilla/5.0 (compatible; bistpro/1.0)"
	breakerFailures  = 5
	breakerOpenFor   = 30 * time.Second
	scanCachePrefix  = "bistpro:scan"
	istanbulZoneName = "Europe/Istanbul"
)

// app holds the wired components shared by every command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Registry

	prices   *yahoo.Client
	scanner  *selection.Scanner
	universe *s1_universe.Loader
	manager  *portfolio.Manager

	db           *database.DB
	redis        *redis.Client
	rankingRepo  *selection.Repository
	universeRepo *s1_universe.Repository
}

// loadConfig reads config and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp wires config → logger → providers → scanner → portfolio manager
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.NewRegistry()
	}

	// 1. Optional infrastructure
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		log.Info("Connected to database")

		a.rankingRepo = selection.NewRepository(db.Pool)
		a.universeRepo = s1_universe.NewRepository(db.Pool)
		if err := a.rankingRepo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		if err := a.universeRepo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	// 2. Providers
	chartHTTP := httputil.New(log, cfg.Yahoo.Timeout).
		WithRateLimit(cfg.Yahoo.RPS, cfg.Yahoo.Burst).
		WithCircuitBreaker("yahoo-chart", breakerFailures, breakerOpenFor).
		WithUserAgent(userAgent)
	yahooLog := log.WithComponent("yahoo")
	a.prices = yahoo.NewClient(chartHTTP, cfg.Yahoo.ChartURL, yahooLog)
	fundamentals := yahoo.NewFundamentals(cfg.Yahoo.RPS, cfg.Yahoo.Burst, yahooLog)

	// 3. Universe
	universeLog := log.WithComponent("universe")
	var scraper *s1_universe.Scraper
	if cfg.Universe.URL != "" {
		pageHTTP := httputil.New(log, cfg.Yahoo.Timeout).WithUserAgent(userAgent)
		scraper = s1_universe.NewScraper(pageHTTP, cfg.Universe.URL, universeLog)
	}
	a.universe = s1_universe.NewLoader(cfg.Universe.File, scraper, universeLog)

	// 4. Scanner
	scanLog := log.WithComponent("scanner")
	builder := s2_signals.NewBuilder(
		s2_signals.NewTechnicalCalculator(scanLog),
		s2_signals.NewValueCalculator(fundamentals, cfg.Scan.InstrumentTimeout, scanLog),
		scanLog,
	)

	var cache selection.ResultCache = selection.NewMemoryCache()
	if rc.Enabled() {
		cache = selection.NewRedisCache(redis.NewCache(rc, scanCachePrefix))
		log.Info("Scan results cached in Redis")
	}

	a.scanner = selection.NewScanner(a.prices, builder, risk.NewEngine(), cache, selection.ScannerConfig{
		Workers:  cfg.Scan.Workers,
		Lookback: contracts.Lookback(cfg.Scan.Lookback),
	}, scanLog)
	if a.metrics != nil {
		a.scanner.WithRecorder(a.metrics)
	}

	// 5. Portfolio
	store, err := a.selectionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.manager = portfolio.NewManager(store, a.scanner, a.prices, portfolio.Constraints{
		MaxPositions: cfg.Portfolio.Size,
	}, log.WithComponent("portfolio"))

	return a, nil
}

func (a *app) selectionStore(ctx context.Context) (contracts.SelectionStore, error) {
	if a.cfg.Portfolio.Store != "postgres" {
		return portfolio.NewFileStore(a.cfg.Portfolio.File), nil
	}
	if a.db == nil {
		return nil, fmt.Errorf("%w: postgres store without DATABASE_URL", contracts.ErrInvalidInput)
	}
	store := portfolio.NewPostgresStore(a.db.Pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// scanOptions returns the per-call options shared by the CLI commands
func (a *app) scanOptions(refresh bool, progress contracts.ProgressFunc) selection.ScanOptions {
	return selection.ScanOptions{
		Progress: progress,
		CacheTTL: a.cfg.Scan.CacheTTL,
		Refresh:  refresh,
	}
}

// istanbul returns the exchange time zone, falling back to a fixed +03:00
func istanbul() *time.Location {
	if loc, err := time.LoadLocation(istanbulZoneName); err == nil {
		return loc
	}
	return time.FixedZone("TRT", 3*60*60)
}
