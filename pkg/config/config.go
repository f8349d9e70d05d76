package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Yahoo YahooConfig

	// Screening
	Scan      ScanConfig
	Universe  UniverseConfig
	Portfolio PortfolioConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// YahooConfig holds the price/fundamentals endpoint settings
type YahooConfig struct {
	ChartURL string
	RPS      float64 // requests per second against the chart endpoint
	Burst    int
	Timeout  time.Duration
}

// ScanConfig holds market scanner settings
type ScanConfig struct {
	Workers           int
	InstrumentTimeout time.Duration
	CacheTTL          time.Duration
	Lookback          string // 1mo, 1y
	Schedule          string // cron spec with seconds
}

// UniverseConfig locates the instrument universe
type UniverseConfig struct {
	File string
	URL  string // optional constituent page, scraped when set
}

// PortfolioConfig holds selection persistence settings
type PortfolioConfig struct {
	Store string // file, postgres
	File  string
	Size  int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Yahoo: YahooConfig{
			ChartURL: getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			RPS:      getEnvAsFloat("YAHOO_RPS", 4),
			Burst:    getEnvAsInt("YAHOO_BURST", 4),
			Timeout:  getEnvAsDuration("YAHOO_TIMEOUT", "15s"),
		},

		Scan: ScanConfig{
			Workers:           getEnvAsInt("SCAN_WORKERS", 8),
			InstrumentTimeout: getEnvAsDuration("SCAN_INSTRUMENT_TIMEOUT", "10s"),
			CacheTTL:          getEnvAsDuration("SCAN_CACHE_TTL", "10m"),
			Lookback:          getEnv("SCAN_LOOKBACK", "1y"),
			Schedule:          getEnv("SCAN_SCHEDULE", "0 30 18 * * 1-5"),
		},

		Universe: UniverseConfig{
			File: getEnv("UNIVERSE_FILE", "config/universe/bist100.yaml"),
			URL:  getEnv("UNIVERSE_URL", ""),
		},

		Portfolio: PortfolioConfig{
			Store: getEnv("PORTFOLIO_STORE", "file"),
			File:  getEnv("PORTFOLIO_FILE", "portfoy_pro.json"),
			Size:  getEnvAsInt("PORTFOLIO_SIZE", 5),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.Portfolio.Store {
	case "file":
		if c.Portfolio.File == "" {
			return fmt.Errorf("PORTFOLIO_FILE is required when PORTFOLIO_STORE=file")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PORTFOLIO_STORE=postgres")
		}
	default:
		return fmt.Errorf("PORTFOLIO_STORE must be one of: file, postgres")
	}

	if c.Portfolio.Size <= 0 {
		return fmt.Errorf("PORTFOLIO_SIZE must be positive, got %d", c.Portfolio.Size)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be positive, got %d", c.Scan.Workers)
	}
	if c.Scan.Lookback != "1mo" && c.Scan.Lookback != "1y" {
		return fmt.Errorf("SCAN_LOOKBACK must be 1mo or 1y, got %q", c.Scan.Lookback)
	}
	if c.Yahoo.RPS <= 0 {
		return fmt.Errorf("YAHOO_RPS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
