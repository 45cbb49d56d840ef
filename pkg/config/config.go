package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the backtest core.
type Config struct {
	// Strategy definition file (YAML).
	StrategyFile string

	// Database
	DBPath string

	// OutputRoot is the parent directory for per-execution archive staging.
	OutputRoot string

	// Binance endpoints; empty values select the public production hosts.
	BinanceAPIURL  string
	BinanceDataURL string

	// Sandbox
	SandboxTimeout time.Duration
	SandboxWorkDir string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		StrategyFile:   getEnv("STRATEGY_FILE", "./strategy.yaml"),
		DBPath:         getEnv("DB_PATH", "./data/backtests.db"),
		OutputRoot:     getEnv("OUTPUT_ROOT", "./data/archives"),
		BinanceAPIURL:  os.Getenv("BINANCE_API_URL"),
		BinanceDataURL: os.Getenv("BINANCE_DATA_URL"),
		SandboxTimeout: time.Duration(getEnvInt("SANDBOX_TIMEOUT_MS", 10000)) * time.Millisecond,
		SandboxWorkDir: os.Getenv("SANDBOX_WORKDIR"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
