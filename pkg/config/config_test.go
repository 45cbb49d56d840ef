package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"STRATEGY_FILE", "DB_PATH", "OUTPUT_ROOT",
		"BINANCE_API_URL", "BINANCE_DATA_URL",
		"SANDBOX_TIMEOUT_MS", "SANDBOX_WORKDIR",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StrategyFile != "./strategy.yaml" {
		t.Errorf("strategy file = %s, want ./strategy.yaml", cfg.StrategyFile)
	}
	if cfg.DBPath != "./data/backtests.db" {
		t.Errorf("db path = %s, want ./data/backtests.db", cfg.DBPath)
	}
	if cfg.SandboxTimeout != 10*time.Second {
		t.Errorf("sandbox timeout = %s, want 10s", cfg.SandboxTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STRATEGY_FILE", "/etc/backtest/run.yaml")
	t.Setenv("SANDBOX_TIMEOUT_MS", "2500")
	t.Setenv("BINANCE_API_URL", "http://localhost:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StrategyFile != "/etc/backtest/run.yaml" {
		t.Errorf("strategy file = %s, want the override", cfg.StrategyFile)
	}
	if cfg.SandboxTimeout != 2500*time.Millisecond {
		t.Errorf("sandbox timeout = %s, want 2.5s", cfg.SandboxTimeout)
	}
	if cfg.BinanceAPIURL != "http://localhost:9000" {
		t.Errorf("api url = %s, want the override", cfg.BinanceAPIURL)
	}
}
