package db

import (
	"context"
	"testing"
)

func TestSaveResult(t *testing.T) {
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer database.Close()

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	ctx := context.Background()
	res := Result{
		ExecutionID:   "exec-1",
		Strategy:      "golden-cross",
		Exchange:      "BINANCE",
		Symbol:        "BTCUSDT",
		Timeframe:     "1h",
		BarsProcessed: 42,
		Ledger:        map[string]string{"equity": "101.5"},
		OpeningTrades: []string{},
		ClosedTrades:  []string{},
		OrdersByStatus: map[string]any{
			"filled":   []string{},
			"rejected": []string{},
		},
	}
	if err := database.SaveResult(ctx, res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	var bars int
	var ledger string
	err = database.DB.QueryRowContext(ctx,
		"SELECT bars_processed, ledger FROM backtests WHERE execution_id = ?", "exec-1").
		Scan(&bars, &ledger)
	if err != nil {
		t.Fatalf("Failed to read back the run: %v", err)
	}
	if bars != 42 {
		t.Errorf("bars_processed = %d, want 42", bars)
	}
	if ledger != `{"equity":"101.5"}` {
		t.Errorf("ledger = %s, want the JSON document", ledger)
	}

	var orderRows int
	if err := database.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM backtest_orders WHERE execution_id = ?", "exec-1").Scan(&orderRows); err != nil {
		t.Fatalf("Failed to count order rows: %v", err)
	}
	if orderRows != 2 {
		t.Errorf("order rows = %d, want 2", orderRows)
	}

	// The primary key rejects a second insert of the same run.
	if err := database.SaveResult(ctx, res); err == nil {
		t.Error("expected an error when saving the same execution twice")
	}
}
