package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS backtests (
    execution_id TEXT PRIMARY KEY,
    strategy TEXT NOT NULL,
    exchange TEXT NOT NULL,
    symbol TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    bars_processed INTEGER NOT NULL,
    ledger TEXT NOT NULL,
    opening_trades TEXT NOT NULL,
    closed_trades TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS backtest_orders (
    execution_id TEXT NOT NULL,
    status TEXT NOT NULL,
    orders TEXT NOT NULL,
    PRIMARY KEY (execution_id, status)
);
`

// ApplyMigrations creates the result tables when missing.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
