package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is one finished run ready for persistence. The ledger, trade and
// order payloads are stored as JSON documents; the reporting layer reads
// them back without this package knowing their shape.
type Result struct {
	ExecutionID   string
	Strategy      string
	Exchange      string
	Symbol        string
	Timeframe     string
	BarsProcessed int

	Ledger         any
	OpeningTrades  any
	ClosedTrades   any
	OrdersByStatus map[string]any
}

// SaveResult writes the run and its order lists in one transaction.
func (d *Database) SaveResult(ctx context.Context, r Result) error {
	ledger, err := json.Marshal(r.Ledger)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	opening, err := json.Marshal(r.OpeningTrades)
	if err != nil {
		return fmt.Errorf("encode opening trades: %w", err)
	}
	closed, err := json.Marshal(r.ClosedTrades)
	if err != nil {
		return fmt.Errorf("encode closed trades: %w", err)
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtests (execution_id, strategy, exchange, symbol, timeframe, bars_processed, ledger, opening_trades, closed_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ExecutionID, r.Strategy, r.Exchange, r.Symbol, r.Timeframe, r.BarsProcessed, string(ledger), string(opening), string(closed))
	if err != nil {
		return fmt.Errorf("insert backtest: %w", err)
	}

	for status, orders := range r.OrdersByStatus {
		payload, err := json.Marshal(orders)
		if err != nil {
			return fmt.Errorf("encode %s orders: %w", status, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_orders (execution_id, status, orders)
			VALUES (?, ?, ?)
		`, r.ExecutionID, status, string(payload))
		if err != nil {
			return fmt.Errorf("insert %s orders: %w", status, err)
		}
	}

	return tx.Commit()
}
