// Package script defines the sandbox boundary between the simulation loop
// and the user's strategy code: a read-only snapshot going in, and a mailbox
// of order requests coming out.
package script

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest-core/internal/kline"
	"backtest-core/internal/ledger"
	"backtest-core/internal/order"
	"backtest-core/internal/trade"
)

// Script is the user-supplied strategy program.
type Script struct {
	Body     string
	Language string // "python" or "javascript"
}

// OrdersView groups the run's orders by status for the script to inspect.
type OrdersView struct {
	Opening   []order.Order `json:"opening"`
	Triggered []order.Order `json:"triggered"`
	Filled    []order.Order `json:"filled"`
	Canceled  []order.Order `json:"canceled"`
	Rejected  []order.Order `json:"rejected"`
	Submitted []order.Order `json:"submitted"`
}

// SystemView carries run metadata for diagnostics inside the script.
type SystemView struct {
	ExecutionID string          `json:"executionId"`
	BarTime     time.Time       `json:"barTime"`
	Timeframe   kline.Timeframe `json:"timeframe"`
}

// Snapshot is the immutable state view handed to the script once per bar.
// Everything in it is a copy; mutating it cannot affect the engine.
type Snapshot struct {
	Klines        []kline.Kline       `json:"klines"`
	Strategy      ledger.Ledger       `json:"strategy"`
	OpeningTrades []trade.OpeningTrade `json:"openingTrades"`
	ClosedTrades  []trade.ClosedTrade  `json:"closedTrades"`
	Orders        OrdersView          `json:"orders"`
	// TechnicalAnalysis holds indicator series computed over the kline
	// window's close prices, aligned with Klines.
	TechnicalAnalysis map[string][]decimal.Decimal `json:"technicalAnalysis"`
	System            SystemView                   `json:"system"`
}
