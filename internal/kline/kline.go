// Package kline holds the candlestick model shared by the planner, the
// simulation engine and the data sources.
package kline

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kline is one immutable OHLCV bar. It is identified by
// (exchange, symbol, timeframe, open time).
type Kline struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Timeframe Timeframe       `json:"timeframe"`
	OpenTime  time.Time       `json:"openTime"`
	CloseTime time.Time       `json:"closeTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	// QuoteVolume is the traded volume denominated in the quote asset.
	QuoteVolume decimal.Decimal `json:"quoteVolume"`
	NumTrades   int64           `json:"numTrades"`
}

// Range is a half-open [Start, End) time interval.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Window is a fixed-capacity bar sequence, newest last. When full, appending
// evicts the oldest bar.
type Window struct {
	bars []Kline
	cap  int
}

// NewWindow creates a window holding at most capacity bars.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{bars: make([]Kline, 0, capacity), cap: capacity}
}

// Push appends a bar, evicting the oldest one when the window is full.
func (w *Window) Push(k Kline) {
	if len(w.bars) == w.cap {
		copy(w.bars, w.bars[1:])
		w.bars[len(w.bars)-1] = k
		return
	}
	w.bars = append(w.bars, k)
}

// Len returns the number of bars currently held.
func (w *Window) Len() int { return len(w.bars) }

// Last returns the newest bar. It panics if the window is empty; callers
// push a bar before reading.
func (w *Window) Last() Kline { return w.bars[len(w.bars)-1] }

// Bars returns a copy of the held bars, oldest first.
func (w *Window) Bars() []Kline {
	out := make([]Kline, len(w.bars))
	copy(out, w.bars)
	return out
}

// Closes returns the close prices of the held bars, oldest first.
func (w *Window) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.bars))
	for i, b := range w.bars {
		out[i] = b.Close
	}
	return out
}
