package order

import (
	"github.com/shopspring/decimal"

	"backtest-core/internal/kline"
)

// OutcomeKind classifies what a bar does to a resting order.
type OutcomeKind int

const (
	// OutcomeNone leaves the order resting.
	OutcomeNone OutcomeKind = iota
	// OutcomeFill executes the order at Outcome.FillPrice.
	OutcomeFill
	// OutcomeTrigger arms a stop-limit order for limit evaluation.
	OutcomeTrigger
)

// Outcome is the result of evaluating one resting order against one bar.
type Outcome struct {
	Kind      OutcomeKind
	FillPrice decimal.Decimal
	// Taker is true when the order executed immediately against the current
	// price instead of resting at its own price.
	Taker bool
}

// Marketable reports whether a limit order executes immediately against
// current: an entry willing to pay at least the current price, or an exit
// willing to sell at or below it.
func Marketable(side Side, limitPrice, current decimal.Decimal) bool {
	if side == SideEntry {
		return limitPrice.GreaterThanOrEqual(current)
	}
	return limitPrice.LessThanOrEqual(current)
}

// StopTriggered applies the range-crossing test: the stop is hit whenever the
// bar's low..high range contains the stop price. The test is deliberately
// direction-agnostic; the order's side expresses the strategy's intent.
func StopTriggered(stopPrice decimal.Decimal, bar kline.Kline) bool {
	return bar.Low.LessThanOrEqual(stopPrice) && stopPrice.LessThanOrEqual(bar.High)
}

// EvaluateOpening decides what the bar does to an OPENING order. current is
// the bar's reference price (its close).
func EvaluateOpening(o Order, bar kline.Kline, current decimal.Decimal) Outcome {
	switch o.Kind {
	case KindLimit:
		return evaluateLimit(o.Side, o.LimitPrice, bar, current)
	case KindStopMarket:
		if StopTriggered(o.StopPrice, bar) {
			return Outcome{Kind: OutcomeFill, FillPrice: current, Taker: true}
		}
	case KindStopLimit:
		if StopTriggered(o.StopPrice, bar) {
			return Outcome{Kind: OutcomeTrigger}
		}
	}
	return Outcome{}
}

// EvaluateTriggered decides what the bar does to a TRIGGERED stop-limit
// order, which from this point behaves as a plain limit order.
func EvaluateTriggered(o Order, bar kline.Kline, current decimal.Decimal) Outcome {
	return evaluateLimit(o.Side, o.LimitPrice, bar, current)
}

// evaluateLimit fills at the current price (taker) when the order is
// immediately marketable, or at the limit price (maker) once the bar's range
// reaches it.
func evaluateLimit(side Side, limitPrice decimal.Decimal, bar kline.Kline, current decimal.Decimal) Outcome {
	if Marketable(side, limitPrice, current) {
		return Outcome{Kind: OutcomeFill, FillPrice: current, Taker: true}
	}
	if side == SideEntry && bar.Low.LessThanOrEqual(limitPrice) {
		return Outcome{Kind: OutcomeFill, FillPrice: limitPrice}
	}
	if side == SideExit && bar.High.GreaterThanOrEqual(limitPrice) {
		return Outcome{Kind: OutcomeFill, FillPrice: limitPrice}
	}
	return Outcome{}
}
