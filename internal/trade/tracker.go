// Package trade derives opening and closed trade records from entry and exit
// fills and tracks their running return statistics.
package trade

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"backtest-core/internal/kline"
	"backtest-core/internal/order"
)

// ErrInsufficientOpeningTrades signals an exit fill larger than the total
// open quantity. It indicates an accounting desync and is fatal to the run.
var ErrInsufficientOpeningTrades = errors.New("insufficient opening trades")

// statsPrecision bounds return figures at 8 decimals, rounded half-up.
const statsPrecision = 8

// OpeningTrade is a position opened by an entry fill and not yet fully
// offset by exits.
type OpeningTrade struct {
	ID         string      `json:"id"`
	EntryOrder order.Order `json:"entryOrder"`
	// Quantity is the remaining trade quantity: the filled quantity net of an
	// asset-currency entry fee, reduced by partial exits.
	Quantity decimal.Decimal `json:"tradeQuantity"`
	// initialQuantity is Quantity at creation, kept for cost-basis scaling.
	initialQuantity decimal.Decimal

	MaxPrice         decimal.Decimal `json:"maxPrice"`
	MinPrice         decimal.Decimal `json:"minPrice"`
	MaxRunup         decimal.Decimal `json:"maxRunup"`
	MaxDrawdown      decimal.Decimal `json:"maxDrawdown"`
	UnrealizedReturn decimal.Decimal `json:"unrealizedReturn"`
}

// costBasis returns the share of the entry cost carried by qty units of the
// trade. The entry notional is spread over the initial trade quantity, so the
// asset-currency entry fee is priced in.
func (t *OpeningTrade) costBasis(qty decimal.Decimal) decimal.Decimal {
	notional := t.EntryOrder.FilledPrice.Mul(t.EntryOrder.Quantity)
	return notional.Mul(qty).Div(t.initialQuantity)
}

// ClosedTrade is the realized counterpart of an OpeningTrade (or of the part
// of one consumed by an exit fill).
type ClosedTrade struct {
	ID         string          `json:"id"`
	EntryOrder order.Order     `json:"entryOrder"`
	ExitOrder  order.Order     `json:"exitOrder"`
	Quantity   decimal.Decimal `json:"tradeQuantity"`
	NetReturn  decimal.Decimal `json:"netReturn"`
}

// Tracker owns the opening and closed trade lists of one run.
type Tracker struct {
	opening []*OpeningTrade
	closed  []ClosedTrade
	newID   func() string
}

// NewTracker creates a Tracker using newID to mint trade ids.
func NewTracker(newID func() string) *Tracker {
	return &Tracker{newID: newID}
}

// OnEntryFill opens a new trade seeded from a filled entry order. When the
// fee is charged in the asset currency it is deducted from the trade
// quantity.
func (t *Tracker) OnEntryFill(o order.Order, assetCurrency string) *OpeningTrade {
	qty := o.Quantity
	if o.Fee.Currency == assetCurrency {
		qty = qty.Sub(o.Fee.Amount)
	}
	nt := &OpeningTrade{
		ID:              t.newID(),
		EntryOrder:      o,
		Quantity:        qty,
		initialQuantity: qty,
		MaxPrice:        o.FilledPrice,
		MinPrice:        o.FilledPrice,
	}
	t.opening = append(t.opening, nt)
	return nt
}

// UpdateBar refreshes every opening trade's price extremes, running
// run-up/drawdown and unrealized return against the new bar.
func (t *Tracker) UpdateBar(bar kline.Kline) {
	for _, ot := range t.opening {
		if bar.High.GreaterThan(ot.MaxPrice) {
			ot.MaxPrice = bar.High
		}
		if bar.Low.LessThan(ot.MinPrice) {
			ot.MinPrice = bar.Low
		}

		cost := ot.costBasis(ot.Quantity)
		ot.UnrealizedReturn = ot.Quantity.Mul(bar.Close).Sub(cost).Round(statsPrecision)

		if runup := ot.Quantity.Mul(ot.MaxPrice).Sub(cost).Round(statsPrecision); runup.GreaterThan(ot.MaxRunup) {
			ot.MaxRunup = runup
		}
		if drawdown := ot.Quantity.Mul(ot.MinPrice).Sub(cost).Round(statsPrecision); drawdown.LessThan(ot.MaxDrawdown) {
			ot.MaxDrawdown = drawdown
		}
	}
}

// OnExitFill consumes opening trades FIFO until the exit order's quantity is
// exhausted, producing one closed trade per consumed trade (or consumed
// part). A partially consumed trade stays open with its quantity reduced; the
// exit fee and cost basis are scaled by the consumed fraction.
func (t *Tracker) OnExitFill(o order.Order) error {
	remaining := o.Quantity
	for remaining.IsPositive() && len(t.opening) > 0 {
		ot := t.opening[0]
		consumed := decimal.Min(ot.Quantity, remaining)

		proceeds := consumed.Mul(o.FilledPrice)
		feeShare := o.Fee.Amount.Mul(consumed).Div(o.Quantity)
		net := proceeds.Sub(feeShare).Sub(ot.costBasis(consumed)).Round(statsPrecision)

		t.closed = append(t.closed, ClosedTrade{
			ID:         ot.ID,
			EntryOrder: ot.EntryOrder,
			ExitOrder:  o,
			Quantity:   consumed,
			NetReturn:  net,
		})

		ot.Quantity = ot.Quantity.Sub(consumed)
		if !ot.Quantity.IsPositive() {
			t.opening = t.opening[1:]
		}
		remaining = remaining.Sub(consumed)
	}
	if remaining.IsPositive() {
		return fmt.Errorf("%w: exit order %s leaves %s unmatched", ErrInsufficientOpeningTrades, o.ID, remaining)
	}
	return nil
}

// Opening returns the live opening trades, oldest first.
func (t *Tracker) Opening() []*OpeningTrade { return t.opening }

// Closed returns the closed trades in close order.
func (t *Tracker) Closed() []ClosedTrade { return t.closed }
