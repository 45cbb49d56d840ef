package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtest-core/internal/symbols"
)

// ErrInvalidOrderParameters rejects malformed strategy requests before they
// reach the book.
var ErrInvalidOrderParameters = errors.New("invalid order parameters")

// Request is a raw order intent emitted by the strategy script, before
// normalization against the symbol's trading rules. The ID is assigned by the
// mailbox when the request is recorded so the script can cancel it later.
type Request struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Side       Side            `json:"side,omitempty"`
	Quantity   decimal.Decimal `json:"quantity,omitempty"`
	LimitPrice decimal.Decimal `json:"limitPrice,omitempty"`
	StopPrice  decimal.Decimal `json:"stopPrice,omitempty"`
	TargetID   string          `json:"targetId,omitempty"`
}

// Normalize turns a request into a pending Order: quantities are clamped to
// the lot filters and floored to the step size, prices to the tick size, both
// rounded to the asset's decimal precision. Returns
// ErrInvalidOrderParameters when the request cannot produce a valid order.
func Normalize(req Request, sym *symbols.Symbol, at time.Time) (Order, error) {
	switch req.Kind {
	case KindCancel:
		if req.TargetID == "" {
			return Order{}, fmt.Errorf("%w: cancel without target id", ErrInvalidOrderParameters)
		}
		return NewCancel(req.ID, req.TargetID, at), nil
	case KindMarket, KindLimit, KindStopMarket, KindStopLimit:
	default:
		return Order{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidOrderParameters, req.Kind)
	}

	if req.Side != SideEntry && req.Side != SideExit {
		return Order{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrderParameters, req.Side)
	}
	if !req.Quantity.IsPositive() {
		return Order{}, fmt.Errorf("%w: quantity %s must be positive", ErrInvalidOrderParameters, req.Quantity)
	}

	qty := sym.RoundQuantity(req.Quantity, req.Kind == KindMarket)
	if !qty.IsPositive() {
		return Order{}, fmt.Errorf("%w: quantity %s rounds to zero", ErrInvalidOrderParameters, req.Quantity)
	}

	var limit, stop decimal.Decimal
	if req.Kind == KindLimit || req.Kind == KindStopLimit {
		if !req.LimitPrice.IsPositive() {
			return Order{}, fmt.Errorf("%w: limit price %s must be positive", ErrInvalidOrderParameters, req.LimitPrice)
		}
		limit = sym.RoundPrice(req.LimitPrice)
		if err := sym.CheckNotional(qty, limit); err != nil {
			return Order{}, fmt.Errorf("%w: %v", ErrInvalidOrderParameters, err)
		}
	}
	if req.Kind == KindStopMarket || req.Kind == KindStopLimit {
		if !req.StopPrice.IsPositive() {
			return Order{}, fmt.Errorf("%w: stop price %s must be positive", ErrInvalidOrderParameters, req.StopPrice)
		}
		stop = sym.RoundPrice(req.StopPrice)
	}

	switch req.Kind {
	case KindMarket:
		return NewMarket(req.ID, req.Side, qty, at), nil
	case KindLimit:
		return NewLimit(req.ID, req.Side, qty, limit, at), nil
	case KindStopMarket:
		return NewStopMarket(req.ID, req.Side, qty, stop, at), nil
	default:
		return NewStopLimit(req.ID, req.Side, qty, stop, limit, at), nil
	}
}

// feePrecision caps fee amounts at 8 decimals, rounded up.
const feePrecision = 8

// FeeFor computes the fee charged for filling o at fillPrice. Entry fees are
// taken from the asset quantity (asset currency); exit fees from the notional
// (capital currency). rate is a percentage, e.g. 1 for 1%.
func FeeFor(o Order, fillPrice, rate decimal.Decimal, sym *symbols.Symbol) Fee {
	hundred := decimal.NewFromInt(100)
	if o.Side == SideEntry {
		return Fee{
			Amount:   o.Quantity.Mul(rate).Div(hundred).RoundUp(feePrecision),
			Currency: sym.BaseAsset,
		}
	}
	return Fee{
		Amount:   o.Quantity.Mul(fillPrice).Mul(rate).Div(hundred).RoundUp(feePrecision),
		Currency: sym.QuoteAsset,
	}
}
