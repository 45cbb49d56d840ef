// Package order models the simulated order lifecycle: the tagged
// kind/side/status union, request normalization against exchange rules, and
// the pure bar-evaluation functions that decide fills and triggers.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the order type axis of the union.
type Kind string

const (
	KindMarket     Kind = "MARKET"
	KindLimit      Kind = "LIMIT"
	KindStopMarket Kind = "STOP_MARKET"
	KindStopLimit  Kind = "STOP_LIMIT"
	KindCancel     Kind = "CANCEL"
)

// Side distinguishes entries (buying the asset) from exits (selling it).
// CANCEL orders carry no side.
type Side string

const (
	SideEntry Side = "ENTRY"
	SideExit  Side = "EXIT"
)

// Status is the lifecycle axis of the union.
//
//	PENDING   -> OPENING | FILLED | REJECTED
//	OPENING   -> TRIGGERED | FILLED | CANCELED | REJECTED
//	TRIGGERED -> FILLED | CANCELED
//	PENDING   -> SUBMITTED | REJECTED   (CANCEL orders)
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOpening   Status = "OPENING"
	StatusTriggered Status = "TRIGGERED"
	StatusFilled    Status = "FILLED"
	StatusCanceled  Status = "CANCELED"
	StatusRejected  Status = "REJECTED"
	StatusSubmitted Status = "SUBMITTED"
)

// Fee is a non-negative charge denominated in either the capital or the
// asset currency.
type Fee struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Order is one simulated order. Values are immutable: lifecycle transitions
// return a new Order with the status fields extended. Only the fields valid
// for the order's (kind, status) combination are set.
type Order struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Side      Side   `json:"side,omitempty"`
	Status    Status `json:"status"`
	CreatedAt time.Time `json:"createdAt"`

	Quantity   decimal.Decimal `json:"quantity,omitempty"`
	LimitPrice decimal.Decimal `json:"limitPrice,omitempty"`
	StopPrice  decimal.Decimal `json:"stopPrice,omitempty"`

	// TargetID is the order a CANCEL order refers to.
	TargetID string `json:"targetId,omitempty"`

	// Reserved is the capital (entry) or asset quantity (exit) locked by the
	// ledger while the order rests; set on the OPENING transition.
	Reserved decimal.Decimal `json:"reserved,omitempty"`

	SubmittedAt time.Time       `json:"submittedAt,omitzero"`
	FilledAt    time.Time       `json:"filledAt,omitzero"`
	CanceledAt  time.Time       `json:"canceledAt,omitzero"`
	FilledPrice decimal.Decimal `json:"filledPrice,omitempty"`
	Fee         Fee             `json:"fee,omitzero"`
	Reason      string          `json:"reason,omitempty"`
}

// NewMarket builds a pending market order.
func NewMarket(id string, side Side, qty decimal.Decimal, at time.Time) Order {
	return Order{ID: id, Kind: KindMarket, Side: side, Status: StatusPending, Quantity: qty, CreatedAt: at}
}

// NewLimit builds a pending limit order.
func NewLimit(id string, side Side, qty, limitPrice decimal.Decimal, at time.Time) Order {
	return Order{ID: id, Kind: KindLimit, Side: side, Status: StatusPending, Quantity: qty, LimitPrice: limitPrice, CreatedAt: at}
}

// NewStopMarket builds a pending stop-market order.
func NewStopMarket(id string, side Side, qty, stopPrice decimal.Decimal, at time.Time) Order {
	return Order{ID: id, Kind: KindStopMarket, Side: side, Status: StatusPending, Quantity: qty, StopPrice: stopPrice, CreatedAt: at}
}

// NewStopLimit builds a pending stop-limit order.
func NewStopLimit(id string, side Side, qty, stopPrice, limitPrice decimal.Decimal, at time.Time) Order {
	return Order{ID: id, Kind: KindStopLimit, Side: side, Status: StatusPending, Quantity: qty, StopPrice: stopPrice, LimitPrice: limitPrice, CreatedAt: at}
}

// NewCancel builds a pending cancel order targeting another order.
func NewCancel(id, targetID string, at time.Time) Order {
	return Order{ID: id, Kind: KindCancel, Status: StatusPending, TargetID: targetID, CreatedAt: at}
}

// Opened transitions a resting order to OPENING, recording the amount the
// ledger reserved for it.
func (o Order) Opened(reserved decimal.Decimal, at time.Time) Order {
	o.Status = StatusOpening
	o.Reserved = reserved
	o.SubmittedAt = at
	return o
}

// Triggered transitions a stop order whose stop price was crossed.
func (o Order) Triggered() Order {
	o.Status = StatusTriggered
	return o
}

// Filled transitions the order to FILLED at the given price with the fee
// charged for the execution.
func (o Order) Filled(price decimal.Decimal, fee Fee, at time.Time) Order {
	o.Status = StatusFilled
	o.FilledPrice = price
	o.Fee = fee
	o.FilledAt = at
	return o
}

// Canceled transitions the order to CANCELED.
func (o Order) Canceled(at time.Time) Order {
	o.Status = StatusCanceled
	o.CanceledAt = at
	return o
}

// Rejected transitions the order to REJECTED with a diagnostic reason.
func (o Order) Rejected(reason string) Order {
	o.Status = StatusRejected
	o.Reason = reason
	return o
}

// Submitted transitions a CANCEL order to its terminal SUBMITTED state.
func (o Order) Submitted(at time.Time) Order {
	o.Status = StatusSubmitted
	o.SubmittedAt = at
	return o
}

// Resting reports whether the order kind rests on the book after admission
// rather than executing immediately.
func (o Order) Resting() bool {
	return o.Kind == KindLimit || o.Kind == KindStopMarket || o.Kind == KindStopLimit
}
