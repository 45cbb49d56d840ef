package order

import (
	"github.com/shopspring/decimal"
)

// Mailbox is the write-only outlet handed to the strategy script. Its
// enter/exit/cancel methods are the only way a script can affect the
// simulation; everything it records is collected by the orchestrator after
// the script returns.
type Mailbox struct {
	newID func() string
	// open is a read-only view of the OPENING and TRIGGERED orders at the
	// time the script runs, used to expand cancel-all requests.
	open  []Order
	queue []Request
}

// NewMailbox creates a mailbox. newID generates order ids; open is the
// current list of resting (OPENING/TRIGGERED) orders.
func NewMailbox(newID func() string, open []Order) *Mailbox {
	return &Mailbox{newID: newID, open: open}
}

func (m *Mailbox) push(req Request) string {
	req.ID = m.newID()
	m.queue = append(m.queue, req)
	return req.ID
}

// EnterMarket requests buying qty of the asset at the current price.
func (m *Mailbox) EnterMarket(qty decimal.Decimal) string {
	return m.push(Request{Kind: KindMarket, Side: SideEntry, Quantity: qty})
}

// EnterLimit requests buying qty at limitPrice or better.
func (m *Mailbox) EnterLimit(qty, limitPrice decimal.Decimal) string {
	return m.push(Request{Kind: KindLimit, Side: SideEntry, Quantity: qty, LimitPrice: limitPrice})
}

// EnterStopMarket requests a market buy armed at stopPrice.
func (m *Mailbox) EnterStopMarket(qty, stopPrice decimal.Decimal) string {
	return m.push(Request{Kind: KindStopMarket, Side: SideEntry, Quantity: qty, StopPrice: stopPrice})
}

// EnterStopLimit requests a limit buy at limitPrice armed at stopPrice.
func (m *Mailbox) EnterStopLimit(qty, stopPrice, limitPrice decimal.Decimal) string {
	return m.push(Request{Kind: KindStopLimit, Side: SideEntry, Quantity: qty, StopPrice: stopPrice, LimitPrice: limitPrice})
}

// ExitMarket requests selling qty of the asset at the current price.
func (m *Mailbox) ExitMarket(qty decimal.Decimal) string {
	return m.push(Request{Kind: KindMarket, Side: SideExit, Quantity: qty})
}

// ExitLimit requests selling qty at limitPrice or better.
func (m *Mailbox) ExitLimit(qty, limitPrice decimal.Decimal) string {
	return m.push(Request{Kind: KindLimit, Side: SideExit, Quantity: qty, LimitPrice: limitPrice})
}

// ExitStopMarket requests a market sell armed at stopPrice.
func (m *Mailbox) ExitStopMarket(qty, stopPrice decimal.Decimal) string {
	return m.push(Request{Kind: KindStopMarket, Side: SideExit, Quantity: qty, StopPrice: stopPrice})
}

// ExitStopLimit requests a limit sell at limitPrice armed at stopPrice.
func (m *Mailbox) ExitStopLimit(qty, stopPrice, limitPrice decimal.Decimal) string {
	return m.push(Request{Kind: KindStopLimit, Side: SideExit, Quantity: qty, StopPrice: stopPrice, LimitPrice: limitPrice})
}

// CancelOrder cancels the order with the given id. A request still queued in
// this mailbox is removed outright and never submitted; an id matching a
// resting order produces a CANCEL request, deduplicated by target.
func (m *Mailbox) CancelOrder(id string) {
	for i, req := range m.queue {
		if req.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
	for _, o := range m.open {
		if o.ID == id {
			m.appendCancel(id)
			return
		}
	}
	// Unknown id: nothing to cancel.
}

// CancelAllOrders applies CancelOrder semantics in bulk over a kind/side
// filter; zero values match everything.
func (m *Mailbox) CancelAllOrders(kind Kind, side Side) {
	kept := m.queue[:0]
	for _, req := range m.queue {
		if req.Kind != KindCancel && matches(req.Kind, req.Side, kind, side) {
			continue
		}
		kept = append(kept, req)
	}
	m.queue = kept

	for _, o := range m.open {
		if matches(o.Kind, o.Side, kind, side) {
			m.appendCancel(o.ID)
		}
	}
}

func matches(k Kind, s Side, wantKind Kind, wantSide Side) bool {
	if wantKind != "" && k != wantKind {
		return false
	}
	if wantSide != "" && s != wantSide {
		return false
	}
	return true
}

func (m *Mailbox) appendCancel(targetID string) {
	for _, req := range m.queue {
		if req.Kind == KindCancel && req.TargetID == targetID {
			return
		}
	}
	m.push(Request{Kind: KindCancel, TargetID: targetID})
}

// Requests returns the recorded requests in issue order.
func (m *Mailbox) Requests() []Request {
	return m.queue
}
