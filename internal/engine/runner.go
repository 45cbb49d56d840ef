// Package engine drives the bar-by-bar backtest simulation: it owns the
// rolling kline window, the order book, the ledger and the trade tracker,
// and coordinates them in a fixed per-bar order around one sandbox call.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backtest-core/internal/events"
	"backtest-core/internal/indicators"
	"backtest-core/internal/kline"
	"backtest-core/internal/ledger"
	"backtest-core/internal/order"
	"backtest-core/internal/script"
	"backtest-core/internal/symbols"
	"backtest-core/internal/trade"
)

// Default indicator periods exposed on the snapshot's technicalAnalysis view.
const (
	smaPeriod = 20
	emaPeriod = 50
	rsiPeriod = 14
)

// Config assembles a Runner.
type Config struct {
	ExecutionID string
	Symbol      *symbols.Symbol
	Ledger      *ledger.Ledger
	Script      script.Script
	Sandbox     script.Sandbox
	Bus         *events.Bus
	// MaxNumKlines is the rolling window capacity; it matches the warm-up
	// size used when planning the kline range.
	MaxNumKlines int
	// NewID overrides order/trade id generation; defaults to uuid.
	NewID func() string
}

// Result is everything a finished run hands back to the storage layer.
type Result struct {
	ExecutionID   string
	Ledger        *ledger.Ledger
	Orders        *order.Book
	OpeningTrades []*trade.OpeningTrade
	ClosedTrades  []trade.ClosedTrade
	BarsProcessed int
}

// Runner replays klines through the strategy. It is strictly sequential: one
// bar at a time, the eight processing steps in fixed order, no partial-bar
// commits. All mutable state is owned by the Runner; the script only ever
// sees copies.
type Runner struct {
	executionID string
	sym         *symbols.Symbol
	led         *ledger.Ledger
	tracker     *trade.Tracker
	book        *order.Book
	window      *kline.Window
	sandbox     script.Sandbox
	scr         script.Script
	bus         *events.Bus
	newID       func() string
}

// New builds a Runner from the config.
func New(cfg Config) *Runner {
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Runner{
		executionID: cfg.ExecutionID,
		sym:         cfg.Symbol,
		led:         cfg.Ledger,
		tracker:     trade.NewTracker(newID),
		book:        order.NewBook(),
		window:      kline.NewWindow(cfg.MaxNumKlines),
		sandbox:     cfg.Sandbox,
		scr:         cfg.Script,
		bus:         cfg.Bus,
		newID:       newID,
	}
}

// Run processes the bars in order and returns the final state. The context
// is checked between bars; a mid-bar failure terminates the run with the
// failing bar's timestamp attached.
func (r *Runner) Run(ctx context.Context, bars []kline.Kline) (*Result, error) {
	processed := 0
	for _, bar := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := r.processBar(ctx, bar); err != nil {
			return nil, fmt.Errorf("bar %s: %w", bar.OpenTime.UTC(), err)
		}
		processed++
		r.publish(events.TopicBarProcessed, bar)
	}
	return &Result{
		ExecutionID:   r.executionID,
		Ledger:        r.led,
		Orders:        r.book,
		OpeningTrades: r.tracker.Opening(),
		ClosedTrades:  r.tracker.Closed(),
		BarsProcessed: processed,
	}, nil
}

func (r *Runner) processBar(ctx context.Context, bar kline.Kline) error {
	// 1-2. Advance the window, refresh opening-trade stats.
	r.window.Push(bar)
	r.tracker.UpdateBar(bar)

	// 3-4. Evaluate resting orders against the bar; stop-limits triggered in
	// step 3 are re-evaluated as limit orders within the same bar.
	if err := r.processOpening(bar); err != nil {
		return err
	}
	if err := r.processTriggered(bar); err != nil {
		return err
	}

	// 5. Post-fill stats.
	r.tracker.UpdateBar(bar)
	r.led.RecomputeStats(r.tracker.Opening(), r.tracker.Closed())

	// 6. Run the strategy script against a read-only snapshot.
	mbox := order.NewMailbox(r.newID, r.book.Resting())
	if err := r.sandbox.Execute(ctx, r.scr, r.snapshot(bar), mbox); err != nil {
		return err
	}

	// 7. Admit the script's requests.
	if err := r.admit(mbox.Requests(), bar); err != nil {
		return err
	}

	// 8. State stays in the Runner for the next bar; refresh stats so the
	// snapshot and final result reflect this bar's admissions.
	r.led.RecomputeStats(r.tracker.Opening(), r.tracker.Closed())
	return nil
}

// processOpening runs step 3: every OPENING order is filled, triggered or
// left resting depending on the bar.
func (r *Runner) processOpening(bar kline.Kline) error {
	var still []order.Order
	for _, o := range r.book.Opening {
		out := order.EvaluateOpening(o, bar, bar.Close)
		switch out.Kind {
		case order.OutcomeNone:
			still = append(still, o)
		case order.OutcomeTrigger:
			r.book.Triggered = append(r.book.Triggered, o.Triggered())
		case order.OutcomeFill:
			if err := r.fillResting(o, out, bar); err != nil {
				return err
			}
		}
	}
	r.book.Opening = still
	return nil
}

// processTriggered runs step 4: TRIGGERED stop-limits behave as limit orders.
func (r *Runner) processTriggered(bar kline.Kline) error {
	var still []order.Order
	for _, o := range r.book.Triggered {
		out := order.EvaluateTriggered(o, bar, bar.Close)
		switch out.Kind {
		case order.OutcomeFill:
			if err := r.fillResting(o, out, bar); err != nil {
				return err
			}
		default:
			still = append(still, o)
		}
	}
	r.book.Triggered = still
	return nil
}

// fillResting settles the fill of a resting order: fee, ledger release and
// trade bookkeeping. Ledger errors here are reconciliation failures and
// terminate the run.
func (r *Runner) fillResting(o order.Order, out order.Outcome, bar kline.Kline) error {
	rate := r.led.MakerFeeRate
	if out.Taker {
		rate = r.led.TakerFeeRate
	}
	fee := order.FeeFor(o, out.FillPrice, rate, r.sym)
	filled := o.Filled(out.FillPrice, fee, bar.CloseTime)
	if err := r.led.OnOpeningFilled(filled); err != nil {
		return err
	}
	r.book.Filled = append(r.book.Filled, filled)
	return r.applyTradeFill(filled)
}

// applyTradeFill updates the trade tracker for a filled order.
func (r *Runner) applyTradeFill(filled order.Order) error {
	if filled.Side == order.SideEntry {
		r.tracker.OnEntryFill(filled, r.led.AssetCurrency)
	} else {
		before := len(r.tracker.Closed())
		if err := r.tracker.OnExitFill(filled); err != nil {
			return err
		}
		for _, ct := range r.tracker.Closed()[before:] {
			r.publish(events.TopicTradeClosed, ct)
		}
	}
	r.publish(events.TopicOrderFilled, filled)
	return nil
}

// admit runs step 7: each request is normalized, then either executed
// immediately (market and marketable limit orders, at the bar close),
// reserved on the book, or applied as a cancel. Insufficient funds reject the
// individual order; anything else is fatal.
func (r *Runner) admit(requests []order.Request, bar kline.Kline) error {
	for _, req := range requests {
		o, err := order.Normalize(req, r.sym, bar.CloseTime)
		if err != nil {
			if errors.Is(err, order.ErrInvalidOrderParameters) {
				r.reject(order.Order{ID: req.ID, Kind: req.Kind, Side: req.Side, Quantity: req.Quantity, CreatedAt: bar.CloseTime}, err)
				continue
			}
			return err
		}

		switch {
		case o.Kind == order.KindCancel:
			if err := r.admitCancel(o, bar); err != nil {
				return err
			}
		case o.Kind == order.KindMarket,
			o.Kind == order.KindLimit && order.Marketable(o.Side, o.LimitPrice, bar.Close):
			if err := r.admitImmediate(o, bar); err != nil {
				return err
			}
		default:
			if err := r.admitResting(o, bar); err != nil {
				return err
			}
		}
	}
	return nil
}

// admitCancel resolves a CANCEL order against the resting lists. An unknown
// target rejects the cancel; a release failure is a fatal desync.
func (r *Runner) admitCancel(o order.Order, bar kline.Kline) error {
	target, _, found := r.book.FindResting(o.TargetID)
	if !found {
		r.reject(o, fmt.Errorf("no resting order %s", o.TargetID))
		return nil
	}
	if err := r.led.OnCanceled(target); err != nil {
		return err
	}
	r.book.RemoveResting(target.ID)
	canceled := target.Canceled(bar.CloseTime)
	r.book.Canceled = append(r.book.Canceled, canceled)
	r.book.Submitted = append(r.book.Submitted, o.Submitted(bar.CloseTime))
	r.publish(events.TopicOrderCanceled, canceled)
	return nil
}

// admitImmediate fills a market or immediately marketable limit order at the
// bar close with the taker fee.
func (r *Runner) admitImmediate(o order.Order, bar kline.Kline) error {
	fee := order.FeeFor(o, bar.Close, r.led.TakerFeeRate, r.sym)
	filled := o.Filled(bar.Close, fee, bar.CloseTime)
	if err := r.led.OnFilled(filled); err != nil {
		if isInsufficientFunds(err) {
			r.reject(o, err)
			return nil
		}
		return err
	}
	r.book.Filled = append(r.book.Filled, filled)
	return r.applyTradeFill(filled)
}

// admitResting reserves funds for a limit or stop order and places it on the
// opening list.
func (r *Runner) admitResting(o order.Order, bar kline.Kline) error {
	reserved, err := r.led.OnOpened(o)
	if err != nil {
		if isInsufficientFunds(err) {
			r.reject(o, err)
			return nil
		}
		return err
	}
	r.book.Opening = append(r.book.Opening, o.Opened(reserved, bar.CloseTime))
	return nil
}

func (r *Runner) reject(o order.Order, reason error) {
	rejected := o.Rejected(reason.Error())
	r.book.Rejected = append(r.book.Rejected, rejected)
	r.publish(events.TopicOrderRejected, rejected)
}

func isInsufficientFunds(err error) bool {
	return errors.Is(err, ledger.ErrInsufficientCapital) ||
		errors.Is(err, ledger.ErrInsufficientAssetQuantity)
}

// snapshot builds the read-only state view for the script: copies of the
// window, ledger, trades and order lists plus indicator series over the
// window's closes.
func (r *Runner) snapshot(bar kline.Kline) *script.Snapshot {
	opening := make([]trade.OpeningTrade, len(r.tracker.Opening()))
	for i, ot := range r.tracker.Opening() {
		opening[i] = *ot
	}
	closes := r.window.Closes()
	return &script.Snapshot{
		Klines:        r.window.Bars(),
		Strategy:      *r.led,
		OpeningTrades: opening,
		ClosedTrades:  append([]trade.ClosedTrade(nil), r.tracker.Closed()...),
		Orders: script.OrdersView{
			Opening:   append([]order.Order(nil), r.book.Opening...),
			Triggered: append([]order.Order(nil), r.book.Triggered...),
			Filled:    append([]order.Order(nil), r.book.Filled...),
			Canceled:  append([]order.Order(nil), r.book.Canceled...),
			Rejected:  append([]order.Order(nil), r.book.Rejected...),
			Submitted: append([]order.Order(nil), r.book.Submitted...),
		},
		TechnicalAnalysis: map[string][]decimal.Decimal{
			"sma": indicators.SMA(closes, smaPeriod),
			"ema": indicators.EMA(closes, emaPeriod),
			"rsi": indicators.RSI(closes, rsiPeriod),
		},
		System: script.SystemView{
			ExecutionID: r.executionID,
			BarTime:     bar.OpenTime,
			Timeframe:   bar.Timeframe,
		},
	}
}

func (r *Runner) publish(t events.Topic, payload any) {
	if r.bus != nil {
		r.bus.Publish(t, payload)
	}
}
