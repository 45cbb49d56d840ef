package order

import (
	"errors"
	"testing"
	"time"

	"backtest-core/internal/symbols"
)

func testSymbol(t *testing.T) *symbols.Symbol {
	t.Helper()
	s, err := symbols.New("BINANCE", "BTCUSDT", "BTC", "USDT", 8, 8, []symbols.Filter{
		{Type: symbols.FilterLotSize, MinQty: d("0.1"), MaxQty: d("100"), StepSize: d("0.1")},
		{Type: symbols.FilterPrice, MinPrice: d("0.01"), MaxPrice: d("100000"), TickSize: d("0.01")},
		{Type: symbols.FilterNotional, MinNotional: d("10")},
	})
	if err != nil {
		t.Fatalf("Failed to build symbol: %v", err)
	}
	return s
}

func TestNormalize(t *testing.T) {
	sym := testSymbol(t)
	now := time.Date(2022, 4, 3, 0, 0, 0, 0, time.UTC)

	t.Run("rounds quantity and price", func(t *testing.T) {
		o, err := Normalize(Request{ID: "1", Kind: KindLimit, Side: SideEntry, Quantity: d("2.25"), LimitPrice: d("40.005")}, sym, now)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if !o.Quantity.Equal(d("2.2")) {
			t.Errorf("quantity = %s, want 2.2", o.Quantity)
		}
		if !o.LimitPrice.Equal(d("40")) {
			t.Errorf("limit price = %s, want 40", o.LimitPrice)
		}
		if o.Status != StatusPending {
			t.Errorf("status = %s, want PENDING", o.Status)
		}
		if !o.CreatedAt.Equal(now) {
			t.Errorf("createdAt = %s, want %s", o.CreatedAt, now)
		}
	})

	t.Run("cancel keeps its target", func(t *testing.T) {
		o, err := Normalize(Request{ID: "2", Kind: KindCancel, TargetID: "abc"}, sym, now)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if o.Kind != KindCancel || o.TargetID != "abc" {
			t.Errorf("got %+v, want cancel targeting abc", o)
		}
	})

	invalid := []struct {
		name string
		req  Request
	}{
		{"unknown kind", Request{Kind: Kind("ICEBERG"), Side: SideEntry, Quantity: d("1")}},
		{"unknown side", Request{Kind: KindMarket, Side: Side("SHORT"), Quantity: d("1")}},
		{"zero quantity", Request{Kind: KindMarket, Side: SideEntry}},
		{"negative quantity", Request{Kind: KindMarket, Side: SideEntry, Quantity: d("-1")}},
		{"limit without price", Request{Kind: KindLimit, Side: SideEntry, Quantity: d("1")}},
		{"stop without price", Request{Kind: KindStopMarket, Side: SideEntry, Quantity: d("1")}},
		{"cancel without target", Request{Kind: KindCancel}},
		{"below min notional", Request{Kind: KindLimit, Side: SideEntry, Quantity: d("0.1"), LimitPrice: d("5")}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.req, sym, now)
			if !errors.Is(err, ErrInvalidOrderParameters) {
				t.Errorf("expected ErrInvalidOrderParameters, got %v", err)
			}
		})
	}
}

func TestFeeFor(t *testing.T) {
	sym := testSymbol(t)
	now := time.Date(2022, 4, 3, 0, 0, 0, 0, time.UTC)

	t.Run("entry fee in the asset currency", func(t *testing.T) {
		o := NewStopLimit("1", SideEntry, d("2"), d("5"), d("4"), now)
		fee := FeeFor(o, d("4"), d("1"), sym)
		if !fee.Amount.Equal(d("0.02")) {
			t.Errorf("fee = %s, want 0.02", fee.Amount)
		}
		if fee.Currency != "BTC" {
			t.Errorf("currency = %s, want BTC", fee.Currency)
		}
	})

	t.Run("exit fee in the capital currency", func(t *testing.T) {
		o := NewLimit("2", SideExit, d("2"), d("4"), now)
		fee := FeeFor(o, d("4"), d("1"), sym)
		if !fee.Amount.Equal(d("0.08")) {
			t.Errorf("fee = %s, want 0.08", fee.Amount)
		}
		if fee.Currency != "USDT" {
			t.Errorf("currency = %s, want USDT", fee.Currency)
		}
	})

	t.Run("fee rounds up at 8 decimals", func(t *testing.T) {
		o := NewMarket("3", SideEntry, d("0.000000001"), now)
		fee := FeeFor(o, d("1"), d("1"), sym)
		if !fee.Amount.Equal(d("0.00000001")) {
			t.Errorf("fee = %s, want 0.00000001", fee.Amount)
		}
	})
}
