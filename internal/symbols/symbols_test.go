package symbols

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testSymbol(t *testing.T) *Symbol {
	t.Helper()
	s, err := New("BINANCE", "BTCUSDT", "BTC", "USDT", 8, 8, []Filter{
		{Type: FilterLotSize, MinQty: d("0.1"), MaxQty: d("100"), StepSize: d("0.1")},
		{Type: FilterPrice, MinPrice: d("0.01"), MaxPrice: d("100000"), TickSize: d("0.01")},
		{Type: FilterNotional, MinNotional: d("10")},
	})
	if err != nil {
		t.Fatalf("Failed to build symbol: %v", err)
	}
	return s
}

func TestNewRejectsBadFilters(t *testing.T) {
	t.Run("duplicate filter type", func(t *testing.T) {
		_, err := New("BINANCE", "BTCUSDT", "BTC", "USDT", 8, 8, []Filter{
			{Type: FilterLotSize, MinQty: d("0.1"), MaxQty: d("100"), StepSize: d("0.1")},
			{Type: FilterLotSize, MinQty: d("0.2"), MaxQty: d("50"), StepSize: d("0.1")},
		})
		if err == nil {
			t.Fatal("expected error for duplicate filter")
		}
	})

	t.Run("min above max", func(t *testing.T) {
		_, err := New("BINANCE", "BTCUSDT", "BTC", "USDT", 8, 8, []Filter{
			{Type: FilterLotSize, MinQty: d("10"), MaxQty: d("1"), StepSize: d("0.1")},
		})
		if err == nil {
			t.Fatal("expected error for minQty > maxQty")
		}
	})

	t.Run("unknown filter type", func(t *testing.T) {
		_, err := New("BINANCE", "BTCUSDT", "BTC", "USDT", 8, 8, []Filter{
			{Type: FilterType("PERCENT_PRICE")},
		})
		if err == nil {
			t.Fatal("expected error for unknown filter type")
		}
	})
}

func TestNewNormalizesFilterPrecision(t *testing.T) {
	s, err := New("BINANCE", "BTCUSDT", "BTC", "USDT", 8, 8, []Filter{
		{Type: FilterLotSize, MinQty: d("0.000000001"), MaxQty: d("100"), StepSize: d("0.1")},
	})
	if err != nil {
		t.Fatalf("Failed to build symbol: %v", err)
	}
	f, ok := s.Filter(FilterLotSize)
	if !ok {
		t.Fatal("expected LOT_SIZE filter")
	}
	// 9 decimals round up to 8.
	if !f.MinQty.Equal(d("0.00000001")) {
		t.Errorf("minQty = %s, want 0.00000001", f.MinQty)
	}
}

func TestRoundQuantity(t *testing.T) {
	s := testSymbol(t)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"floors to step", "0.25", "0.2"},
		{"clamps to min", "0.05", "0.1"},
		{"clamps to max", "150", "100"},
		{"already aligned", "1.5", "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.RoundQuantity(d(tc.in), false)
			if !got.Equal(d(tc.want)) {
				t.Errorf("RoundQuantity(%s) = %s, want %s", tc.in, got, tc.want)
			}
			// Rounding an already-rounded quantity must not change it.
			again := s.RoundQuantity(got, false)
			if !again.Equal(got) {
				t.Errorf("RoundQuantity not idempotent: %s -> %s", got, again)
			}
		})
	}
}

func TestRoundQuantityMarketFallsBackToLotSize(t *testing.T) {
	s := testSymbol(t)
	// No MARKET_LOT_SIZE filter is configured, so market orders use LOT_SIZE.
	got := s.RoundQuantity(d("0.25"), true)
	if !got.Equal(d("0.2")) {
		t.Errorf("RoundQuantity(0.25, market) = %s, want 0.2", got)
	}
}

func TestRoundPrice(t *testing.T) {
	s := testSymbol(t)
	cases := []struct {
		in, want string
	}{
		{"1.005", "1"},
		{"0.001", "0.01"},
		{"250000", "100000"},
		{"42.42", "42.42"},
	}
	for _, tc := range cases {
		got := s.RoundPrice(d(tc.in))
		if !got.Equal(d(tc.want)) {
			t.Errorf("RoundPrice(%s) = %s, want %s", tc.in, got, tc.want)
		}
		again := s.RoundPrice(got)
		if !again.Equal(got) {
			t.Errorf("RoundPrice not idempotent: %s -> %s", got, again)
		}
	}
}

func TestCheckNotional(t *testing.T) {
	s := testSymbol(t)
	if err := s.CheckNotional(d("2"), d("5")); err != nil {
		t.Errorf("notional 10 at minimum 10 should pass: %v", err)
	}
	if err := s.CheckNotional(d("1"), d("5")); err == nil {
		t.Error("notional 5 below minimum 10 should fail")
	}
}
