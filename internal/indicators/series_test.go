package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
)

func series(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		d, err := decimal.NewFromString(v)
		if err != nil {
			panic(err)
		}
		out[i] = d
	}
	return out
}

func assertSeries(t *testing.T, got []decimal.Decimal, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("series length = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].Equal(series(w)[0]) {
			t.Errorf("series[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestSMA(t *testing.T) {
	assertSeries(t, SMA(series("2", "4", "6", "8"), 2), "0", "3", "5", "7")
	assertSeries(t, SMA(series("2", "4"), 3), "0", "0")
	assertSeries(t, SMA(series("2", "4"), 0), "0", "0")
}

func TestEMA(t *testing.T) {
	// period 3: alpha = 0.5, seeded with the SMA of the first 3 values.
	assertSeries(t, EMA(series("2", "4", "6", "8"), 3), "0", "0", "4", "6")
	assertSeries(t, EMA(series("2", "4"), 3), "0", "0")
}

func TestRSI(t *testing.T) {
	// Pure gains peg the index at 100; one gain against one equal loss is 50.
	assertSeries(t, RSI(series("1", "2", "3", "2"), 2), "0", "0", "100", "50")
	assertSeries(t, RSI(series("1", "2"), 2), "0", "0")
}
