package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseRow(t *testing.T) {
	row := []string{
		"1648944000000", "45000.1", "46000.2", "44000.3", "45500.4",
		"123.45", "1648947599999", "5612345.67", "9876",
		"60.1", "2700000.5", "0",
	}
	k, err := parseRow(row)
	if err != nil {
		t.Fatalf("parseRow failed: %v", err)
	}
	if k.OpenTime != 1648944000000 || k.CloseTime != 1648947599999 {
		t.Errorf("times = %d/%d, want 1648944000000/1648947599999", k.OpenTime, k.CloseTime)
	}
	if !k.Open.Equal(decimal.RequireFromString("45000.1")) {
		t.Errorf("open = %s, want 45000.1", k.Open)
	}
	if !k.Close.Equal(decimal.RequireFromString("45500.4")) {
		t.Errorf("close = %s, want 45500.4", k.Close)
	}
	if !k.QuoteVolume.Equal(decimal.RequireFromString("5612345.67")) {
		t.Errorf("quote volume = %s, want 5612345.67", k.QuoteVolume)
	}
	if k.NumTrades != 9876 {
		t.Errorf("trade count = %d, want 9876", k.NumTrades)
	}
}

func TestParseRowErrors(t *testing.T) {
	cases := []struct {
		name string
		row  []string
	}{
		{"too few fields", []string{"1", "2", "3"}},
		{"bad open time", []string{"x", "1", "1", "1", "1", "1", "2", "1", "1"}},
		{"bad price", []string{"1", "nope", "1", "1", "1", "1", "2", "1", "1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseRow(tc.row); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestGetKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %s, want /api/v3/klines", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" {
			t.Errorf("query = %s, want symbol=BTCUSDT interval=1h", q.Encode())
		}
		if q.Get("limit") != "2" || q.Get("startTime") != "1000" || q.Get("endTime") != "2000" {
			t.Errorf("query = %s, want limit=2 startTime=1000 endTime=2000", q.Encode())
		}
		// Binance quotes price fields but not timestamps or trade counts.
		w.Write([]byte(`[
			[1000, "1.0", "2.0", "0.5", "1.5", "10", 1999, "15", 7, "5", "7.5", "0"],
			[2000, "1.5", "2.5", "1.0", "2.0", "20", 2999, "40", 9, "10", "20", "0"]
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	klines, err := c.GetKlines(context.Background(), "BTCUSDT", "1h", 2, 1000, 2000)
	if err != nil {
		t.Fatalf("GetKlines failed: %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("got %d klines, want 2", len(klines))
	}
	if klines[0].OpenTime != 1000 || klines[0].CloseTime != 1999 {
		t.Errorf("first kline times = %d/%d, want 1000/1999", klines[0].OpenTime, klines[0].CloseTime)
	}
	if !klines[1].Close.Equal(decimal.RequireFromString("2.0")) {
		t.Errorf("second close = %s, want 2.0", klines[1].Close)
	}
}

func TestGetKlinesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.GetKlines(context.Background(), "BTCUSDT", "1h", 1, 0, 0); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
