// Package market provides read-only access to Binance historical kline data,
// both through the public REST API and the data.binance.vision archive files.
package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kline is one raw candlestick as served by Binance: 12 fields per bar, with
// prices and volumes as decimal strings.
type Kline struct {
	OpenTime    int64 // ms
	CloseTime   int64 // ms
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume decimal.Decimal
	NumTrades   int64
}

// parseRow converts one kline row (API array entry or archive CSV record,
// both use the same field order) into a Kline.
func parseRow(fields []string) (Kline, error) {
	if len(fields) < 9 {
		return Kline{}, fmt.Errorf("kline row has %d fields, want at least 9", len(fields))
	}
	var (
		k   Kline
		err error
	)
	if _, err = fmt.Sscan(fields[0], &k.OpenTime); err != nil {
		return Kline{}, fmt.Errorf("parse open time %q: %w", fields[0], err)
	}
	if _, err = fmt.Sscan(fields[6], &k.CloseTime); err != nil {
		return Kline{}, fmt.Errorf("parse close time %q: %w", fields[6], err)
	}
	if _, err = fmt.Sscan(fields[8], &k.NumTrades); err != nil {
		return Kline{}, fmt.Errorf("parse trade count %q: %w", fields[8], err)
	}
	for _, f := range []struct {
		idx int
		dst *decimal.Decimal
	}{
		{1, &k.Open}, {2, &k.High}, {3, &k.Low}, {4, &k.Close},
		{5, &k.Volume}, {7, &k.QuoteVolume},
	} {
		if *f.dst, err = decimal.NewFromString(fields[f.idx]); err != nil {
			return Kline{}, fmt.Errorf("parse kline field %d %q: %w", f.idx, fields[f.idx], err)
		}
	}
	return k, nil
}
