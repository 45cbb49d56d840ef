// Package data adapts the Binance REST and archive clients to the kline
// acquisition interface the planner consumes.
package data

import (
	"context"
	"fmt"
	"os"
	"time"

	"backtest-core/internal/kline"
	market "backtest-core/pkg/market/binance"
)

// Source fetches klines from Binance through whichever retrieval method the
// planner selected.
type Source struct {
	rest     *market.Client
	archive  *market.ArchiveClient
	exchange string
}

// NewSource builds a Source over the given clients.
func NewSource(rest *market.Client, archive *market.ArchiveClient) *Source {
	return &Source{rest: rest, archive: archive, exchange: "BINANCE"}
}

// FetchByAPI pages through the klines endpoint until the range is covered.
func (s *Source) FetchByAPI(ctx context.Context, symbol string, tf kline.Timeframe, r kline.Range) ([]kline.Kline, error) {
	var out []kline.Kline
	start := r.Start.UnixMilli()
	end := r.End.UnixMilli()
	for start < end {
		batch, err := s.rest.GetKlines(ctx, symbol, string(tf), market.MaxKlinesPerRequest, start, end-1)
		if err != nil {
			return nil, fmt.Errorf("fetch klines by api: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, raw := range batch {
			out = append(out, s.convert(raw, symbol, tf))
		}
		start = batch[len(batch)-1].CloseTime + 1
		if len(batch) < market.MaxKlinesPerRequest {
			break
		}
	}
	return out, nil
}

// FetchFromDailyFiles downloads one archive per UTC day in the range,
// staging the zips under dir.
func (s *Source) FetchFromDailyFiles(ctx context.Context, dir, symbol string, tf kline.Timeframe, r kline.Range) ([]kline.Kline, error) {
	var out []kline.Kline
	last := r.End.UTC().Truncate(24 * time.Hour)
	for day := r.Start.UTC().Truncate(24 * time.Hour); !day.After(last); day = day.Add(24 * time.Hour) {
		batch, err := s.archive.DailyKlines(ctx, dir, symbol, string(tf), day)
		if err != nil {
			return nil, fmt.Errorf("fetch daily archive %s: %w", day.Format("2006-01-02"), err)
		}
		out = s.appendInRange(out, batch, symbol, tf, r)
	}
	return out, nil
}

// FetchFromMonthlyFiles downloads one archive per calendar month in the
// range, staging the zips under dir.
func (s *Source) FetchFromMonthlyFiles(ctx context.Context, dir, symbol string, tf kline.Timeframe, r kline.Range) ([]kline.Kline, error) {
	var out []kline.Kline
	start := r.Start.UTC()
	end := r.End.UTC()
	for y, m := start.Year(), start.Month(); ; {
		batch, err := s.archive.MonthlyKlines(ctx, dir, symbol, string(tf), y, m)
		if err != nil {
			return nil, fmt.Errorf("fetch monthly archive %04d-%02d: %w", y, m, err)
		}
		out = s.appendInRange(out, batch, symbol, tf, r)

		if y == end.Year() && m == end.Month() {
			break
		}
		if m == time.December {
			y, m = y+1, time.January
		} else {
			m++
		}
	}
	return out, nil
}

// appendInRange converts the raw klines and keeps those opening inside r.
// Archive files cover whole periods, so their edges are trimmed here.
func (s *Source) appendInRange(out []kline.Kline, batch []market.Kline, symbol string, tf kline.Timeframe, r kline.Range) []kline.Kline {
	startMs := r.Start.UnixMilli()
	endMs := r.End.UnixMilli()
	for _, raw := range batch {
		if raw.OpenTime < startMs || raw.OpenTime >= endMs {
			continue
		}
		out = append(out, s.convert(raw, symbol, tf))
	}
	return out
}

func (s *Source) convert(raw market.Kline, symbol string, tf kline.Timeframe) kline.Kline {
	return kline.Kline{
		Exchange:    s.exchange,
		Symbol:      symbol,
		Timeframe:   tf,
		OpenTime:    time.UnixMilli(raw.OpenTime).UTC(),
		CloseTime:   time.UnixMilli(raw.CloseTime).UTC(),
		Open:        raw.Open,
		High:        raw.High,
		Low:         raw.Low,
		Close:       raw.Close,
		Volume:      raw.Volume,
		QuoteVolume: raw.QuoteVolume,
		NumTrades:   raw.NumTrades,
	}
}

// OSFS is the real-filesystem implementation of the planner's staging
// directory operations.
type OSFS struct{}

// CreateDir makes the staging directory and any missing parents.
func (OSFS) CreateDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// RemoveDir deletes the staging directory and its contents.
func (OSFS) RemoveDir(path string) error {
	return os.RemoveAll(path)
}
