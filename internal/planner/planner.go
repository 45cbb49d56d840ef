// Package planner decides how to acquire the kline history a backtest needs:
// it validates the requested date range, extends it backward to cover the
// strategy's warm-up window, and picks the cheapest retrieval method between
// direct API calls and the daily/monthly archive files.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"backtest-core/internal/kline"
)

// Method is a kline retrieval strategy.
type Method string

const (
	MethodAPI          Method = "API"
	MethodDailyFiles   Method = "DAILY_FILES"
	MethodMonthlyFiles Method = "MONTHLY_FILES"
)

// klinesPerAPICall is the maximum number of bars one klines API call returns.
const klinesPerAPICall = 1000

// ErrInvalidDateRange rejects ranges where start >= end or either endpoint
// lies in the future.
var ErrInvalidDateRange = errors.New("invalid date range")

// DataSource fetches klines through one of the three retrieval methods.
// File-based methods stage their downloads under dir.
type DataSource interface {
	FetchByAPI(ctx context.Context, symbol string, tf kline.Timeframe, r kline.Range) ([]kline.Kline, error)
	FetchFromDailyFiles(ctx context.Context, dir, symbol string, tf kline.Timeframe, r kline.Range) ([]kline.Kline, error)
	FetchFromMonthlyFiles(ctx context.Context, dir, symbol string, tf kline.Timeframe, r kline.Range) ([]kline.Kline, error)
}

// FS is the narrow filesystem surface used for archive staging directories.
type FS interface {
	CreateDir(path string) error
	RemoveDir(path string) error
}

// Plan is the outcome of range planning: the concrete range to fetch and the
// chosen retrieval method, plus the cost estimates that drove the choice.
type Plan struct {
	Range        kline.Range
	Method       Method
	APICalls     int
	DailyFiles   int
	MonthlyFiles int
}

// Planner plans and executes kline acquisition.
type Planner struct {
	source     DataSource
	fs         FS
	outputRoot string
	now        func() time.Time
}

// New builds a Planner. outputRoot is the parent directory for per-execution
// archive staging directories; now is injected for deterministic validation.
func New(source DataSource, fs FS, outputRoot string, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{source: source, fs: fs, outputRoot: outputRoot, now: now}
}

// Plan validates the requested range, extends its start backward by
// maxKlinesNum bars of warm-up, and selects the retrieval method.
func (p *Planner) Plan(tf kline.Timeframe, requested kline.Range, maxKlinesNum int) (Plan, error) {
	now := p.now()
	if !requested.Start.Before(requested.End) {
		return Plan{}, fmt.Errorf("%w: start %s not before end %s", ErrInvalidDateRange, requested.Start, requested.End)
	}
	if requested.Start.After(now) {
		return Plan{}, fmt.Errorf("%w: start %s is in the future", ErrInvalidDateRange, requested.Start)
	}
	if requested.End.After(now) {
		return Plan{}, fmt.Errorf("%w: end %s is in the future", ErrInvalidDateRange, requested.End)
	}

	extended := kline.Range{
		Start: requested.Start.Add(-time.Duration(maxKlinesNum) * tf.Duration()),
		End:   requested.End,
	}

	plan := Plan{
		Range:        extended,
		APICalls:     approximateNumOfAPICalls(tf, extended),
		DailyFiles:   calculateNumOfDailyFiles(extended),
		MonthlyFiles: calculateNumOfMonthlyFiles(extended),
	}
	plan.Method = chooseMethod(tf, plan)
	return plan, nil
}

// chooseMethod applies the fixed selection order: coarse timeframes always go
// through the API, intermediate ones choose between API and monthly archives,
// and only 1s/1m ever use daily archives.
func chooseMethod(tf kline.Timeframe, p Plan) Method {
	if tf.Duration() >= 6*time.Hour {
		return MethodAPI
	}
	apiCheap := p.APICalls <= 10 && p.APICalls <= p.MonthlyFiles*5
	if tf != kline.Timeframe1s && tf != kline.Timeframe1m {
		if apiCheap {
			return MethodAPI
		}
		return MethodMonthlyFiles
	}
	if apiCheap {
		return MethodAPI
	}
	if p.DailyFiles <= 10 {
		return MethodDailyFiles
	}
	return MethodMonthlyFiles
}

// approximateNumOfAPICalls estimates how many klines API calls cover r.
// A degenerate range still costs one call.
func approximateNumOfAPICalls(tf kline.Timeframe, r kline.Range) int {
	bars := int(r.End.Sub(r.Start) / tf.Duration())
	if bars <= 0 {
		return 1
	}
	calls := bars / klinesPerAPICall
	if bars%klinesPerAPICall != 0 {
		calls++
	}
	return calls
}

// calculateNumOfDailyFiles counts the distinct UTC calendar days r touches,
// inclusive of both endpoints' day.
func calculateNumOfDailyFiles(r kline.Range) int {
	start := r.Start.UTC().Truncate(24 * time.Hour)
	end := r.End.UTC().Truncate(24 * time.Hour)
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

// calculateNumOfMonthlyFiles counts the distinct calendar months r touches,
// inclusive of both endpoints' month.
func calculateNumOfMonthlyFiles(r kline.Range) int {
	s, e := r.Start.UTC(), r.End.UTC()
	return (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month()) + 1
}

// Fetch plans the acquisition and retrieves the klines. File-based methods
// stage downloads under {outputRoot}/{executionID}; the staging directory is
// always removed afterward on a best-effort basis; a removal failure is
// logged and does not affect the result.
func (p *Planner) Fetch(ctx context.Context, executionID, symbol string, tf kline.Timeframe, requested kline.Range, maxKlinesNum int) ([]kline.Kline, error) {
	plan, err := p.Plan(tf, requested, maxKlinesNum)
	if err != nil {
		return nil, err
	}

	if plan.Method == MethodAPI {
		return p.source.FetchByAPI(ctx, symbol, tf, plan.Range)
	}

	dir := filepath.Join(p.outputRoot, executionID)
	if err := p.fs.CreateDir(dir); err != nil {
		return nil, fmt.Errorf("create staging directory %s: %w", dir, err)
	}
	var klines []kline.Kline
	switch plan.Method {
	case MethodDailyFiles:
		klines, err = p.source.FetchFromDailyFiles(ctx, dir, symbol, tf, plan.Range)
	case MethodMonthlyFiles:
		klines, err = p.source.FetchFromMonthlyFiles(ctx, dir, symbol, tf, plan.Range)
	}
	if rmErr := p.fs.RemoveDir(dir); rmErr != nil {
		log.Printf("planner: remove staging directory %s: %v", dir, rmErr)
	}
	if err != nil {
		return nil, err
	}
	return klines, nil
}
