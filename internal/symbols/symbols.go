// Package symbols models exchange trading rules: asset precision and the
// per-symbol filters used to round and validate order quantities and prices.
package symbols

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FilterType enumerates the supported Binance trading filters.
type FilterType string

const (
	FilterLotSize       FilterType = "LOT_SIZE"
	FilterMarketLotSize FilterType = "MARKET_LOT_SIZE"
	FilterPrice         FilterType = "PRICE_FILTER"
	FilterNotional      FilterType = "NOTIONAL"
)

// filterPrecision caps every filter field at 8 decimals on ingestion.
const filterPrecision = 8

// Filter carries the numeric bounds of one trading filter. Only the fields
// relevant to its Type are set.
type Filter struct {
	Type FilterType

	// LOT_SIZE / MARKET_LOT_SIZE
	MinQty   decimal.Decimal
	MaxQty   decimal.Decimal
	StepSize decimal.Decimal

	// PRICE_FILTER
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	TickSize decimal.Decimal

	// NOTIONAL
	MinNotional decimal.Decimal
}

// Symbol is the exchange metadata for one trading pair.
type Symbol struct {
	Exchange       string
	Name           string
	BaseAsset      string
	QuoteAsset     string
	BasePrecision  int32
	QuotePrecision int32

	filters map[FilterType]Filter
}

// New validates and normalizes the given filters and builds a Symbol.
// Every numeric filter field is rounded up to at most 8 decimals; paired
// bounds must satisfy min <= max; at most one filter per type is allowed.
func New(exchange, name, baseAsset, quoteAsset string, basePrecision, quotePrecision int32, filters []Filter) (*Symbol, error) {
	s := &Symbol{
		Exchange:       exchange,
		Name:           name,
		BaseAsset:      baseAsset,
		QuoteAsset:     quoteAsset,
		BasePrecision:  basePrecision,
		QuotePrecision: quotePrecision,
		filters:        make(map[FilterType]Filter, len(filters)),
	}
	for _, f := range filters {
		if _, dup := s.filters[f.Type]; dup {
			return nil, fmt.Errorf("symbol %s: duplicate filter %s", name, f.Type)
		}
		nf, err := normalizeFilter(f)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", name, err)
		}
		s.filters[f.Type] = nf
	}
	return s, nil
}

func normalizeFilter(f Filter) (Filter, error) {
	f.MinQty = f.MinQty.RoundUp(filterPrecision)
	f.MaxQty = f.MaxQty.RoundUp(filterPrecision)
	f.StepSize = f.StepSize.RoundUp(filterPrecision)
	f.MinPrice = f.MinPrice.RoundUp(filterPrecision)
	f.MaxPrice = f.MaxPrice.RoundUp(filterPrecision)
	f.TickSize = f.TickSize.RoundUp(filterPrecision)
	f.MinNotional = f.MinNotional.RoundUp(filterPrecision)

	switch f.Type {
	case FilterLotSize, FilterMarketLotSize:
		if f.MaxQty.IsPositive() && f.MinQty.GreaterThan(f.MaxQty) {
			return f, fmt.Errorf("filter %s: minQty %s > maxQty %s", f.Type, f.MinQty, f.MaxQty)
		}
	case FilterPrice:
		if f.MaxPrice.IsPositive() && f.MinPrice.GreaterThan(f.MaxPrice) {
			return f, fmt.Errorf("filter %s: minPrice %s > maxPrice %s", f.Type, f.MinPrice, f.MaxPrice)
		}
	case FilterNotional:
		// single bound, nothing to cross-check
	default:
		return f, fmt.Errorf("unknown filter type %q", f.Type)
	}
	return f, nil
}

// Filter returns the filter of the given type, if present.
func (s *Symbol) Filter(t FilterType) (Filter, bool) {
	f, ok := s.filters[t]
	return f, ok
}

// RoundQuantity clamps qty to the lot bounds and aligns it to the step size:
// clamp to [minQty, maxQty], floor to the nearest step, then round half-up to
// the base asset precision. market selects MARKET_LOT_SIZE over LOT_SIZE.
// The operation is idempotent.
func (s *Symbol) RoundQuantity(qty decimal.Decimal, market bool) decimal.Decimal {
	ft := FilterLotSize
	if market {
		ft = FilterMarketLotSize
	}
	f, ok := s.filters[ft]
	if !ok && market {
		// Fall back to the resting lot filter when no market-specific one exists.
		f, ok = s.filters[FilterLotSize]
	}
	if ok {
		qty = clampStep(qty, f.MinQty, f.MaxQty, f.StepSize)
	}
	return qty.Round(s.BasePrecision)
}

// RoundPrice clamps price to the price filter bounds and aligns it to the
// tick size, then rounds half-up to the quote asset precision. Idempotent.
func (s *Symbol) RoundPrice(price decimal.Decimal) decimal.Decimal {
	if f, ok := s.filters[FilterPrice]; ok {
		price = clampStep(price, f.MinPrice, f.MaxPrice, f.TickSize)
	}
	return price.Round(s.QuotePrecision)
}

// CheckNotional reports an error when qty*price falls below the NOTIONAL
// filter's minimum.
func (s *Symbol) CheckNotional(qty, price decimal.Decimal) error {
	f, ok := s.filters[FilterNotional]
	if !ok || !f.MinNotional.IsPositive() {
		return nil
	}
	notional := qty.Mul(price)
	if notional.LessThan(f.MinNotional) {
		return fmt.Errorf("notional %s below minimum %s", notional, f.MinNotional)
	}
	return nil
}

// clampStep bounds v to [min, max] (zero bounds are ignored) and floors it to
// the nearest multiple of step.
func clampStep(v, min, max, step decimal.Decimal) decimal.Decimal {
	if min.IsPositive() && v.LessThan(min) {
		v = min
	}
	if max.IsPositive() && v.GreaterThan(max) {
		v = max
	}
	if step.IsPositive() {
		v = v.Div(step).Floor().Mul(step)
	}
	return v
}
