package data

import (
	"fmt"

	"github.com/shopspring/decimal"

	"backtest-core/internal/symbols"
	market "backtest-core/pkg/market/binance"
)

// BuildSymbol converts raw exchangeInfo metadata into validated symbol rules.
func BuildSymbol(exchange string, info *market.SymbolInfo) (*symbols.Symbol, error) {
	filters := make([]symbols.Filter, 0, len(info.Filters))
	for _, rf := range info.Filters {
		ft := symbols.FilterType(rf.FilterType)
		switch ft {
		case symbols.FilterLotSize, symbols.FilterMarketLotSize, symbols.FilterPrice, symbols.FilterNotional:
		default:
			// Binance publishes more filter types than the simulation uses.
			continue
		}
		f := symbols.Filter{Type: ft}
		var err error
		if f.MinQty, err = parseDecimal(rf.MinQty); err != nil {
			return nil, fmt.Errorf("filter %s minQty: %w", ft, err)
		}
		if f.MaxQty, err = parseDecimal(rf.MaxQty); err != nil {
			return nil, fmt.Errorf("filter %s maxQty: %w", ft, err)
		}
		if f.StepSize, err = parseDecimal(rf.StepSize); err != nil {
			return nil, fmt.Errorf("filter %s stepSize: %w", ft, err)
		}
		if f.MinPrice, err = parseDecimal(rf.MinPrice); err != nil {
			return nil, fmt.Errorf("filter %s minPrice: %w", ft, err)
		}
		if f.MaxPrice, err = parseDecimal(rf.MaxPrice); err != nil {
			return nil, fmt.Errorf("filter %s maxPrice: %w", ft, err)
		}
		if f.TickSize, err = parseDecimal(rf.TickSize); err != nil {
			return nil, fmt.Errorf("filter %s tickSize: %w", ft, err)
		}
		if f.MinNotional, err = parseDecimal(rf.MinNotional); err != nil {
			return nil, fmt.Errorf("filter %s minNotional: %w", ft, err)
		}
		filters = append(filters, f)
	}

	return symbols.New(exchange, info.Symbol, info.BaseAsset, info.QuoteAsset,
		info.BasePrecision, info.QuotePrecision, filters)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
