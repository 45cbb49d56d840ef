package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// SymbolFilter is one raw trading filter from the exchangeInfo endpoint.
// Numeric fields stay strings so the caller can parse them into exact
// decimals.
type SymbolFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty"`
	MaxQty      string `json:"maxQty"`
	StepSize    string `json:"stepSize"`
	MinPrice    string `json:"minPrice"`
	MaxPrice    string `json:"maxPrice"`
	TickSize    string `json:"tickSize"`
	MinNotional string `json:"minNotional"`
}

// SymbolInfo is the exchange metadata for one trading pair.
type SymbolInfo struct {
	Symbol         string         `json:"symbol"`
	BaseAsset      string         `json:"baseAsset"`
	QuoteAsset     string         `json:"quoteAsset"`
	BasePrecision  int32          `json:"baseAssetPrecision"`
	QuotePrecision int32          `json:"quoteAssetPrecision"`
	Filters        []SymbolFilter `json:"filters"`
}

// GetSymbolInfo fetches the trading rules for one symbol.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	u := fmt.Sprintf("%s/api/v3/exchangeInfo?%s", c.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance exchangeInfo status %d", res.StatusCode)
	}

	var payload struct {
		Symbols []SymbolInfo `json:"symbols"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode exchangeInfo: %w", err)
	}
	for i := range payload.Symbols {
		if payload.Symbols[i].Symbol == symbol {
			return &payload.Symbols[i], nil
		}
	}
	return nil, fmt.Errorf("symbol %s not in exchangeInfo response", symbol)
}
