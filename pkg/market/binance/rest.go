package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// MaxKlinesPerRequest is the largest limit the klines endpoint accepts.
const MaxKlinesPerRequest = 1000

// Client wraps REST access to the public Binance market data endpoints.
// Requests are throttled through a shared rate limiter to stay inside the
// exchange's request-weight budget.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a REST client. An empty baseURL selects the production
// endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		// Klines carry weight 2 out of a 6000/min budget; 20 req/s keeps a
		// long backfill well under it.
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}
}

// GetKlines fetches up to limit klines for a symbol and interval.
// startTime/endTime are Unix milliseconds; zero leaves them unset.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int, startTime, endTime int64) ([]Kline, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if startTime > 0 {
		params.Set("startTime", strconv.FormatInt(startTime, 10))
	}
	if endTime > 0 {
		params.Set("endTime", strconv.FormatInt(endTime, 10))
	}

	u := fmt.Sprintf("%s/api/v3/klines?%s", c.BaseURL, params.Encode())
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
		return nil, fmt.Errorf("binance klines status %d", res.StatusCode)
	}

	var raw [][]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		fields := make([]string, len(row))
		for i, cell := range row {
			fields[i] = unquote(cell)
		}
		k, err := parseRow(fields)
		if err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// unquote strips the JSON string quoting Binance uses for numeric fields;
// bare numbers (timestamps, trade counts) pass through untouched.
func unquote(raw json.RawMessage) string {
	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
