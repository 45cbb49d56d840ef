package market

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ArchiveClient downloads the bulk kline archives Binance publishes on
// data.binance.vision: one zipped CSV per symbol/interval/period.
type ArchiveClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewArchiveClient builds an archive client. An empty baseURL selects the
// public archive host.
func NewArchiveClient(baseURL string) *ArchiveClient {
	if baseURL == "" {
		baseURL = "https://data.binance.vision"
	}
	return &ArchiveClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// MonthlyKlines downloads and parses the monthly archive for the given
// year/month, staging the zip under dir.
func (c *ArchiveClient) MonthlyKlines(ctx context.Context, dir, symbol, interval string, year int, month time.Month) ([]Kline, error) {
	name := fmt.Sprintf("%s-%s-%04d-%02d.zip", symbol, interval, year, month)
	url := fmt.Sprintf("%s/data/spot/monthly/klines/%s/%s/%s", c.BaseURL, symbol, interval, name)
	return c.fetchArchive(ctx, dir, name, url)
}

// DailyKlines downloads and parses the daily archive for the given UTC day,
// staging the zip under dir.
func (c *ArchiveClient) DailyKlines(ctx context.Context, dir, symbol, interval string, day time.Time) ([]Kline, error) {
	name := fmt.Sprintf("%s-%s-%s.zip", symbol, interval, day.UTC().Format("2006-01-02"))
	url := fmt.Sprintf("%s/data/spot/daily/klines/%s/%s/%s", c.BaseURL, symbol, interval, name)
	return c.fetchArchive(ctx, dir, name, url)
}

func (c *ArchiveClient) fetchArchive(ctx context.Context, dir, name, url string) ([]Kline, error) {
	path := filepath.Join(dir, name)
	if err := c.download(ctx, url, path); err != nil {
		return nil, err
	}
	return parseArchive(path)
}

func (c *ArchiveClient) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, res.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, res.Body); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// parseArchive reads every CSV inside the zip and returns the parsed klines
// in file order. The archives hold exactly one CSV with the same 12 columns
// as the REST API.
func parseArchive(path string) ([]Kline, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	var klines []Kline
	for _, f := range zr.File {
		if filepath.Ext(f.Name) != ".csv" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", f.Name, path, err)
		}
		rows, err := parseCSV(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s in %s: %w", f.Name, path, err)
		}
		klines = append(klines, rows...)
	}
	return klines, nil
}

func parseCSV(r io.Reader) ([]Kline, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var klines []Kline
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return klines, nil
		}
		if err != nil {
			return nil, err
		}
		k, err := parseRow(record)
		if err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
}
