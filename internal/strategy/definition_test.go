package strategy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backtest-core/internal/kline"
)

func writeDefinition(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write definition: %v", err)
	}
	return path
}

const validDefinition = `
name: golden-cross
exchange: BINANCE
symbol: BTCUSDT
timeframe: 1h
start: 2022-04-03T00:00:00Z
end: 2022-05-30T00:00:00Z
initial_capital: "1000"
maker_fee_rate: "0.1"
taker_fee_rate: "0.1"
max_num_klines: 50
script:
  path: ./strategy.py
  language: python
`

func TestLoad(t *testing.T) {
	def, err := Load(writeDefinition(t, validDefinition))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if def.Name != "golden-cross" || def.Symbol != "BTCUSDT" {
		t.Errorf("identity = %s/%s, want golden-cross/BTCUSDT", def.Name, def.Symbol)
	}
	if def.Timeframe != kline.Timeframe1h {
		t.Errorf("timeframe = %s, want 1h", def.Timeframe)
	}
	wantStart := time.Date(2022, 4, 3, 0, 0, 0, 0, time.UTC)
	if !def.Start.Equal(wantStart) {
		t.Errorf("start = %s, want %s", def.Start, wantStart)
	}
	if !def.InitialCapital.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("initial capital = %s, want 1000", def.InitialCapital)
	}
	if def.MaxNumKlines != 50 {
		t.Errorf("max klines = %d, want 50", def.MaxNumKlines)
	}
	if def.ScriptPath != "./strategy.py" || def.ScriptLanguage != "python" {
		t.Errorf("script = %s/%s, want ./strategy.py/python", def.ScriptPath, def.ScriptLanguage)
	}
}

func TestLoadDefaults(t *testing.T) {
	def, err := Load(writeDefinition(t, `
name: minimal
symbol: ETHUSDT
timeframe: 1d
start: 2022-01-01T00:00:00Z
end: 2022-02-01T00:00:00Z
initial_capital: "500"
maker_fee_rate: "0"
taker_fee_rate: "0"
script:
  path: ./s.py
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if def.Exchange != "BINANCE" {
		t.Errorf("exchange = %s, want default BINANCE", def.Exchange)
	}
	if def.MaxNumKlines != 100 {
		t.Errorf("max klines = %d, want default 100", def.MaxNumKlines)
	}
	if def.ScriptLanguage != "python" {
		t.Errorf("language = %s, want default python", def.ScriptLanguage)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		missing string
	}{
		{"missing name", "name: golden-cross"},
		{"missing symbol", "symbol: BTCUSDT"},
		{"missing script path", "path: ./strategy.py"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := removeLine(validDefinition, tc.missing)
			if _, err := Load(writeDefinition(t, body)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	t.Run("bad timeframe", func(t *testing.T) {
		body := removeLine(validDefinition, "timeframe: 1h") + "\ntimeframe: 2d"
		if _, err := Load(writeDefinition(t, body)); err == nil {
			t.Error("expected a validation error")
		}
	})

	t.Run("negative fee rate", func(t *testing.T) {
		body := removeLine(validDefinition, `maker_fee_rate: "0.1"`) + "\nmaker_fee_rate: \"-1\""
		if _, err := Load(writeDefinition(t, body)); err == nil {
			t.Error("expected a validation error")
		}
	})

	t.Run("zero initial capital", func(t *testing.T) {
		body := removeLine(validDefinition, `initial_capital: "1000"`) + "\ninitial_capital: \"0\""
		if _, err := Load(writeDefinition(t, body)); err == nil {
			t.Error("expected a validation error")
		}
	})
}

func removeLine(body, line string) string {
	var kept []string
	for _, l := range strings.Split(body, "\n") {
		if strings.TrimSpace(l) == line {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
