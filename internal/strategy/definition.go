// Package strategy loads and validates the YAML definition of a backtest:
// the strategy identity, the simulated market, fee rates and the script to
// execute.
package strategy

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"backtest-core/internal/kline"
)

// Definition describes one backtest run.
type Definition struct {
	Name      string
	Exchange  string
	Symbol    string
	Timeframe kline.Timeframe
	Start     time.Time
	End       time.Time

	InitialCapital decimal.Decimal
	MakerFeeRate   decimal.Decimal
	TakerFeeRate   decimal.Decimal
	// MaxNumKlines is the rolling window / warm-up size.
	MaxNumKlines int

	ScriptPath     string
	ScriptLanguage string
}

// file mirrors the YAML layout; numeric fields stay strings so they can be
// parsed into exact decimals.
type file struct {
	Name           string `yaml:"name"`
	Exchange       string `yaml:"exchange"`
	Symbol         string `yaml:"symbol"`
	Timeframe      string `yaml:"timeframe"`
	Start          string `yaml:"start"`
	End            string `yaml:"end"`
	InitialCapital string `yaml:"initial_capital"`
	MakerFeeRate   string `yaml:"maker_fee_rate"`
	TakerFeeRate   string `yaml:"taker_fee_rate"`
	MaxNumKlines   int    `yaml:"max_num_klines"`
	Script         struct {
		Path     string `yaml:"path"`
		Language string `yaml:"language"`
	} `yaml:"script"`
}

// Load reads and validates a strategy definition from a YAML file.
func Load(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy definition: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse strategy definition: %w", err)
	}
	return f.validate()
}

func (f file) validate() (*Definition, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("strategy definition: name is required")
	}
	if f.Symbol == "" {
		return nil, fmt.Errorf("strategy definition: symbol is required")
	}
	tf, err := kline.ParseTimeframe(f.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("strategy definition: %w", err)
	}

	start, err := time.Parse(time.RFC3339, f.Start)
	if err != nil {
		return nil, fmt.Errorf("strategy definition: parse start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, f.End)
	if err != nil {
		return nil, fmt.Errorf("strategy definition: parse end: %w", err)
	}

	capital, err := decimal.NewFromString(f.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("strategy definition: parse initial_capital: %w", err)
	}
	if !capital.IsPositive() {
		return nil, fmt.Errorf("strategy definition: initial_capital %s must be positive", capital)
	}
	maker, err := decimal.NewFromString(f.MakerFeeRate)
	if err != nil {
		return nil, fmt.Errorf("strategy definition: parse maker_fee_rate: %w", err)
	}
	taker, err := decimal.NewFromString(f.TakerFeeRate)
	if err != nil {
		return nil, fmt.Errorf("strategy definition: parse taker_fee_rate: %w", err)
	}
	if maker.IsNegative() || taker.IsNegative() {
		return nil, fmt.Errorf("strategy definition: fee rates must not be negative")
	}

	maxKlines := f.MaxNumKlines
	if maxKlines <= 0 {
		maxKlines = 100
	}

	exchange := f.Exchange
	if exchange == "" {
		exchange = "BINANCE"
	}
	if f.Script.Path == "" {
		return nil, fmt.Errorf("strategy definition: script.path is required")
	}
	lang := f.Script.Language
	if lang == "" {
		lang = "python"
	}

	return &Definition{
		Name:           f.Name,
		Exchange:       exchange,
		Symbol:         f.Symbol,
		Timeframe:      tf,
		Start:          start,
		End:            end,
		InitialCapital: capital,
		MakerFeeRate:   maker,
		TakerFeeRate:   taker,
		MaxNumKlines:   maxKlines,
		ScriptPath:     f.Script.Path,
		ScriptLanguage: lang,
	}, nil
}
