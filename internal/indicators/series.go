// Package indicators provides pure technical-analysis functions over decimal
// price series. Each function returns a series aligned with its input;
// positions without enough history hold zero.
package indicators

import "github.com/shopspring/decimal"

// SMA returns the simple moving average series over the given period.
func SMA(series []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(series))
	if period <= 0 {
		return out
	}
	sum := decimal.Zero
	p := decimal.NewFromInt(int64(period))
	for i, v := range series {
		sum = sum.Add(v)
		if i >= period {
			sum = sum.Sub(series[i-period])
		}
		if i >= period-1 {
			out[i] = sum.Div(p)
		}
	}
	return out
}

// EMA returns the exponential moving average series with smoothing
// 2/(period+1), seeded with the first period's SMA.
func EMA(series []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(series))
	if period <= 0 || len(series) < period {
		return out
	}
	alpha := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1))
	one := decimal.NewFromInt(1)

	seed := decimal.Zero
	for _, v := range series[:period] {
		seed = seed.Add(v)
	}
	prev := seed.Div(decimal.NewFromInt(int64(period)))
	out[period-1] = prev
	for i := period; i < len(series); i++ {
		prev = series[i].Mul(alpha).Add(prev.Mul(one.Sub(alpha)))
		out[i] = prev
	}
	return out
}

// RSI returns the Relative Strength Index series over the given period,
// using simple (unsmoothed) averages of gains and losses.
func RSI(series []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(series))
	if period <= 0 || len(series) < period+1 {
		return out
	}
	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)

	for i := period; i < len(series); i++ {
		gain, loss := decimal.Zero, decimal.Zero
		for j := i - period + 1; j <= i; j++ {
			change := series[j].Sub(series[j-1])
			if change.IsPositive() {
				gain = gain.Add(change)
			} else {
				loss = loss.Sub(change)
			}
		}
		if loss.IsZero() {
			out[i] = hundred
			continue
		}
		rs := gain.Div(loss)
		out[i] = hundred.Sub(hundred.Div(one.Add(rs)))
	}
	return out
}
