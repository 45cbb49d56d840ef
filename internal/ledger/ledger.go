// Package ledger maintains the strategy's capital and asset balances, fee
// totals and equity statistics. Its reducers are driven by order lifecycle
// events and never create or destroy value outside of fees.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"backtest-core/internal/kline"
	"backtest-core/internal/order"
	"backtest-core/internal/symbols"
	"backtest-core/internal/trade"
)

// Admission-time insufficiency: the order is rejected, the run continues.
var (
	ErrInsufficientCapital       = errors.New("insufficient capital")
	ErrInsufficientAssetQuantity = errors.New("insufficient asset quantity")
)

// Reconciliation-time insufficiency: the reserve bookkeeping is out of sync,
// which is fatal to the run.
var (
	ErrInsufficientInOrdersCapital       = errors.New("insufficient in-orders capital")
	ErrInsufficientInOrdersAssetQuantity = errors.New("insufficient in-orders asset quantity")
)

// statsPrecision bounds statistics at 8 decimals, rounded half-up.
const statsPrecision = 8

// Ledger is the single mutable balance record of one strategy run.
type Ledger struct {
	Name      string          `json:"name"`
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Timeframe kline.Timeframe `json:"timeframe"`

	CapitalCurrency string          `json:"capitalCurrency"`
	AssetCurrency   string          `json:"assetCurrency"`
	MakerFeeRate    decimal.Decimal `json:"makerFeeRate"`
	TakerFeeRate    decimal.Decimal `json:"takerFeeRate"`
	InitialCapital  decimal.Decimal `json:"initialCapital"`

	TotalCapital     decimal.Decimal `json:"totalCapital"`
	InOrdersCapital  decimal.Decimal `json:"inOrdersCapital"`
	AvailableCapital decimal.Decimal `json:"availableCapital"`

	TotalAssetQuantity     decimal.Decimal `json:"totalAssetQuantity"`
	InOrdersAssetQuantity  decimal.Decimal `json:"inOrdersAssetQuantity"`
	AvailableAssetQuantity decimal.Decimal `json:"availableAssetQuantity"`

	OpenReturn  decimal.Decimal `json:"openReturn"`
	NetReturn   decimal.Decimal `json:"netReturn"`
	NetProfit   decimal.Decimal `json:"netProfit"`
	NetLoss     decimal.Decimal `json:"netLoss"`
	Equity      decimal.Decimal `json:"equity"`
	MaxDrawdown decimal.Decimal `json:"maxDrawdown"`
	MaxRunup    decimal.Decimal `json:"maxRunup"`

	TotalFeesCapital decimal.Decimal `json:"totalFeesInCapitalCurrency"`
	TotalFeesAsset   decimal.Decimal `json:"totalFeesInAssetCurrency"`

	quotePrecision int32
}

// New creates a Ledger for one strategy run. Fee rates are percentages.
func New(name string, sym *symbols.Symbol, tf kline.Timeframe, initialCapital, makerFeeRate, takerFeeRate decimal.Decimal) *Ledger {
	return &Ledger{
		Name:             name,
		Exchange:         sym.Exchange,
		Symbol:           sym.Name,
		Timeframe:        tf,
		CapitalCurrency:  sym.QuoteAsset,
		AssetCurrency:    sym.BaseAsset,
		MakerFeeRate:     makerFeeRate,
		TakerFeeRate:     takerFeeRate,
		InitialCapital:   initialCapital,
		TotalCapital:     initialCapital,
		AvailableCapital: initialCapital,
		Equity:           initialCapital,
		quotePrecision:   sym.QuotePrecision,
	}
}

// notional rounds qty*price up to the capital currency precision; it is the
// amount owed when buying.
func (l *Ledger) notional(qty, price decimal.Decimal) decimal.Decimal {
	return qty.Mul(price).RoundUp(l.quotePrecision)
}

func (l *Ledger) recordFee(fee order.Fee) {
	if fee.Currency == l.CapitalCurrency {
		l.TotalFeesCapital = l.TotalFeesCapital.Add(fee.Amount)
		return
	}
	l.TotalFeesAsset = l.TotalFeesAsset.Add(fee.Amount)
}

// OnFilled applies an order filled straight from PENDING (market orders and
// immediately marketable limits). Entry spends capital and receives the asset
// net of an asset-currency fee; exit is the mirror. Fails with an
// admission-class error when the available balance cannot cover it.
func (l *Ledger) OnFilled(o order.Order) error {
	if o.Side == order.SideEntry {
		spent := l.notional(o.Quantity, o.FilledPrice)
		if spent.GreaterThan(l.AvailableCapital) {
			return fmt.Errorf("%w: order %s needs %s %s, available %s",
				ErrInsufficientCapital, o.ID, spent, l.CapitalCurrency, l.AvailableCapital)
		}
		l.TotalCapital = l.TotalCapital.Sub(spent)
		l.AvailableCapital = l.AvailableCapital.Sub(spent)
		l.creditAsset(o)
		return nil
	}

	if o.Quantity.GreaterThan(l.AvailableAssetQuantity) {
		return fmt.Errorf("%w: order %s needs %s %s, available %s",
			ErrInsufficientAssetQuantity, o.ID, o.Quantity, l.AssetCurrency, l.AvailableAssetQuantity)
	}
	l.TotalAssetQuantity = l.TotalAssetQuantity.Sub(o.Quantity)
	l.AvailableAssetQuantity = l.AvailableAssetQuantity.Sub(o.Quantity)
	l.creditCapital(o)
	return nil
}

// creditAsset adds the filled quantity net of an asset-currency fee to the
// asset balances and records the fee.
func (l *Ledger) creditAsset(o order.Order) {
	received := o.Quantity
	if o.Fee.Currency == l.AssetCurrency {
		received = received.Sub(o.Fee.Amount)
	}
	l.TotalAssetQuantity = l.TotalAssetQuantity.Add(received)
	l.AvailableAssetQuantity = l.AvailableAssetQuantity.Add(received)
	l.recordFee(o.Fee)
}

// creditCapital adds the exit proceeds net of a capital-currency fee to the
// capital balances and records the fee.
func (l *Ledger) creditCapital(o order.Order) {
	proceeds := o.Quantity.Mul(o.FilledPrice).Round(l.quotePrecision)
	if o.Fee.Currency == l.CapitalCurrency {
		proceeds = proceeds.Sub(o.Fee.Amount)
	}
	l.TotalCapital = l.TotalCapital.Add(proceeds)
	l.AvailableCapital = l.AvailableCapital.Add(proceeds)
	l.recordFee(o.Fee)
}

// OnOpened reserves the capital (entry, at the limit or stop price) or asset
// quantity (exit) a resting order needs, moving it from available to
// in-orders. Returns the reserved amount for the order record.
func (l *Ledger) OnOpened(o order.Order) (decimal.Decimal, error) {
	if o.Side == order.SideEntry {
		price := o.LimitPrice
		if !price.IsPositive() {
			price = o.StopPrice
		}
		reserved := l.notional(o.Quantity, price)
		if reserved.GreaterThan(l.AvailableCapital) {
			return decimal.Zero, fmt.Errorf("%w: order %s needs %s %s reserved, available %s",
				ErrInsufficientCapital, o.ID, reserved, l.CapitalCurrency, l.AvailableCapital)
		}
		l.AvailableCapital = l.AvailableCapital.Sub(reserved)
		l.InOrdersCapital = l.InOrdersCapital.Add(reserved)
		return reserved, nil
	}

	if o.Quantity.GreaterThan(l.AvailableAssetQuantity) {
		return decimal.Zero, fmt.Errorf("%w: order %s needs %s %s reserved, available %s",
			ErrInsufficientAssetQuantity, o.ID, o.Quantity, l.AssetCurrency, l.AvailableAssetQuantity)
	}
	l.AvailableAssetQuantity = l.AvailableAssetQuantity.Sub(o.Quantity)
	l.InOrdersAssetQuantity = l.InOrdersAssetQuantity.Add(o.Quantity)
	return o.Quantity, nil
}

// OnOpeningFilled settles a fill of a previously opened order: the reserved
// amount is released and the actual fill amount applied, with any difference
// credited or debited against the available balance. A release exceeding the
// in-orders balance is a desync and fails with a reconciliation-class error.
func (l *Ledger) OnOpeningFilled(o order.Order) error {
	if o.Side == order.SideEntry {
		if o.Reserved.GreaterThan(l.InOrdersCapital) {
			return fmt.Errorf("%w: order %s releases %s %s, in orders %s",
				ErrInsufficientInOrdersCapital, o.ID, o.Reserved, l.CapitalCurrency, l.InOrdersCapital)
		}
		spent := l.notional(o.Quantity, o.FilledPrice)
		available := l.AvailableCapital.Add(o.Reserved).Sub(spent)
		if available.IsNegative() {
			return fmt.Errorf("%w: order %s fill needs %s %s beyond reserve, available %s",
				ErrInsufficientCapital, o.ID, spent.Sub(o.Reserved), l.CapitalCurrency, l.AvailableCapital)
		}
		l.InOrdersCapital = l.InOrdersCapital.Sub(o.Reserved)
		l.AvailableCapital = available
		l.TotalCapital = l.TotalCapital.Sub(spent)
		l.creditAsset(o)
		return nil
	}

	if o.Reserved.GreaterThan(l.InOrdersAssetQuantity) {
		return fmt.Errorf("%w: order %s releases %s %s, in orders %s",
			ErrInsufficientInOrdersAssetQuantity, o.ID, o.Reserved, l.AssetCurrency, l.InOrdersAssetQuantity)
	}
	l.InOrdersAssetQuantity = l.InOrdersAssetQuantity.Sub(o.Reserved)
	l.TotalAssetQuantity = l.TotalAssetQuantity.Sub(o.Quantity)
	l.creditCapital(o)
	return nil
}

// OnCanceled releases the exact reserved amount back to the available
// balance, the inverse of OnOpened. No fill and no fee apply.
func (l *Ledger) OnCanceled(o order.Order) error {
	if o.Side == order.SideEntry {
		if o.Reserved.GreaterThan(l.InOrdersCapital) {
			return fmt.Errorf("%w: order %s releases %s %s, in orders %s",
				ErrInsufficientInOrdersCapital, o.ID, o.Reserved, l.CapitalCurrency, l.InOrdersCapital)
		}
		l.InOrdersCapital = l.InOrdersCapital.Sub(o.Reserved)
		l.AvailableCapital = l.AvailableCapital.Add(o.Reserved)
		return nil
	}

	if o.Reserved.GreaterThan(l.InOrdersAssetQuantity) {
		return fmt.Errorf("%w: order %s releases %s %s, in orders %s",
			ErrInsufficientInOrdersAssetQuantity, o.ID, o.Reserved, l.AssetCurrency, l.InOrdersAssetQuantity)
	}
	l.InOrdersAssetQuantity = l.InOrdersAssetQuantity.Sub(o.Reserved)
	l.AvailableAssetQuantity = l.AvailableAssetQuantity.Add(o.Reserved)
	return nil
}

// RecomputeStats refreshes the return statistics from the current trade
// lists. It is a no-op when both lists are empty so that previous statistics
// survive flat periods. MaxRunup and MaxDrawdown only ever widen.
func (l *Ledger) RecomputeStats(opening []*trade.OpeningTrade, closed []trade.ClosedTrade) {
	if len(opening) == 0 && len(closed) == 0 {
		return
	}

	openReturn := decimal.Zero
	for _, ot := range opening {
		openReturn = openReturn.Add(ot.UnrealizedReturn)
	}
	profit, loss := decimal.Zero, decimal.Zero
	for _, ct := range closed {
		if ct.NetReturn.IsPositive() {
			profit = profit.Add(ct.NetReturn)
		} else {
			loss = loss.Add(ct.NetReturn)
		}
	}

	l.OpenReturn = openReturn.Round(statsPrecision)
	l.NetProfit = profit.Round(statsPrecision)
	l.NetLoss = loss.Round(statsPrecision)
	l.NetReturn = l.NetProfit.Add(l.NetLoss)
	l.Equity = l.InitialCapital.Add(l.OpenReturn).Add(l.NetReturn)

	deviation := l.Equity.Sub(l.InitialCapital)
	if deviation.GreaterThan(l.MaxRunup) {
		l.MaxRunup = deviation
	}
	if deviation.LessThan(l.MaxDrawdown) {
		l.MaxDrawdown = deviation
	}
}
