package strategy

import "github.com/shopspring/decimal"

// OpenNotional is the USD notional to open: balance × fraction.
// ok is false when the balance is unknown or not positive.
func OpenNotional(balanceUSD float64, fraction float64) (float64, bool) {
	if balanceUSD <= 0 || fraction <= 0 {
		return 0, false
	}
	return decimal.NewFromFloat(balanceUSD).Mul(decimal.NewFromFloat(fraction)).InexactFloat64(), true
}

// CloseNotional is value × (1 − fraction): the fraction names the share of
// the position left open, so the result is the amount being closed.
func CloseNotional(valueUSD float64, fraction float64) (float64, bool) {
	if valueUSD <= 0 {
		return 0, false
	}
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(fraction))
	return decimal.NewFromFloat(valueUSD).Mul(keep).InexactFloat64(), true
}

// Leveraged scales a notional by leverage.
func Leveraged(notionalUSD, leverage float64) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	return decimal.NewFromFloat(notionalUSD).Mul(decimal.NewFromFloat(leverage)).InexactFloat64()
}
