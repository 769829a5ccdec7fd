// Package money converts between stored integer cents and decimal amounts.
package money

import (
	"github.com/shopspring/decimal"
)

// FromCents returns the decimal amount for the given cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Float returns cents as a float amount for JSON output (e.g. 4950 -> 49.5).
func Float(cents int64) float64 {
	f, _ := FromCents(cents).Float64()
	return f
}

// ToCents rounds a decimal amount half away from zero to whole cents.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CentsFromFloat converts a client supplied amount (e.g. 19.99) to cents.
func CentsFromFloat(amount float64) int64 {
	return ToCents(decimal.NewFromFloat(amount))
}

// ApplyBasisPoints returns cents * bps / 10000 rounded to whole cents.
func ApplyBasisPoints(cents, bps int64) int64 {
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

// MeanRounded returns the mean of values rounded to the given places, or 0 for none.
func MeanRounded(values []int, places int32) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromInt(int64(v)))
	}
	mean, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(places).Float64()
	return mean
}
