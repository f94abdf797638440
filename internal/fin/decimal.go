// Package fin holds the fixed-point arithmetic and day-count conventions the
// accounting engine depends on. Rounding here is load-bearing: reported NAVs
// must reproduce the trustee's figures, so every rounding site goes through
// these helpers instead of float formatting.
package fin

import (
	"time"

	"github.com/shopspring/decimal"
)

// Precision conventions used across the engine.
const (
	// AmountPlaces is the precision of monetary amounts (cents).
	AmountPlaces int32 = 2

	// NavPlaces is the default precision of per-unit NAVs.
	NavPlaces int32 = 4

	// InterestDayBasis is the day-count basis for deposit interest.
	InterestDayBasis = 360
)

// RoundAmount rounds a monetary amount to cent precision, half to even.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountPlaces)
}

// RoundNav rounds a per-unit NAV to the given number of decimals, half to even.
func RoundNav(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundBank(places)
}

// FeeDays returns the day-count denominator for per-year fee rates: the number
// of calendar days in the year containing d (365 or 366).
func FeeDays(d time.Time) int64 {
	year := d.Year()
	if isLeapYear(year) {
		return 366
	}
	return 365
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// MustDecimal parses a decimal literal and panics on malformed input.
// Intended for static configuration values and tests only.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("fin: bad decimal literal " + s)
	}
	return d
}
