// Package amount centralizes every monetary comparison in the sync engine.
// Scraped payouts arrive as floats, so comparisons go through decimals with
// explicit tolerances instead of raw float equality.
package amount

import (
	"github.com/shopspring/decimal"
)

var (
	// tolerance is the maximum difference under which two monetary values
	// are considered equal.
	tolerance = decimal.NewFromFloat(0.01)

	// residueCutoff is the magnitude below which a value is treated as
	// floating-point residue and snapped to exactly zero.
	residueCutoff = decimal.NewFromFloat(0.005)
)

// Equal reports whether a and b are the same monetary value within 0.01.
func Equal(a, b float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// Snap returns v with sub-half-cent residue removed: any magnitude below
// 0.005 becomes exactly 0.
func Snap(v float64) float64 {
	d := decimal.NewFromFloat(v)
	if d.Abs().LessThan(residueCutoff) {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// Choose picks the value written to the platform: the recorded payout when
// present, else the secondary recorded amount, else 0. The result is snapped.
func Choose(payout, secondary *float64) float64 {
	switch {
	case payout != nil:
		return Snap(*payout)
	case secondary != nil:
		return Snap(*secondary)
	default:
		return 0
	}
}
