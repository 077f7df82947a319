package generic

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer cents, decimal only for intermediate ratios
// =============================================================================

var hundred = decimal.NewFromInt(100)

// finite guards decimal.NewFromFloat, which panics on NaN and Inf.
func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// RoundCents rounds a float amount (already in cents) half away from zero.
func RoundCents(v float64) int64 {
	v = finite(v, 0)
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// ApplyRatio returns round(cents * ratio).
func ApplyRatio(cents int64, ratio float64) int64 {
	ratio = finite(ratio, 1)
	return decimal.NewFromInt(cents).Mul(decimal.NewFromFloat(ratio)).Round(0).IntPart()
}

// ApplyReduction returns round(cents * (1 - percent/100)).
// The percent is clamped into [0, 100].
func ApplyReduction(cents int64, percent float64) int64 {
	percent = Clamp(finite(percent, 0), 0, 100)
	keep := hundred.Sub(decimal.NewFromFloat(percent)).Div(hundred)
	return decimal.NewFromInt(cents).Mul(keep).Round(0).IntPart()
}

// DivRound divides a cent total by n and rounds. Zero when n <= 0.
func DivRound(total int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
}

// Ratio returns num/den as a float, zero when den is zero.
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	f, _ := decimal.NewFromInt(num).Div(decimal.NewFromInt(den)).Float64()
	return f
}

// =============================================================================
// NUMERIC HELPERS
// =============================================================================

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// Lerp moves from a toward b by t.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
