package generic_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/household-engine/generic"
)

func TestApplyReduction(t *testing.T) {
	assert.Equal(t, int64(7500), generic.ApplyReduction(10000, 25))
	assert.Equal(t, int64(10000), generic.ApplyReduction(10000, 0))
	assert.Equal(t, int64(0), generic.ApplyReduction(10000, 100))
	assert.Equal(t, int64(0), generic.ApplyReduction(10000, 140), "percent is clamped")
	assert.Equal(t, int64(10000), generic.ApplyReduction(10000, math.NaN()))
	assert.Equal(t, int64(6668), generic.ApplyReduction(10001, 33.33))
}

func TestApplyRatio_NonFiniteIsIdentity(t *testing.T) {
	assert.Equal(t, int64(1500), generic.ApplyRatio(1000, 1.5))
	assert.Equal(t, int64(1000), generic.ApplyRatio(1000, math.Inf(1)))
	assert.Equal(t, int64(-500), generic.ApplyRatio(-1000, 0.5))
}

func TestDivRoundAndRatio(t *testing.T) {
	assert.Equal(t, int64(3333), generic.DivRound(10000, 3))
	assert.Equal(t, int64(0), generic.DivRound(10000, 0))
	assert.InDelta(t, 0.25, generic.Ratio(1, 4), 1e-12)
	assert.Zero(t, generic.Ratio(1, 0))
}

func TestStdDev(t *testing.T) {
	assert.Zero(t, generic.StdDev(nil))
	assert.InDelta(t, 2.0, generic.StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestMonthArithmetic(t *testing.T) {
	dec := generic.Month{Year: 2025, Month: time.December}
	assert.Equal(t, generic.Month{Year: 2026, Month: time.February}, dec.AddMonths(2))
	assert.Equal(t, generic.Month{Year: 2025, Month: time.November}, dec.AddMonths(-1))
	assert.Equal(t, 29, generic.Month{Year: 2028, Month: time.February}.DaysIn())
	assert.Equal(t, 14, generic.MonthsBetween(dec, generic.Month{Year: 2027, Month: time.February}))
	assert.Equal(t, "2025-12", dec.String())
	assert.InDelta(t, 0.5, generic.DayProgress(time.Date(2026, time.June, 15, 8, 0, 0, 0, time.UTC), time.UTC), 1e-12)
}
