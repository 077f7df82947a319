package scenario_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/demo"
	"github.com/warp/household-engine/scenario"
)

var defaultSignal = scenario.BrainSignal{
	MinNowcastConfidence: 0.74,
	OutlierMinConfidence: 0.88,
	OvershootDeltaCents:  35000,
}

func brainForecast(conf float64, remaining, next int64) *scenario.NowcastForecast {
	return &scenario.NowcastForecast{
		Source:     scenario.SourceBrain,
		Ready:      true,
		Confidence: conf,
		PredictedCurrentMonthRemainingExpensesCents: remaining,
		PredictedExpensesNextMonthCents:             next,
	}
}

func TestDeriveRealtimeOverlaySignal_Gates(t *testing.T) {
	facts := scenario.CurrentMonthFacts{SpentCents: 150000, DayOfMonth: 15, DaysInMonth: 30}
	strong := brainForecast(0.95, 150000, 300000)

	// Disabled flag
	assert.Nil(t, scenario.DeriveRealtimeOverlaySignal(false, strong, facts, defaultSignal, 300000))

	// No forecast
	assert.Nil(t, scenario.DeriveRealtimeOverlaySignal(true, nil, facts, defaultSignal, 300000))

	// Not ready
	notReady := brainForecast(0.95, 150000, 300000)
	notReady.Ready = false
	assert.Nil(t, scenario.DeriveRealtimeOverlaySignal(true, notReady, facts, defaultSignal, 300000))

	// Below the tuned minimum
	assert.Nil(t, scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.7, 150000, 300000), facts, defaultSignal, 300000))

	// No overlay means a zero window
	assert.Equal(t, 0, scenario.ShortTermMonthsOf(nil))
}

func TestDeriveRealtimeOverlaySignal_ShortTermMonths(t *testing.T) {
	facts := scenario.CurrentMonthFacts{SpentCents: 150000, DayOfMonth: 15, DaysInMonth: 30}

	// Strong predictor confidence extends the window
	s := scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.95, 150000, 300000), facts, defaultSignal, 300000)
	require.NotNil(t, s)
	assert.True(t, s.Enabled)
	assert.Equal(t, scenario.SourceBrain, s.Source)
	assert.Equal(t, 3, s.ShortTermMonths)
	assert.Equal(t, 1.0, s.CapacityFactor)

	// Moderate confidence keeps the default
	s = scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.8, 150000, 300000), facts, defaultSignal, 300000)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.ShortTermMonths)

	// The fallback never extends, however confident
	fb := brainForecast(0.99, 150000, 300000)
	fb.Source = scenario.SourceFallback
	s = scenario.DeriveRealtimeOverlaySignal(true, fb, facts, defaultSignal, 300000)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.ShortTermMonths)
	assert.Equal(t, scenario.SourceFallback, s.Source)
}

func TestDeriveRealtimeOverlaySignal_Factor(t *testing.T) {
	facts := scenario.CurrentMonthFacts{SpentCents: 200000, DayOfMonth: 15, DaysInMonth: 30}

	// Spending well above average: trajectory 400000 vs 300000
	s := scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.95, 200000, 400000), facts, defaultSignal, 300000)
	require.NotNil(t, s)
	assert.InDelta(t, 0.75, s.CapacityFactor, 1e-9)

	// Extreme trajectories are clamped
	s = scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.95, 2000000, 4000000), facts, defaultSignal, 300000)
	assert.Equal(t, 0.5, s.CapacityFactor)
	low := scenario.CurrentMonthFacts{SpentCents: 1000, DayOfMonth: 15, DaysInMonth: 30}
	s = scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.95, 1000, 1000), low, defaultSignal, 300000)
	assert.Equal(t, 1.5, s.CapacityFactor)

	// No baseline: neutral
	s = scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.95, 200000, 400000), facts, defaultSignal, 0)
	assert.Equal(t, 1.0, s.CapacityFactor)
}

func TestDeriveRealtimeOverlaySignal_OvershootDamping(t *testing.T) {
	facts := scenario.CurrentMonthFacts{SpentCents: 200000, DayOfMonth: 15, DaysInMonth: 30}

	// Confidence between minimum and outlier: deviation capped at 35000
	s := scenario.DeriveRealtimeOverlaySignal(true, brainForecast(0.8, 200000, 400000), facts, defaultSignal, 300000)
	require.NotNil(t, s)
	assert.InDelta(t, 300000.0/335000.0, s.CapacityFactor, 1e-9)
}

func TestFallbackForecast(t *testing.T) {
	// Too early in the month
	early := scenario.FallbackForecast(scenario.CurrentMonthFacts{SpentCents: 50000, DayOfMonth: 5, DaysInMonth: 30})
	assert.False(t, early.Ready)
	assert.Equal(t, scenario.SourceFallback, early.Source)

	// Nothing spent
	assert.False(t, scenario.FallbackForecast(scenario.CurrentMonthFacts{DayOfMonth: 20, DaysInMonth: 30}).Ready)

	// Run rate at day 15 of 30
	f := scenario.FallbackForecast(scenario.CurrentMonthFacts{SpentCents: 150000, DayOfMonth: 15, DaysInMonth: 30})
	assert.True(t, f.Ready)
	assert.Equal(t, int64(150000), f.PredictedCurrentMonthRemainingExpensesCents)
	assert.Equal(t, int64(300000), f.PredictedExpensesNextMonthCents)
	assert.InDelta(t, 0.725, f.Confidence, 1e-9)
}

func TestFallbackForecast_FeedsFallbackOverlay(t *testing.T) {
	// GIVEN: Day 20 of June for the sparse household
	txs := demo.Sparse(testNow, time.UTC)
	facts := scenario.CurrentMonth(txs, demo.Categories(), testNow, time.UTC)
	require.Equal(t, int64(19000), facts.SpentCents)
	require.Equal(t, 20, facts.DayOfMonth)
	require.Equal(t, 30, facts.DaysInMonth)

	// WHEN: Deriving from the run-rate forecast
	s := scenario.DeriveRealtimeOverlaySignal(true, scenario.FallbackForecast(facts), facts, defaultSignal, 25000)

	// THEN: A fallback overlay
	require.NotNil(t, s)
	assert.Equal(t, scenario.SourceFallback, s.Source)
	assert.Equal(t, 2, s.ShortTermMonths)
}
