package scenario

import (
	"math"
	"time"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// REALTIME OVERLAY - Short-term capacity correction
// =============================================================================
//
// The overlay compares where spending is heading (this month's projected
// total and next month's forecast) with the historical average:
//
//   trajectory = (projected current month + predicted next month) / 2
//   factor     = clamp(average / trajectory, 0.5, 1.5)
//
// Spending above average shrinks capacity, below average grows it. The
// deriver is stateless; callers debounce before acting on a new signal.

type Source string

const (
	SourceBrain    Source = "brain"
	SourceFallback Source = "fallback"
)

const (
	minCapacityFactor = 0.5
	maxCapacityFactor = 1.5

	defaultShortTermMonths = 2
	strongShortTermMonths  = 3
)

type OverlaySignal struct {
	Enabled         bool    `json:"enabled"`
	Source          Source  `json:"source"`
	CapacityFactor  float64 `json:"capacityFactor"`
	ShortTermMonths int     `json:"shortTermMonths"`
}

// ShortTermMonthsOf returns the overlay window, 0 when there is no overlay.
func ShortTermMonthsOf(s *OverlaySignal) int {
	if s == nil || !s.Enabled {
		return 0
	}
	return s.ShortTermMonths
}

// NowcastForecast is a near-term expense forecast from either source.
type NowcastForecast struct {
	Source                                      Source  `json:"source"`
	Ready                                       bool    `json:"ready"`
	Confidence                                  float64 `json:"confidence"`
	PredictedCurrentMonthRemainingExpensesCents int64   `json:"predictedCurrentMonthRemainingExpensesCents"`
	PredictedExpensesNextMonthCents             int64   `json:"predictedExpensesNextMonthCents"`
}

// CurrentMonthFacts is what has already happened this month.
type CurrentMonthFacts struct {
	SpentCents  int64 `json:"spentCents"`
	IncomeCents int64 `json:"incomeCents"`
	DayOfMonth  int   `json:"dayOfMonth"`
	DaysInMonth int   `json:"daysInMonth"`
}

// Progress is the elapsed share of the month.
func (f CurrentMonthFacts) Progress() float64 {
	if f.DaysInMonth <= 0 {
		return 0
	}
	return generic.Clamp01(float64(f.DayOfMonth) / float64(f.DaysInMonth))
}

// CurrentMonth summarizes the month containing now, ignoring anything dated
// at or after now.
func CurrentMonth(txs []generic.TransactionSample, cats []generic.CategoryMeta, now time.Time, loc *time.Location) CurrentMonthFacts {
	m := generic.MonthOf(now, loc)
	facts := CurrentMonthFacts{
		DayOfMonth:  now.In(m.Start(loc).Location()).Day(),
		DaysInMonth: m.DaysIn(),
	}
	agg, ok := generic.AggregateByMonth(txs, generic.IndexCategories(cats), loc, now)[m]
	if ok {
		facts.SpentCents = agg.ExpenseCents
		facts.IncomeCents = agg.IncomeCents
	}
	return facts
}

// BrainSignal carries the tuned policy thresholds the deriver needs.
type BrainSignal struct {
	MinNowcastConfidence float64 `json:"minNowcastConfidence"`
	OutlierMinConfidence float64 `json:"outlierMinConfidence"`
	OvershootDeltaCents  int64   `json:"overshootDeltaCents"`
}

// DeriveRealtimeOverlaySignal returns nil when the overlay is disabled, the
// forecast is missing or not ready, or its confidence is below the policy
// minimum.
func DeriveRealtimeOverlaySignal(enabled bool, forecast *NowcastForecast, facts CurrentMonthFacts, policy BrainSignal, avgMonthlyExpensesCents int64) *OverlaySignal {
	if !enabled || forecast == nil || !forecast.Ready {
		return nil
	}
	if math.IsNaN(forecast.Confidence) || forecast.Confidence < policy.MinNowcastConfidence {
		return nil
	}

	projectedCurrent := facts.SpentCents + max(forecast.PredictedCurrentMonthRemainingExpensesCents, 0)
	trajectory := (float64(projectedCurrent) + float64(max(forecast.PredictedExpensesNextMonthCents, 0))) / 2

	// A big deviation from a not-so-confident forecast is treated as an
	// outlier and only counted up to the tolerated overshoot.
	avg := float64(avgMonthlyExpensesCents)
	if delta := float64(policy.OvershootDeltaCents); delta > 0 && forecast.Confidence < policy.OutlierMinConfidence {
		trajectory = generic.Clamp(trajectory, avg-delta, avg+delta)
	}

	factor := 1.0
	if avg > 0 && trajectory > 0 {
		factor = generic.Clamp(avg/trajectory, minCapacityFactor, maxCapacityFactor)
	}

	months := defaultShortTermMonths
	if forecast.Source == SourceBrain && forecast.Confidence > policy.OutlierMinConfidence {
		months = strongShortTermMonths
	}

	return &OverlaySignal{
		Enabled:         true,
		Source:          forecast.Source,
		CapacityFactor:  factor,
		ShortTermMonths: months,
	}
}

// =============================================================================
// FALLBACK - Run-rate forecast when the predictor is not ready
// =============================================================================

const fallbackMinDay = 10

// FallbackForecast extrapolates the current month's spending linearly.
// It is ready from day 10 once something has been spent.
func FallbackForecast(facts CurrentMonthFacts) *NowcastForecast {
	f := &NowcastForecast{Source: SourceFallback}
	progress := facts.Progress()
	if progress <= 0 || facts.SpentCents <= 0 {
		return f
	}

	projected := generic.RoundCents(float64(facts.SpentCents) / progress)
	f.PredictedCurrentMonthRemainingExpensesCents = max(projected-facts.SpentCents, 0)
	f.PredictedExpensesNextMonthCents = projected
	f.Confidence = generic.Clamp01(0.5 + 0.45*progress)
	f.Ready = facts.DayOfMonth >= fallbackMinDay
	return f
}
