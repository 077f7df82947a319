package scenario

import (
	"math"
	"time"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// PROJECTION - Months to a savings goal
// =============================================================================
//
// The short-term window (overlay months) saves at the realtime capacity,
// every month after it at the long-run capacity. The band around the likely
// path comes from free cash flow volatility relative to capacity:
//
//   spread    = clamp(fcfStdDev / likelyCapacity, 0.05, 0.6)
//   minMonths uses capacity * (1 + spread)   (most favorable)
//   maxMonths uses capacity * (1 - spread)   (least favorable)

const (
	minSpread = 0.05
	maxSpread = 0.6
)

// Goal is a savings target reached from Start.
type Goal struct {
	TargetCents int64     `json:"targetCents"`
	Start       time.Time `json:"start"`
}

type Projection struct {
	TargetCents                int64 `json:"targetCents"`
	LikelyMonthlyCapacityCents int64 `json:"likelyMonthlyCapacityCents"`

	MinMonths    int  `json:"minMonths"`
	LikelyMonths int  `json:"likelyMonths"`
	MaxMonths    int  `json:"maxMonths"`
	CanReach     bool `json:"canReach"`

	MinDate    *time.Time `json:"minDate,omitempty"`
	LikelyDate *time.Time `json:"likelyDate,omitempty"`
	MaxDate    *time.Time `json:"maxDate,omitempty"`
}

func project(in Input, r Result) Projection {
	p := Projection{TargetCents: max(in.Goal.TargetCents, 0)}

	shortCap := r.Quota.RealtimeMonthlyCapacityCents
	window := r.Quota.RealtimeWindowMonths
	longCap := r.Quota.BaseMonthlyCapacityCents

	// A trusted predictor forecast pulls the long-run capacity toward what
	// the predictor expects, weighted by its confidence.
	if in.Assist.Trusted() {
		ratio := 1.0
		if in.Baseline.AverageMonthlyExpenses > 0 {
			ratio = generic.Ratio(r.SimulatedExpenses, in.Baseline.AverageMonthlyExpenses)
		}
		predicted := generic.ApplyRatio(in.Assist.PredictedExpensesNextMonthCents, ratio)
		brainCap := max(in.Baseline.AverageMonthlyIncome-predicted, 0)
		w := generic.Clamp01(in.Assist.Confidence)
		longCap = generic.RoundCents(w*float64(brainCap) + (1-w)*float64(longCap))
	}
	if window <= 0 {
		shortCap = longCap
	}
	p.LikelyMonthlyCapacityCents = longCap

	if p.TargetCents == 0 {
		p.CanReach = true
		p.setDates(in.Goal.Start)
		return p
	}

	likely, ok := monthsToReach(p.TargetCents, float64(shortCap), float64(longCap), window)
	if !ok {
		return p
	}
	p.CanReach = true
	p.LikelyMonths = likely

	reference := max(longCap, shortCap)
	spread := generic.Clamp(float64(in.Baseline.FreeCashFlowStdDev)/float64(reference), minSpread, maxSpread)

	p.MinMonths, _ = monthsToReach(p.TargetCents, float64(shortCap)*(1+spread), float64(longCap)*(1+spread), window)
	if worst, ok := monthsToReach(p.TargetCents, float64(shortCap)*(1-spread), float64(longCap)*(1-spread), window); ok {
		p.MaxMonths = worst
	} else {
		p.MaxMonths = likely
	}
	p.setDates(in.Goal.Start)
	return p
}

// monthsToReach saves shortCap per month for window months, then longCap.
func monthsToReach(target int64, shortCap, longCap float64, window int) (int, bool) {
	remaining := float64(target)
	offset := 0
	if window > 0 {
		if shortCap > 0 {
			if remaining <= shortCap*float64(window) {
				return int(math.Ceil(remaining / shortCap)), true
			}
			remaining -= shortCap * float64(window)
		}
		offset = window
	}
	if longCap <= 0 {
		return 0, false
	}
	return offset + int(math.Ceil(remaining/longCap)), true
}

func (p *Projection) setDates(start time.Time) {
	if !p.CanReach || start.IsZero() {
		return
	}
	minDate := start.AddDate(0, p.MinMonths, 0)
	likelyDate := start.AddDate(0, p.LikelyMonths, 0)
	maxDate := start.AddDate(0, p.MaxMonths, 0)
	p.MinDate, p.LikelyDate, p.MaxDate = &minDate, &likelyDate, &maxDate
}
