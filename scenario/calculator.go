/*
calculator.go - Resolves one savings configuration

PURPOSE:
  Calculate is the terminal pure function of the planner. It takes a
  configuration, trailing statistics and the optional predictor signals and
  returns everything a caller displays: simulated expenses, monthly margin
  and capacity, a sustainability verdict and, for goal-oriented callers,
  a projection.

STEPS:
  1. simulated = sum over categories of round(avg * (1 - percent/100))
  2. base margin = average income - simulated
  3. realtime margin = round(base margin * overlay factor) when an overlay
     is enabled, the base margin otherwise
  4. safety buffer = round(1.5 * expenses stddev)
     remaining = realtime margin - safety buffer
  5. status from remaining against the buffer
  6. plan basis from which overlay, if any, was applied
  7. projection when a goal is given (see projection.go)

Monetary values are integer cents throughout. Floats only appear as ratios
before rounding back to cents.
*/
package scenario

import (
	"sort"

	"github.com/warp/household-engine/generic"
)

type Status string

const (
	StatusSecure      Status = "secure"
	StatusSustainable Status = "sustainable"
	StatusFragile     Status = "fragile"
	StatusUnsafe      Status = "unsafe"
)

type PlanBasis string

const (
	BasisHistorical      PlanBasis = "historical"
	BasisBrainOverlay    PlanBasis = "brain_overlay"
	BasisFallbackOverlay PlanBasis = "fallback_overlay"
)

const (
	safeBufferStdDevs = 1.5
	fragileSlack      = 0.25
)

// BrainAssist is the predictor's next-month view, offered to the projection.
type BrainAssist struct {
	Ready                           bool    `json:"ready"`
	Confidence                      float64 `json:"confidence"`
	PredictedExpensesNextMonthCents int64   `json:"predictedExpensesNextMonthCents"`
	PrimaryBlendThreshold           float64 `json:"primaryBlendThreshold"`
}

// Trusted reports whether the assist clears the blend threshold.
func (a *BrainAssist) Trusted() bool {
	return a != nil && a.Ready && a.Confidence >= a.PrimaryBlendThreshold
}

type Input struct {
	Key              string
	Baseline         BaselineMetrics
	CategoryAverages []CategoryAverage
	Config           Config
	Assist           *BrainAssist
	Overlay          *OverlaySignal
	Goal             *Goal
}

type Quota struct {
	BaseMonthlyMarginCents       int64   `json:"baseMonthlyMarginCents"`
	RealtimeMonthlyMarginCents   int64   `json:"realtimeMonthlyMarginCents"`
	BaseMonthlyCapacityCents     int64   `json:"baseMonthlyCapacityCents"`
	RealtimeMonthlyCapacityCents int64   `json:"realtimeMonthlyCapacityCents"`
	RealtimeOverlayApplied       bool    `json:"realtimeOverlayApplied"`
	RealtimeCapacityFactor       float64 `json:"realtimeCapacityFactor"`
	RealtimeWindowMonths         int     `json:"realtimeWindowMonths"`
}

type Sustainability struct {
	IsSustainable      bool   `json:"isSustainable"`
	Status             Status `json:"status"`
	Reason             string `json:"reason"`
	SafeBufferRequired int64  `json:"safeBufferRequired"`
	RemainingBuffer    int64  `json:"remainingBuffer"`
}

type Result struct {
	Key               string         `json:"key"`
	Config            Config         `json:"config"`
	SimulatedExpenses int64          `json:"simulatedExpenses"`
	Quota             Quota          `json:"quota"`
	Sustainability    Sustainability `json:"sustainability"`
	PlanBasis         PlanBasis      `json:"planBasis"`
	Projection        *Projection    `json:"projection,omitempty"`
}

// Calculate resolves a configuration into a scenario result.
func Calculate(in Input) Result {
	r := Result{Key: in.Key, Config: in.Config}
	if r.Key == "" {
		r.Key = string(in.Config.Type)
	}

	r.SimulatedExpenses = SimulateExpenses(in.CategoryAverages, in.Config, in.Baseline.AverageMonthlyExpenses)

	q := Quota{RealtimeCapacityFactor: 1}
	q.BaseMonthlyMarginCents = in.Baseline.AverageMonthlyIncome - r.SimulatedExpenses
	q.RealtimeMonthlyMarginCents = q.BaseMonthlyMarginCents
	if in.Overlay != nil && in.Overlay.Enabled {
		q.RealtimeOverlayApplied = true
		q.RealtimeCapacityFactor = in.Overlay.CapacityFactor
		q.RealtimeWindowMonths = in.Overlay.ShortTermMonths
		q.RealtimeMonthlyMarginCents = generic.ApplyRatio(q.BaseMonthlyMarginCents, in.Overlay.CapacityFactor)
	}
	q.BaseMonthlyCapacityCents = max(q.BaseMonthlyMarginCents, 0)
	q.RealtimeMonthlyCapacityCents = max(q.RealtimeMonthlyMarginCents, 0)
	r.Quota = q

	r.Sustainability = assessSustainability(q.RealtimeMonthlyMarginCents, in.Baseline.ExpensesStdDev)

	r.PlanBasis = BasisHistorical
	if q.RealtimeOverlayApplied {
		r.PlanBasis = BasisFallbackOverlay
		if in.Overlay.Source == SourceBrain {
			r.PlanBasis = BasisBrainOverlay
		}
	}

	if in.Goal != nil {
		p := project(in, r)
		r.Projection = &p
	}
	return r
}

// SimulateExpenses applies the configuration to each category average,
// rounding per category. Essential categories are never reduced. Without
// category averages the baseline total is returned unchanged.
func SimulateExpenses(avgs []CategoryAverage, cfg Config, fallbackCents int64) int64 {
	if len(avgs) == 0 {
		return fallbackCents
	}
	sorted := append([]CategoryAverage(nil), avgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CategoryID < sorted[j].CategoryID })

	var total int64
	for _, a := range sorted {
		if a.SpendingNature == generic.NatureEssential {
			total += a.AverageCents
			continue
		}
		total += generic.ApplyReduction(a.AverageCents, cfg.Percent(a.CategoryID))
	}
	return total
}

func assessSustainability(marginCents, expensesStdDev int64) Sustainability {
	buffer := generic.ApplyRatio(max(expensesStdDev, 0), safeBufferStdDevs)
	remaining := marginCents - buffer
	s := Sustainability{SafeBufferRequired: buffer, RemainingBuffer: remaining}

	reference := max(buffer, 1)
	switch {
	case remaining < 0:
		s.Status = StatusUnsafe
		s.Reason = "monthly margin does not cover the safety buffer"
	case float64(remaining) < fragileSlack*float64(reference):
		s.Status = StatusFragile
		s.Reason = "margin barely covers the safety buffer"
	case remaining >= reference:
		s.Status = StatusSecure
		s.Reason = "margin covers the safety buffer twice over"
	default:
		s.Status = StatusSustainable
		s.Reason = "margin covers the safety buffer"
	}
	s.IsSustainable = s.Status == StatusSecure || s.Status == StatusSustainable
	return s
}
