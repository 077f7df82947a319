package brain

import (
	"math"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// RELIABILITY - Recent predictions against realized actuals
// =============================================================================

const (
	reliabilityWindow = 24

	// completed months replayed for each statistic
	nextMonthReplayMonths = 6
	nowcastReplayMonths   = 3
)

// ReliabilityStats summarizes recent prediction errors.
// MAE is a fraction of the dataset scale; MAPE ignores zero actuals.
type ReliabilityStats struct {
	SampleCount     int     `json:"sampleCount"`
	MAE             float64 `json:"mae"`
	MAPE            float64 `json:"mape"`
	MAPESampleCount int     `json:"mapeSampleCount"`
}

type observation struct {
	absErr float64 // normalized by scale
	pctErr float64
	hasPct bool
}

// ReliabilityTracker keeps a bounded window of prediction errors.
type ReliabilityTracker struct {
	window []observation
	limit  int
}

func NewReliabilityTracker(limit int) *ReliabilityTracker {
	if limit <= 0 {
		limit = reliabilityWindow
	}
	return &ReliabilityTracker{limit: limit}
}

// Observe records one prediction and the value that actually happened.
func (t *ReliabilityTracker) Observe(predictedCents, actualCents int64, scale float64) {
	if scale <= 0 {
		scale = minScaleCents
	}
	diff := math.Abs(float64(predictedCents - actualCents))
	obs := observation{absErr: diff / scale}
	if actualCents != 0 {
		obs.pctErr = diff / math.Abs(float64(actualCents))
		obs.hasPct = true
	}
	t.window = append(t.window, obs)
	if len(t.window) > t.limit {
		t.window = t.window[len(t.window)-t.limit:]
	}
}

func (t *ReliabilityTracker) Stats() ReliabilityStats {
	var s ReliabilityStats
	var abs, pct float64
	for _, o := range t.window {
		s.SampleCount++
		abs += o.absErr
		if o.hasPct {
			s.MAPESampleCount++
			pct += o.pctErr
		}
	}
	if s.SampleCount > 0 {
		s.MAE = abs / float64(s.SampleCount)
	}
	if s.MAPESampleCount > 0 {
		s.MAPE = pct / float64(s.MAPESampleCount)
	}
	return s
}

// nextMonthReliability replays the general head over the most recent
// completed months.
func nextMonthReliability(ds Dataset, h Head) ReliabilityStats {
	t := NewReliabilityTracker(reliabilityWindow)
	samples := ds.General
	if len(ds.Completed) == 0 {
		return t.Stats()
	}
	if len(samples) > nextMonthReplayMonths {
		samples = samples[len(samples)-nextMonthReplayMonths:]
	}
	for _, s := range samples {
		t.Observe(toCents(h.Predict(s.Features), ds.Scale), toCents(s.Target, ds.Scale), ds.Scale)
	}
	return t.Stats()
}

// nowcastReliability replays the current-month head over the checkpoints of
// the most recent completed months.
func nowcastReliability(ds Dataset, h Head) ReliabilityStats {
	t := NewReliabilityTracker(reliabilityWindow)
	if len(ds.Nowcast) == 0 {
		return t.Stats()
	}
	oldest := ds.Nowcast[len(ds.Nowcast)-1].Month.AddMonths(-(nowcastReplayMonths - 1))
	for _, s := range ds.Nowcast {
		if s.Month.Before(oldest) {
			continue
		}
		t.Observe(toCents(h.Predict(s.Features), ds.Scale), toCents(s.Target, ds.Scale), ds.Scale)
	}
	return t.Stats()
}

// toCents de-normalizes a prediction, never below zero.
func toCents(v, scale float64) int64 {
	c := generic.RoundCents(v * scale)
	if c < 0 {
		return 0
	}
	return c
}
