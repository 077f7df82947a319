/*
policy.go - Adaptive confidence policy

PURPOSE:
  Decides how much the predictor is trusted. The policy holds the thresholds
  the planner consults (minimum nowcast confidence, outlier confidence, blend
  threshold, overshoot tolerance) and retunes them after every evolution from
  how well the current-month head has been doing.

KEY CONCEPTS:
  - Quality signal: One scalar in [0, 1] from nowcast MAPE, MAE, confidence
  - Rolling quality: EMA of the quality signal
  - Strictness: 1 - rolling quality. Low quality means stricter thresholds
  - Maturity: A mature current-month head earns slightly looser thresholds

GUARDS:
  1. Stability: fewer than 4 reliability samples never moves a threshold
  2. Rollback: a signal more than 0.12 below rolling quality tightens every
     threshold immediately instead of waiting for interpolation
  3. Gap: outlier confidence stays at least 0.08 above nowcast confidence

AdaptPolicy is pure: same input, same output.

SEE ALSO:
  - repository.go: Load-time normalization of persisted policies
  - scenario/overlay.go: Consumes the thresholds
*/
package brain

import (
	"math"
	"time"

	"github.com/warp/household-engine/generic"
)

const PolicyVersion = 1

// Bounds of every tunable field.
const (
	MinNowcastConfidenceFloor   = 0.66
	MinNowcastConfidenceCeiling = 0.90

	OutlierMinConfidenceFloor   = 0.84
	OutlierMinConfidenceCeiling = 0.97

	PrimaryBlendThresholdFloor   = 0.55
	PrimaryBlendThresholdCeiling = 0.78

	OvershootDeltaFloorCents   int64 = 20000
	OvershootDeltaCeilingCents int64 = 70000

	// outlier confidence is always at least this far above nowcast confidence
	ConfidenceGap = 0.08
)

const (
	stabilityMinSamples = 4
	rollbackDrop        = 0.12
	rollingWeight       = 0.2

	// rate = baseRate + rateSpan * min(samples/rateSamples, 1)
	baseRate    = 0.14
	rateSpan    = 0.20
	rateSamples = 24
)

// AdaptivePolicy is the persisted, self-tuning trust policy.
type AdaptivePolicy struct {
	Version               int       `json:"version"`
	MinNowcastConfidence  float64   `json:"minNowcastConfidence"`
	OutlierMinConfidence  float64   `json:"outlierMinConfidence"`
	PrimaryBlendThreshold float64   `json:"primaryBlendThreshold"`
	OvershootDeltaCents   int64     `json:"overshootDeltaCents"`
	RollingQuality        float64   `json:"rollingQuality"`
	Steps                 int       `json:"steps"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func DefaultAdaptivePolicy() AdaptivePolicy {
	return AdaptivePolicy{
		Version:               PolicyVersion,
		MinNowcastConfidence:  0.74,
		OutlierMinConfidence:  0.88,
		PrimaryBlendThreshold: 0.64,
		OvershootDeltaCents:   35000,
		RollingQuality:        0.5,
	}
}

// NormalizeAdaptivePolicy clamps every field into its bounds and restores
// the confidence gap. Non-finite values take their default.
func NormalizeAdaptivePolicy(p AdaptivePolicy) AdaptivePolicy {
	d := DefaultAdaptivePolicy()

	p.Version = PolicyVersion
	p.MinNowcastConfidence = clampOr(p.MinNowcastConfidence, MinNowcastConfidenceFloor, MinNowcastConfidenceCeiling, d.MinNowcastConfidence)
	p.OutlierMinConfidence = clampOr(p.OutlierMinConfidence, OutlierMinConfidenceFloor, OutlierMinConfidenceCeiling, d.OutlierMinConfidence)
	p.PrimaryBlendThreshold = clampOr(p.PrimaryBlendThreshold, PrimaryBlendThresholdFloor, PrimaryBlendThresholdCeiling, d.PrimaryBlendThreshold)
	p.RollingQuality = clampOr(p.RollingQuality, 0, 1, d.RollingQuality)

	if p.OvershootDeltaCents < OvershootDeltaFloorCents {
		p.OvershootDeltaCents = OvershootDeltaFloorCents
	}
	if p.OvershootDeltaCents > OvershootDeltaCeilingCents {
		p.OvershootDeltaCents = OvershootDeltaCeilingCents
	}
	if p.Steps < 0 {
		p.Steps = 0
	}

	if p.OutlierMinConfidence < p.MinNowcastConfidence+ConfidenceGap {
		p.OutlierMinConfidence = p.MinNowcastConfidence + ConfidenceGap
	}
	if p.OutlierMinConfidence > OutlierMinConfidenceCeiling {
		p.OutlierMinConfidence = OutlierMinConfidenceCeiling
		p.MinNowcastConfidence = OutlierMinConfidenceCeiling - ConfidenceGap
	}
	return p
}

func clampOr(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return generic.Clamp(v, lo, hi)
}

// QualitySignal scores an evolution result in [0, 1]. A nil result scores
// like an unconfident one.
func QualitySignal(r *EvolutionResult) float64 {
	if r == nil {
		return 0.4
	}
	rel := r.NowcastReliability
	conf := generic.Clamp01(r.CurrentMonthNowcastConfidence)
	if rel.SampleCount == 0 {
		return generic.Clamp01(0.4 + conf*0.2)
	}

	mapeScore := 1 - math.Min(nonNegative(rel.MAPE)/0.65, 1)
	maeScore := 1 - math.Min(nonNegative(rel.MAE)/0.5, 1)
	signal := 0.45*mapeScore + 0.30*maeScore + 0.25*conf
	if r.CurrentMonthNowcastReady {
		signal += 0.08
	}
	return generic.Clamp01(signal)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// AdaptPolicy returns the policy retuned after one evolution.
func AdaptPolicy(policy AdaptivePolicy, r *EvolutionResult, now time.Time) AdaptivePolicy {
	prev := NormalizeAdaptivePolicy(policy)
	next := prev

	signal := QualitySignal(r)
	if prev.Steps == 0 {
		next.RollingQuality = signal
	} else {
		next.RollingQuality = (1-rollingWeight)*prev.RollingQuality + rollingWeight*signal
	}
	next.RollingQuality = generic.Clamp01(next.RollingQuality)
	next.UpdatedAt = now

	var samples int
	var maturity float64
	if r != nil {
		samples = r.NowcastReliability.SampleCount
		if r.Snapshot != nil {
			maturity = Maturity(r.Snapshot.CurrentMonthHead)
		}
	}
	if samples < stabilityMinSamples {
		return next
	}

	strictness := 1 - next.RollingQuality
	desiredMin := generic.Clamp(0.66+0.24*strictness-0.04*maturity, MinNowcastConfidenceFloor, MinNowcastConfidenceCeiling)
	desiredOutlier := generic.Clamp(math.Max(0.84+0.13*strictness-0.03*maturity, desiredMin+ConfidenceGap), OutlierMinConfidenceFloor, OutlierMinConfidenceCeiling)
	desiredBlend := generic.Clamp(0.55+0.23*strictness-0.03*maturity, PrimaryBlendThresholdFloor, PrimaryBlendThresholdCeiling)
	desiredOvershoot := generic.Clamp(20000+50000*strictness-5000*maturity, float64(OvershootDeltaFloorCents), float64(OvershootDeltaCeilingCents))

	rate := baseRate + rateSpan*math.Min(float64(samples)/rateSamples, 1)
	next.MinNowcastConfidence = generic.Lerp(prev.MinNowcastConfidence, desiredMin, rate)
	next.OutlierMinConfidence = generic.Lerp(prev.OutlierMinConfidence, desiredOutlier, rate)
	next.PrimaryBlendThreshold = generic.Lerp(prev.PrimaryBlendThreshold, desiredBlend, rate)
	next.OvershootDeltaCents = generic.RoundCents(generic.Lerp(float64(prev.OvershootDeltaCents), desiredOvershoot, rate))

	if signal < prev.RollingQuality-rollbackDrop {
		next.MinNowcastConfidence = math.Max(next.MinNowcastConfidence, prev.MinNowcastConfidence+0.03)
		next.OutlierMinConfidence = math.Max(next.OutlierMinConfidence, prev.OutlierMinConfidence+0.02)
		next.PrimaryBlendThreshold = math.Max(next.PrimaryBlendThreshold, prev.PrimaryBlendThreshold+0.03)
		next.OvershootDeltaCents = max(next.OvershootDeltaCents, prev.OvershootDeltaCents+5000)
	}

	steps := prev.Steps + 1
	next = NormalizeAdaptivePolicy(next)
	next.Steps = steps
	next.UpdatedAt = now
	return next
}
