package brain

import (
	"math"
	"time"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// MODEL - Two linear heads trained by online gradient descent
// =============================================================================

const (
	SnapshotVersion = 1

	DefaultEpochs       = 12
	DefaultLearningRate = 0.05

	// learning rate for epoch e is lr / (1 + lrDecay*e)
	lrDecay = 0.1

	// weight of the previous value in the loss EMAs
	emaDecay = 0.7
)

// Head is one linear model: prediction = weights . features + bias.
type Head struct {
	Weights        []float64 `json:"weights"`
	Bias           float64   `json:"bias"`
	LearningRate   float64   `json:"learningRate"`
	TrainedSamples int64     `json:"trainedSamples"`
	LossEma        float64   `json:"lossEma"`
	AbsErrorEma    float64   `json:"absErrorEma"`
}

func newHead() Head {
	return Head{
		Weights:      make([]float64, FeatureCount),
		LearningRate: DefaultLearningRate,
	}
}

func (h Head) clone() Head {
	c := h
	c.Weights = append([]float64(nil), h.Weights...)
	return c
}

// Predict returns the normalized prediction for x.
func (h Head) Predict(x Vector) float64 {
	y := h.Bias
	for i := 0; i < FeatureCount && i < len(h.Weights); i++ {
		y += h.Weights[i] * x[i]
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	return y
}

// valid reports whether a persisted head has the expected shape and no
// non-finite values.
func (h Head) valid() bool {
	if len(h.Weights) != FeatureCount {
		return false
	}
	for _, w := range append([]float64{h.Bias, h.LearningRate, h.LossEma, h.AbsErrorEma}, h.Weights...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
	}
	return h.TrainedSamples >= 0 && h.LearningRate > 0
}

// train runs epochs of SGD over samples in order and returns the number of
// epochs run. Each update is w += lr * err * x with err = target - prediction.
func (h *Head) train(samples []Sample, epochs int) int {
	if len(samples) == 0 || epochs <= 0 {
		return 0
	}
	for e := 0; e < epochs; e++ {
		lr := h.LearningRate / (1 + lrDecay*float64(e))
		var sq, abs float64
		for _, s := range samples {
			err := s.Target - h.Predict(s.Features)

			// Keep the step bounded for large feature vectors.
			var norm float64
			for _, x := range s.Features {
				norm += x * x
			}
			step := lr / math.Max(1, norm/4)

			for i := range h.Weights {
				h.Weights[i] += step * err * s.Features[i]
			}
			h.Bias += step * err

			sq += err * err
			abs += math.Abs(err)
		}
		n := float64(len(samples))
		if h.TrainedSamples == 0 && e == 0 {
			h.LossEma = sq / n
			h.AbsErrorEma = abs / n
		} else {
			h.LossEma = emaDecay*h.LossEma + (1-emaDecay)*sq/n
			h.AbsErrorEma = emaDecay*h.AbsErrorEma + (1-emaDecay)*abs/n
		}
	}
	h.TrainedSamples += int64(len(samples) * epochs)
	return epochs
}

// =============================================================================
// SNAPSHOT - Persisted predictor state
// =============================================================================

// Snapshot is the persisted state of a predictor. The general head is
// embedded so its fields sit at the top level of the JSON document.
type Snapshot struct {
	Version              int `json:"version"`
	FeatureSchemaVersion int `json:"featureSchemaVersion"`

	Head

	CurrentMonthHead Head      `json:"currentMonthHead"`
	DataFingerprint  string    `json:"dataFingerprint"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Version:              SnapshotVersion,
		FeatureSchemaVersion: FeatureSchemaVersion,
		Head:                 newHead(),
		CurrentMonthHead:     newHead(),
		UpdatedAt:            generic.PersistedTime(now),
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Head = s.Head.clone()
	c.CurrentMonthHead = s.CurrentMonthHead.clone()
	return &c
}

// Compatible reports whether a persisted snapshot can be resumed.
func (s *Snapshot) Compatible() bool {
	return s != nil &&
		s.FeatureSchemaVersion == FeatureSchemaVersion &&
		s.Head.valid() &&
		s.CurrentMonthHead.valid()
}

// =============================================================================
// CONFIDENCE
// =============================================================================

const (
	// trained samples at which a head counts as mature
	maturitySamples = 100

	// normalized absolute error at which the error score reaches zero
	errorCeiling = 0.6

	ReadyMinMonths         = 2
	ReadyMinTrainedSamples = 16
	ReadyMinConfidence     = 0.55
)

// Maturity is trainedSamples over the maturity target, clamped to [0, 1].
func Maturity(h Head) float64 {
	return generic.Clamp01(float64(h.TrainedSamples) / maturitySamples)
}

// NowcastConfidence scores the current-month head from its maturity and
// its recent absolute error. An untrained head earns no error credit.
func NowcastConfidence(h Head) float64 {
	var errorScore float64
	if h.TrainedSamples > 0 {
		errorScore = 1 - math.Min(h.AbsErrorEma/errorCeiling, 1)
	}
	return generic.Clamp01(0.25 + 0.45*Maturity(h) + 0.30*errorScore)
}

// NowcastReady applies the readiness thresholds.
func NowcastReady(monthsAnalyzed int, h Head, confidence float64) bool {
	return monthsAnalyzed >= ReadyMinMonths &&
		h.TrainedSamples >= ReadyMinTrainedSamples &&
		confidence >= ReadyMinConfidence
}
