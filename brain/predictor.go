package brain

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/household-engine/generic"
)

// =============================================================================
// PREDICTOR - Lifecycle and evolution driver
// =============================================================================

type Reason string

const (
	ReasonUninitialized Reason = "uninitialized"
	ReasonNoNewData     Reason = "no-new-data"
	ReasonTrained       Reason = "trained"
)

// EvolutionResult is returned by every Evolve call. Forecast fields are
// populated whenever the predictor is initialized, trained or not.
type EvolutionResult struct {
	Reason         Reason    `json:"reason"`
	Snapshot       *Snapshot `json:"snapshot"`
	DidTrain       bool      `json:"didTrain"`
	EpochsRun      int       `json:"epochsRun"`
	SampleCount    int       `json:"sampleCount"`
	MonthsAnalyzed int       `json:"monthsAnalyzed"`

	PredictedExpensesNextMonthCents             int64   `json:"predictedExpensesNextMonthCents"`
	PredictedCurrentMonthRemainingExpensesCents int64   `json:"predictedCurrentMonthRemainingExpensesCents"`
	CurrentMonthNowcastConfidence               float64 `json:"currentMonthNowcastConfidence"`
	CurrentMonthNowcastReady                    bool    `json:"currentMonthNowcastReady"`

	NextMonthReliability ReliabilityStats `json:"nextMonthReliability"`
	NowcastReliability   ReliabilityStats `json:"nowcastReliability"`

	CurrentMonthSpentCents int64     `json:"currentMonthSpentCents"`
	AsOf                   time.Time `json:"asOf"`
}

// ProjectedCurrentMonthExpensesCents is spent-so-far plus the predicted remainder.
func (r EvolutionResult) ProjectedCurrentMonthExpensesCents() int64 {
	return r.CurrentMonthSpentCents + r.PredictedCurrentMonthRemainingExpensesCents
}

// Predictor owns one snapshot. It is not safe for concurrent use; callers
// serialize Evolve calls.
type Predictor struct {
	now      func() time.Time
	loc      *time.Location
	epochs   int
	logger   zerolog.Logger
	snapshot *Snapshot
}

type Option func(*Predictor)

func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// WithLocation sets the zone month boundaries are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(p *Predictor) { p.loc = loc }
}

func WithEpochs(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.epochs = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// NewPredictor returns an uninitialized predictor.
func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{
		now:    time.Now,
		loc:    time.Local,
		epochs: DefaultEpochs,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	return p
}

// Initialize starts from a fresh, untrained snapshot.
func (p *Predictor) Initialize() {
	p.snapshot = newSnapshot(p.now())
}

// Restore resumes from a persisted snapshot. An incompatible snapshot
// (other feature schema, malformed heads) falls back to Initialize.
// Returns true when the snapshot was resumed.
func (p *Predictor) Restore(s *Snapshot) bool {
	if !s.Compatible() {
		p.logger.Debug().Msg("snapshot incompatible, starting fresh")
		p.Initialize()
		return false
	}
	p.snapshot = s.Clone()
	return true
}

// Reset discards the snapshot. The predictor is uninitialized afterwards.
func (p *Predictor) Reset() {
	p.snapshot = nil
}

func (p *Predictor) Initialized() bool { return p.snapshot != nil }

// Snapshot returns a copy of the current snapshot, nil when uninitialized.
func (p *Predictor) Snapshot() *Snapshot {
	return p.snapshot.Clone()
}

// Evolve trains on the transaction history unless nothing changed since the
// last training, then forecasts from the resulting snapshot.
func (p *Predictor) Evolve(txs []generic.TransactionSample, cats []generic.CategoryMeta) EvolutionResult {
	now := p.now()
	if p.snapshot == nil {
		return EvolutionResult{Reason: ReasonUninitialized, AsOf: now}
	}

	ds := BuildDataset(txs, cats, now, p.loc)
	fingerprint := fingerprintAt(txs, cats, now, p.loc)

	result := EvolutionResult{
		Reason:         ReasonNoNewData,
		SampleCount:    len(ds.General),
		MonthsAnalyzed: ds.MonthsAnalyzed,
		AsOf:           now,
	}

	if p.snapshot.DataFingerprint != fingerprint && len(ds.General) > 0 {
		result.EpochsRun = p.snapshot.Head.train(ds.General, p.epochs)
		p.snapshot.CurrentMonthHead.train(ds.Nowcast, p.epochs)
		p.snapshot.DataFingerprint = fingerprint
		p.snapshot.UpdatedAt = generic.PersistedTime(now)
		result.Reason = ReasonTrained
		result.DidTrain = true
	}

	p.forecast(ds, &result)
	result.Snapshot = p.snapshot.Clone()

	p.logger.Debug().
		Str("reason", string(result.Reason)).
		Int("epochs", result.EpochsRun).
		Int("samples", result.SampleCount).
		Int("months", result.MonthsAnalyzed).
		Float64("confidence", result.CurrentMonthNowcastConfidence).
		Bool("ready", result.CurrentMonthNowcastReady).
		Msg("brain evolved")

	return result
}

func (p *Predictor) forecast(ds Dataset, r *EvolutionResult) {
	s := p.snapshot
	r.CurrentMonthSpentCents = ds.Current.ExpenseCents

	if !ds.Empty() {
		remaining := toCents(s.CurrentMonthHead.Predict(ds.CurrentFeatures()), ds.Scale)
		r.PredictedCurrentMonthRemainingExpensesCents = remaining

		projected := ds.Current.ExpenseCents + remaining
		r.PredictedExpensesNextMonthCents = toCents(s.Head.Predict(ds.NextMonthFeatures(projected)), ds.Scale)
	}

	r.CurrentMonthNowcastConfidence = NowcastConfidence(s.CurrentMonthHead)
	r.CurrentMonthNowcastReady = NowcastReady(ds.MonthsAnalyzed, s.CurrentMonthHead, r.CurrentMonthNowcastConfidence)
	r.NextMonthReliability = nextMonthReliability(ds, s.Head)
	r.NowcastReliability = nowcastReliability(ds, s.CurrentMonthHead)
}
