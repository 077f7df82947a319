/*
scenarios.go - Savings plan handlers

PURPOSE:
  Turns the stored history plus the latest evolution into calculated
  savings scenarios. Every planning request resolves the same context:

  1. Trailing baseline and category averages over ?window= (3, 6, 12)
  2. Current-month facts (spent so far, day of month)
  3. A nowcast forecast: the predictor's when ready, else the run rate
  4. The realtime overlay derived under the tuned policy thresholds
  5. The brain assist used to blend the goal projection

QUERY PARAMETERS:
  window  Trailing months, default from config
  goal    Savings target in cents (enables the projection)
  saved   Already saved in cents, subtracted from goal

USAGE VIA API:
  GET  /api/scenarios?window=6&goal=500000&saved=120000
  POST /api/scenarios/manual?goal=500000
  {"savings": {"superfluous": 50}, "overrides": {"dining": 30}}

SEE ALSO:
  - scenario/calculator.go: Calculate
  - factory/scenario.go: Manual scenario JSON
*/
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/warp/household-engine/brain"
	"github.com/warp/household-engine/factory"
	"github.com/warp/household-engine/generic"
	"github.com/warp/household-engine/scenario"
)

// planningContext is everything a scenario calculation needs.
type planningContext struct {
	now  time.Time
	txs  []generic.TransactionSample
	cats []generic.CategoryMeta

	baseline scenario.BaselineMetrics
	averages []scenario.CategoryAverage
	facts    scenario.CurrentMonthFacts
	forecast *scenario.NowcastForecast
	signal   scenario.BrainSignal
	overlay  *scenario.OverlaySignal
	assist   *scenario.BrainAssist

	projected int64
}

func (pc planningContext) input(cfg scenario.Config, goal *scenario.Goal) scenario.Input {
	return scenario.Input{
		Baseline:         pc.baseline,
		CategoryAverages: pc.averages,
		Config:           cfg,
		Assist:           pc.assist,
		Overlay:          pc.overlay,
		Goal:             goal,
	}
}

// plan resolves the planning context, evolving first when the cached
// result is missing or stale.
func (h *Handler) plan(ctx context.Context, window int) (planningContext, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now, loc := h.opts.Now(), h.opts.Location
	if h.last == nil || generic.MonthOf(h.last.AsOf, loc) != generic.MonthOf(now, loc) {
		if _, err := h.evolveLocked(ctx); err != nil {
			return planningContext{}, err
		}
	}
	result := *h.last

	policy, _, err := h.Policies.Load(ctx)
	if err != nil {
		return planningContext{}, err
	}
	txs, cats, err := h.loadHousehold(ctx)
	if err != nil {
		return planningContext{}, err
	}

	pc := planningContext{now: now, txs: txs, cats: cats}
	pc.baseline = scenario.CalculateBaselineMetrics(txs, cats, window, now, loc)
	pc.averages = scenario.CalculateCategoryAverages(txs, cats, window, now, loc)
	pc.facts = scenario.CurrentMonth(txs, cats, now, loc)
	pc.forecast = forecastFrom(result, pc.facts)
	pc.projected = projectedTotal(result, pc.forecast, pc.facts)
	pc.signal = scenario.BrainSignal{
		MinNowcastConfidence: policy.MinNowcastConfidence,
		OutlierMinConfidence: policy.OutlierMinConfidence,
		OvershootDeltaCents:  policy.OvershootDeltaCents,
	}
	pc.overlay = scenario.DeriveRealtimeOverlaySignal(h.opts.RealtimeOverlay, pc.forecast, pc.facts, pc.signal, pc.baseline.AverageMonthlyExpenses)
	pc.assist = &scenario.BrainAssist{
		Ready:                           result.CurrentMonthNowcastReady,
		Confidence:                      result.CurrentMonthNowcastConfidence,
		PredictedExpensesNextMonthCents: result.PredictedExpensesNextMonthCents,
		PrimaryBlendThreshold:           policy.PrimaryBlendThreshold,
	}
	return pc, nil
}

// forecastFrom prefers the predictor's nowcast and falls back to the
// current month's run rate.
func forecastFrom(r brain.EvolutionResult, facts scenario.CurrentMonthFacts) *scenario.NowcastForecast {
	if r.CurrentMonthNowcastReady {
		return &scenario.NowcastForecast{
			Source:     scenario.SourceBrain,
			Ready:      true,
			Confidence: r.CurrentMonthNowcastConfidence,
			PredictedCurrentMonthRemainingExpensesCents: r.PredictedCurrentMonthRemainingExpensesCents,
			PredictedExpensesNextMonthCents:             r.PredictedExpensesNextMonthCents,
		}
	}
	return scenario.FallbackForecast(facts)
}

// projectedTotal is this month's expected expense total for the chosen forecast.
func projectedTotal(r brain.EvolutionResult, f *scenario.NowcastForecast, facts scenario.CurrentMonthFacts) int64 {
	if f.Source == scenario.SourceBrain {
		return r.ProjectedCurrentMonthExpensesCents()
	}
	return facts.SpentCents + f.PredictedCurrentMonthRemainingExpensesCents
}

// =============================================================================
// PLANNING HANDLERS
// =============================================================================

// GetBaseline returns trailing metrics and category averages.
func (h *Handler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	txs, cats, err := h.loadHousehold(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load household", err)
		return
	}

	now, loc := h.opts.Now(), h.opts.Location
	baseline := scenario.CalculateBaselineMetrics(txs, cats, window, now, loc)
	averages := scenario.CalculateCategoryAverages(txs, cats, window, now, loc)
	if averages == nil {
		averages = []scenario.CategoryAverage{}
	}

	writeJSON(w, http.StatusOK, BaselineResponse{
		Baseline:         baseline,
		CategoryAverages: averages,
		Calibration:      scenario.Calibrate(baseline),
	})
}

// ListScenarios calculates the generated scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	pc, err := h.plan(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to prepare plan", err)
		return
	}
	goal, err := goalParam(r, pc.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid goal", err)
		return
	}

	configs := scenario.GenerateScenarios(pc.baseline, pc.cats)
	results := make([]scenario.Result, len(configs))
	for i, cfg := range configs {
		results[i] = scenario.Calculate(pc.input(cfg, goal))
	}

	writeJSON(w, http.StatusOK, ScenariosResponse{
		AsOf:      pc.now,
		Baseline:  pc.baseline,
		Overlay:   pc.overlay,
		Assist:    pc.assist,
		Goal:      goal,
		Scenarios: results,
	})
}

// CalculateManualScenario calculates a user-defined plan.
func (h *Handler) CalculateManualScenario(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pc, err := h.plan(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to prepare plan", err)
		return
	}
	goal, err := goalParam(r, pc.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid goal", err)
		return
	}

	cfg, err := factory.NewScenarioFactory(pc.cats).ParseScenario(string(body))
	if err != nil {
		writeError(w, statusFor(err), "Invalid scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, scenario.Calculate(pc.input(cfg, goal)))
}

// GetOverlay explains the current realtime overlay.
func (h *Handler) GetOverlay(w http.ResponseWriter, r *http.Request) {
	pc, err := h.plan(r.Context(), h.opts.WindowMonths)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to prepare plan", err)
		return
	}

	writeJSON(w, http.StatusOK, OverlayResponse{
		Facts:    pc.facts,
		Forecast: pc.forecast,
		Policy:   pc.signal,
		Signal:   pc.overlay,
		Enabled:  h.opts.RealtimeOverlay,

		ProjectedCurrentMonthExpensesCents: pc.projected,
	})
}

// =============================================================================
// QUERY PARSING
// =============================================================================

func (h *Handler) windowParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return h.opts.WindowMonths, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", generic.ErrInvalidWindow, raw)
	}
	if err := scenario.ValidateWindow(n); err != nil {
		return 0, err
	}
	return n, nil
}

// goalParam returns nil when no goal was requested. The projection target
// is what remains after the amount already saved.
func goalParam(r *http.Request, now time.Time) (*scenario.Goal, error) {
	q := r.URL.Query()
	if q.Get("goal") == "" {
		return nil, nil
	}
	target, err := centsParam(q.Get("goal"))
	if err != nil {
		return nil, err
	}
	var saved int64
	if raw := q.Get("saved"); raw != "" {
		if saved, err = centsParam(raw); err != nil {
			return nil, err
		}
	}
	return &scenario.Goal{TargetCents: max(target-saved, 0), Start: now}, nil
}

func centsParam(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative amount in cents", generic.ErrInvalidScenario, raw)
	}
	return v, nil
}
