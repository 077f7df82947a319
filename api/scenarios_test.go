/*
scenarios_test.go - HTTP tests for the planning endpoints

Tests run against the demo households at a fixed clock:
- Baseline metrics and window validation
- Generated scenarios with a savings goal
- Manual plans and the essential guardrail
- Realtime overlay sources and cache invalidation
*/
package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/brain"
	"github.com/warp/household-engine/scenario"
)

// =============================================================================
// PLANNING
// =============================================================================

func TestGetBaseline(t *testing.T) {
	_, router := setupTestHandler(t)
	loadDemo(t, router, "dense")

	rec := do(t, router, http.MethodGet, "/api/baseline?window=6", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[BaselineResponse](t, rec)

	assert.Equal(t, int64(420000), resp.Baseline.AverageMonthlyIncome)
	assert.Equal(t, int64(285399), resp.Baseline.AverageMonthlyExpenses)
	assert.Len(t, resp.CategoryAverages, 7)
	assert.Greater(t, resp.Calibration.StabilityFactor, 0.9)

	rec = do(t, router, http.MethodGet, "/api/baseline?window=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/baseline?window=six", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListScenarios_WithGoal(t *testing.T) {
	// GIVEN: The dense household
	_, router := setupTestHandler(t)
	loadDemo(t, router, "dense")

	// WHEN: Asking for plans toward 5000.00 with 1000.00 already saved
	rec := do(t, router, http.MethodGet, "/api/scenarios?window=6&goal=500000&saved=100000", "")

	// THEN: The three generated plans, each projected on the remainder
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ScenariosResponse](t, rec)
	require.Len(t, resp.Scenarios, 3)
	require.NotNil(t, resp.Goal)
	assert.Equal(t, int64(400000), resp.Goal.TargetCents)

	keys := []string{}
	for _, s := range resp.Scenarios {
		keys = append(keys, s.Key)
		require.NotNil(t, s.Projection)
		assert.Equal(t, int64(400000), s.Projection.TargetCents)
		assert.True(t, s.Projection.CanReach)
		assert.LessOrEqual(t, s.Projection.MinMonths, s.Projection.LikelyMonths)
		assert.LessOrEqual(t, s.Projection.LikelyMonths, s.Projection.MaxMonths)
		assert.Contains(t, []scenario.PlanBasis{scenario.BasisHistorical, scenario.BasisBrainOverlay}, s.PlanBasis)
	}
	assert.Equal(t, []string{"baseline", "balanced", "aggressive"}, keys)

	// Aggressive never leaves less margin than balanced
	assert.GreaterOrEqual(t, resp.Scenarios[2].Quota.BaseMonthlyMarginCents, resp.Scenarios[1].Quota.BaseMonthlyMarginCents)

	rec = do(t, router, http.MethodGet, "/api/scenarios?goal=-5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateManualScenario(t *testing.T) {
	_, router := setupTestHandler(t)
	loadDemo(t, router, "dense")

	// WHEN: Dropping dining out entirely and trying to cut rent
	rec := do(t, router, http.MethodPost, "/api/scenarios/manual",
		`{"label":"No restaurants","overrides":{"dining":100,"rent":100}}`)

	// THEN: Only the dining average (195.00 a month) is removed
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[scenario.Result](t, rec)
	assert.Equal(t, scenario.TypeManual, result.Config.Type)
	assert.Equal(t, "No restaurants", result.Config.Label)
	assert.Equal(t, int64(285399-19500), result.SimulatedExpenses)
	assert.Nil(t, result.Projection)

	rec = do(t, router, http.MethodPost, "/api/scenarios/manual", `{"type":"balanced"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOverlay_SparseUsesFallback(t *testing.T) {
	// GIVEN: A household in its first month, day 20
	_, router := setupTestHandler(t)
	loadDemo(t, router, "sparse")

	// WHEN: Inspecting the overlay
	rec := do(t, router, http.MethodGet, "/api/overlay", "")

	// THEN: The run-rate forecast drives a fallback overlay
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[OverlayResponse](t, rec)
	assert.Equal(t, int64(19000), resp.Facts.SpentCents)
	assert.Equal(t, 20, resp.Facts.DayOfMonth)
	require.NotNil(t, resp.Forecast)
	assert.Equal(t, scenario.SourceFallback, resp.Forecast.Source)
	require.NotNil(t, resp.Signal)
	assert.Equal(t, scenario.SourceFallback, resp.Signal.Source)
	assert.Equal(t, 2, resp.Signal.ShortTermMonths)
	assert.Equal(t, 19000+resp.Forecast.PredictedCurrentMonthRemainingExpensesCents, resp.ProjectedCurrentMonthExpensesCents)
}

func TestGetOverlay_DenseProjectsFromPredictor(t *testing.T) {
	// GIVEN: A household the predictor is ready for
	_, router := setupTestHandler(t)
	loaded := loadDemo(t, router, "dense")
	require.True(t, loaded.Result.CurrentMonthNowcastReady)

	// WHEN: Inspecting the overlay
	rec := do(t, router, http.MethodGet, "/api/overlay", "")

	// THEN: The month total is spent-so-far plus the predicted remainder
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[OverlayResponse](t, rec)
	require.NotNil(t, resp.Forecast)
	assert.Equal(t, scenario.SourceBrain, resp.Forecast.Source)
	assert.Equal(t, loaded.Result.ProjectedCurrentMonthExpensesCents(), resp.ProjectedCurrentMonthExpensesCents)
	assert.GreaterOrEqual(t, resp.ProjectedCurrentMonthExpensesCents, resp.Facts.SpentCents)
}

func TestPlan_ReevolvesAfterMonthRollover(t *testing.T) {
	// GIVEN: A cached evolution from June and no scheduler
	now := testNow
	opts := testOptions()
	opts.Now = func() time.Time { return now }
	h := NewHandler(newTestStore(t), opts)
	router := NewRouter(h)
	loadDemo(t, router, "dense")
	require.NotNil(t, h.last)
	require.Equal(t, testNow, h.last.AsOf)

	// WHEN: The clock moves into July and a plan is requested
	now = time.Date(2026, time.July, 2, 8, 0, 0, 0, time.UTC)
	rec := do(t, router, http.MethodGet, "/api/overlay", "")

	// THEN: The plan is built from a fresh evolution
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.last)
	assert.Equal(t, now, h.last.AsOf)
	assert.Equal(t, brain.ReasonTrained, h.last.Reason)
	assert.Equal(t, 2, decode[OverlayResponse](t, rec).Facts.DayOfMonth)
}

func TestGetOverlay_Disabled(t *testing.T) {
	opts := testOptions()
	opts.RealtimeOverlay = false
	h := NewHandler(newTestStore(t), opts)
	router := NewRouter(h)
	loadDemo(t, router, "sparse")

	rec := do(t, router, http.MethodGet, "/api/overlay", "")
	resp := decode[OverlayResponse](t, rec)
	assert.False(t, resp.Enabled)
	assert.Nil(t, resp.Signal)
}

func TestWritesInvalidateCachedEvolution(t *testing.T) {
	h, router := setupTestHandler(t)
	loadDemo(t, router, "sparse")
	require.NotNil(t, h.last)

	rec := do(t, router, http.MethodPost, "/api/transactions",
		`{"type":"expense","amountCents":2500,"categoryId":"dining","timestamp":"2026-06-19T18:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, h.last)

	// The next planning request evolves on the new data
	rec = do(t, router, http.MethodGet, "/api/overlay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(21500), decode[OverlayResponse](t, rec).Facts.SpentCents)
	require.NotNil(t, h.last)
	assert.Equal(t, brain.ReasonTrained, h.last.Reason)
}
