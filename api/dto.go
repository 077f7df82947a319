/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON envelopes for API communication. Engine results
  (brain.EvolutionResult, scenario.Result, scenario.BaselineMetrics) already
  carry their own JSON shape and are embedded as-is; the types here only
  wrap them with request context.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Transactions: TransactionDTO
  Brain:        EvolveResponse, SnapshotResponse, PolicyResponse
  Planning:     BaselineResponse, ScenariosResponse, OverlayResponse
  Demos:        DemoDTO, LoadDemoRequest, LoadDemoResponse

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/scenario.go: ScenarioJSON request body
*/
package api

import (
	"time"

	"github.com/warp/household-engine/brain"
	"github.com/warp/household-engine/generic"
	"github.com/warp/household-engine/scenario"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TransactionDTO represents a recorded transaction in API responses.
type TransactionDTO struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	AmountCents    int64  `json:"amountCents"`
	CategoryID     string `json:"categoryId"`
	SpendingNature string `json:"spendingNature,omitempty"`
	Timestamp      string `json:"timestamp"`
	Month          string `json:"month"`
	IsSuperfluous  bool   `json:"isSuperfluous,omitempty"`
}

// EvolveResponse is returned by an explicit evolution.
type EvolveResponse struct {
	Result       brain.EvolutionResult `json:"result"`
	Policy       brain.AdaptivePolicy  `json:"policy"`
	PolicyStatus brain.LoadStatus      `json:"policyStatus"`
}

// SnapshotResponse exposes the live predictor state.
type SnapshotResponse struct {
	Initialized bool            `json:"initialized"`
	Snapshot    *brain.Snapshot `json:"snapshot"`
}

// PolicyResponse exposes the persisted adaptive policy.
type PolicyResponse struct {
	Policy brain.AdaptivePolicy `json:"policy"`
	Status brain.LoadStatus     `json:"status"`
}

// BaselineResponse is the trailing-window summary of a household.
type BaselineResponse struct {
	Baseline         scenario.BaselineMetrics   `json:"baseline"`
	CategoryAverages []scenario.CategoryAverage `json:"categoryAverages"`
	Calibration      scenario.Calibration       `json:"calibration"`
}

// ScenariosResponse carries every calculated plan plus the signals used.
type ScenariosResponse struct {
	AsOf      time.Time                `json:"asOf"`
	Baseline  scenario.BaselineMetrics `json:"baseline"`
	Overlay   *scenario.OverlaySignal  `json:"overlay"`
	Assist    *scenario.BrainAssist    `json:"assist"`
	Goal      *scenario.Goal           `json:"goal,omitempty"`
	Scenarios []scenario.Result        `json:"scenarios"`
}

// OverlayResponse explains how the realtime overlay was derived.
type OverlayResponse struct {
	Facts    scenario.CurrentMonthFacts `json:"facts"`
	Forecast *scenario.NowcastForecast  `json:"forecast"`
	Policy   scenario.BrainSignal       `json:"policy"`
	Signal   *scenario.OverlaySignal    `json:"signal"`
	Enabled  bool                       `json:"enabled"`

	ProjectedCurrentMonthExpensesCents int64 `json:"projectedCurrentMonthExpensesCents"`
}

// DemoDTO represents a demo household.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadDemoRequest selects a demo household to load.
type LoadDemoRequest struct {
	DemoID string `json:"demoId"`
}

// LoadDemoResponse summarizes what a demo load produced.
type LoadDemoResponse struct {
	Demo         DemoDTO               `json:"demo"`
	Transactions int                   `json:"transactions"`
	Categories   int                   `json:"categories"`
	Result       brain.EvolutionResult `json:"result"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(tx generic.TransactionSample, idx generic.CategoryIndex, loc *time.Location) TransactionDTO {
	dto := TransactionDTO{
		ID:            tx.ID,
		Type:          string(tx.Type),
		AmountCents:   tx.AmountCents,
		CategoryID:    tx.CategoryID,
		Timestamp:     tx.Timestamp.In(loc).Format(time.RFC3339),
		Month:         generic.MonthOf(tx.Timestamp, loc).String(),
		IsSuperfluous: tx.IsSuperfluous,
	}
	if tx.Type == generic.TxExpense {
		dto.SpendingNature = string(idx.NatureOf(tx))
	}
	return dto
}

func toTransactionDTOs(txs []generic.TransactionSample, cats []generic.CategoryMeta, loc *time.Location) []TransactionDTO {
	idx := generic.IndexCategories(cats)
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx, idx, loc)
	}
	return dtos
}
