/*
handlers.go - HTTP API handlers for the household engine

PURPOSE:
  Exposes the forecasting engine and the savings planner via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  brain and scenario packages.

ENDPOINTS:
  Transactions:
    GET    /api/transactions           List recorded transactions
    POST   /api/transactions           Record one transaction or an array

  Categories:
    GET    /api/categories             List categories
    POST   /api/categories             Create or replace one or many

  Brain:
    POST   /api/brain/evolve           Evolve now and adapt the policy
    GET    /api/brain/snapshot         Live predictor snapshot
    POST   /api/brain/reset            Forget the model and the policy
    GET    /api/brain/policy           Persisted adaptive policy

  Planning:
    GET    /api/baseline?window=6                       Trailing metrics
    GET    /api/scenarios?window=6&goal=500000&saved=0  Generated plans
    POST   /api/scenarios/manual?goal=500000            Manual/custom plan
    GET    /api/overlay                                 Realtime overlay

  Demos:
    GET    /api/demos                  List demo households
    POST   /api/demos/load             Load a demo household

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Transactions, categories and blobs
  - Predictor: The one in-memory predictor instance
  - Snapshots/Policies: Blob repositories for the predictor state
  - last: The latest evolution result, reused by the planning endpoints

CONCURRENCY:
  The predictor is not reentrant. Every call into it goes through mu, so
  HTTP requests and the scheduler never evolve concurrently.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid window, scenario or transaction
  - 404: Unknown demo
  - 409: Duplicate transaction ID
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Planning handlers
  - demos.go: Demo household loaders
  - scheduler.go: Debounced background evolution
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/household-engine/brain"
	"github.com/warp/household-engine/generic"
	"github.com/warp/household-engine/scenario"
	"github.com/warp/household-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler.
type Options struct {
	WindowMonths    int
	RealtimeOverlay bool
	Location        *time.Location
	Epochs          int
	Now             func() time.Time
	Logger          zerolog.Logger
}

// DefaultOptions returns options matching config.DefaultConfig.
func DefaultOptions() Options {
	return Options{
		WindowMonths:    scenario.DefaultWindow,
		RealtimeOverlay: true,
		Location:        time.Local,
		Epochs:          brain.DefaultEpochs,
		Now:             time.Now,
		Logger:          zerolog.Nop(),
	}
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Predictor *brain.Predictor
	Snapshots *brain.SnapshotRepository
	Policies  *brain.PolicyRepository

	opts   Options
	logger zerolog.Logger

	mu          sync.Mutex
	last        *brain.EvolutionResult
	currentDemo string
	scheduler   *EvolutionScheduler
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.WindowMonths == 0 {
		opts.WindowMonths = scenario.DefaultWindow
	}
	if opts.Epochs <= 0 {
		opts.Epochs = brain.DefaultEpochs
	}

	return &Handler{
		Store: store,
		Predictor: brain.NewPredictor(
			brain.WithClock(opts.Now),
			brain.WithLocation(opts.Location),
			brain.WithEpochs(opts.Epochs),
			brain.WithLogger(opts.Logger),
		),
		Snapshots: brain.NewSnapshotRepository(store),
		Policies:  brain.NewPolicyRepository(store),
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "api").Logger(),
	}
}

// AttachScheduler makes writes trigger a debounced evolution.
func (h *Handler) AttachScheduler(s *EvolutionScheduler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduler = s
}

// Bootstrap restores the persisted predictor snapshot, or initializes a
// fresh predictor when none is usable.
func (h *Handler) Bootstrap(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bootstrapLocked(ctx)
}

func (h *Handler) bootstrapLocked(ctx context.Context) error {
	snap, status, err := h.Snapshots.Load(ctx)
	if err != nil {
		h.Predictor.Initialize()
		return fmt.Errorf("bootstrap predictor: %w", err)
	}

	restored := status == brain.LoadOK && h.Predictor.Restore(snap)
	if !restored {
		h.Predictor.Initialize()
	}
	h.logger.Info().
		Str("snapshot", string(status)).
		Bool("restored", restored).
		Msg("predictor ready")
	return nil
}

// Evolve feeds the stored history to the predictor, adapts the policy when
// the model trained, and persists both.
func (h *Handler) Evolve(ctx context.Context) (EvolveResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.evolveLocked(ctx)
}

func (h *Handler) evolveLocked(ctx context.Context) (EvolveResponse, error) {
	if !h.Predictor.Initialized() {
		if err := h.bootstrapLocked(ctx); err != nil {
			return EvolveResponse{}, err
		}
	}

	txs, cats, err := h.loadHousehold(ctx)
	if err != nil {
		return EvolveResponse{}, err
	}

	result := h.Predictor.Evolve(txs, cats)

	policy, status, err := h.Policies.Load(ctx)
	if err != nil {
		return EvolveResponse{}, err
	}
	if status == brain.LoadCorrupt {
		h.logger.Warn().Msg("adaptive policy was corrupt, using defaults")
	}
	if result.DidTrain {
		policy = brain.AdaptPolicy(policy, &result, generic.PersistedTime(h.opts.Now()))
		if err := h.Policies.Save(ctx, policy); err != nil {
			return EvolveResponse{}, err
		}
	}
	if err := h.Snapshots.Save(ctx, result.Snapshot); err != nil {
		return EvolveResponse{}, err
	}

	h.last = &result
	h.logger.Debug().
		Str("reason", string(result.Reason)).
		Bool("trained", result.DidTrain).
		Int("months", result.MonthsAnalyzed).
		Float64("confidence", result.CurrentMonthNowcastConfidence).
		Int("policy_steps", policy.Steps).
		Msg("evolved")

	return EvolveResponse{Result: result, Policy: policy, PolicyStatus: status}, nil
}

func (h *Handler) loadHousehold(ctx context.Context) ([]generic.TransactionSample, []generic.CategoryMeta, error) {
	txs, err := h.Store.ListTransactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	cats, err := h.Store.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	return txs, cats, nil
}

// dataChanged drops the cached evolution and schedules a new one.
func (h *Handler) dataChanged() {
	h.mu.Lock()
	h.last = nil
	s := h.scheduler
	h.mu.Unlock()

	if s != nil {
		s.Trigger()
	}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all transactions, oldest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, cats, err := h.loadHousehold(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(txs, cats, h.opts.Location))
}

// CreateTransactions records one transaction or an array of them. Missing
// IDs are assigned, a missing timestamp means now.
func (h *Handler) CreateTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := decodeOneOrMany[generic.TransactionSample](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	now := h.opts.Now()
	for i := range txs {
		if txs[i].ID == "" {
			txs[i].ID = uuid.NewString()
		}
		if txs[i].Timestamp.IsZero() {
			txs[i].Timestamp = now
		}
		txs[i].AmountCents = txs[i].Magnitude()
	}

	if err := h.Store.AppendTransactions(r.Context(), txs); err != nil {
		writeError(w, statusFor(err), "Failed to record transactions", err)
		return
	}
	h.dataChanged()

	cats, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTOs(txs, cats, h.opts.Location))
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}
	if cats == nil {
		cats = []generic.CategoryMeta{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// SaveCategories creates or replaces categories.
func (h *Handler) SaveCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := decodeOneOrMany[generic.CategoryMeta](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for i := range cats {
		if cats[i].ID == "" {
			cats[i].ID = uuid.NewString()
		}
		if n := cats[i].SpendingNature; n != generic.NatureNone && !n.Known() {
			writeError(w, http.StatusBadRequest, "Invalid spending nature", fmt.Errorf("category %s: %q", cats[i].ID, n))
			return
		}
	}

	if err := h.Store.SaveCategories(r.Context(), cats); err != nil {
		writeError(w, statusFor(err), "Failed to save categories", err)
		return
	}
	h.dataChanged()

	writeJSON(w, http.StatusCreated, cats)
}

// =============================================================================
// BRAIN HANDLERS
// =============================================================================

// EvolveBrain runs an evolution immediately.
func (h *Handler) EvolveBrain(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Evolve(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evolve", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSnapshot returns the live predictor snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := SnapshotResponse{
		Initialized: h.Predictor.Initialized(),
		Snapshot:    h.Predictor.Snapshot(),
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// ResetBrain forgets the model and the tuned policy. The next evolution
// starts from a fresh predictor.
func (h *Handler) ResetBrain(w http.ResponseWriter, r *http.Request) {
	if err := h.resetBrain(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset predictor", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) resetBrain(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Predictor.Reset()
	h.last = nil
	if err := h.Snapshots.Remove(ctx); err != nil {
		return err
	}
	return h.Policies.Remove(ctx)
}

// GetPolicy returns the persisted adaptive policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, status, err := h.Policies.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load policy", err)
		return
	}
	writeJSON(w, http.StatusOK, PolicyResponse{Policy: policy, Status: status})
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears all data (for testing/demo).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) resetAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.Predictor.Reset()
	h.last = nil
	h.currentDemo = ""
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrDuplicateTransaction):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeOneOrMany accepts either a single JSON object or an array of them.
func decodeOneOrMany[T any](r *http.Request) ([]T, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}

	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}
