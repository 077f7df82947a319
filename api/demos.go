/*
demos.go - Demo household loaders for testing and demonstrations

PURPOSE:
  Provides pre-built households that populate the database with realistic
  history. Each one exercises a different predictor regime.

AVAILABLE DEMOS:
  dense:     Eight steady months, the predictor becomes ready
  sparse:    A single partial month, bootstrap and run-rate fallback
  volatile:  Alternating splurge months, low reliability

HOW DEMOS WORK:
  1. Reset database and predictor
  2. Save the demo categories
  3. Append the demo transactions, dated relative to now
  4. Evolve once so planning endpoints have a result

USAGE VIA API:
  POST /api/demos/load
  {"demoId": "dense"}

NOTE:
  Demos reset the database. Only use in development/demo environments.

SEE ALSO:
  - demo/households.go: Household generators
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/household-engine/demo"
	"github.com/warp/household-engine/generic"
)

// ListDemos returns available demo households.
func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	households := demo.Households(h.opts.Now(), h.opts.Location)
	dtos := make([]DemoDTO, len(households))
	for i, hh := range households {
		dtos[i] = toDemoDTO(hh)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentDemo returns the currently loaded demo, if any.
func (h *Handler) GetCurrentDemo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	id := h.currentDemo
	h.mu.Unlock()

	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	hh, ok := demo.Lookup(id, h.opts.Now(), h.opts.Location)
	if !ok {
		writeJSON(w, http.StatusOK, DemoDTO{ID: id, Name: id})
		return
	}
	writeJSON(w, http.StatusOK, toDemoDTO(hh))
}

// LoadDemo replaces all data with a demo household.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	var req LoadDemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.loadDemo(r.Context(), req.DemoID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load demo", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) loadDemo(ctx context.Context, id string) (LoadDemoResponse, error) {
	hh, ok := demo.Lookup(id, h.opts.Now(), h.opts.Location)
	if !ok {
		return LoadDemoResponse{}, fmt.Errorf("%w: unknown demo %q", generic.ErrBlobNotFound, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return LoadDemoResponse{}, fmt.Errorf("reset: %w", err)
	}
	h.Predictor.Reset()
	h.last = nil

	if err := h.Store.SaveCategories(ctx, hh.Categories); err != nil {
		return LoadDemoResponse{}, fmt.Errorf("save categories: %w", err)
	}
	if err := h.Store.AppendTransactions(ctx, hh.Transactions); err != nil {
		return LoadDemoResponse{}, fmt.Errorf("append transactions: %w", err)
	}

	evolved, err := h.evolveLocked(ctx)
	if err != nil {
		return LoadDemoResponse{}, err
	}
	h.currentDemo = hh.ID

	h.logger.Info().
		Str("demo", hh.ID).
		Int("transactions", len(hh.Transactions)).
		Str("reason", string(evolved.Result.Reason)).
		Msg("demo loaded")

	return LoadDemoResponse{
		Demo:         toDemoDTO(hh),
		Transactions: len(hh.Transactions),
		Categories:   len(hh.Categories),
		Result:       evolved.Result,
	}, nil
}

func toDemoDTO(hh demo.Household) DemoDTO {
	return DemoDTO{ID: hh.ID, Name: hh.Name, Description: hh.Description}
}
