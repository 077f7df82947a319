/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Maps the household endpoints onto Handler methods. Writes go through
  the transaction and category routes; everything else reads or evolves.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/transactions/*   Transaction history
  /api/categories/*     Category metadata
  /api/brain/*          Predictor and adaptive policy
  /api/baseline         Trailing metrics
  /api/scenarios/*      Savings plans
  /api/overlay          Realtime overlay
  /api/demos/*          Demo households
  /api/reset            Database reset (dev only)

SECURITY NOTE:
  No authentication middleware. One household per process.

SEE ALSO:
  - handlers.go, scenarios.go, demos.go: Handler methods
  - cmd/server/main.go: serve command
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransactions)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.SaveCategories)
		})

		r.Route("/brain", func(r chi.Router) {
			r.Post("/evolve", h.EvolveBrain)
			r.Get("/snapshot", h.GetSnapshot)
			r.Post("/reset", h.ResetBrain)
			r.Get("/policy", h.GetPolicy)
		})

		r.Get("/baseline", h.GetBaseline)
		r.Get("/overlay", h.GetOverlay)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/manual", h.CalculateManualScenario)
		})

		r.Route("/demos", func(r chi.Router) {
			r.Get("/", h.ListDemos)
			r.Get("/current", h.GetCurrentDemo)
			r.Post("/load", h.LoadDemo)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
