/*
scheduler.go - Background evolution scheduler

PURPOSE:
  Keeps the predictor current without making writers wait for training.
  Two triggers feed the same evolution:

  - Debounce: every write calls Trigger; the evolution runs once the
    writes have been quiet for Debounce (default 700ms). A burst of
    imports costs one evolution.
  - Interval: a periodic refresh (default 1h) so the current-month
    nowcast follows the calendar even when nothing is written.

DESIGN:
  - Evolutions go through Handler.Evolve, which holds the handler mutex,
    so the scheduler never races an HTTP-triggered evolution
  - Trigger after Stop is a no-op

CONFIGURATION:
  - Interval: How often to refresh (0 disables the ticker)
  - Debounce: Quiet period after the last write
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewEvolutionScheduler(handler, logger)
  handler.AttachScheduler(scheduler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Evolve, dataChanged
*/
package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// EvolutionScheduler runs debounced and periodic evolutions.
type EvolutionScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Debounce time.Duration
	Enabled  bool

	logger zerolog.Logger
	runs   atomic.Int64

	mu      sync.Mutex
	timer   *time.Timer
	ticker  *time.Ticker
	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewEvolutionScheduler creates a new scheduler.
func NewEvolutionScheduler(handler *Handler, logger zerolog.Logger) *EvolutionScheduler {
	return &EvolutionScheduler{
		Handler:  handler,
		Interval: time.Hour,
		Debounce: 700 * time.Millisecond,
		Enabled:  true,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic refresh. Debounced triggers work without it.
func (s *EvolutionScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.stopped {
		s.logger.Info().Msg("disabled, not starting")
		return
	}
	if s.Interval <= 0 || s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)
	go s.run(s.ticker)

	s.logger.Info().Dur("interval", s.Interval).Dur("debounce", s.Debounce).Msg("started")
}

// Stop stops the ticker and any pending debounced run.
func (s *EvolutionScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("stopped")
}

// Trigger schedules an evolution after the debounce period, replacing any
// pending one.
func (s *EvolutionScheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.Debounce, s.fire)
}

func (s *EvolutionScheduler) fire() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.RunNow()
}

func (s *EvolutionScheduler) run(ticker *time.Ticker) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-s.stop:
			return
		}
	}
}

// RunNow evolves immediately (for testing/admin).
func (s *EvolutionScheduler) RunNow() {
	resp, err := s.Handler.Evolve(context.Background())
	s.runs.Add(1)
	if err != nil {
		s.logger.Error().Err(err).Msg("evolution failed")
		return
	}
	s.logger.Debug().
		Str("reason", string(resp.Result.Reason)).
		Bool("ready", resp.Result.CurrentMonthNowcastReady).
		Msg("evolution complete")
}

// Runs returns how many evolutions the scheduler has run.
func (s *EvolutionScheduler) Runs() int64 {
	return s.runs.Load()
}
