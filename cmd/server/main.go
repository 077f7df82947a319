/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the household engine server, or runs a single
  evolution from the command line.

COMMANDS:
  serve    HTTP API with the background scheduler (default)
  evolve   Evolve once against the database, print the result as JSON

STARTUP SEQUENCE (serve):
  1. Load config file, apply flag overrides
  2. Initialize SQLite store
  3. Restore the predictor snapshot
  4. Start the evolution scheduler
  5. Start server with graceful shutdown

FLAGS:
  --config     TOML config file (default: household.toml, optional)
  --port       HTTP server port
  --db         SQLite database path, ":memory:" for in-memory
  --window     Default trailing window (3, 6, 12)
  --overlay    Enable the realtime overlay
  --location   Household time zone (IANA)
  --log-level  debug, info, warn, error
  --pretty     Human-readable console logs

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close database connection

EXAMPLES:
  ./server --db="./data/household.db"
  ./server evolve --db="./data/household.db" --location=Europe/Paris

SEE ALSO:
  - config/config.go: File format and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/household-engine/api"
	"github.com/warp/household-engine/config"
	"github.com/warp/household-engine/store/sqlite"
)

type flags struct {
	configPath string
	port       int
	dbPath     string
	window     int
	overlay    bool
	location   string
	logLevel   string
	pretty     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "server",
		Short:         "Household finance forecasting engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "household.toml", "TOML config file")
	pf.IntVar(&f.port, "port", 8080, "HTTP server port")
	pf.StringVar(&f.dbPath, "db", "household.db", "SQLite database path")
	pf.IntVar(&f.window, "window", 6, "default trailing window in months (3, 6, 12)")
	pf.BoolVar(&f.overlay, "overlay", true, "enable the realtime overlay")
	pf.StringVar(&f.location, "location", "", "household time zone (IANA name)")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level")
	pf.BoolVar(&f.pretty, "pretty", false, "human-readable console logs")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &f)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "evolve",
		Short: "Evolve the predictor once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvolve(cmd, &f)
		},
	})

	return root
}

// loadConfig reads the config file and applies explicitly set flags.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("db") {
		cfg.Server.DBPath = f.dbPath
	}
	if changed("window") {
		cfg.Engine.WindowMonths = f.window
	}
	if changed("overlay") {
		cfg.Engine.RealtimeOverlay = f.overlay
	}
	if changed("location") {
		cfg.Engine.Location = f.location
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("pretty") {
		cfg.Log.Pretty = f.pretty
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func newHandler(cfg config.Config, store *sqlite.Store, logger zerolog.Logger) (*api.Handler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := api.DefaultOptions()
	opts.WindowMonths = cfg.Engine.WindowMonths
	opts.RealtimeOverlay = cfg.Engine.RealtimeOverlay
	opts.Location = loc
	opts.Epochs = cfg.Engine.Epochs
	opts.Logger = logger

	return api.NewHandler(store, opts), nil
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler, err := newHandler(cfg, store, logger)
	if err != nil {
		return err
	}
	if err := handler.Bootstrap(cmd.Context()); err != nil {
		logger.Warn().Err(err).Msg("predictor bootstrap failed, starting fresh")
	}

	scheduler := api.NewEvolutionScheduler(handler, logger)
	scheduler.Interval = cfg.Scheduler.Interval.Duration
	scheduler.Debounce = cfg.Scheduler.Debounce.Duration
	handler.AttachScheduler(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.Server.Port).
			Str("db", cfg.Server.DBPath).
			Int("window", cfg.Engine.WindowMonths).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// =============================================================================
// EVOLVE
// =============================================================================

func runEvolve(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler, err := newHandler(cfg, store, logger)
	if err != nil {
		return err
	}
	if err := handler.Bootstrap(cmd.Context()); err != nil {
		return err
	}

	resp, err := handler.Evolve(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
