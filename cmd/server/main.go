/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the crew travel-tax deduction server.
  Handles configuration, dependency injection, and graceful shutdown.
  No business logic belongs here.

STARTUP SEQUENCE:
  1. Load configuration (defaults, YAML file, CREWTAX_* env vars)
  2. Configure the slog JSON logger
  3. Open the SQLite store (migrations applied on open)
  4. Load the embedded rate and airport tables
  5. Create API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (overrides CREWTAX_CONFIG)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (15s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with defaults
  ./server

  # Run with a config file and in-memory database
  CREWTAX_DB_PATH=":memory:" ./server -config=./crewtax.yaml

SEE ALSO:
  - config/loader.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/crewtax/api"
	"github.com/warp/crewtax/config"
	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/geo"
	"github.com/warp/crewtax/metrics"
	"github.com/warp/crewtax/rates"
	"github.com/warp/crewtax/store/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML configuration file")
	flag.Parse()

	ctx := context.Background()

	// --- Config -----------------------------------------------------------
	cfg, err := config.LoadFile(ctx, *configPath)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Store ------------------------------------------------------------
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			slog.Error("failed to create database directory", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
	}
	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database ready", "path", cfg.DBPath)

	// --- Reference tables -------------------------------------------------
	table, err := rates.Default()
	if err != nil {
		slog.Error("failed to load rate table", "error", err)
		os.Exit(1)
	}
	if cfg.RatesDefaultYear != 0 {
		if table, err = table.WithDefaultYear(cfg.RatesDefaultYear); err != nil {
			slog.Error("invalid rates_default_year", "error", err)
			os.Exit(1)
		}
	}
	airports, err := geo.Default()
	if err != nil {
		slog.Error("failed to load airport table", "error", err)
		os.Exit(1)
	}
	slog.Info("reference tables loaded",
		"rate_years", table.Years(),
		"default_year", table.DefaultYear(),
		"airports", len(airports.Codes()),
	)

	// --- Handler & router -------------------------------------------------
	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.New(metrics.WithProcessCollectors())
	}

	defaults := duty.DefaultSettings()
	defaults.HomeCountryCode = cfg.HomeCountryCode

	handler := api.NewHandler(store, table, airports, defaults, rec, logger)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.AllowedOrigins()})

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "metrics", cfg.MetricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
