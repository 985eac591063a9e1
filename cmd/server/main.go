// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package main is the entry point for the Control Tower server.
//
// Control Tower monitors a PMO project portfolio by syncing read-only data
// from Asana (and optionally Clockify) into Postgres, deriving delivery
// metrics, evaluating compliance rules, and serving a dashboard API.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file, and environment (Koanf v2)
//  2. Database: Postgres pool via pgx, with embedded migrations on startup
//  3. Upstream clients: Asana behind a circuit breaker, Clockify if enabled
//  4. Rules engine and Slack notifier
//  5. Sync manager: periodic background runs on the configured interval
//  6. HTTP server: dashboard API plus Prometheus metrics
//
// Shutdown on SIGINT or SIGTERM stops accepting connections, waits for
// in-flight requests up to the configured shutdown timeout, then stops the
// sync manager and closes the database pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmolabs/controltower/internal/api"
	"github.com/pmolabs/controltower/internal/asana"
	"github.com/pmolabs/controltower/internal/clockify"
	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/database"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/notify"
	"github.com/pmolabs/controltower/internal/rules"
	syncpkg "github.com/pmolabs/controltower/internal/sync"
)

// shutdownGrace returns the configured shutdown timeout, falling back to a
// sane default when unset.
func shutdownGrace(configured time.Duration) time.Duration {
	if configured <= 0 {
		return 10 * time.Second
	}
	return configured
}

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("workspace", cfg.Asana.WorkspaceGID).
		Str("business_vertical", cfg.Asana.VerticalValue).
		Bool("clockify_enabled", cfg.Clockify.Enabled).
		Bool("slack_enabled", cfg.Slack.Enabled).
		Msg("Starting Control Tower")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(cfg.Database.URL); err != nil {
			db.Close()
			logging.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		logging.Info().Msg("Database migrations applied")
	}

	asanaClient := asana.NewCircuitBreakerClient(&cfg.Asana)
	if err := asanaClient.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Asana not reachable at startup, continuing anyway")
	}

	var clockifyClient clockify.ClientInterface
	if cfg.Clockify.Enabled {
		clockifyClient = clockify.NewClient(&cfg.Clockify)
		if err := clockifyClient.Ping(ctx); err != nil {
			logging.Warn().Err(err).Msg("Clockify not reachable at startup, continuing anyway")
		}
	}

	engine := rules.NewEngine(&cfg.Rules)
	notifier := notify.New(&cfg.Slack)

	syncManager := syncpkg.NewManager(db, asanaClient, clockifyClient, engine, notifier, cfg)
	if err := syncManager.Start(ctx); err != nil {
		db.Close()
		logging.Fatal().Err(err).Msg("Failed to start sync manager")
	}

	handlers := api.NewHandlers(db, syncManager, cfg)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, cfg),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		serverErr <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := syncManager.Stop(); err != nil {
		logging.Error().Err(err).Msg("Sync manager shutdown error")
	}
	cancel()

	logging.Info().Msg("Shutdown complete")
}
