// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package main is the entry point for the Surgewatch engine.
//
// Surgewatch watches YouTube channels for velocity spikes: every cycle
// it snapshots view counts for recent uploads, computes views-per-hour
// from the two latest snapshots, evaluates per-user alert rules against
// a channel baseline, and delivers at-most-once alerts to Discord or
// generic webhooks.
//
// # Application Architecture
//
// The engine initializes components in this order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Database: DuckDB catalog, snapshot store, and dedup ledger
//  3. YouTube client: Data API v3 with rate limiting and circuit breaker
//  4. Detection: rate calculator, baseline estimator, dispatcher
//  5. Scheduler: 15-minute ingestion/evaluation cycles
//  6. HTTP server: health, metrics, manual trigger, recent alerts
//
// Everything long-running is supervised by a suture tree; a crashing
// scheduler or HTTP server is restarted with backoff without taking
// the process down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): SPIKE_-prefixed environment variables, config file,
// built-in defaults. The only required setting is the API key:
//
//	export SPIKE_YOUTUBE_API_KEY=your-api-key
//	./surgewatch
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the scheduler finishes
// or abandons the in-flight cycle, the HTTP server drains connections,
// and the database closes cleanly.
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

	"github.com/tomtom215/surgewatch/internal/api"
	"github.com/tomtom215/surgewatch/internal/config"
	"github.com/tomtom215/surgewatch/internal/database"
	"github.com/tomtom215/surgewatch/internal/detection"
	"github.com/tomtom215/surgewatch/internal/logging"
	"github.com/tomtom215/surgewatch/internal/scheduler"
	"github.com/tomtom215/surgewatch/internal/supervisor"
	"github.com/tomtom215/surgewatch/internal/supervisor/services"
	"github.com/tomtom215/surgewatch/internal/youtube"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("cycle_interval", cfg.Scheduler.Interval).
		Int("workers", cfg.Scheduler.Workers).
		Msg("Starting Surgewatch")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	// YouTube client: rate-limited transport wrapped in a circuit
	// breaker so a flapping API fails fast instead of stalling cycles.
	ytClient := youtube.NewClient(&cfg.YouTube)
	ytAPI := youtube.NewCircuitBreakerClient(ytClient)

	// The resolver needs the raw client for handle lookups.
	resolver, err := youtube.NewResolver(ytClient, &cfg.Resolver)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize channel resolver")
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing resolver cache")
		}
	}()

	// Detection pipeline.
	calc := detection.NewCalculator(db)
	baseline := detection.NewBaselineEstimator(db, calc)
	discord := detection.NewDiscordNotifier(detection.DiscordConfig{
		Timeout:   cfg.Alerts.DeliveryTimeout,
		RateLimit: cfg.Alerts.NotifyRateLimit,
	})
	webhook := detection.NewWebhookNotifier(detection.WebhookConfig{
		Timeout:   cfg.Alerts.DeliveryTimeout,
		RateLimit: cfg.Alerts.NotifyRateLimit,
	})
	dispatcher := detection.NewDispatcher(db, discord, webhook, cfg.Alerts.DefaultWebhookURL)
	engine := detection.NewEngine(calc, baseline, dispatcher, db, &cfg.Alerts)

	sched := scheduler.New(db, ytAPI, engine, cfg.Scheduler, cfg.YouTube.MaxVideosPerChannel)

	router := api.NewRouter(sched, db, db, resolver, &cfg.Server)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIngestionService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Surgewatch stopped gracefully")
}
