// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

// Package main is the entry point for the Quizfactory admin analytics server.
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file, .env and environment (koanf v2)
//  2. Logging: zerolog, JSON or console
//  3. Provider holder: BigQuery, content database or mock, chosen per request
//  4. Overview cache: in-process, or Redis when REDIS_URL is set
//  5. HTTP router: chi with CORS, rate limiting and Prometheus metrics
//  6. Supervisor tree: HTTP server, provider lifecycle and cache janitors
//
// SIGINT and SIGTERM cancel the tree; the HTTP server drains in-flight
// requests for HTTP_SHUTDOWN_TIMEOUT before the provider is closed.
//
// Local development against the deterministic mock backend:
//
//	ADMIN_ANALYTICS_MODE=mock LOG_FORMAT=console ./quizfactory-analytics
//
// Against a Postgres content database:
//
//	CONTENT_DATABASE_URL=postgres://analytics@db/quizfactory ./quizfactory-analytics
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/quizfactory/quizfactory-analytics/internal/config"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/bigquery"
	"github.com/quizfactory/quizfactory-analytics/internal/supervisor"
	"github.com/quizfactory/quizfactory-analytics/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("mode_override", cfg.Analytics.Mode).
		Str("addr", cfg.Server.Addr()).
		Bool("redis_cache", cfg.Cache.RedisURL != "").
		Msg("Starting Quizfactory analytics")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize application")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if app.overviewJanitor != nil {
		tree.AddMaintenanceService(app.overviewJanitor)
	}
	tree.AddMaintenanceService(bigquery.FreshnessCache())
	tree.AddMaintenanceService(services.NewProviderService(app.holder))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.handler,
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
	}

	app.close()
	logging.Info().Msg("Shutdown complete")
}
