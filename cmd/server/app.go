// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quizfactory/quizfactory-analytics/internal/api"
	"github.com/quizfactory/quizfactory-analytics/internal/cache"
	"github.com/quizfactory/quizfactory-analytics/internal/config"
	"github.com/quizfactory/quizfactory-analytics/internal/database"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/providers"
)

// redisKeyPrefix namespaces overview entries in a shared Redis.
const redisKeyPrefix = "quizfactory:analytics:"

// app holds the wired components that outlive a single request.
type app struct {
	holder          *providers.Holder
	handler         http.Handler
	overviewJanitor *cache.Cache
	closers         []func() error
}

// providerSettings maps configuration onto provider selection settings.
func providerSettings(cfg *config.Config) providers.Settings {
	driver := cfg.ContentDB.Driver
	if driver == "" {
		driver = database.DriverPostgres
	}
	return providers.Settings{
		Mode: cfg.Analytics.Mode,
		BigQuery: providers.BigQuerySettings{
			ProjectID:       cfg.BigQuery.ProjectID,
			StripeDataset:   cfg.BigQuery.StripeDataset,
			RawCostsDataset: cfg.BigQuery.RawCostsDataset,
			TmpDataset:      cfg.BigQuery.TmpDataset,
			MartsDataset:    cfg.BigQuery.MartsDataset,
			MaxQPS:          cfg.BigQuery.MaxQPS,
		},
		ContentDB: providers.ContentDBSettings{
			URL:             cfg.ContentDB.URL,
			Driver:          driver,
			Schema:          cfg.ContentDB.Schema,
			MaxOpenConns:    cfg.ContentDB.MaxOpenConns,
			MaxIdleConns:    cfg.ContentDB.MaxIdleConns,
			ConnMaxLifetime: cfg.ContentDB.ConnMaxLife,
		},
	}
}

// overviewStore picks Redis when configured, otherwise an in-process cache
// whose janitor the caller must supervise.
func overviewStore(ctx context.Context, cfg *config.Config) (cache.Store, *cache.Cache, func() error, error) {
	if cfg.Cache.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.Cache.RedisURL, redisKeyPrefix, "overview")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("overview cache: %w", err)
		}
		logging.Info().Str("redis", logging.RedactURL(cfg.Cache.RedisURL)).Msg("Overview cache backed by Redis")
		return rs, nil, rs.Close, nil
	}

	c := cache.New(cfg.Cache.OverviewTTL, cache.WithName("overview"))
	return cache.NewMemoryStore(c), c, nil, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	store, janitor, closeStore, err := overviewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.overviewJanitor = janitor
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	a.holder = providers.NewHolder(providerSettings(cfg), nil)

	handler := api.NewHandler(a.holder, api.HandlerConfig{
		OverviewStore: store,
		OverviewTTL:   cfg.Cache.OverviewTTL,
		Mode:          func() string { return string(a.holder.Mode()) },
	})

	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled

	a.handler = api.NewRouter(handler, api.NewChiMiddleware(mw)).Setup()
	return a, nil
}

// close releases resources the supervisor does not own. Call it only after
// the tree has stopped so no request is still using the provider.
func (a *app) close() {
	if err := a.holder.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close analytics provider")
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			logging.Warn().Err(err).Msg("Failed to release resource")
		}
	}
}
