// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

// Package contentdb computes admin analytics from the operational content
// database: the analytics_events log reconciled against the Stripe ledger
// tables. It runs on Postgres through lib/pq or on a local DuckDB file.
//
// Every optional table is probed once per provider. Queries touching a
// missing table contribute zeros instead of failing the request.
package contentdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// ProviderName labels metrics and logs emitted by this package.
const ProviderName = "content_db"

// Row caps.
const (
	overviewTopRowsLimit = 10
	tenantsRowsLimit     = 50
	testsRowsLimit       = 100
	detailRowsLimit      = 100
	attributionMixLimit  = 20
)

// Options configures a Provider.
type Options struct {
	// Schema holding the tables: "public" on Postgres, "main" on DuckDB.
	Schema string
	// Now overrides the clock for freshness lag and generated_at_utc.
	Now func() time.Time
}

// Provider implements analytics.Provider over a content database.
type Provider struct {
	db     *sqlx.DB
	schema string
	now    func() time.Time
	log    zerolog.Logger

	tablesMu sync.Mutex
	probed   *Tables
}

var _ analytics.Provider = (*Provider)(nil)

// New creates a provider over db.
func New(db *sqlx.DB, opts Options) *Provider {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		db:     db,
		schema: opts.Schema,
		now:    opts.Now,
		log:    logging.WithComponent("content_db_provider"),
	}
}

func (p *Provider) generatedAt() string {
	return analytics.GeneratedAt(p.now())
}

// selectRows runs query into dest and records its latency.
func (p *Provider) selectRows(ctx context.Context, operation string, dest any, query string, args ...any) error {
	start := time.Now()
	err := sqlx.SelectContext(ctx, p.db, dest, query, args...)
	metrics.RecordProviderQuery(ProviderName, operation, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// selectOptional is selectRows for queries over optional columns or catalog
// tables. A missing object degrades to Unavailable; any other error is returned.
func selectOptional[T any](ctx context.Context, p *Provider, operation, object, query string, args ...any) (analytics.Availability[[]T], error) {
	var rows []T
	if err := p.selectRows(ctx, operation, &rows, query, args...); err != nil {
		if isUndefinedObject(err) {
			metrics.RecordSchemaUnavailable(ProviderName, object)
			logging.Ctx(ctx).Warn().Err(err).Str("object", object).Msg("Content DB object missing, returning empty result")
			return analytics.Unavailable[[]T](), nil
		}
		return analytics.Unavailable[[]T](), err
	}
	return analytics.Available(rows), nil
}

// parallel runs fns concurrently and returns the first error.
func parallel(fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	return g.Wait()
}
