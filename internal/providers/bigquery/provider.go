// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

// Package bigquery computes admin analytics from the warehouse star schema:
// the pre-aggregated daily marts mart_funnel_daily, mart_pnl_daily and
// mart_unit_econ_daily, plus alert_events.
//
// Metric queries sum funnel counts and money separately and merge them with
// a FULL OUTER JOIN on the dimension key, so a key present in only one mart
// still surfaces. Filter values always bind as named parameters.
package bigquery

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// ProviderName labels metrics and logs emitted by this package.
const ProviderName = "bigquery"

// DefaultMartsDataset is used when Datasets.Marts is empty.
const DefaultMartsDataset = "marts"

// Mart and auxiliary table names.
const (
	tableFunnelDaily   = "mart_funnel_daily"
	tablePnlDaily      = "mart_pnl_daily"
	tableUnitEconDaily = "mart_unit_econ_daily"
	tableAlertEvents   = "alert_events"
	tableStripeOrders  = "purchases"
	tableTenantTests   = "tenant_tests"
	tableTests         = "tests"
)

// Row caps.
const (
	overviewTopRowsLimit = 10
	tenantsRowsLimit     = 20
	testsRowsLimit       = 100
	detailRowsLimit      = 100
	alertsLimit          = 20
)

// unallocated is the mart key for spend and sessions not attributed to a
// tenant or test.
const unallocated = "__unallocated__"

// Datasets names the warehouse datasets the provider reads.
type Datasets struct {
	Stripe   string `json:"stripe"`
	RawCosts string `json:"raw_costs"`
	Tmp      string `json:"tmp"`
	Marts    string `json:"marts"`
}

// Options configures a Provider.
type Options struct {
	ProjectID string
	Datasets  Datasets
	// Now overrides the clock for generated_at_utc and freshness lag.
	Now func() time.Time
}

// Provider implements analytics.Provider over BigQuery marts.
type Provider struct {
	runner   Runner
	project  string
	datasets Datasets
	now      func() time.Time
	log      zerolog.Logger

	columnsMu sync.Mutex
	columns   martColumns
}

var _ analytics.Provider = (*Provider)(nil)

// New creates a provider issuing queries through runner.
func New(runner Runner, opts Options) *Provider {
	if opts.Datasets.Marts == "" {
		opts.Datasets.Marts = DefaultMartsDataset
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		runner:   runner,
		project:  opts.ProjectID,
		datasets: opts.Datasets,
		now:      opts.Now,
		log:      logging.WithComponent("bigquery_provider"),
	}
}

// Close releases the runner's client, if any.
func (p *Provider) Close() error {
	if c, ok := p.runner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Provider) generatedAt() string {
	return analytics.GeneratedAt(p.now())
}

// table quotes a fully qualified table reference.
func (p *Provider) table(dataset, name string) string {
	return "`" + p.project + "." + dataset + "." + name + "`"
}

func (p *Provider) mart(name string) string {
	return p.table(p.datasets.Marts, name)
}

// query runs sql and records its latency.
func (p *Provider) query(ctx context.Context, operation, sql string, params Params) ([]Row, error) {
	start := time.Now()
	rows, err := p.runner.Query(ctx, sql, params.list())
	metrics.RecordProviderQuery(ProviderName, operation, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return rows, nil
}

// queryOptional is query for optional tables. A not-found error degrades to
// Unavailable; any other error is returned.
func (p *Provider) queryOptional(ctx context.Context, operation, object, sql string, params Params) (analytics.Availability[[]Row], error) {
	rows, err := p.query(ctx, operation, sql, params)
	if err != nil {
		if isNotFound(err) {
			metrics.RecordSchemaUnavailable(ProviderName, object)
			logging.Ctx(ctx).Warn().Err(err).Str("object", object).Msg("BigQuery object missing, returning empty result")
			return analytics.Unavailable[[]Row](), nil
		}
		return analytics.Unavailable[[]Row](), err
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

func (p *Provider) notImplemented(method string) error {
	return analytics.NewNotImplementedError(
		"BigQuery admin analytics method '%s' is not implemented (project=%s, marts=%s).",
		method, p.project, p.datasets.Marts,
	)
}

// GetAttribution is served by the content database only.
func (p *Provider) GetAttribution(_ context.Context, _ analytics.Filters, _ analytics.AttributionOptions) (*analytics.AttributionResponse, error) {
	return nil, p.notImplemented("GetAttribution")
}
