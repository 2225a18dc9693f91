// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

const (
	freshnessDataset = "content_db"
	dbtInvocationID  = "content-db"
)

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (p *Provider) maxLoaded(ctx context.Context, operation, query string, args ...any) (*string, error) {
	type loadedRow struct {
		LastLoaded text `db:"last_loaded_utc"`
	}
	var rows []loadedRow
	if err := p.selectRows(ctx, operation, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].LastLoaded.value == nil {
		return nil, nil
	}
	return analytics.ToIsoTimestamp(*rows[0].LastLoaded.value), nil
}

// fetchFreshnessRows reports the newest load of each ledger and event table.
// Filters apply to the event log and purchases; refunds, disputes and fees are
// checked globally.
func (p *Provider) fetchFreshnessRows(ctx context.Context, f analytics.Filters, tables Tables) ([]analytics.DataFreshnessRow, error) {
	now := p.now()

	type source struct {
		table   string
		present bool
		query   func() (string, []any)
	}
	global := func(table string) func() (string, []any) {
		return func() (string, []any) {
			return "SELECT MAX(created_utc) AS last_loaded_utc FROM " + table, nil
		}
	}
	sources := []source{
		{tableAnalyticsEvents, tables.AnalyticsEvents, func() (string, []any) {
			c := BuildEventFilterClause(f, EventClauseOptions{})
			return "SELECT MAX(ae.occurred_at) AS last_loaded_utc\nFROM analytics_events ae\n" + c.SQL, c.Params
		}},
		{tableStripePurchases, tables.StripePurchases, func() (string, []any) {
			c := BuildStripeFilterClause(f, StripeClauseOptions{Alias: "sp", EventsAvailable: tables.AnalyticsEvents})
			return "SELECT MAX(sp.created_utc) AS last_loaded_utc\nFROM stripe_purchases sp\n" + c.SQL, c.Params
		}},
		{tableStripeRefunds, tables.StripeRefunds, global(tableStripeRefunds)},
		{tableStripeDisputes, tables.StripeDisputes, global(tableStripeDisputes)},
		{tableStripeFees, tables.StripeFees, global(tableStripeFees)},
	}

	loaded := make([]*string, len(sources))
	fns := make([]func() error, 0, len(sources))
	for i, s := range sources {
		if !s.present {
			continue
		}
		fns = append(fns, func() (err error) {
			query, args := s.query()
			loaded[i], err = p.maxLoaded(ctx, "freshness_"+s.table, query, args...)
			return
		})
	}
	if err := parallel(fns...); err != nil {
		return nil, err
	}

	rows := make([]analytics.DataFreshnessRow, len(sources))
	for i, s := range sources {
		rows[i] = analytics.NewFreshnessRow(freshnessDataset, s.table, loaded[i], analytics.LagMinutes(loaded[i], now))
	}
	return rows, nil
}

func healthCheck(key, label string, status analytics.HealthStatus, okDetail, otherDetail, hint, at string) analytics.DataHealthCheck {
	c := analytics.DataHealthCheck{
		Key:            key,
		Label:          label,
		Status:         status,
		Detail:         okDetail,
		LastUpdatedUTC: &at,
	}
	if status != analytics.StatusOK {
		c.Detail = otherDetail
		c.Hint = &hint
	}
	return c
}

func okIf(cond bool) analytics.HealthStatus {
	if cond {
		return analytics.StatusOK
	}
	return analytics.StatusWarn
}

func buildHealthChecks(tables Tables, agg analytics.Aggregate, freshness []analytics.DataFreshnessRow, at string) []analytics.DataHealthCheck {
	statuses := make([]analytics.HealthStatus, len(freshness))
	for i, r := range freshness {
		statuses[i] = r.Status
	}
	freshnessStatus := analytics.CombineStatus(statuses...)
	overall := fmt.Sprintf("Overall freshness is %s.", freshnessStatus)

	return []analytics.DataHealthCheck{
		healthCheck("table_availability", "Required table availability",
			okIf(tables.AnalyticsEvents && tables.StripePurchases),
			"analytics_events and stripe_purchases tables are available.",
			"One or more required tables are missing; metrics will default to zero.",
			"Run content DB migrations to create missing analytics tables.", at),
		healthCheck("events_presence", "Event data presence",
			okIf(agg.Sessions > 0),
			fmt.Sprintf("Found %s sessions in selected range.", formatCount(agg.Sessions)),
			"No analytics_events sessions in selected range.",
			"Ensure event ingestion routes are writing into analytics_events.", at),
		healthCheck("stripe_presence", "Stripe data presence",
			okIf(agg.Purchases > 0),
			fmt.Sprintf("Found %s purchases in selected range.", formatCount(agg.Purchases)),
			"No stripe_purchases rows in selected range.",
			"Verify Stripe webhook ingestion and stripe_* table writes.", at),
		healthCheck("freshness", "Freshness status", freshnessStatus, overall, overall,
			"Inspect stale tables and rerun ingestion jobs.", at),
	}
}

// GetDataHealth derives freshness from the newest row of each table, since
// the content DB keeps no load metadata, and checks that data is present.
func (p *Provider) GetDataHealth(ctx context.Context, f analytics.Filters) (*analytics.DataHealthResponse, error) {
	tables := p.tables(ctx)

	var (
		agg       analytics.Aggregate
		freshness []analytics.DataFreshnessRow
	)
	err := parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, f, tables); return },
		func() (err error) { freshness, err = p.fetchFreshnessRows(ctx, f, tables); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get data health: %w", err)
	}

	at := p.generatedAt()
	checks := buildHealthChecks(tables, agg, freshness, at)

	statuses := make([]analytics.HealthStatus, 0, len(freshness)+len(checks))
	for _, r := range freshness {
		statuses = append(statuses, r.Status)
	}
	for _, c := range checks {
		statuses = append(statuses, c.Status)
	}

	return &analytics.DataHealthResponse{
		Filters:         f,
		GeneratedAtUTC:  at,
		Status:          analytics.CombineStatus(statuses...),
		Checks:          checks,
		Freshness:       freshness,
		AlertsAvailable: false,
		Alerts:          []analytics.AlertRow{},
		DbtLastRun:      &analytics.DbtRunMarker{FinishedAtUTC: at, InvocationID: dbtInvocationID},
	}, nil
}
