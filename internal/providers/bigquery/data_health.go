// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// freshnessSource is one table whose newest load is reported.
type freshnessSource struct {
	dataset string
	table   string
	// loadedSQL selects MAX(...) AS last_loaded_utc.
	loadedSQL string
}

func (p *Provider) freshnessSources() []freshnessSource {
	sources := []freshnessSource{
		{p.datasets.Marts, tableFunnelDaily, "SELECT MAX(TIMESTAMP(date)) AS last_loaded_utc FROM " + p.mart(tableFunnelDaily)},
		{p.datasets.Marts, tablePnlDaily, "SELECT MAX(TIMESTAMP(date)) AS last_loaded_utc FROM " + p.mart(tablePnlDaily)},
	}
	if p.datasets.Stripe != "" {
		sources = append(sources, freshnessSource{
			p.datasets.Stripe, tableStripeOrders,
			"SELECT MAX(created_utc) AS last_loaded_utc FROM " + p.table(p.datasets.Stripe, tableStripeOrders),
		})
	}
	return sources
}

// fetchFreshnessRows reports the newest load of every source. A missing table
// has no lag and therefore an error status.
func (p *Provider) fetchFreshnessRows(ctx context.Context) ([]analytics.DataFreshnessRow, int, error) {
	now := p.now()
	sources := p.freshnessSources()
	rows := make([]analytics.DataFreshnessRow, len(sources))
	present := make([]bool, len(sources))

	fns := make([]func() error, len(sources))
	for i, s := range sources {
		fns[i] = func() error {
			res, err := p.queryOptional(ctx, "freshness_"+s.table, s.dataset+"."+s.table, s.loadedSQL, Params{})
			if err != nil {
				return err
			}
			found, available := res.Get()
			present[i] = available

			var loaded *string
			if len(found) > 0 {
				loaded = analytics.ToIsoTimestamp(found[0]["last_loaded_utc"])
			}
			rows[i] = analytics.NewFreshnessRow(s.dataset, s.table, loaded, analytics.LagMinutes(loaded, now))
			return nil
		}
	}
	if err := parallel(fns...); err != nil {
		return nil, 0, err
	}

	missing := 0
	for _, ok := range present {
		if !ok {
			missing++
		}
	}
	return rows, missing, nil
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
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

func warnUnless(cond bool) analytics.HealthStatus {
	if cond {
		return analytics.StatusOK
	}
	return analytics.StatusWarn
}

func (p *Provider) buildHealthChecks(agg analytics.Aggregate, freshness []analytics.DataFreshnessRow, missing int, at string) []analytics.DataHealthCheck {
	statuses := make([]analytics.HealthStatus, len(freshness))
	for i, r := range freshness {
		statuses[i] = r.Status
	}
	freshnessStatus := analytics.CombineStatus(statuses...)
	overall := fmt.Sprintf("Overall freshness is %s.", freshnessStatus)

	return []analytics.DataHealthCheck{
		healthCheck("table_availability", "Warehouse table availability",
			warnUnless(missing == 0),
			fmt.Sprintf("Marts and raw tables are available in %s.", p.project),
			fmt.Sprintf("%d warehouse table(s) are missing; affected metrics default to zero.", missing),
			"Run the dbt build for the marts dataset and check the Stripe export.", at),
		healthCheck("events_presence", "Funnel data presence",
			warnUnless(agg.Sessions > 0),
			fmt.Sprintf("Found %s sessions in selected range.", formatCount(agg.Sessions)),
			"No mart_funnel_daily sessions in selected range.",
			"Check that the event export feeds the funnel mart.", at),
		healthCheck("stripe_presence", "Revenue data presence",
			warnUnless(agg.Purchases > 0),
			fmt.Sprintf("Found %s purchases in selected range.", formatCount(agg.Purchases)),
			"No purchases in mart_funnel_daily for selected range.",
			"Verify the Stripe export and the mart_pnl_daily model.", at),
		healthCheck("freshness", "Freshness status", freshnessStatus, overall, overall,
			"Inspect stale tables and rerun the warehouse loads.", at),
	}
}

// GetDataHealth reports freshness of the marts and raw Stripe purchases,
// presence checks and recent alerts.
func (p *Provider) GetDataHealth(ctx context.Context, f analytics.Filters) (*analytics.DataHealthResponse, error) {
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get data health: %w", err)
	}

	var (
		agg       analytics.Aggregate
		freshness []analytics.DataFreshnessRow
		missing   int
		alerts    alertsResult
	)
	err = parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, c); return },
		func() (err error) { freshness, missing, err = p.fetchFreshnessRows(ctx); return },
		func() (err error) { alerts, err = p.fetchAlerts(ctx, f); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get data health: %w", err)
	}

	at := p.generatedAt()
	checks := p.buildHealthChecks(agg, freshness, missing, at)

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
		AlertsAvailable: alerts.available,
		Alerts:          alerts.rows,
		DbtLastRun:      nil,
	}, nil
}
