// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"slices"
	"time"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/cache"
)

// FreshnessCacheTTL bounds how long mart MAX(date) lookups are reused.
const FreshnessCacheTTL = 60 * time.Second

var freshnessTables = []string{tableFunnelDaily, tablePnlDaily, tableUnitEconDaily}

// freshnessCache is shared by every provider in the process, keyed by
// project:marts dataset.
var freshnessCache = cache.New(FreshnessCacheTTL, cache.WithName("bigquery_freshness"))

// FreshnessCache exposes the process-wide cache so a supervisor can sweep it.
func FreshnessCache() *cache.Cache {
	return freshnessCache
}

// ResetCaches drops cached freshness rows.
func ResetCaches() {
	freshnessCache.Clear()
}

// fetchOverviewFreshness reports MAX(date) of each mart. A missing mart is
// reported unavailable rather than failing the overview.
func (p *Provider) fetchOverviewFreshness(ctx context.Context) ([]analytics.OverviewFreshnessRow, error) {
	key := p.project + ":" + p.datasets.Marts
	if cached, ok := freshnessCache.Get(key); ok {
		return slices.Clone(cached.([]analytics.OverviewFreshnessRow)), nil
	}

	rows := make([]analytics.OverviewFreshnessRow, len(freshnessTables))
	fns := make([]func() error, len(freshnessTables))
	for i, table := range freshnessTables {
		fns[i] = func() error {
			sql := "SELECT CAST(MAX(date) AS STRING) AS max_date\nFROM " + p.mart(table)
			res, err := p.queryOptional(ctx, "freshness_"+table, p.datasets.Marts+"."+table, sql, Params{})
			if err != nil {
				return err
			}
			found, available := res.Get()
			row := analytics.OverviewFreshnessRow{Table: table, Available: available}
			if len(found) > 0 {
				row.MaxDate = found[0].date("max_date")
			}
			rows[i] = row
			return nil
		}
	}
	if err := parallel(fns...); err != nil {
		return nil, err
	}

	freshnessCache.Set(key, slices.Clone(rows))
	return rows, nil
}

// alertsResult separates a missing alert_events table from zero alerts.
type alertsResult struct {
	available bool
	rows      []analytics.AlertRow
}

func (p *Provider) fetchAlerts(ctx context.Context, f analytics.Filters) (alertsResult, error) {
	params := Params{"start": f.Start, "end": f.End}
	tenantCondition := ""
	if f.TenantID != nil {
		tenantCondition = "\n  AND tenant_id = @tenant_id"
		params["tenant_id"] = *f.TenantID
	}

	sql := `SELECT
  detected_at_utc,
  alert_name,
  severity,
  tenant_id,
  CAST(metric_value AS FLOAT64) AS metric_value,
  CAST(threshold_value AS FLOAT64) AS threshold_value
FROM ` + p.mart(tableAlertEvents) + `
WHERE DATE(detected_at_utc) BETWEEN DATE(@start) AND DATE(@end)` + tenantCondition + `
ORDER BY detected_at_utc DESC
` + limitSQL(alertsLimit)

	res, err := p.queryOptional(ctx, "alerts", p.datasets.Marts+"."+tableAlertEvents, sql, params)
	if err != nil {
		return alertsResult{}, err
	}
	found, available := res.Get()
	if !available {
		return alertsResult{rows: []analytics.AlertRow{}}, nil
	}

	rows := make([]analytics.AlertRow, 0, len(found))
	for _, r := range found {
		severity := "warn"
		if s, ok := r.key("severity"); ok {
			severity = s
		}
		rows = append(rows, analytics.AlertRow{
			DetectedAtUTC:  analytics.Deref(analytics.ToIsoTimestamp(r["detected_at_utc"])),
			AlertName:      analytics.ToString(r["alert_name"]),
			Severity:       severity,
			TenantID:       r.text("tenant_id"),
			MetricValue:    r.nullableNumber("metric_value"),
			ThresholdValue: r.nullableNumber("threshold_value"),
		})
	}
	return alertsResult{available: true, rows: rows}, nil
}
