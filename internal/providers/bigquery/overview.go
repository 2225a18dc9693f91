// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"fmt"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// GetOverview fans out the KPI aggregate, daily series, top lists, mart
// freshness and alerts, then combines them.
func (p *Provider) GetOverview(ctx context.Context, f analytics.Filters) (*analytics.OverviewResponse, error) {
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get overview: %w", err)
	}

	var (
		agg        analytics.Aggregate
		daily      map[string]dailyRow
		topTests   []dimensionRow
		topTenants []dimensionRow
		freshness  []analytics.OverviewFreshnessRow
		alerts     alertsResult
	)
	err = parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, c); return },
		func() (err error) { daily, err = p.fetchDaily(ctx, c); return },
		func() (err error) {
			topTests, err = p.fetchDimension(ctx, "overview_top_tests", c,
				byTest.ordered(orderByRevenueConversion).limited(overviewTopRowsLimit))
			return
		},
		func() (err error) {
			topTenants, err = p.fetchDimension(ctx, "overview_top_tenants", c,
				byTenant.ordered(orderByRevenue).limited(overviewTopRowsLimit))
			return
		},
		func() (err error) { freshness, err = p.fetchOverviewFreshness(ctx); return },
		func() (err error) { alerts, err = p.fetchAlerts(ctx, f); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get overview: %w", err)
	}

	tests := make([]analytics.OverviewTopTestRow, len(topTests))
	for i, r := range topTests {
		tests[i] = analytics.OverviewTopTestRow{
			TestID:             r.key,
			NetRevenueEUR:      r.money.NetRevenueEUR,
			PurchaseConversion: r.paidConversion,
			Purchases:          r.purchases,
		}
	}
	tenants := make([]analytics.OverviewTopTenantRow, len(topTenants))
	for i, r := range topTenants {
		tenants[i] = analytics.OverviewTopTenantRow{
			TenantID:      r.key,
			NetRevenueEUR: r.money.NetRevenueEUR,
			Purchases:     r.purchases,
		}
	}

	return &analytics.OverviewResponse{
		Filters:           f,
		GeneratedAtUTC:    p.generatedAt(),
		Kpis:              analytics.BuildKpis(agg),
		Funnel:            analytics.BuildAggregateFunnel(agg),
		VisitsTimeseries:  timeseries(f, daily, sessionsOf),
		RevenueTimeseries: timeseries(f, daily, netRevenueOf),
		TopTests:          tests,
		TopTenants:        tenants,
		DataFreshness:     freshness,
		AlertsAvailable:   alerts.available,
		Alerts:            alerts.rows,
	}, nil
}
