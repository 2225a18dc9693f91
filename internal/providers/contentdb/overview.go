// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"context"
	"fmt"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// GetOverview returns headline KPIs, the funnel, daily series, top tests and
// tenants, and source freshness. Alerts are not modeled in the content DB.
func (p *Provider) GetOverview(ctx context.Context, f analytics.Filters) (*analytics.OverviewResponse, error) {
	tables := p.tables(ctx)

	var (
		agg          analytics.Aggregate
		eventsDaily  map[string]eventMetrics
		stripeDaily  map[string]stripeMetrics
		testEvents   []eventDimensionRow
		testStripe   []stripeDimensionRow
		tenantEvents []eventDimensionRow
		tenantStripe []stripeDimensionRow
		freshness    []analytics.OverviewFreshnessRow
	)

	candidates := overviewTopRowsLimit * 3
	err := parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, f, tables); return },
		func() (err error) { eventsDaily, err = p.eventsDaily(ctx, f, tables); return },
		func() (err error) { stripeDaily, err = p.stripeDaily(ctx, f, tables); return },
		func() (err error) { testEvents, err = p.eventsBy(ctx, f, tables, byTest.limited(candidates)); return },
		func() (err error) { testStripe, err = p.stripeBy(ctx, f, tables, byTest.limited(candidates)); return },
		func() (err error) { tenantEvents, err = p.eventsBy(ctx, f, tables, byTenant.limited(candidates)); return },
		func() (err error) { tenantStripe, err = p.stripeBy(ctx, f, tables, byTenant.limited(candidates)); return },
		func() (err error) { freshness, err = p.fetchOverviewFreshness(ctx, f, tables); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get overview: %w", err)
	}

	tests := newMergeSet().addEvents(testEvents, idKey).addStripe(testStripe, idKey)
	topTests := make([]analytics.OverviewTopTestRow, 0, len(tests.order))
	for _, m := range tests.ranked() {
		topTests = append(topTests, analytics.OverviewTopTestRow{
			TestID:             m.key,
			NetRevenueEUR:      m.netRevenue(),
			PurchaseConversion: m.paidConversion(),
			Purchases:          m.stripe.Purchases,
		})
	}
	sortOverviewTests(topTests)

	tenants := newMergeSet().addEvents(tenantEvents, idKey).addStripe(tenantStripe, idKey)
	topTenants := make([]analytics.OverviewTopTenantRow, 0, len(tenants.order))
	for _, m := range tenants.ranked() {
		topTenants = append(topTenants, analytics.OverviewTopTenantRow{
			TenantID:      m.key,
			NetRevenueEUR: m.netRevenue(),
			Purchases:     m.stripe.Purchases,
		})
	}

	return &analytics.OverviewResponse{
		Filters:           f,
		GeneratedAtUTC:    p.generatedAt(),
		Kpis:              analytics.BuildKpis(agg),
		Funnel:            analytics.BuildAggregateFunnel(agg),
		VisitsTimeseries:  sessionsTimeseries(f.Start, f.End, eventsDaily),
		RevenueTimeseries: revenueTimeseries(f.Start, f.End, stripeDaily),
		TopTests:          analytics.Limit(topTests, overviewTopRowsLimit),
		TopTenants:        analytics.Limit(topTenants, overviewTopRowsLimit),
		DataFreshness:     freshness,
		AlertsAvailable:   false,
		Alerts:            []analytics.AlertRow{},
	}, nil
}
