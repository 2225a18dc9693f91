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

// GetTests lists tests by net revenue. top_tenant_id is the tenant with the
// highest net revenue for the test.
func (p *Provider) GetTests(ctx context.Context, f analytics.Filters) (*analytics.TestsResponse, error) {
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get tests: %w", err)
	}

	found, err := p.fetchDimension(ctx, "tests", c, byTest.withPartner("tenant_id").limited(testsRowsLimit))
	if err != nil {
		return nil, fmt.Errorf("get tests: %w", err)
	}

	ids := make([]string, len(found))
	for i, r := range found {
		ids[i] = r.key
	}
	slugs, err := p.fetchSlugs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get tests: %w", err)
	}

	rows := make([]analytics.TestsRow, len(found))
	for i, r := range found {
		perf := r.performance()
		rows[i] = analytics.TestsRow{
			TestID:           r.key,
			Slug:             slugs[r.key],
			Sessions:         perf.Sessions,
			Starts:           perf.Starts,
			Completes:        perf.Completes,
			Purchases:        perf.Purchases,
			PaidConversion:   perf.PaidConversion,
			NetRevenueEUR:    perf.NetRevenueEUR,
			RefundsEUR:       perf.RefundsEUR,
			TopTenantID:      r.topPartner,
			LastActivityDate: r.lastActivity,
		}
	}

	return &analytics.TestsResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		Rows:           rows,
	}, nil
}

// GetTestDetail scopes every query to testID. The funnel mart always carries
// paywall counts, so paywall metrics are always available.
func (p *Provider) GetTestDetail(ctx context.Context, testID string, f analytics.Filters) (*analytics.TestDetailResponse, error) {
	scoped := f.WithTest(testID)
	c, err := p.clauses(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("get test detail %s: %w", testID, err)
	}

	var (
		agg     analytics.Aggregate
		daily   map[string]dailyRow
		tenants []dimensionRow
		locales []dimensionRow
	)
	err = parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, c); return },
		func() (err error) { daily, err = p.fetchDaily(ctx, c); return },
		func() (err error) {
			tenants, err = p.fetchDimension(ctx, "test_detail_tenants", c, byTenant.limited(detailRowsLimit))
			return
		},
		func() (err error) {
			locales, err = p.fetchDimension(ctx, "test_detail_locales", c, byLocale.limited(detailRowsLimit))
			return
		},
	)
	if err != nil {
		return nil, fmt.Errorf("get test detail %s: %w", testID, err)
	}

	dates := analytics.ListDatesInclusive(scoped.Start, scoped.End)
	series := make([]analytics.TestTimeseriesRow, len(dates))
	for i, d := range dates {
		row := daily[d]
		series[i] = analytics.TestTimeseriesRow{
			Date:          d,
			Sessions:      row.sessions,
			Completes:     row.testCompletes,
			Purchases:     row.purchases,
			NetRevenueEUR: row.money.NetRevenueEUR,
		}
	}

	tenantRows := make([]analytics.TestTenantRow, len(tenants))
	for i, r := range tenants {
		tenantRows[i] = analytics.TestTenantRow{TenantID: r.key, PerformanceMetrics: r.performance()}
	}
	localeRows := make([]analytics.TestLocaleRow, len(locales))
	for i, r := range locales {
		localeRows[i] = analytics.TestLocaleRow{Locale: r.key, PerformanceMetrics: r.performance()}
	}

	return &analytics.TestDetailResponse{
		Filters:                 scoped,
		GeneratedAtUTC:          p.generatedAt(),
		TestID:                  testID,
		Kpis:                    analytics.BuildKpis(agg),
		Funnel:                  analytics.BuildAggregateFunnel(agg),
		Timeseries:              series,
		TenantBreakdown:         tenantRows,
		LocaleBreakdown:         localeRows,
		PaywallMetricsAvailable: true,
		PaywallMetrics: &analytics.PaywallMetrics{
			Views:               agg.PaywallViews,
			CheckoutStarts:      agg.CheckoutStarts,
			CheckoutSuccess:     agg.Purchases,
			CheckoutStartRate:   analytics.SafeRatio(agg.CheckoutStarts, agg.PaywallViews),
			CheckoutSuccessRate: analytics.SafeRatio(agg.Purchases, agg.CheckoutStarts),
		},
	}, nil
}
