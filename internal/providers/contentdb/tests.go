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

// GetTests lists tests by net revenue with their busiest tenant and catalog slug.
func (p *Provider) GetTests(ctx context.Context, f analytics.Filters) (*analytics.TestsResponse, error) {
	tables := p.tables(ctx)

	var (
		events  []eventDimensionRow
		stripe  []stripeDimensionRow
		pairs   []eventDimensionRow
		slugMap map[string]string
	)
	err := parallel(
		func() (err error) { events, err = p.eventsBy(ctx, f, tables, byTest.limited(testsRowsLimit)); return },
		func() (err error) { stripe, err = p.stripeBy(ctx, f, tables, byTest.limited(testsRowsLimit)); return },
		func() (err error) { pairs, err = p.eventsBy(ctx, f, tables, byTestTenant.limited(testsRowsLimit*5)); return },
		func() (err error) { slugMap, err = p.fetchSlugs(ctx, f, tables); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get tests: %w", err)
	}

	topTenant := topPartner(pairs)
	set := newMergeSet().addEvents(events, idKey).addStripe(stripe, idKey).ensure(f.TestID)

	rows := make([]analytics.TestsRow, 0, len(set.order))
	for _, m := range analytics.Limit(set.ranked(), testsRowsLimit) {
		perf := m.performance()
		row := analytics.TestsRow{
			TestID:           m.key,
			Slug:             slugMap[m.key],
			Sessions:         perf.Sessions,
			Starts:           perf.Starts,
			Completes:        perf.Completes,
			Purchases:        perf.Purchases,
			PaidConversion:   perf.PaidConversion,
			NetRevenueEUR:    perf.NetRevenueEUR,
			RefundsEUR:       perf.RefundsEUR,
			LastActivityDate: m.lastActivity(),
		}
		if tenantID, ok := topTenant[m.key]; ok {
			row.TopTenantID = &tenantID
		}
		rows = append(rows, row)
	}

	return &analytics.TestsResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		Rows:           rows,
	}, nil
}

// GetTestDetail scopes every query to testID.
func (p *Provider) GetTestDetail(ctx context.Context, testID string, f analytics.Filters) (*analytics.TestDetailResponse, error) {
	tables := p.tables(ctx)
	scoped := f.WithTest(testID)

	var (
		agg          analytics.Aggregate
		eventsDaily  map[string]eventMetrics
		stripeDaily  map[string]stripeMetrics
		tenantEvents []eventDimensionRow
		tenantStripe []stripeDimensionRow
		localeEvents []eventDimensionRow
		localeStripe []stripeDimensionRow
	)
	err := parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, scoped, tables); return },
		func() (err error) { eventsDaily, err = p.eventsDaily(ctx, scoped, tables); return },
		func() (err error) { stripeDaily, err = p.stripeDaily(ctx, scoped, tables); return },
		func() (err error) {
			tenantEvents, err = p.eventsBy(ctx, scoped, tables, byTenant.limited(detailRowsLimit))
			return
		},
		func() (err error) {
			tenantStripe, err = p.stripeBy(ctx, scoped, tables, byTenant.limited(detailRowsLimit))
			return
		},
		func() (err error) {
			localeEvents, err = p.eventsBy(ctx, scoped, tables, byLocale.limited(detailRowsLimit))
			return
		},
		func() (err error) {
			localeStripe, err = p.stripeBy(ctx, scoped, tables, byLocale.limited(detailRowsLimit))
			return
		},
	)
	if err != nil {
		return nil, fmt.Errorf("get test detail %s: %w", testID, err)
	}

	dates := analytics.ListDatesInclusive(scoped.Start, scoped.End)
	series := make([]analytics.TestTimeseriesRow, len(dates))
	for i, d := range dates {
		e, s := eventsDaily[d], stripeDaily[d]
		series[i] = analytics.TestTimeseriesRow{
			Date:          d,
			Sessions:      e.Sessions,
			Completes:     e.Completes,
			Purchases:     s.Purchases,
			NetRevenueEUR: s.Money.NetRevenueEUR,
		}
	}

	tenantRows := []analytics.TestTenantRow{}
	tenants := newMergeSet().addEvents(tenantEvents, idKey).addStripe(tenantStripe, idKey)
	for _, m := range analytics.Limit(tenants.ranked(), detailRowsLimit) {
		tenantRows = append(tenantRows, analytics.TestTenantRow{TenantID: m.key, PerformanceMetrics: m.performance()})
	}

	localeRows := []analytics.TestLocaleRow{}
	locales := newMergeSet().addEvents(localeEvents, localeKey).addStripe(localeStripe, localeKey)
	for _, m := range analytics.Limit(locales.ranked(), detailRowsLimit) {
		localeRows = append(localeRows, analytics.TestLocaleRow{Locale: m.key, PerformanceMetrics: m.performance()})
	}

	resp := &analytics.TestDetailResponse{
		Filters:                 scoped,
		GeneratedAtUTC:          p.generatedAt(),
		TestID:                  testID,
		Kpis:                    analytics.BuildKpis(agg),
		Funnel:                  analytics.BuildAggregateFunnel(agg),
		Timeseries:              series,
		TenantBreakdown:         tenantRows,
		LocaleBreakdown:         localeRows,
		PaywallMetricsAvailable: tables.AnalyticsEvents,
	}
	if tables.AnalyticsEvents {
		resp.PaywallMetrics = &analytics.PaywallMetrics{
			Views:               agg.PaywallViews,
			CheckoutStarts:      agg.CheckoutStarts,
			CheckoutSuccess:     agg.Purchases,
			CheckoutStartRate:   analytics.SafeRatio(agg.CheckoutStarts, agg.PaywallViews),
			CheckoutSuccessRate: analytics.SafeRatio(agg.Purchases, agg.CheckoutStarts),
		}
	}
	return resp, nil
}
