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

// GetTenants lists tenants by net revenue with their busiest test.
func (p *Provider) GetTenants(ctx context.Context, f analytics.Filters) (*analytics.TenantsResponse, error) {
	tables := p.tables(ctx)

	var (
		events []eventDimensionRow
		stripe []stripeDimensionRow
		pairs  []eventDimensionRow
	)
	err := parallel(
		func() (err error) { events, err = p.eventsBy(ctx, f, tables, byTenant.limited(tenantsRowsLimit)); return },
		func() (err error) { stripe, err = p.stripeBy(ctx, f, tables, byTenant.limited(tenantsRowsLimit)); return },
		func() (err error) { pairs, err = p.eventsBy(ctx, f, tables, byTenantTest.limited(tenantsRowsLimit*10)); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get tenants: %w", err)
	}

	topTest := topPartner(pairs)
	set := newMergeSet().addEvents(events, idKey).addStripe(stripe, idKey).ensure(f.TenantID)

	rows := make([]analytics.TenantsRow, 0, len(set.order))
	for _, m := range analytics.Limit(set.ranked(), tenantsRowsLimit) {
		row := analytics.TenantsRow{
			TenantID:         m.key,
			TenantMetrics:    m.tenantMetrics(),
			LastActivityDate: m.lastActivity(),
		}
		if testID, ok := topTest[m.key]; ok {
			row.TopTestID = &testID
		}
		rows = append(rows, row)
	}

	return &analytics.TenantsResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		Rows:           rows,
		TotalRows:      len(rows),
	}, nil
}

// GetTenantDetail scopes every query to tenantID. A tenant without sessions or
// purchases in range reports has_data false with every collection empty.
func (p *Provider) GetTenantDetail(ctx context.Context, tenantID string, f analytics.Filters) (*analytics.TenantDetailResponse, error) {
	tables := p.tables(ctx)
	scoped := f.WithTenant(tenantID)

	var (
		agg          analytics.Aggregate
		eventsDaily  map[string]eventMetrics
		stripeDaily  map[string]stripeMetrics
		testEvents   []eventDimensionRow
		testStripe   []stripeDimensionRow
		localeEvents []eventDimensionRow
		localeStripe []stripeDimensionRow
	)
	err := parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, scoped, tables); return },
		func() (err error) { eventsDaily, err = p.eventsDaily(ctx, scoped, tables); return },
		func() (err error) { stripeDaily, err = p.stripeDaily(ctx, scoped, tables); return },
		func() (err error) {
			testEvents, err = p.eventsBy(ctx, scoped, tables, byTest.limited(detailRowsLimit))
			return
		},
		func() (err error) {
			testStripe, err = p.stripeBy(ctx, scoped, tables, byTest.limited(detailRowsLimit))
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
		return nil, fmt.Errorf("get tenant detail %s: %w", tenantID, err)
	}

	resp := &analytics.TenantDetailResponse{
		Filters:            scoped,
		GeneratedAtUTC:     p.generatedAt(),
		TenantID:           tenantID,
		Kpis:               []analytics.KpiCard{},
		Funnel:             []analytics.FunnelStep{},
		SessionsTimeseries: []analytics.TimeseriesPoint{},
		RevenueTimeseries:  []analytics.TimeseriesPoint{},
		TopTests:           []analytics.TenantTopTestRow{},
		LocaleBreakdown:    []analytics.TenantLocaleRow{},
		HasData:            agg.Sessions > 0 || agg.Purchases > 0,
	}
	if !resp.HasData {
		return resp, nil
	}

	tests := newMergeSet().addEvents(testEvents, idKey).addStripe(testStripe, idKey)
	for _, m := range analytics.Limit(tests.ranked(), detailRowsLimit) {
		resp.TopTests = append(resp.TopTests, analytics.TenantTopTestRow{TestID: m.key, TenantMetrics: m.tenantMetrics()})
	}

	locales := newMergeSet().addEvents(localeEvents, localeKey).addStripe(localeStripe, localeKey)
	for _, m := range analytics.Limit(locales.ranked(), detailRowsLimit) {
		resp.LocaleBreakdown = append(resp.LocaleBreakdown, analytics.TenantLocaleRow{Locale: m.key, TenantMetrics: m.tenantMetrics()})
	}

	resp.Kpis = analytics.BuildKpis(agg)
	resp.Funnel = analytics.BuildAggregateFunnel(agg)
	resp.SessionsTimeseries = sessionsTimeseries(scoped.Start, scoped.End, eventsDaily)
	resp.RevenueTimeseries = revenueTimeseries(scoped.Start, scoped.End, stripeDaily)
	resp.TopTestsTotal = len(resp.TopTests)
	resp.LocaleBreakdownTotal = len(resp.LocaleBreakdown)
	return resp, nil
}
