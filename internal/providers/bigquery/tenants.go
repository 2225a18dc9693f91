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

// GetTenants lists the top tenants by net revenue. total_rows counts every
// tenant in scope, not only the returned page.
func (p *Provider) GetTenants(ctx context.Context, f analytics.Filters) (*analytics.TenantsResponse, error) {
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get tenants: %w", err)
	}

	found, err := p.fetchDimension(ctx, "tenants", c,
		byTenant.withPartner("test_id").ordered(orderByRevenue).limited(tenantsRowsLimit))
	if err != nil {
		return nil, fmt.Errorf("get tenants: %w", err)
	}

	rows := make([]analytics.TenantsRow, len(found))
	for i, r := range found {
		rows[i] = analytics.TenantsRow{
			TenantID:         r.key,
			TenantMetrics:    r.tenantMetrics(),
			TopTestID:        r.topPartner,
			LastActivityDate: r.lastActivity,
		}
	}

	return &analytics.TenantsResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		Rows:           rows,
		TotalRows:      totalOf(found),
	}, nil
}

// GetTenantDetail scopes every query to tenantID. When nothing in range
// belongs to the tenant, has_data is false and every collection is empty.
func (p *Provider) GetTenantDetail(ctx context.Context, tenantID string, f analytics.Filters) (*analytics.TenantDetailResponse, error) {
	scoped := f.WithTenant(tenantID)
	c, err := p.clauses(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("get tenant detail %s: %w", tenantID, err)
	}

	var (
		agg     analytics.Aggregate
		daily   map[string]dailyRow
		tests   []dimensionRow
		locales []dimensionRow
	)
	err = parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, c); return },
		func() (err error) { daily, err = p.fetchDaily(ctx, c); return },
		func() (err error) {
			tests, err = p.fetchDimension(ctx, "tenant_detail_tests", c,
				byTest.ordered(orderByRevenue).limited(tenantsRowsLimit))
			return
		},
		func() (err error) {
			locales, err = p.fetchDimension(ctx, "tenant_detail_locales", c,
				byLocale.ordered(orderByRevenue).limited(tenantsRowsLimit))
			return
		},
	)
	if err != nil {
		return nil, fmt.Errorf("get tenant detail %s: %w", tenantID, err)
	}

	testsTotal, localesTotal := totalOf(tests), totalOf(locales)
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
		HasData:            len(daily) > 0 || testsTotal > 0 || localesTotal > 0,
	}
	if !resp.HasData {
		return resp, nil
	}

	for _, r := range tests {
		resp.TopTests = append(resp.TopTests, analytics.TenantTopTestRow{TestID: r.key, TenantMetrics: r.tenantMetrics()})
	}
	for _, r := range locales {
		resp.LocaleBreakdown = append(resp.LocaleBreakdown, analytics.TenantLocaleRow{Locale: r.key, TenantMetrics: r.tenantMetrics()})
	}

	resp.Kpis = analytics.BuildKpis(agg)
	resp.Funnel = analytics.BuildAggregateFunnel(agg)
	resp.SessionsTimeseries = timeseries(scoped, daily, sessionsOf)
	resp.RevenueTimeseries = timeseries(scoped, daily, netRevenueOf)
	resp.TopTestsTotal = testsTotal
	resp.LocaleBreakdownTotal = localesTotal
	return resp, nil
}
