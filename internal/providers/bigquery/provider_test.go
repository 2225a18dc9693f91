// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

func TestGetAttribution_NotImplemented(t *testing.T) {
	t.Parallel()

	p := newTestProvider(&fakeRunner{}, "qf-attribution")
	_, err := p.GetAttribution(context.Background(), baseFilters(), analytics.AttributionOptions{})

	var notImpl *analytics.NotImplementedError
	if !errors.As(err, &notImpl) {
		t.Fatalf("expected not implemented error, got %v", err)
	}
	if !strings.Contains(err.Error(), "GetAttribution") || !strings.Contains(err.Error(), "qf-attribution") {
		t.Errorf("expected method and project in message, got %q", err.Error())
	}
}

func TestGetOverview(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("CROSS JOIN pnl_agg", Row{
			"sessions": int64(200), "test_starts": int64(120), "test_completes": int64(80),
			"paywall_views": int64(60), "checkout_starts": int64(20), "purchases": int64(10),
			"paid_conversion": 0.05, "gross_revenue_eur": 120.0, "net_revenue_eur": 99.999,
		}).
		on("funnel_by_date", Row{"date": "2026-01-03", "sessions": int64(50), "net_revenue_eur": 25.5}).
		on("test_id AS dim", Row{"dim": "test-career-fit", "purchases": int64(4), "paid_conversion": 0.1, "net_revenue_eur": 40.0}).
		on("tenant_id AS dim", Row{"dim": "tenant-quizfactory-en", "purchases": int64(6), "net_revenue_eur": 60.0}).
		on("AS max_date", Row{"max_date": "2026-01-06"}).
		fail("alert_events", notFound("marts.alert_events"))

	p := newTestProvider(fake, "qf-overview")
	resp, err := p.GetOverview(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := kpiValue(t, resp.Kpis, "sessions"); got != 200 {
		t.Errorf("expected 200 sessions, got %v", got)
	}
	if got := kpiValue(t, resp.Kpis, "net_revenue_eur"); got != 100 {
		t.Errorf("expected net revenue rounded to 100, got %v", got)
	}
	if len(resp.VisitsTimeseries) != 7 || len(resp.RevenueTimeseries) != 7 {
		t.Fatalf("expected zero-filled 7 day series, got %d and %d", len(resp.VisitsTimeseries), len(resp.RevenueTimeseries))
	}
	if resp.VisitsTimeseries[2].Date != "2026-01-03" || resp.VisitsTimeseries[2].Value != 50 {
		t.Errorf("expected 50 visits on 2026-01-03, got %+v", resp.VisitsTimeseries[2])
	}
	if resp.VisitsTimeseries[0].Value != 0 {
		t.Errorf("expected missing day to be 0, got %v", resp.VisitsTimeseries[0].Value)
	}
	if len(resp.TopTests) != 1 || resp.TopTests[0].PurchaseConversion != 0.1 {
		t.Errorf("unexpected top tests %+v", resp.TopTests)
	}
	if len(resp.TopTenants) != 1 || resp.TopTenants[0].TenantID != "tenant-quizfactory-en" {
		t.Errorf("unexpected top tenants %+v", resp.TopTenants)
	}
	if resp.AlertsAvailable || resp.Alerts == nil || len(resp.Alerts) != 0 {
		t.Errorf("expected alerts unavailable with empty list, got %v %v", resp.AlertsAvailable, resp.Alerts)
	}
	if len(resp.DataFreshness) != 3 || resp.DataFreshness[0].MaxDate == nil || *resp.DataFreshness[0].MaxDate != "2026-01-06" {
		t.Errorf("unexpected freshness %+v", resp.DataFreshness)
	}

	top := fake.find(t, "test_id AS dim")
	if !strings.Contains(top.sql, "ORDER BY "+orderByRevenueConversion) || !strings.Contains(top.sql, "LIMIT 10") {
		t.Errorf("expected top tests ordered by revenue then conversion, got %s", top.sql)
	}
}

func TestOverviewFreshnessCache(t *testing.T) {
	fake := (&fakeRunner{}).on("AS max_date", Row{"max_date": "2026-01-06"})
	p := newTestProvider(fake, "qf-freshness-cache")

	for i := 0; i < 2; i++ {
		if _, err := p.GetOverview(context.Background(), baseFilters()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if n := fake.count("AS max_date"); n != len(freshnessTables) {
		t.Errorf("expected freshness queried once per mart, got %d queries", n)
	}

	ResetCaches()
	if _, err := p.GetOverview(context.Background(), baseFilters()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := fake.count("AS max_date"); n != 2*len(freshnessTables) {
		t.Errorf("expected reset to force a new lookup, got %d queries", n)
	}
}

func TestGetOverview_MissingMartFreshness(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		fail("mart_unit_econ_daily", notFound("marts.mart_unit_econ_daily")).
		on("AS max_date", Row{"max_date": "2026-01-06"})

	p := newTestProvider(fake, "qf-freshness-missing")
	resp, err := p.GetOverview(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, row := range resp.DataFreshness {
		if row.Table == tableUnitEconDaily && row.Available {
			t.Errorf("expected unit economics mart unavailable, got %+v", row)
		}
		if row.Table == tableFunnelDaily && !row.Available {
			t.Errorf("expected funnel mart available, got %+v", row)
		}
	}
}

func TestGetOverview_AlertsDefaultSeverity(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).on("alert_events", Row{
		"detected_at_utc": time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		"alert_name":      "refund_spike",
		"tenant_id":       "tenant-quizfactory-en",
		"metric_value":    0.2,
	})

	p := newTestProvider(fake, "qf-alerts")
	resp, err := p.GetOverview(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.AlertsAvailable || len(resp.Alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", resp.Alerts)
	}
	a := resp.Alerts[0]
	if a.Severity != "warn" {
		t.Errorf("expected default severity warn, got %s", a.Severity)
	}
	if a.DetectedAtUTC != "2026-01-05T08:00:00.000Z" {
		t.Errorf("unexpected timestamp %s", a.DetectedAtUTC)
	}
	if a.ThresholdValue != nil {
		t.Errorf("expected null threshold, got %v", *a.ThresholdValue)
	}
}

func TestGetOverview_QueryError(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).fail("CROSS JOIN pnl_agg", errors.New("quota exceeded"))
	p := newTestProvider(fake, "qf-overview-error")

	_, err := p.GetOverview(context.Background(), baseFilters())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestGetTenants(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).on("tenant_id AS dim",
		Row{"dim": "tenant-a", "sessions": int64(100), "purchases": int64(5), "net_revenue_eur": 50.0,
			"top_partner": "test-career-fit", "last_activity_date": "2026-01-06", "total_rows": int64(42)},
		Row{"dim": "tenant-b", "sessions": int64(10), "net_revenue_eur": 5.0, "total_rows": int64(42)},
	)

	p := newTestProvider(fake, "qf-tenants")
	resp, err := p.GetTenants(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.TotalRows != 42 {
		t.Errorf("expected total_rows 42, got %d", resp.TotalRows)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Rows))
	}
	if resp.Rows[0].TopTestID == nil || *resp.Rows[0].TopTestID != "test-career-fit" {
		t.Errorf("unexpected top test %v", resp.Rows[0].TopTestID)
	}
	if resp.Rows[1].TopTestID != nil || resp.Rows[1].LastActivityDate != nil {
		t.Errorf("expected null partner and activity, got %+v", resp.Rows[1])
	}

	q := fake.find(t, "tenant_id AS dim")
	if !strings.Contains(q.sql, "ranked_partners") || !strings.Contains(q.sql, "LIMIT 20") {
		t.Errorf("expected partner ranking and limit 20, got %s", q.sql)
	}
	if !strings.Contains(q.sql, "dim != '"+unallocated+"'") {
		t.Error("expected unallocated tenants excluded")
	}
}

func TestGetTenantDetail_NoData(t *testing.T) {
	t.Parallel()

	p := newTestProvider(&fakeRunner{}, "qf-tenant-empty")
	resp, err := p.GetTenantDetail(context.Background(), "tenant-quizfactory-en", baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.HasData {
		t.Error("expected has_data false")
	}
	if resp.Kpis == nil || len(resp.Kpis) != 0 || resp.SessionsTimeseries == nil || len(resp.SessionsTimeseries) != 0 {
		t.Errorf("expected empty collections, got %v and %v", resp.Kpis, resp.SessionsTimeseries)
	}
	if resp.Filters.TenantID == nil || *resp.Filters.TenantID != "tenant-quizfactory-en" {
		t.Errorf("expected filters scoped to tenant, got %v", resp.Filters.TenantID)
	}
}

func TestGetTenantDetail_WithData(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("CROSS JOIN pnl_agg", Row{"sessions": int64(30), "purchases": int64(3)}).
		on("funnel_by_date", Row{"date": "2026-01-02", "sessions": int64(30)}).
		on("test_id AS dim", Row{"dim": "test-career-fit", "sessions": int64(30), "total_rows": int64(7)}).
		on("COALESCE(locale, 'unknown') AS dim", Row{"dim": "unknown", "sessions": int64(30), "total_rows": int64(2)})

	p := newTestProvider(fake, "qf-tenant-detail")
	resp, err := p.GetTenantDetail(context.Background(), "tenant-quizfactory-en", baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.HasData {
		t.Fatal("expected has_data true")
	}
	if resp.TopTestsTotal != 7 || resp.LocaleBreakdownTotal != 2 {
		t.Errorf("expected totals 7 and 2, got %d and %d", resp.TopTestsTotal, resp.LocaleBreakdownTotal)
	}
	if len(resp.LocaleBreakdown) != 1 || resp.LocaleBreakdown[0].Locale != "unknown" {
		t.Errorf("expected unknown locale kept, got %+v", resp.LocaleBreakdown)
	}
	if len(resp.SessionsTimeseries) != 7 {
		t.Errorf("expected 7 day series, got %d", len(resp.SessionsTimeseries))
	}

	q := fake.find(t, "CROSS JOIN pnl_agg")
	if !slices.Contains(paramNames(q.params), "tenant_id") {
		t.Errorf("expected tenant_id param, got %v", paramNames(q.params))
	}
}

func TestGetTests(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("test_id AS dim", Row{"dim": "test-career-fit", "sessions": int64(10), "top_partner": "tenant-a"}).
		on("`qf-tests.tmp.tests`", Row{"test_id": "test-career-fit", "slug": "career-fit"})

	p := newTestProvider(fake, "qf-tests")
	resp, err := p.GetTests(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(resp.Rows))
	}
	row := resp.Rows[0]
	if row.Slug != "career-fit" {
		t.Errorf("expected slug career-fit, got %q", row.Slug)
	}
	if row.TopTenantID == nil || *row.TopTenantID != "tenant-a" {
		t.Errorf("unexpected top tenant %v", row.TopTenantID)
	}
}

func TestGetTests_CatalogMissing(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("test_id AS dim", Row{"dim": "test-career-fit"}).
		fail("`qf-tests-nocat.tmp.tests`", notFound("tmp.tests"))

	p := newTestProvider(fake, "qf-tests-nocat")
	resp, err := p.GetTests(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].Slug != "" {
		t.Errorf("expected row without slug, got %+v", resp.Rows)
	}
}

func TestGetTestDetail(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("CROSS JOIN pnl_agg", Row{"paywall_views": int64(40), "checkout_starts": int64(10), "purchases": int64(4)}).
		on("funnel_by_date", Row{"date": "2026-01-07", "sessions": int64(9), "test_completes": int64(3), "purchases": int64(1), "net_revenue_eur": 9.99})

	p := newTestProvider(fake, "qf-test-detail")
	resp, err := p.GetTestDetail(context.Background(), "test-career-fit", baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.PaywallMetricsAvailable || resp.PaywallMetrics == nil {
		t.Fatal("expected paywall metrics")
	}
	if resp.PaywallMetrics.CheckoutStartRate != 0.25 || resp.PaywallMetrics.CheckoutSuccessRate != 0.4 {
		t.Errorf("unexpected paywall rates %+v", resp.PaywallMetrics)
	}
	last := resp.Timeseries[len(resp.Timeseries)-1]
	if last.Date != "2026-01-07" || last.Completes != 3 || last.NetRevenueEUR != 9.99 {
		t.Errorf("unexpected last point %+v", last)
	}
	if resp.TenantBreakdown == nil || resp.LocaleBreakdown == nil {
		t.Error("expected non-nil breakdowns")
	}
}

func TestDeviceFilterIntrospection(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).on("INFORMATION_SCHEMA.COLUMNS",
		Row{"table_name": tableFunnelDaily, "column_name": columnDeviceType},
	)
	p := newTestProvider(fake, "qf-device")

	f := baseFilters()
	f.DeviceType = "mobile"
	for i := 0; i < 2; i++ {
		if _, err := p.GetOverview(context.Background(), f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := fake.count("INFORMATION_SCHEMA.COLUMNS"); n != 1 {
		t.Errorf("expected columns introspected once, got %d", n)
	}

	q := fake.find(t, "CROSS JOIN pnl_agg")
	funnel, pnl, _ := strings.Cut(q.sql, "pnl_agg AS")
	if !strings.Contains(funnel, "device_type = @device_type") {
		t.Errorf("expected funnel to filter by device, got %s", funnel)
	}
	if !strings.Contains(pnl, "AND FALSE") {
		t.Errorf("expected P&L without device column to match nothing, got %s", pnl)
	}
}

func TestNoIntrospectionWithoutDeviceFilter(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{}
	p := newTestProvider(fake, "qf-no-device")
	if _, err := p.GetTenants(context.Background(), baseFilters()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := fake.count("INFORMATION_SCHEMA"); n != 0 {
		t.Errorf("expected no introspection, got %d", n)
	}
}
