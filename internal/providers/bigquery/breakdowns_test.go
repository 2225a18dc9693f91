// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

func TestGetDistribution(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("CONCAT(tenant_id, '::', test_id) AS dim",
			Row{"dim": "tenant-a::test-x", "paid_conversion": 0.25, "net_revenue_eur": 30.0},
			Row{"dim": "tenant-a::" + unallocated, "net_revenue_eur": 5.0},
		).
		on("tenant_tests",
			Row{"tenant_id": "tenant-a", "test_id": "test-x", "version_id": "v3", "is_enabled": true},
			Row{"tenant_id": "tenant-b", "test_id": "test-x", "is_enabled": false},
		).
		on("tenant_id AS dim",
			Row{"dim": "tenant-a", "net_revenue_eur": 35.0},
			Row{"dim": "tenant-b", "net_revenue_eur": 35.0},
		).
		on("test_id AS dim", Row{"dim": "test-x", "net_revenue_eur": 30.0})

	f := baseFilters()
	f.TestID = analytics.Ptr("test-y")

	p := newTestProvider(fake, "qf-distribution")
	resp, err := p.GetDistribution(context.Background(), f, analytics.DistributionOptions{TopTenants: 5, TopTests: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(resp.RowOrder, []string{"tenant-a", "tenant-b"}) {
		t.Errorf("expected ties broken by id, got %v", resp.RowOrder)
	}
	if !slices.Equal(resp.ColumnOrder, []string{"test-x", "test-y"}) {
		t.Errorf("expected filtered test appended, got %v", resp.ColumnOrder)
	}

	cell := resp.Rows["tenant-a"].Cells["test-x"]
	if !cell.IsPublished || cell.VersionID == nil || *cell.VersionID != "v3" || cell.Enabled == nil || !*cell.Enabled {
		t.Errorf("unexpected published cell %+v", cell)
	}
	if cell.NetRevenueEUR7d != 30 || cell.PaidConversion7d != 0.25 {
		t.Errorf("unexpected cell metrics %+v", cell)
	}

	unpublished := resp.Rows["tenant-b"].Cells["test-x"]
	if unpublished.IsPublished || unpublished.Enabled == nil || *unpublished.Enabled {
		t.Errorf("expected unpublished disabled cell, got %+v", unpublished)
	}
	if empty := resp.Rows["tenant-b"].Cells["test-y"]; empty.NetRevenueEUR7d != 0 || empty.Enabled != nil {
		t.Errorf("expected empty cell, got %+v", empty)
	}

	cells := fake.find(t, "CONCAT(tenant_id")
	names := paramNames(cells.params)
	if !slices.Contains(names, "row_tenants") || !slices.Contains(names, "column_tests") {
		t.Errorf("expected selected rows and columns bound, got %v", names)
	}
}

func TestGetDistribution_Empty(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{}
	p := newTestProvider(fake, "qf-distribution-empty")
	resp, err := p.GetDistribution(context.Background(), baseFilters(), analytics.DistributionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.TopTenants != analytics.DefaultDistributionTop || len(resp.RowOrder) != 0 || resp.Rows == nil {
		t.Errorf("unexpected empty matrix %+v", resp)
	}
	if n := fake.count("CONCAT(tenant_id"); n != 0 {
		t.Errorf("expected no cell query for an empty matrix, got %d", n)
	}
}

func TestGetTraffic_OptionalColumns(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("INFORMATION_SCHEMA.COLUMNS", Row{"table_name": tableFunnelDaily, "column_name": columnDeviceType}).
		on("NULLIF(device_type, '')", Row{"dim": "mobile", "sessions": int64(12)}).
		on("[SAFE_OFFSET(0)]", Row{"dim": "meta", "sessions": int64(40), "purchases": int64(2), "paid_conversion": 0.05})

	p := newTestProvider(fake, "qf-traffic")
	resp, err := p.GetTraffic(context.Background(), baseFilters(), analytics.TrafficOptions{TopN: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.TopN != 5 {
		t.Errorf("expected top_n 5, got %d", resp.TopN)
	}
	if len(resp.ByUTMSource) != 1 || resp.ByUTMSource[0].Segment != "meta" || resp.ByUTMSource[0].PaidConversion != 0.05 {
		t.Errorf("unexpected utm source rows %+v", resp.ByUTMSource)
	}
	if len(resp.ByDeviceType) != 1 || resp.ByDeviceType[0].Segment != "mobile" {
		t.Errorf("unexpected device rows %+v", resp.ByDeviceType)
	}
	if resp.ByReferrer == nil || len(resp.ByReferrer) != 0 || resp.ByCountry == nil || len(resp.ByCountry) != 0 {
		t.Errorf("expected empty referrer and country, got %v %v", resp.ByReferrer, resp.ByCountry)
	}
	if n := fake.count("NULLIF(referrer"); n != 0 {
		t.Errorf("expected missing referrer column not queried, got %d", n)
	}

	device := fake.find(t, "NULLIF(device_type, '')")
	if !strings.Contains(device.sql, "WHERE FALSE") {
		t.Error("expected P&L side skipped for a funnel-only column")
	}
	if !strings.Contains(device.sql, "ORDER BY "+orderBySessions) || !strings.Contains(device.sql, "LIMIT 5") {
		t.Errorf("expected sessions order and limit, got %s", device.sql)
	}
}

func TestGetRevenue(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		on("CROSS JOIN pnl_agg", Row{"purchases": int64(10), "gross_revenue_eur": 100.0, "net_revenue_eur": 80.0}).
		on("mart_unit_econ_daily", Row{"offer_key": "pack_10_bundle", "pricing_variant": "b", "purchases": int64(3), "net_revenue_eur": 45.0}).
		on("stripe_purchase_count", Row{"stripe_purchase_count": int64(8), "stripe_gross_revenue_eur": 90.0}).
		on("funnel_by_date", Row{"date": "2026-01-02", "gross_revenue_eur": 20.0, "net_revenue_eur": 15.0})

	p := newTestProvider(fake, "qf-revenue")
	resp, err := p.GetRevenue(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Daily) != 7 || resp.Daily[1].NetRevenueEUR != 15 {
		t.Errorf("unexpected daily rows %+v", resp.Daily)
	}
	if len(resp.ByOffer) != 1 || resp.ByOffer[0].OfferType != "pack_10" || resp.ByOffer[0].PricingVariant != "b" {
		t.Errorf("unexpected offers %+v", resp.ByOffer)
	}

	r := resp.Reconciliation
	if !r.Available {
		t.Fatal("expected reconciliation available")
	}
	if *r.PurchaseCountDiff != 2 || *r.PurchaseCountDiffPct != 0.25 {
		t.Errorf("expected count diff 2 (25%%), got %v (%v)", *r.PurchaseCountDiff, *r.PurchaseCountDiffPct)
	}
	if *r.GrossRevenueDiffEUR != 10 || *r.GrossRevenueDiffPct != 0.1111 {
		t.Errorf("expected gross diff 10 (0.1111), got %v (%v)", *r.GrossRevenueDiffEUR, *r.GrossRevenueDiffPct)
	}
}

func TestGetRevenue_OptionalSourcesMissing(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		fail("mart_unit_econ_daily", notFound("marts.mart_unit_econ_daily")).
		fail("stripe_purchase_count", notFound("raw_stripe.purchases")).
		on("CROSS JOIN pnl_agg", Row{"purchases": int64(4)})

	p := newTestProvider(fake, "qf-revenue-missing")
	resp, err := p.GetRevenue(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.ByOffer == nil || len(resp.ByOffer) != 0 {
		t.Errorf("expected empty offers, got %v", resp.ByOffer)
	}
	r := resp.Reconciliation
	if r.Available || r.StripePurchaseCount != nil || r.PurchaseCountDiff != nil {
		t.Errorf("expected unavailable reconciliation, got %+v", r)
	}
	if r.InternalPurchaseCount == nil || *r.InternalPurchaseCount != 4 {
		t.Errorf("expected internal count 4, got %v", r.InternalPurchaseCount)
	}
}

func TestGetDataHealth(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).
		fail("raw_stripe.purchases", notFound("raw_stripe.purchases")).
		on("last_loaded_utc", Row{"last_loaded_utc": time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)}).
		on("CROSS JOIN pnl_agg", Row{"sessions": int64(100), "purchases": int64(5)})

	p := newTestProvider(fake, "qf-health")
	resp, err := p.GetDataHealth(context.Background(), baseFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Freshness) != 3 {
		t.Fatalf("expected 3 freshness rows, got %d", len(resp.Freshness))
	}
	funnel := resp.Freshness[0]
	if funnel.Dataset != "marts" || funnel.LagMinutes == nil || *funnel.LagMinutes != 720 || funnel.Status != analytics.StatusOK {
		t.Errorf("unexpected funnel freshness %+v", funnel)
	}
	stripe := resp.Freshness[2]
	if stripe.LagMinutes != nil || stripe.Status != analytics.StatusError {
		t.Errorf("expected missing stripe table to be an error, got %+v", stripe)
	}
	if resp.Status != analytics.StatusError {
		t.Errorf("expected overall error, got %s", resp.Status)
	}

	var availability analytics.DataHealthCheck
	for _, c := range resp.Checks {
		if c.Key == "table_availability" {
			availability = c
		}
	}
	if availability.Status != analytics.StatusWarn || !strings.Contains(availability.Detail, "1 warehouse table") {
		t.Errorf("unexpected availability check %+v", availability)
	}
	if resp.DbtLastRun != nil {
		t.Error("expected no dbt marker")
	}
	if !resp.AlertsAvailable || resp.Alerts == nil || len(resp.Alerts) != 0 {
		t.Errorf("expected an empty but available alert list, got %v %v", resp.AlertsAvailable, resp.Alerts)
	}
}
