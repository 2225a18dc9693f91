// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

// Package mock generates deterministic synthetic analytics for environments
// without a configured backend. Identical filters always produce identical payloads.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

const tenantTableLimit = 20

// Provider implements analytics.Provider from seeded pseudo-random series.
type Provider struct{}

var _ analytics.Provider = (*Provider)(nil)

// New returns a mock provider.
func New() *Provider {
	return &Provider{}
}

// generatedAt is pinned to the range end so responses are reproducible.
func generatedAt(f analytics.Filters) string {
	return f.End + "T12:00:00.000Z"
}

func anchor(f analytics.Filters, hour int) time.Time {
	if d, ok := analytics.ParseDate(f.End); ok {
		return d.Add(time.Duration(hour) * time.Hour)
	}
	return time.Date(2026, 1, 1, hour, 0, 0, 0, time.UTC)
}

func overviewKpis(daily []dailyMetrics, s summary) []analytics.KpiCard {
	return []analytics.KpiCard{
		{Key: "visits", Label: "Visits", Value: float64(s.visits), Unit: analytics.UnitCount,
			Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.visits) })},
		{Key: "test_starts", Label: "Test starts", Value: float64(s.testStarts), Unit: analytics.UnitCount,
			Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.testStarts) })},
		{Key: "test_completions", Label: "Test completions", Value: float64(s.testCompletions), Unit: analytics.UnitCount,
			Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.testCompletions) })},
		{Key: "purchase_success_count", Label: "Purchases", Value: float64(s.purchases), Unit: analytics.UnitCount,
			Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.purchases) })},
		{Key: "net_revenue_eur", Label: "Net revenue (EUR)", Value: s.netRevenue, Unit: analytics.UnitCurrencyEUR,
			Delta: trendDelta(daily, func(d dailyMetrics) float64 { return d.netRevenue })},
	}
}

func funnel(s summary) []analytics.FunnelStep {
	return analytics.BuildFunnel(
		analytics.FunnelStage{Key: "visits", Label: "Visits", Count: float64(s.visits)},
		analytics.FunnelStage{Key: "test_start", Label: "Test starts", Count: float64(s.testStarts)},
		analytics.FunnelStage{Key: "test_complete", Label: "Test completions", Count: float64(s.testCompletions)},
		analytics.FunnelStage{Key: "purchase_success", Label: "Purchase success", Count: float64(s.purchases)},
	)
}

func visitsSeries(daily []dailyMetrics) []analytics.TimeseriesPoint {
	points := make([]analytics.TimeseriesPoint, len(daily))
	for i, d := range daily {
		points[i] = analytics.TimeseriesPoint{Date: d.date, Value: float64(d.visits)}
	}
	return points
}

func revenueSeries(daily []dailyMetrics) []analytics.TimeseriesPoint {
	points := make([]analytics.TimeseriesPoint, len(daily))
	for i, d := range daily {
		points[i] = analytics.TimeseriesPoint{Date: d.date, Value: d.netRevenue}
	}
	return points
}

func lastDate(daily []dailyMetrics) *string {
	if len(daily) == 0 {
		return nil
	}
	return analytics.Ptr(daily[len(daily)-1].date)
}

func tenantMetrics(s summary) analytics.TenantMetrics {
	return analytics.TenantMetrics{
		Sessions:        float64(s.visits),
		TestStarts:      float64(s.testStarts),
		TestCompletions: float64(s.testCompletions),
		Purchases:       float64(s.purchases),
		PaidConversion:  divide(float64(s.purchases), float64(s.visits)),
		NetRevenueEUR:   s.netRevenue,
		RefundsEUR:      s.refunds,
	}
}

func performance(s summary) analytics.PerformanceMetrics {
	return analytics.PerformanceMetrics{
		Sessions:       float64(s.visits),
		Starts:         float64(s.testStarts),
		Completes:      float64(s.testCompletions),
		Purchases:      float64(s.purchases),
		PaidConversion: divide(float64(s.purchases), float64(s.visits)),
		NetRevenueEUR:  s.netRevenue,
		RefundsEUR:     s.refunds,
	}
}

// byRevenuePurchasesKey orders by net revenue, then purchases, both descending, then key.
func byRevenuePurchasesKey(revA, revB, purA, purB float64, keyA, keyB string) bool {
	if revA != revB {
		return revA > revB
	}
	if purA != purB {
		return purA > purB
	}
	return keyA < keyB
}

func buildTestsRows(f analytics.Filters, scope string) []analytics.TestsRow {
	ids := resolveTestIDs(f)
	rows := make([]analytics.TestsRow, 0, len(ids))
	for _, testID := range ids {
		scoped := f.WithTest(testID)
		daily := buildDailySeries(scoped, scope+":"+testID)
		s := summarize(daily)

		var topTenant *string
		if tenants := buildTenantsRows(scoped, scope+":top-tenant:"+testID); len(tenants) > 0 {
			topTenant = analytics.Ptr(tenants[0].TenantID)
		}

		rows = append(rows, analytics.TestsRow{
			TestID:           testID,
			Slug:             strings.TrimPrefix(testID, "test-"),
			Title:            titleFor(testID),
			Sessions:         float64(s.visits),
			Starts:           float64(s.testStarts),
			Completes:        float64(s.testCompletions),
			Purchases:        float64(s.purchases),
			PaidConversion:   divide(float64(s.purchases), float64(s.visits)),
			NetRevenueEUR:    s.netRevenue,
			RefundsEUR:       s.refunds,
			TopTenantID:      topTenant,
			LastActivityDate: lastDate(daily),
		})
	}

	analytics.SortByRevenue(rows,
		func(r analytics.TestsRow) float64 { return r.NetRevenueEUR },
		func(r analytics.TestsRow) string { return r.TestID })
	return rows
}

func buildTenantTopTests(f analytics.Filters, tenantID, scope string) []analytics.TenantTopTestRow {
	ids := resolveTestIDs(f)
	rows := make([]analytics.TenantTopTestRow, 0, len(ids))
	for _, testID := range ids {
		scoped := f.WithTenant(tenantID).WithTest(testID)
		s := summarize(buildDailySeries(scoped, scope+":"+tenantID+":"+testID))
		rows = append(rows, analytics.TenantTopTestRow{TestID: testID, TenantMetrics: tenantMetrics(s)})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return byRevenuePurchasesKey(rows[a].NetRevenueEUR, rows[b].NetRevenueEUR,
			rows[a].Purchases, rows[b].Purchases, rows[a].TestID, rows[b].TestID)
	})
	return rows
}

func buildTenantLocaleBreakdown(f analytics.Filters, tenantID, scope string) []analytics.TenantLocaleRow {
	segments := segmentsOr(f.Locale, defaultLocales)
	scoped := f.WithTenant(tenantID)
	scoped.Locale = analytics.FilterAll

	s := summarize(buildDailySeries(scoped, scope+":"+tenantID))
	weights := segmentWeights(len(segments), seedFromFilters(scoped, scope+":seed"), 17, 11, 3)

	sessions := AllocateByWeights(s.visits, weights)
	starts := AllocateByWeights(s.testStarts, weights)
	completes := AllocateByWeights(s.testCompletions, weights)
	purchases := AllocateByWeights(s.purchases, weights)
	net := allocateCurrency(s.netRevenue, weights)
	refunds := allocateCurrency(s.refunds, weights)

	rows := make([]analytics.TenantLocaleRow, len(segments))
	for i, locale := range segments {
		safeStarts := min(sessions[i], starts[i])
		safeCompletes := min(safeStarts, completes[i])
		safePurchases := min(safeCompletes, purchases[i])
		rows[i] = analytics.TenantLocaleRow{
			Locale: locale,
			TenantMetrics: analytics.TenantMetrics{
				Sessions:        float64(sessions[i]),
				TestStarts:      float64(safeStarts),
				TestCompletions: float64(safeCompletes),
				Purchases:       float64(safePurchases),
				PaidConversion:  divide(float64(safePurchases), float64(sessions[i])),
				NetRevenueEUR:   net[i],
				RefundsEUR:      refunds[i],
			},
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return byRevenuePurchasesKey(rows[a].NetRevenueEUR, rows[b].NetRevenueEUR,
			rows[a].Purchases, rows[b].Purchases, rows[a].Locale, rows[b].Locale)
	})
	return rows
}

func buildTenantsRows(f analytics.Filters, scope string) []analytics.TenantsRow {
	ids := resolveTenantIDs(f)
	rows := make([]analytics.TenantsRow, 0, len(ids))
	for _, tenantID := range ids {
		daily := buildDailySeries(f.WithTenant(tenantID), scope+":"+tenantID)
		s := summarize(daily)
		topTests := buildTenantTopTests(f, tenantID, scope+":top-tests")

		var topTest *string
		if len(topTests) > 0 {
			topTest = analytics.Ptr(topTests[0].TestID)
		}

		rows = append(rows, analytics.TenantsRow{
			TenantID:         tenantID,
			TenantMetrics:    tenantMetrics(s),
			TopTestID:        topTest,
			LastActivityDate: lastDate(daily),
		})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return byRevenuePurchasesKey(rows[a].NetRevenueEUR, rows[b].NetRevenueEUR,
			rows[a].Purchases, rows[b].Purchases, rows[a].TenantID, rows[b].TenantID)
	})
	return rows
}

func overviewFreshness(f analytics.Filters) []analytics.OverviewFreshnessRow {
	end := anchor(f, 0)
	day := func(offset int) *string {
		return analytics.Ptr(analytics.FormatDate(end.AddDate(0, 0, -offset)))
	}
	return []analytics.OverviewFreshnessRow{
		{Table: "mart_funnel_daily", MaxDate: day(1), Available: true},
		{Table: "mart_pnl_daily", MaxDate: day(1), Available: true},
		{Table: "mart_unit_econ_daily", MaxDate: day(2), Available: true},
	}
}

func overviewAlerts(f analytics.Filters) []analytics.AlertRow {
	seed := seedFromFilters(f, "overview-alerts")
	tenantID := "tenant-quizfactory-en"
	if f.TenantID != nil {
		tenantID = *f.TenantID
	}
	return []analytics.AlertRow{{
		DetectedAtUTC:  anchor(f, 14).Format(analytics.ISOTimestampLayout),
		AlertName:      "conversion_drop",
		Severity:       "warn",
		TenantID:       &tenantID,
		MetricValue:    analytics.Ptr(analytics.RoundTo(0.12+float64(seed%5)*0.01, 4)),
		ThresholdValue: analytics.Ptr(0.15),
	}}
}

// GetOverview returns headline KPIs, funnel, series and top lists.
func (p *Provider) GetOverview(_ context.Context, f analytics.Filters) (*analytics.OverviewResponse, error) {
	daily := buildDailySeries(f, "overview")
	s := summarize(daily)

	topTests := analytics.Limit(buildTestsRows(f, "overview-top-tests"), 5)
	overviewTests := make([]analytics.OverviewTopTestRow, len(topTests))
	for i, r := range topTests {
		overviewTests[i] = analytics.OverviewTopTestRow{
			TestID:             r.TestID,
			NetRevenueEUR:      r.NetRevenueEUR,
			PurchaseConversion: r.PaidConversion,
			Purchases:          r.Purchases,
		}
	}

	topTenants := analytics.Limit(buildTenantsRows(f, "overview-top-tenants"), 5)
	overviewTenants := make([]analytics.OverviewTopTenantRow, len(topTenants))
	for i, r := range topTenants {
		overviewTenants[i] = analytics.OverviewTopTenantRow{
			TenantID:      r.TenantID,
			NetRevenueEUR: r.NetRevenueEUR,
			Purchases:     r.Purchases,
		}
	}

	return &analytics.OverviewResponse{
		Filters:           f,
		GeneratedAtUTC:    generatedAt(f),
		Kpis:              overviewKpis(daily, s),
		Funnel:            funnel(s),
		VisitsTimeseries:  visitsSeries(daily),
		RevenueTimeseries: revenueSeries(daily),
		TopTests:          overviewTests,
		TopTenants:        overviewTenants,
		DataFreshness:     overviewFreshness(f),
		AlertsAvailable:   true,
		Alerts:            overviewAlerts(f),
	}, nil
}

// GetTests lists every catalog test ranked by net revenue.
func (p *Provider) GetTests(_ context.Context, f analytics.Filters) (*analytics.TestsResponse, error) {
	return &analytics.TestsResponse{
		Filters:        f,
		GeneratedAtUTC: generatedAt(f),
		Rows:           buildTestsRows(f, "tests"),
	}, nil
}

// GetTestDetail scopes the filters to testID.
func (p *Provider) GetTestDetail(_ context.Context, testID string, f analytics.Filters) (*analytics.TestDetailResponse, error) {
	scoped := f.WithTest(testID)
	daily := buildDailySeries(scoped, "tests-detail:"+testID)
	s := summarize(daily)

	timeseries := make([]analytics.TestTimeseriesRow, len(daily))
	for i, d := range daily {
		timeseries[i] = analytics.TestTimeseriesRow{
			Date:          d.date,
			Sessions:      float64(d.visits),
			Completes:     float64(d.testCompletions),
			Purchases:     float64(d.purchases),
			NetRevenueEUR: d.netRevenue,
		}
	}

	tenantIDs := resolveTenantIDs(scoped)
	tenantRows := make([]analytics.TestTenantRow, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		ts := summarize(buildDailySeries(scoped.WithTenant(tenantID), "tests-detail-tenant:"+testID+":"+tenantID))
		tenantRows = append(tenantRows, analytics.TestTenantRow{TenantID: tenantID, PerformanceMetrics: performance(ts)})
	}
	analytics.SortByRevenue(tenantRows,
		func(r analytics.TestTenantRow) float64 { return r.NetRevenueEUR },
		func(r analytics.TestTenantRow) string { return r.TenantID })

	locales := segmentsOr(scoped.Locale, defaultLocales)
	weights := segmentWeights(len(locales), seedFromFilters(scoped, "test-locale-breakdown"), 19, 11, 3)
	sessions := AllocateByWeights(s.visits, weights)
	starts := AllocateByWeights(s.testStarts, weights)
	completes := AllocateByWeights(s.testCompletions, weights)
	purchases := AllocateByWeights(s.purchases, weights)
	net := allocateCurrency(s.netRevenue, weights)
	refunds := allocateCurrency(s.refunds, weights)

	localeRows := make([]analytics.TestLocaleRow, len(locales))
	for i, locale := range locales {
		safeStarts := min(sessions[i], starts[i])
		safeCompletes := min(safeStarts, completes[i])
		safePurchases := min(safeCompletes, purchases[i])
		localeRows[i] = analytics.TestLocaleRow{
			Locale: locale,
			PerformanceMetrics: analytics.PerformanceMetrics{
				Sessions:       float64(sessions[i]),
				Starts:         float64(safeStarts),
				Completes:      float64(safeCompletes),
				Purchases:      float64(safePurchases),
				PaidConversion: divide(float64(safePurchases), float64(sessions[i])),
				NetRevenueEUR:  net[i],
				RefundsEUR:     refunds[i],
			},
		}
	}
	analytics.SortByRevenue(localeRows,
		func(r analytics.TestLocaleRow) float64 { return r.NetRevenueEUR },
		func(r analytics.TestLocaleRow) string { return r.Locale })

	// Paywall views follow completions; checkout starts sit between views and purchases.
	seed := seedFromFilters(scoped, "test-paywall")
	views := float64(s.testCompletions)
	checkoutStarts := float64(s.purchases) + float64(roundInt(float64(s.testCompletions-s.purchases)*(0.25+float64(seed%5)*0.03)))
	paywall := &analytics.PaywallMetrics{
		Views:               views,
		CheckoutStarts:      checkoutStarts,
		CheckoutSuccess:     float64(s.purchases),
		CheckoutStartRate:   analytics.SafeRatio(checkoutStarts, views),
		CheckoutSuccessRate: analytics.SafeRatio(float64(s.purchases), checkoutStarts),
	}

	return &analytics.TestDetailResponse{
		Filters:                 scoped,
		GeneratedAtUTC:          generatedAt(scoped),
		TestID:                  testID,
		Kpis:                    overviewKpis(daily, s),
		Funnel:                  funnel(s),
		Timeseries:              timeseries,
		TenantBreakdown:         tenantRows,
		LocaleBreakdown:         localeRows,
		PaywallMetricsAvailable: true,
		PaywallMetrics:          paywall,
	}, nil
}

// GetTenants ranks catalog tenants, returning at most 20 rows.
func (p *Provider) GetTenants(_ context.Context, f analytics.Filters) (*analytics.TenantsResponse, error) {
	rows := buildTenantsRows(f, "tenants")
	return &analytics.TenantsResponse{
		Filters:        f,
		GeneratedAtUTC: generatedAt(f),
		Rows:           analytics.Limit(rows, tenantTableLimit),
		TotalRows:      len(rows),
	}, nil
}

// GetTenantDetail returns an empty has_data=false payload for unknown tenants.
func (p *Provider) GetTenantDetail(_ context.Context, tenantID string, f analytics.Filters) (*analytics.TenantDetailResponse, error) {
	scoped := f.WithTenant(tenantID)
	resp := &analytics.TenantDetailResponse{
		Filters:            scoped,
		GeneratedAtUTC:     generatedAt(scoped),
		TenantID:           tenantID,
		Kpis:               []analytics.KpiCard{},
		Funnel:             []analytics.FunnelStep{},
		SessionsTimeseries: []analytics.TimeseriesPoint{},
		RevenueTimeseries:  []analytics.TimeseriesPoint{},
		TopTests:           []analytics.TenantTopTestRow{},
		LocaleBreakdown:    []analytics.TenantLocaleRow{},
	}
	if !isKnownTenant(tenantID) {
		return resp, nil
	}

	daily := buildDailySeries(scoped, "tenants-detail:"+tenantID)
	s := summarize(daily)
	topTests := buildTenantTopTests(scoped, tenantID, "tenant-top-tests")
	locales := buildTenantLocaleBreakdown(scoped, tenantID, "tenant-locale-breakdown")

	resp.Kpis = overviewKpis(daily, s)
	resp.Funnel = funnel(s)
	resp.SessionsTimeseries = visitsSeries(daily)
	resp.RevenueTimeseries = revenueSeries(daily)
	resp.TopTests = analytics.Limit(topTests, tenantTableLimit)
	resp.TopTestsTotal = len(topTests)
	resp.LocaleBreakdown = analytics.Limit(locales, tenantTableLimit)
	resp.LocaleBreakdownTotal = len(locales)
	resp.HasData = true
	return resp, nil
}

// GetDistribution builds the tenant x test matrix from per-cell series.
func (p *Provider) GetDistribution(_ context.Context, f analytics.Filters, opts analytics.DistributionOptions) (*analytics.DistributionResponse, error) {
	opts = analytics.ResolveDistributionOptions(opts)

	tenants := analytics.Limit(buildTenantsRows(f, "distribution-tenants"), opts.TopTenants)
	tests := analytics.Limit(buildTestsRows(f, "distribution-tests"), opts.TopTests)

	resp := &analytics.DistributionResponse{
		Filters:        f,
		GeneratedAtUTC: generatedAt(f),
		TopTenants:     opts.TopTenants,
		TopTests:       opts.TopTests,
		RowOrder:       make([]string, 0, len(tenants)),
		ColumnOrder:    make([]string, 0, len(tests)),
		Rows:           make(map[string]analytics.DistributionRow, len(tenants)),
		Columns:        make(map[string]analytics.DistributionColumn, len(tests)),
	}

	for _, t := range tests {
		resp.ColumnOrder = append(resp.ColumnOrder, t.TestID)
		resp.Columns[t.TestID] = analytics.DistributionColumn{TestID: t.TestID, NetRevenueEUR7d: t.NetRevenueEUR}
	}

	for _, tenant := range tenants {
		row := analytics.DistributionRow{
			TenantID:        tenant.TenantID,
			NetRevenueEUR7d: tenant.NetRevenueEUR,
			Cells:           make(map[string]analytics.DistributionCell, len(tests)),
		}
		for _, test := range tests {
			scoped := f.WithTenant(tenant.TenantID).WithTest(test.TestID)
			s := summarize(buildDailySeries(scoped, "distribution:"+tenant.TenantID+":"+test.TestID))
			seed := seedFromFilters(scoped, "distribution-publication")

			cell := analytics.DistributionCell{
				TenantID:         tenant.TenantID,
				TestID:           test.TestID,
				IsPublished:      seed%5 != 0,
				NetRevenueEUR7d:  s.netRevenue,
				PaidConversion7d: divide(float64(s.purchases), float64(s.visits)),
			}
			if cell.IsPublished {
				cell.VersionID = analytics.Ptr(fmt.Sprintf("v%d", seed%7+1))
				cell.Enabled = analytics.Ptr(seed%11 != 0)
			}
			row.Cells[test.TestID] = cell
		}
		resp.RowOrder = append(resp.RowOrder, tenant.TenantID)
		resp.Rows[tenant.TenantID] = row
	}
	return resp, nil
}

func trafficSegments(segments []string, s summary, seed int64, topN int) []analytics.TrafficSegmentRow {
	weights := segmentWeights(len(segments), seed, 19, 11, 3)
	sessions := AllocateByWeights(s.visits, weights)
	purchases := AllocateByWeights(s.purchases, weights)
	net := allocateCurrency(s.netRevenue, weights)

	rows := make([]analytics.TrafficSegmentRow, len(segments))
	for i, segment := range segments {
		p := min(sessions[i], purchases[i])
		rows[i] = analytics.TrafficSegmentRow{
			Segment:        segment,
			Sessions:       float64(sessions[i]),
			Purchases:      float64(p),
			PaidConversion: divide(float64(p), float64(sessions[i])),
			NetRevenueEUR:  net[i],
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Sessions != rows[b].Sessions {
			return rows[a].Sessions > rows[b].Sessions
		}
		return rows[a].Segment < rows[b].Segment
	})
	return analytics.Limit(rows, topN)
}

// GetTraffic splits the filtered totals across channel, device and geography segments.
func (p *Provider) GetTraffic(_ context.Context, f analytics.Filters, opts analytics.TrafficOptions) (*analytics.TrafficResponse, error) {
	opts = analytics.ResolveTrafficOptions(opts)
	daily := buildDailySeries(f, "traffic")
	s := summarize(daily)

	channels := defaultChannels
	if f.UTMSource != nil {
		channels = []string{*f.UTMSource}
	}

	return &analytics.TrafficResponse{
		Filters:        f,
		GeneratedAtUTC: generatedAt(f),
		TopN:           opts.TopN,
		Kpis: []analytics.KpiCard{
			{Key: "visits", Label: "Visits", Value: float64(s.visits), Unit: analytics.UnitCount,
				Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.visits) })},
			{Key: "unique_visitors", Label: "Unique visitors", Value: float64(s.uniqueVisitors), Unit: analytics.UnitCount,
				Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.uniqueVisitors) })},
			{Key: "test_starts", Label: "Test starts", Value: float64(s.testStarts), Unit: analytics.UnitCount,
				Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.testStarts) })},
			{Key: "test_completions", Label: "Test completions", Value: float64(s.testCompletions), Unit: analytics.UnitCount,
				Delta: trendDelta(daily, func(d dailyMetrics) float64 { return float64(d.testCompletions) })},
			{Key: "purchase_conversion", Label: "Purchase conversion", Value: divide(float64(s.purchases), float64(s.visits)), Unit: analytics.UnitRatio,
				Delta: trendDelta(daily, func(d dailyMetrics) float64 { return divide(float64(d.purchases), float64(d.visits)) })},
		},
		ByUTMSource:   trafficSegments(channels, s, seedFromFilters(f, "traffic-by-channel"), opts.TopN),
		ByUTMCampaign: trafficSegments(defaultCampaigns, s, seedFromFilters(f, "traffic-by-campaign"), opts.TopN),
		ByReferrer:    trafficSegments(defaultReferrers, s, seedFromFilters(f, "traffic-by-referrer"), opts.TopN),
		ByDeviceType:  trafficSegments(segmentsOr(f.DeviceType, defaultDevices), s, seedFromFilters(f, "traffic-by-device"), opts.TopN),
		ByCountry:     trafficSegments(defaultCountries, s, seedFromFilters(f, "traffic-by-country"), opts.TopN),
	}, nil
}

func moneyOf(s summary) analytics.MoneyBreakdown {
	return analytics.MoneyBreakdown{
		GrossRevenueEUR: s.grossRevenue,
		RefundsEUR:      s.refunds,
		DisputesFeesEUR: s.disputes,
		PaymentFeesEUR:  s.paymentFees,
		NetRevenueEUR:   s.netRevenue,
	}
}

// GetRevenue returns the gross-to-net waterfall by day, offer, tenant and test.
func (p *Provider) GetRevenue(_ context.Context, f analytics.Filters) (*analytics.RevenueResponse, error) {
	daily := buildDailySeries(f, "revenue")
	s := summarize(daily)

	weights := segmentWeights(len(offerTypes), seedFromFilters(f, "offers"), 17, 10, 2)
	purchases := AllocateByWeights(s.purchases, weights)
	gross := allocateCurrency(s.grossRevenue, weights)
	refunds := allocateCurrency(s.refunds, weights)
	disputes := allocateCurrency(s.disputes, weights)
	fees := allocateCurrency(s.paymentFees, weights)
	net := allocateCurrency(s.netRevenue, weights)

	byOffer := make([]analytics.RevenueByOfferRow, len(offerTypes))
	for i, offer := range offerTypes {
		byOffer[i] = analytics.RevenueByOfferRow{
			OfferType:      offer,
			OfferKey:       "offer-" + offer,
			PricingVariant: "default",
			Purchases:      float64(purchases[i]),
			MoneyBreakdown: analytics.MoneyBreakdown{
				GrossRevenueEUR: gross[i],
				RefundsEUR:      refunds[i],
				DisputesFeesEUR: disputes[i],
				PaymentFeesEUR:  fees[i],
				NetRevenueEUR:   net[i],
			},
		}
	}

	dailyRows := make([]analytics.RevenueDailyRow, len(daily))
	for i, d := range daily {
		dailyRows[i] = analytics.RevenueDailyRow{
			Date: d.date,
			MoneyBreakdown: analytics.MoneyBreakdown{
				GrossRevenueEUR: d.grossRevenue,
				RefundsEUR:      d.refunds,
				DisputesFeesEUR: d.disputes,
				PaymentFeesEUR:  d.paymentFees,
				NetRevenueEUR:   d.netRevenue,
			},
		}
	}

	var byTenant []analytics.RevenueByTenantRow
	for _, tenantID := range resolveTenantIDs(f) {
		ts := summarize(buildDailySeries(f.WithTenant(tenantID), "revenue-tenant:"+tenantID))
		byTenant = append(byTenant, analytics.RevenueByTenantRow{TenantID: tenantID, Purchases: float64(ts.purchases), MoneyBreakdown: moneyOf(ts)})
	}
	analytics.SortByRevenue(byTenant,
		func(r analytics.RevenueByTenantRow) float64 { return r.NetRevenueEUR },
		func(r analytics.RevenueByTenantRow) string { return r.TenantID })

	var byTest []analytics.RevenueByTestRow
	for _, testID := range resolveTestIDs(f) {
		ts := summarize(buildDailySeries(f.WithTest(testID), "revenue-test:"+testID))
		byTest = append(byTest, analytics.RevenueByTestRow{TestID: testID, Purchases: float64(ts.purchases), MoneyBreakdown: moneyOf(ts)})
	}
	analytics.SortByRevenue(byTest,
		func(r analytics.RevenueByTestRow) float64 { return r.NetRevenueEUR },
		func(r analytics.RevenueByTestRow) string { return r.TestID })

	money := func(key, label string, value float64, sel func(dailyMetrics) float64) analytics.KpiCard {
		return analytics.KpiCard{Key: key, Label: label, Value: value, Unit: analytics.UnitCurrencyEUR, Delta: trendDelta(daily, sel)}
	}

	return &analytics.RevenueResponse{
		Filters:        f,
		GeneratedAtUTC: generatedAt(f),
		Kpis: []analytics.KpiCard{
			money("gross_revenue_eur", "Gross revenue (EUR)", s.grossRevenue, func(d dailyMetrics) float64 { return d.grossRevenue }),
			money("refunds_eur", "Refunds (EUR)", s.refunds, func(d dailyMetrics) float64 { return d.refunds }),
			money("disputes_fees_eur", "Disputes fees (EUR)", s.disputes, func(d dailyMetrics) float64 { return d.disputes }),
			money("payment_fees_eur", "Payment fees (EUR)", s.paymentFees, func(d dailyMetrics) float64 { return d.paymentFees }),
			money("net_revenue_eur", "Net revenue (EUR)", s.netRevenue, func(d dailyMetrics) float64 { return d.netRevenue }),
		},
		Daily:    dailyRows,
		ByOffer:  byOffer,
		ByTenant: analytics.NonNil(byTenant),
		ByTest:   analytics.NonNil(byTest),
		Reconciliation: analytics.RevenueReconciliation{
			Available: false,
			Detail:    "Reconciliation is not available for mock data.",
		},
	}, nil
}

// GetDataHealth reports seeded lags for the warehouse tables.
func (p *Provider) GetDataHealth(_ context.Context, f analytics.Filters) (*analytics.DataHealthResponse, error) {
	seed := seedFromFilters(f, "data-health")
	at := anchor(f, 15)

	row := func(dataset, table string, lag int64) analytics.DataFreshnessRow {
		loaded := at.Add(-time.Duration(lag) * time.Minute).Format(analytics.ISOTimestampLayout)
		return analytics.NewFreshnessRow(dataset, table, &loaded, analytics.Ptr(float64(lag)))
	}

	freshness := []analytics.DataFreshnessRow{
		row("marts", "mart_funnel_daily", seed%45+10),
		row("marts", "mart_pnl_daily", seed%80+35),
		row("raw_stripe", "purchases", seed%25+5),
		row("raw_costs", "ad_spend_daily", seed%180+50),
	}

	detail := func(r analytics.DataFreshnessRow, fresh, stale string) string {
		if r.Status == analytics.StatusOK {
			return fresh
		}
		return stale
	}

	checks := []analytics.DataHealthCheck{
		{
			Key:            "funnel_freshness",
			Label:          "Funnel mart freshness",
			Status:         freshness[0].Status,
			Detail:         detail(freshness[0], "mart_funnel_daily is fresh.", "mart_funnel_daily lag is above expected threshold."),
			LastUpdatedUTC: freshness[0].LastLoadedUTC,
		},
		{
			Key:            "pnl_freshness",
			Label:          "P&L mart freshness",
			Status:         freshness[1].Status,
			Detail:         detail(freshness[1], "mart_pnl_daily is fresh.", "mart_pnl_daily lag exceeded warning threshold."),
			LastUpdatedUTC: freshness[1].LastLoadedUTC,
		},
		{
			Key:            "stripe_ingestion",
			Label:          "Stripe ingestion",
			Status:         freshness[2].Status,
			Detail:         "Stripe purchase facts are ingesting on schedule.",
			LastUpdatedUTC: freshness[2].LastLoadedUTC,
		},
		{
			Key:            "cost_ingestion",
			Label:          "Ad spend ingestion",
			Status:         freshness[3].Status,
			Detail:         detail(freshness[3], "raw_costs.ad_spend_daily is fresh.", "raw_costs.ad_spend_daily lag exceeded warning threshold."),
			LastUpdatedUTC: freshness[3].LastLoadedUTC,
		},
	}

	statuses := make([]analytics.HealthStatus, 0, len(checks))
	for _, c := range checks {
		statuses = append(statuses, c.Status)
	}

	return &analytics.DataHealthResponse{
		Filters:         f,
		GeneratedAtUTC:  generatedAt(f),
		Status:          analytics.CombineStatus(statuses...),
		Checks:          checks,
		Freshness:       freshness,
		AlertsAvailable: true,
		Alerts:          overviewAlerts(f),
		DbtLastRun: &analytics.DbtRunMarker{
			FinishedAtUTC: at.Add(-time.Duration(seed%45+20) * time.Minute).Format(analytics.ISOTimestampLayout),
			InvocationID:  fmt.Sprintf("mock-%08x", seed),
			ModelCount:    analytics.Ptr(float64(24 + seed%12)),
		},
	}, nil
}

// GetAttribution is served only by the content database.
func (p *Provider) GetAttribution(_ context.Context, _ analytics.Filters, _ analytics.AttributionOptions) (*analytics.AttributionResponse, error) {
	return nil, analytics.NewNotImplementedError("Mock admin analytics provider does not implement attribution.")
}
