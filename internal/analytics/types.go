// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

// KpiUnit is the display unit of a KPI card.
type KpiUnit string

const (
	UnitCount       KpiUnit = "count"
	UnitCurrencyEUR KpiUnit = "currency_eur"
	UnitRatio       KpiUnit = "ratio"
	UnitPercent     KpiUnit = "percent"
)

// KpiCard is a headline metric. Delta is the period-over-period change.
type KpiCard struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Value float64  `json:"value"`
	Unit  KpiUnit  `json:"unit"`
	Delta *float64 `json:"delta"`
}

// FunnelStep is one stage of the session-to-purchase funnel.
type FunnelStep struct {
	Key            string   `json:"key"`
	Label          string   `json:"label"`
	Count          float64  `json:"count"`
	ConversionRate *float64 `json:"conversion_rate"`
}

// TimeseriesPoint is a single day of a gap-filled series.
type TimeseriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Overview

type OverviewTopTestRow struct {
	TestID             string  `json:"test_id"`
	NetRevenueEUR      float64 `json:"net_revenue_eur"`
	PurchaseConversion float64 `json:"purchase_conversion"`
	Purchases          float64 `json:"purchases"`
}

type OverviewTopTenantRow struct {
	TenantID      string  `json:"tenant_id"`
	NetRevenueEUR float64 `json:"net_revenue_eur"`
	Purchases     float64 `json:"purchases"`
}

type OverviewFreshnessRow struct {
	Table     string  `json:"table"`
	MaxDate   *string `json:"max_date"`
	Available bool    `json:"available"`
}

type AlertRow struct {
	DetectedAtUTC  string   `json:"detected_at_utc"`
	AlertName      string   `json:"alert_name"`
	Severity       string   `json:"severity"`
	TenantID       *string  `json:"tenant_id"`
	MetricValue    *float64 `json:"metric_value"`
	ThresholdValue *float64 `json:"threshold_value"`
}

type OverviewResponse struct {
	Filters           Filters                `json:"filters"`
	GeneratedAtUTC    string                 `json:"generated_at_utc"`
	Kpis              []KpiCard              `json:"kpis"`
	Funnel            []FunnelStep           `json:"funnel"`
	VisitsTimeseries  []TimeseriesPoint      `json:"visits_timeseries"`
	RevenueTimeseries []TimeseriesPoint      `json:"revenue_timeseries"`
	TopTests          []OverviewTopTestRow   `json:"top_tests"`
	TopTenants        []OverviewTopTenantRow `json:"top_tenants"`
	DataFreshness     []OverviewFreshnessRow `json:"data_freshness"`
	AlertsAvailable   bool                   `json:"alerts_available"`
	Alerts            []AlertRow             `json:"alerts"`
}

// Tests

type TestsRow struct {
	TestID           string  `json:"test_id"`
	Slug             string  `json:"slug,omitempty"`
	Title            string  `json:"title,omitempty"`
	Sessions         float64 `json:"sessions"`
	Starts           float64 `json:"starts"`
	Completes        float64 `json:"completes"`
	Purchases        float64 `json:"purchases"`
	PaidConversion   float64 `json:"paid_conversion"`
	NetRevenueEUR    float64 `json:"net_revenue_eur"`
	RefundsEUR       float64 `json:"refunds_eur"`
	TopTenantID      *string `json:"top_tenant_id"`
	LastActivityDate *string `json:"last_activity_date"`
}

type TestsResponse struct {
	Filters        Filters    `json:"filters"`
	GeneratedAtUTC string     `json:"generated_at_utc"`
	Rows           []TestsRow `json:"rows"`
}

type TestTimeseriesRow struct {
	Date          string  `json:"date"`
	Sessions      float64 `json:"sessions"`
	Completes     float64 `json:"completes"`
	Purchases     float64 `json:"purchases"`
	NetRevenueEUR float64 `json:"net_revenue_eur"`
}

// PerformanceMetrics is the shared funnel plus money block of breakdown rows.
type PerformanceMetrics struct {
	Sessions       float64 `json:"sessions"`
	Starts         float64 `json:"starts"`
	Completes      float64 `json:"completes"`
	Purchases      float64 `json:"purchases"`
	PaidConversion float64 `json:"paid_conversion"`
	NetRevenueEUR  float64 `json:"net_revenue_eur"`
	RefundsEUR     float64 `json:"refunds_eur"`
}

type TestTenantRow struct {
	TenantID string `json:"tenant_id"`
	PerformanceMetrics
}

type TestLocaleRow struct {
	Locale string `json:"locale"`
	PerformanceMetrics
}

type PaywallMetrics struct {
	Views               float64 `json:"views"`
	CheckoutStarts      float64 `json:"checkout_starts"`
	CheckoutSuccess     float64 `json:"checkout_success"`
	CheckoutStartRate   float64 `json:"checkout_start_rate"`
	CheckoutSuccessRate float64 `json:"checkout_success_rate"`
}

type TestDetailResponse struct {
	Filters                 Filters             `json:"filters"`
	GeneratedAtUTC          string              `json:"generated_at_utc"`
	TestID                  string              `json:"test_id"`
	Kpis                    []KpiCard           `json:"kpis"`
	Funnel                  []FunnelStep        `json:"funnel"`
	Timeseries              []TestTimeseriesRow `json:"timeseries"`
	TenantBreakdown         []TestTenantRow     `json:"tenant_breakdown"`
	LocaleBreakdown         []TestLocaleRow     `json:"locale_breakdown"`
	PaywallMetricsAvailable bool                `json:"paywall_metrics_available"`
	PaywallMetrics          *PaywallMetrics     `json:"paywall_metrics"`
}

// Tenants

// TenantMetrics uses the tenant pages' column names for the funnel stages.
type TenantMetrics struct {
	Sessions        float64 `json:"sessions"`
	TestStarts      float64 `json:"test_starts"`
	TestCompletions float64 `json:"test_completions"`
	Purchases       float64 `json:"purchases"`
	PaidConversion  float64 `json:"paid_conversion"`
	NetRevenueEUR   float64 `json:"net_revenue_eur"`
	RefundsEUR      float64 `json:"refunds_eur"`
}

type TenantsRow struct {
	TenantID string `json:"tenant_id"`
	TenantMetrics
	TopTestID        *string `json:"top_test_id"`
	LastActivityDate *string `json:"last_activity_date"`
}

type TenantsResponse struct {
	Filters        Filters      `json:"filters"`
	GeneratedAtUTC string       `json:"generated_at_utc"`
	Rows           []TenantsRow `json:"rows"`
	TotalRows      int          `json:"total_rows"`
}

type TenantTopTestRow struct {
	TestID string `json:"test_id"`
	TenantMetrics
}

type TenantLocaleRow struct {
	Locale string `json:"locale"`
	TenantMetrics
}

type TenantDetailResponse struct {
	Filters              Filters            `json:"filters"`
	GeneratedAtUTC       string             `json:"generated_at_utc"`
	TenantID             string             `json:"tenant_id"`
	Kpis                 []KpiCard          `json:"kpis"`
	Funnel               []FunnelStep       `json:"funnel"`
	SessionsTimeseries   []TimeseriesPoint  `json:"sessions_timeseries"`
	RevenueTimeseries    []TimeseriesPoint  `json:"revenue_timeseries"`
	TopTests             []TenantTopTestRow `json:"top_tests"`
	TopTestsTotal        int                `json:"top_tests_total"`
	LocaleBreakdown      []TenantLocaleRow  `json:"locale_breakdown"`
	LocaleBreakdownTotal int                `json:"locale_breakdown_total"`
	HasData              bool               `json:"has_data"`
}

// Distribution

type DistributionCell struct {
	TenantID         string  `json:"tenant_id"`
	TestID           string  `json:"test_id"`
	IsPublished      bool    `json:"is_published"`
	VersionID        *string `json:"version_id"`
	Enabled          *bool   `json:"enabled"`
	NetRevenueEUR7d  float64 `json:"net_revenue_eur_7d"`
	PaidConversion7d float64 `json:"paid_conversion_7d"`
}

type DistributionRow struct {
	TenantID        string                      `json:"tenant_id"`
	NetRevenueEUR7d float64                     `json:"net_revenue_eur_7d"`
	Cells           map[string]DistributionCell `json:"cells"`
}

type DistributionColumn struct {
	TestID          string  `json:"test_id"`
	NetRevenueEUR7d float64 `json:"net_revenue_eur_7d"`
}

type DistributionResponse struct {
	Filters        Filters                       `json:"filters"`
	GeneratedAtUTC string                        `json:"generated_at_utc"`
	TopTenants     int                           `json:"top_tenants"`
	TopTests       int                           `json:"top_tests"`
	RowOrder       []string                      `json:"row_order"`
	ColumnOrder    []string                      `json:"column_order"`
	Rows           map[string]DistributionRow    `json:"rows"`
	Columns        map[string]DistributionColumn `json:"columns"`
}

// Traffic

type TrafficSegmentRow struct {
	Segment        string  `json:"segment"`
	Sessions       float64 `json:"sessions"`
	Purchases      float64 `json:"purchases"`
	PaidConversion float64 `json:"paid_conversion"`
	NetRevenueEUR  float64 `json:"net_revenue_eur"`
}

type TrafficResponse struct {
	Filters        Filters             `json:"filters"`
	GeneratedAtUTC string              `json:"generated_at_utc"`
	TopN           int                 `json:"top_n"`
	Kpis           []KpiCard           `json:"kpis"`
	ByUTMSource    []TrafficSegmentRow `json:"by_utm_source"`
	ByUTMCampaign  []TrafficSegmentRow `json:"by_utm_campaign"`
	ByReferrer     []TrafficSegmentRow `json:"by_referrer"`
	ByDeviceType   []TrafficSegmentRow `json:"by_device_type"`
	ByCountry      []TrafficSegmentRow `json:"by_country"`
}

// Revenue

// MoneyBreakdown is the gross-to-net waterfall shared by revenue and attribution rows.
type MoneyBreakdown struct {
	GrossRevenueEUR float64 `json:"gross_revenue_eur"`
	RefundsEUR      float64 `json:"refunds_eur"`
	DisputesFeesEUR float64 `json:"disputes_fees_eur"`
	PaymentFeesEUR  float64 `json:"payment_fees_eur"`
	NetRevenueEUR   float64 `json:"net_revenue_eur"`
}

// Add accumulates o into m, rounding every field to cents.
func (m *MoneyBreakdown) Add(o MoneyBreakdown) {
	m.GrossRevenueEUR = RoundCurrency(m.GrossRevenueEUR + o.GrossRevenueEUR)
	m.RefundsEUR = RoundCurrency(m.RefundsEUR + o.RefundsEUR)
	m.DisputesFeesEUR = RoundCurrency(m.DisputesFeesEUR + o.DisputesFeesEUR)
	m.PaymentFeesEUR = RoundCurrency(m.PaymentFeesEUR + o.PaymentFeesEUR)
	m.NetRevenueEUR = RoundCurrency(m.NetRevenueEUR + o.NetRevenueEUR)
}

type RevenueDailyRow struct {
	Date string `json:"date"`
	MoneyBreakdown
}

type RevenueByOfferRow struct {
	OfferType      string  `json:"offer_type"`
	OfferKey       string  `json:"offer_key"`
	PricingVariant string  `json:"pricing_variant"`
	Purchases      float64 `json:"purchases"`
	MoneyBreakdown
}

type RevenueByTenantRow struct {
	TenantID  string  `json:"tenant_id"`
	Purchases float64 `json:"purchases"`
	MoneyBreakdown
}

type RevenueByTestRow struct {
	TestID    string  `json:"test_id"`
	Purchases float64 `json:"purchases"`
	MoneyBreakdown
}

// RevenueReconciliation compares the payment ledger to internal purchase records.
// The internal-side fields are part of the contract but stay null until an
// internal ledger exists.
type RevenueReconciliation struct {
	Available               bool     `json:"available"`
	Detail                  string   `json:"detail"`
	StripePurchaseCount     *float64 `json:"stripe_purchase_count"`
	InternalPurchaseCount   *float64 `json:"internal_purchase_count"`
	PurchaseCountDiff       *float64 `json:"purchase_count_diff"`
	PurchaseCountDiffPct    *float64 `json:"purchase_count_diff_pct"`
	StripeGrossRevenueEUR   *float64 `json:"stripe_gross_revenue_eur"`
	InternalGrossRevenueEUR *float64 `json:"internal_gross_revenue_eur"`
	GrossRevenueDiffEUR     *float64 `json:"gross_revenue_diff_eur"`
	GrossRevenueDiffPct     *float64 `json:"gross_revenue_diff_pct"`
}

type RevenueResponse struct {
	Filters        Filters               `json:"filters"`
	GeneratedAtUTC string                `json:"generated_at_utc"`
	Kpis           []KpiCard             `json:"kpis"`
	Daily          []RevenueDailyRow     `json:"daily"`
	ByOffer        []RevenueByOfferRow   `json:"by_offer"`
	ByTenant       []RevenueByTenantRow  `json:"by_tenant"`
	ByTest         []RevenueByTestRow    `json:"by_test"`
	Reconciliation RevenueReconciliation `json:"reconciliation"`
}

// Attribution

type AttributionGroupBy string

const (
	GroupByTenant  AttributionGroupBy = "tenant"
	GroupByContent AttributionGroupBy = "content"
)

type AttributionRow struct {
	TenantID       string  `json:"tenant_id"`
	ContentType    string  `json:"content_type"`
	ContentKey     string  `json:"content_key"`
	OfferKey       string  `json:"offer_key"`
	PricingVariant string  `json:"pricing_variant"`
	Purchases      float64 `json:"purchases"`
	Visits         float64 `json:"visits"`
	Conversion     float64 `json:"conversion"`
	MoneyBreakdown
}

type AttributionMixRow struct {
	Segment string `json:"segment"`
	MoneyBreakdown
}

type AttributionResponse struct {
	Filters        Filters             `json:"filters"`
	GeneratedAtUTC string              `json:"generated_at_utc"`
	ContentType    string              `json:"content_type"`
	ContentKey     *string             `json:"content_key"`
	GroupedBy      AttributionGroupBy  `json:"grouped_by"`
	Mix            []AttributionMixRow `json:"mix"`
	Rows           []AttributionRow    `json:"rows"`
}

// Data health

type DataHealthCheck struct {
	Key            string       `json:"key"`
	Label          string       `json:"label"`
	Status         HealthStatus `json:"status"`
	Detail         string       `json:"detail"`
	Hint           *string      `json:"hint"`
	LastUpdatedUTC *string      `json:"last_updated_utc"`
}

type DataFreshnessRow struct {
	Dataset           string       `json:"dataset"`
	Table             string       `json:"table"`
	LastLoadedUTC     *string      `json:"last_loaded_utc"`
	LagMinutes        *float64     `json:"lag_minutes"`
	WarnAfterMinutes  float64      `json:"warn_after_minutes"`
	ErrorAfterMinutes float64      `json:"error_after_minutes"`
	Status            HealthStatus `json:"status"`
}

type DbtRunMarker struct {
	FinishedAtUTC string   `json:"finished_at_utc"`
	InvocationID  string   `json:"invocation_id"`
	ModelCount    *float64 `json:"model_count"`
}

type DataHealthResponse struct {
	Filters         Filters            `json:"filters"`
	GeneratedAtUTC  string             `json:"generated_at_utc"`
	Status          HealthStatus       `json:"status"`
	Checks          []DataHealthCheck  `json:"checks"`
	Freshness       []DataFreshnessRow `json:"freshness"`
	AlertsAvailable bool               `json:"alerts_available"`
	Alerts          []AlertRow         `json:"alerts"`
	DbtLastRun      *DbtRunMarker      `json:"dbt_last_run"`
}

// NewFreshnessRow evaluates lag against the dataset.table thresholds.
func NewFreshnessRow(dataset, table string, lastLoaded *string, lagMinutes *float64) DataFreshnessRow {
	t := ResolveThresholds(dataset, table)
	return DataFreshnessRow{
		Dataset:           dataset,
		Table:             table,
		LastLoadedUTC:     lastLoaded,
		LagMinutes:        lagMinutes,
		WarnAfterMinutes:  t.WarnAfterMinutes,
		ErrorAfterMinutes: t.ErrorAfterMinutes,
		Status:            EvaluateStatus(lagMinutes, t),
	}
}
