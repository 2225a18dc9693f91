// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// dimension is a grouping key expressed over the event alias ae and the
// ledger alias fp. Expressions come from the fixed set below, never from input.
type dimension struct {
	event       string
	stripe      string
	eventWhere  string
	stripeWhere string
	limit       int
}

func (d dimension) limited(n int) dimension {
	d.limit = n
	return d
}

var (
	byTest = dimension{
		event: "ae.test_id", stripe: "fp.test_id",
		eventWhere: "ae.test_id IS NOT NULL", stripeWhere: "fp.test_id IS NOT NULL",
	}
	byTenant = dimension{
		event: "ae.tenant_id", stripe: "fp.tenant_id",
		eventWhere: "ae.tenant_id IS NOT NULL", stripeWhere: "fp.tenant_id IS NOT NULL",
	}
	byLocale = dimension{
		event:  "COALESCE(NULLIF(ae.locale, ''), 'unknown')",
		stripe: "COALESCE(NULLIF(fp.locale, ''), 'unknown')",
	}
	// byTestTenant and byTenantTest yield "a::b" compound keys.
	byTestTenant = dimension{
		event:      "CONCAT(ae.test_id, '::', ae.tenant_id)",
		eventWhere: "ae.test_id IS NOT NULL AND ae.tenant_id IS NOT NULL",
	}
	byTenantTest = dimension{
		event:       "CONCAT(ae.tenant_id, '::', ae.test_id)",
		stripe:      "CONCAT(fp.tenant_id, '::', fp.test_id)",
		eventWhere:  "ae.tenant_id IS NOT NULL AND ae.test_id IS NOT NULL",
		stripeWhere: "fp.tenant_id IS NOT NULL AND fp.test_id IS NOT NULL",
	}
	byOffer = dimension{
		stripe: "CONCAT(COALESCE(fp.offer_key, ''), '::', COALESCE(fp.product_type, ''), '::', COALESCE(fp.pricing_variant, ''))",
	}
	byAttribution = dimension{
		event: "CONCAT(COALESCE(ae.tenant_id, ''), '::', COALESCE(ae.test_id, ''))",
		stripe: "CONCAT(COALESCE(fp.tenant_id, ''), '::', COALESCE(fp.test_id, ''), '::', " +
			"COALESCE(NULLIF(fp.offer_key, ''), 'unknown'), '::', COALESCE(NULLIF(fp.pricing_variant, ''), 'unknown'))",
	}
)

func limitSQL(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", n)
}

// fetchAggregate sums the funnel from the event log and the money from the
// ledger concurrently.
func (p *Provider) fetchAggregate(ctx context.Context, f analytics.Filters, tables Tables) (analytics.Aggregate, error) {
	var (
		events eventAggregateRow
		money  moneyColumns
	)

	err := parallel(
		func() error {
			if !tables.AnalyticsEvents {
				return nil
			}
			c := BuildEventFilterClause(f, EventClauseOptions{})
			query := `SELECT
  COUNT(DISTINCT ae.session_id) AS sessions,
  COUNT(*) FILTER (WHERE ae.event_name = 'test_start') AS test_starts,
  COUNT(*) FILTER (WHERE ae.event_name = 'test_complete') AS test_completes,
  COUNT(*) FILTER (WHERE ae.event_name = 'paywall_view') AS paywall_views,
  COUNT(*) FILTER (WHERE ae.event_name = 'checkout_start') AS checkout_starts
FROM analytics_events ae
` + c.SQL
			var rows []eventAggregateRow
			if err := p.selectRows(ctx, "event_aggregate", &rows, query, c.Params...); err != nil {
				return err
			}
			if len(rows) > 0 {
				events = rows[0]
			}
			return nil
		},
		func() error {
			cte, ok := stripeCTE(f, tables, false)
			if !ok {
				return nil
			}
			query := `WITH ` + cte.SQL + `
SELECT
  COUNT(*) AS purchases,
  COALESCE(SUM(fp.gross_revenue_eur), 0) AS gross_revenue_eur,
  COALESCE(SUM(fp.refunds_eur), 0) AS refunds_eur,
  COALESCE(SUM(fp.disputes_eur), 0) AS disputes_eur,
  COALESCE(SUM(fp.payment_fees_eur), 0) AS payment_fees_eur,
  COALESCE(SUM(fp.net_revenue_eur), 0) AS net_revenue_eur
FROM filtered_purchases fp`
			var rows []moneyColumns
			if err := p.selectRows(ctx, "stripe_aggregate", &rows, query, cte.Params...); err != nil {
				return err
			}
			if len(rows) > 0 {
				money = rows[0]
			}
			return nil
		},
	)
	if err != nil {
		return analytics.Aggregate{}, err
	}

	ledger := money.metrics()
	return analytics.Aggregate{
		Sessions:        events.Sessions.float(),
		TestStarts:      events.TestStarts.float(),
		TestCompletes:   events.TestCompletes.float(),
		PaywallViews:    events.PaywallViews.float(),
		CheckoutStarts:  events.CheckoutStarts.float(),
		Purchases:       ledger.Purchases,
		PaidConversion:  analytics.SafeRatio(ledger.Purchases, events.Sessions.float()),
		GrossRevenueEUR: ledger.Money.GrossRevenueEUR,
		NetRevenueEUR:   ledger.Money.NetRevenueEUR,
		RefundsEUR:      ledger.Money.RefundsEUR,
		DisputesEUR:     ledger.Money.DisputesFeesEUR,
		PaymentFeesEUR:  ledger.Money.PaymentFeesEUR,
	}, nil
}

func (p *Provider) eventsBy(ctx context.Context, f analytics.Filters, tables Tables, d dimension) ([]eventDimensionRow, error) {
	if !tables.AnalyticsEvents || d.event == "" {
		return nil, nil
	}

	c := BuildEventFilterClause(f, EventClauseOptions{})
	where := c.SQL
	if d.eventWhere != "" {
		where += " AND " + d.eventWhere
	}

	query := `SELECT
  ` + d.event + ` AS dim,
  COUNT(DISTINCT ae.session_id) AS sessions,
  COUNT(*) FILTER (WHERE ae.event_name = 'test_start') AS starts,
  COUNT(*) FILTER (WHERE ae.event_name = 'test_complete') AS completes,
  COUNT(*) FILTER (WHERE ae.event_name = 'paywall_view') AS paywall_views,
  COUNT(*) FILTER (WHERE ae.event_name = 'checkout_start') AS checkout_starts,
  MAX(ae.occurred_date)::text AS last_activity_date
FROM analytics_events ae
` + where + `
GROUP BY ` + d.event + `
ORDER BY sessions DESC, dim ASC
` + limitSQL(d.limit)

	var rows []eventDimensionRow
	if err := p.selectRows(ctx, "events_by_dimension", &rows, query, c.Params...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *Provider) stripeBy(ctx context.Context, f analytics.Filters, tables Tables, d dimension) ([]stripeDimensionRow, error) {
	if d.stripe == "" {
		return nil, nil
	}
	cte, ok := stripeCTE(f, tables, false)
	if !ok {
		return nil, nil
	}

	where := ""
	if d.stripeWhere != "" {
		where = "WHERE " + d.stripeWhere
	}

	query := `WITH ` + cte.SQL + `
SELECT
  ` + d.stripe + ` AS dim,
  COUNT(*) AS purchases,
  COALESCE(SUM(fp.gross_revenue_eur), 0) AS gross_revenue_eur,
  COALESCE(SUM(fp.refunds_eur), 0) AS refunds_eur,
  COALESCE(SUM(fp.disputes_eur), 0) AS disputes_eur,
  COALESCE(SUM(fp.payment_fees_eur), 0) AS payment_fees_eur,
  COALESCE(SUM(fp.net_revenue_eur), 0) AS net_revenue_eur,
  MAX(fp.purchase_date)::text AS last_activity_date
FROM filtered_purchases fp
` + where + `
GROUP BY ` + d.stripe + `
ORDER BY net_revenue_eur DESC, dim ASC
` + limitSQL(d.limit)

	var rows []stripeDimensionRow
	if err := p.selectRows(ctx, "stripe_by_dimension", &rows, query, cte.Params...); err != nil {
		return nil, err
	}
	return rows, nil
}

// eventsDaily returns sessions and completions per occurred_date.
func (p *Provider) eventsDaily(ctx context.Context, f analytics.Filters, tables Tables) (map[string]eventMetrics, error) {
	result := map[string]eventMetrics{}
	if !tables.AnalyticsEvents {
		return result, nil
	}

	c := BuildEventFilterClause(f, EventClauseOptions{})
	query := `SELECT
  ae.occurred_date::text AS date,
  COUNT(DISTINCT ae.session_id) AS sessions,
  COUNT(*) FILTER (WHERE ae.event_name = 'test_complete') AS completes
FROM analytics_events ae
` + c.SQL + `
GROUP BY ae.occurred_date`

	var rows []sessionsByDateRow
	if err := p.selectRows(ctx, "events_daily", &rows, query, c.Params...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if d := r.Date.date(); d != nil {
			result[*d] = eventMetrics{Sessions: r.Sessions.float(), Completes: r.Completes.float()}
		}
	}
	return result, nil
}

// stripeDaily returns the money waterfall per purchase date.
func (p *Provider) stripeDaily(ctx context.Context, f analytics.Filters, tables Tables) (map[string]stripeMetrics, error) {
	result := map[string]stripeMetrics{}
	cte, ok := stripeCTE(f, tables, false)
	if !ok {
		return result, nil
	}

	query := `WITH ` + cte.SQL + `
SELECT
  fp.purchase_date::text AS date,
  COUNT(*) AS purchases,
  COALESCE(SUM(fp.gross_revenue_eur), 0) AS gross_revenue_eur,
  COALESCE(SUM(fp.refunds_eur), 0) AS refunds_eur,
  COALESCE(SUM(fp.disputes_eur), 0) AS disputes_eur,
  COALESCE(SUM(fp.payment_fees_eur), 0) AS payment_fees_eur,
  COALESCE(SUM(fp.net_revenue_eur), 0) AS net_revenue_eur
FROM filtered_purchases fp
GROUP BY fp.purchase_date`

	var rows []stripeByDateRow
	if err := p.selectRows(ctx, "stripe_daily", &rows, query, cte.Params...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if d := r.Date.date(); d != nil {
			m := r.moneyColumns.metrics()
			m.LastActivity = d
			result[*d] = m
		}
	}
	return result, nil
}

// fetchSlugs maps test_id to its catalog slug.
func (p *Provider) fetchSlugs(ctx context.Context, f analytics.Filters, tables Tables) (map[string]string, error) {
	slugs := map[string]string{}
	if !tables.Tests {
		return slugs, nil
	}

	query := "SELECT test_id, slug FROM tests"
	var args []any
	if f.TestID != nil {
		query += " WHERE test_id = $1"
		args = append(args, *f.TestID)
	}

	res, err := selectOptional[slugRow](ctx, p, "test_slugs", "tests.slug", query, args...)
	if err != nil {
		return nil, err
	}
	rows, _ := res.Get()
	for _, r := range rows {
		testID, ok := r.TestID.key()
		slug, hasSlug := r.Slug.key()
		if ok && hasSlug {
			slugs[testID] = slug
		}
	}
	return slugs, nil
}

type publication struct {
	isPublished bool
	versionID   *string
	enabled     *bool
}

// fetchPublications maps "tenant::test" to the tenant's publication state.
func (p *Provider) fetchPublications(ctx context.Context, f analytics.Filters, tables Tables) (map[string]publication, error) {
	result := map[string]publication{}
	if !tables.Tests || !tables.TenantTests {
		return result, nil
	}

	var (
		where []string
		args  []any
	)
	if f.TenantID != nil {
		args = append(args, *f.TenantID)
		where = append(where, fmt.Sprintf("tt.tenant_id = $%d", len(args)))
	}
	if f.TestID != nil {
		args = append(args, *f.TestID)
		where = append(where, fmt.Sprintf("t.test_id = $%d", len(args)))
	}

	query := `SELECT
  tt.tenant_id,
  t.test_id,
  tt.published_version_id::text AS version_id,
  tt.is_enabled
FROM tenant_tests tt
INNER JOIN tests t ON t.id = tt.test_id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}

	res, err := selectOptional[publicationRow](ctx, p, "publication_state", "tenant_tests", query, args...)
	if err != nil {
		return nil, err
	}
	rows, _ := res.Get()
	for _, r := range rows {
		tenantID, okTenant := r.TenantID.key()
		testID, okTest := r.TestID.key()
		if !okTenant || !okTest {
			continue
		}
		version := r.VersionID.ptr()
		result[pairKey(tenantID, testID)] = publication{
			isPublished: version != nil && *version != "",
			versionID:   version,
			enabled:     r.Enabled.value,
		}
	}
	return result, nil
}

// fetchOverviewFreshness reports the latest in-scope date of each source.
func (p *Provider) fetchOverviewFreshness(ctx context.Context, f analytics.Filters, tables Tables) ([]analytics.OverviewFreshnessRow, error) {
	type maxRow struct {
		MaxDate text `db:"max_date"`
	}

	events := analytics.OverviewFreshnessRow{Table: tableAnalyticsEvents}
	purchases := analytics.OverviewFreshnessRow{Table: tableStripePurchases}

	err := parallel(
		func() error {
			if !tables.AnalyticsEvents {
				return nil
			}
			c := BuildEventFilterClause(f, EventClauseOptions{})
			var rows []maxRow
			query := "SELECT MAX(ae.occurred_date)::text AS max_date FROM analytics_events ae\n" + c.SQL
			if err := p.selectRows(ctx, "events_max_date", &rows, query, c.Params...); err != nil {
				return err
			}
			events.Available = true
			if len(rows) > 0 {
				events.MaxDate = rows[0].MaxDate.date()
			}
			return nil
		},
		func() error {
			cte, ok := stripeCTE(f, tables, false)
			if !ok {
				return nil
			}
			var rows []maxRow
			query := "WITH " + cte.SQL + "\nSELECT MAX(fp.purchase_date)::text AS max_date FROM filtered_purchases fp"
			if err := p.selectRows(ctx, "purchases_max_date", &rows, query, cte.Params...); err != nil {
				return err
			}
			purchases.Available = true
			if len(rows) > 0 {
				purchases.MaxDate = rows[0].MaxDate.date()
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return []analytics.OverviewFreshnessRow{events, purchases}, nil
}

func pairKey(a, b string) string {
	return a + "::" + b
}

// splitKey splits a compound "a::b[::c...]" key into exactly n trimmed parts.
func splitKey(key string, n int) []string {
	parts := strings.SplitN(key, "::", n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
