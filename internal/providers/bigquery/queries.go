// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

const funnelSumsSQL = `COALESCE(SUM(visits), 0) AS sessions,
    COALESCE(SUM(test_starts), 0) AS test_starts,
    COALESCE(SUM(test_completes), 0) AS test_completes,
    COALESCE(SUM(paywall_views), 0) AS paywall_views,
    COALESCE(SUM(checkout_starts), 0) AS checkout_starts,
    COALESCE(SUM(purchases), 0) AS purchases`

const moneySumsSQL = `COALESCE(SUM(gross_revenue_eur), 0) AS gross_revenue_eur,
    COALESCE(SUM(net_revenue_eur), 0) AS net_revenue_eur,
    COALESCE(SUM(refunds_eur), 0) AS refunds_eur,
    COALESCE(SUM(disputes_eur), 0) AS disputes_eur,
    COALESCE(SUM(payment_fees_eur), 0) AS payment_fees_eur`

// martTables are the quoted references a query reads.
type martTables struct {
	funnel string
	pnl    string
}

func (p *Provider) martTables() martTables {
	return martTables{funnel: p.mart(tableFunnelDaily), pnl: p.mart(tablePnlDaily)}
}

func limitSQL(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

// aggregateQuery sums the funnel and the P&L of the filtered scope into a
// single row.
func aggregateQuery(t martTables, c martClauses) (string, Params) {
	sql := `WITH funnel_agg AS (
  SELECT
    ` + funnelSumsSQL + `
  FROM ` + t.funnel + `
  ` + c.funnel.SQL + `
),
pnl_agg AS (
  SELECT
    ` + moneySumsSQL + `
  FROM ` + t.pnl + `
  ` + c.pnl.SQL + `
)
SELECT
  funnel_agg.*,
  SAFE_DIVIDE(funnel_agg.purchases, NULLIF(funnel_agg.sessions, 0)) AS paid_conversion,
  pnl_agg.*
FROM funnel_agg
CROSS JOIN pnl_agg`
	return sql, c.funnel.Params.merge(c.pnl.Params)
}

// dailyQuery merges funnel and P&L totals per date. Dates without rows in
// either mart are absent.
func dailyQuery(t martTables, c martClauses) (string, Params) {
	sql := `WITH funnel_by_date AS (
  SELECT
    date,
    COALESCE(SUM(visits), 0) AS sessions,
    COALESCE(SUM(test_completes), 0) AS test_completes,
    COALESCE(SUM(purchases), 0) AS purchases
  FROM ` + t.funnel + `
  ` + c.funnel.SQL + `
  GROUP BY date
),
pnl_by_date AS (
  SELECT
    date,
    ` + moneySumsSQL + `
  FROM ` + t.pnl + `
  ` + c.pnl.SQL + `
  GROUP BY date
)
SELECT
  CAST(COALESCE(funnel_by_date.date, pnl_by_date.date) AS STRING) AS date,
  COALESCE(funnel_by_date.sessions, 0) AS sessions,
  COALESCE(funnel_by_date.test_completes, 0) AS test_completes,
  COALESCE(funnel_by_date.purchases, 0) AS purchases,
  COALESCE(pnl_by_date.gross_revenue_eur, 0) AS gross_revenue_eur,
  COALESCE(pnl_by_date.net_revenue_eur, 0) AS net_revenue_eur,
  COALESCE(pnl_by_date.refunds_eur, 0) AS refunds_eur,
  COALESCE(pnl_by_date.disputes_eur, 0) AS disputes_eur,
  COALESCE(pnl_by_date.payment_fees_eur, 0) AS payment_fees_eur
FROM funnel_by_date
FULL OUTER JOIN pnl_by_date
  ON funnel_by_date.date = pnl_by_date.date
ORDER BY date ASC`
	return sql, c.funnel.Params.merge(c.pnl.Params)
}

// Sort orders for dimension queries. Ties always fall back to the key.
const (
	orderByRevenue           = "net_revenue_eur DESC, dim ASC"
	orderByRevenueConversion = "net_revenue_eur DESC, paid_conversion DESC, dim ASC"
	orderByRevenuePurchases  = "net_revenue_eur DESC, purchases DESC, dim ASC"
	orderBySessions          = "sessions DESC, dim ASC"
)

const lastActivityFallbackSQL = "DATE '1970-01-01'"

// emptyPnlCTE has the P&L dimension shape and no rows.
const emptyPnlCTE = `SELECT
    CAST(NULL AS STRING) AS dim,
    0 AS gross_revenue_eur,
    0 AS net_revenue_eur,
    0 AS refunds_eur,
    0 AS disputes_eur,
    0 AS payment_fees_eur,
    CAST(NULL AS DATE) AS last_pnl_date
  FROM UNNEST([1])
  WHERE FALSE`

// martDimension describes a grouping shared by both marts. Expressions come
// from the fixed set below and are interpolated into SQL.
type martDimension struct {
	// expr is evaluated against a mart row.
	expr string
	// partner, when set, adds top_partner: the value of this column with the
	// highest net revenue within each dimension value.
	partner string
	// keepUnallocated keeps NULL and __unallocated__ keys.
	keepUnallocated bool
	// funnelOnly skips the P&L side, for columns the P&L mart lacks.
	funnelOnly bool
	order      string
	limit      int
	// where narrows both marts beyond the filter clause.
	where       []string
	whereParams Params
}

var (
	byTest   = martDimension{expr: "test_id", order: orderByRevenuePurchases}
	byTenant = martDimension{expr: "tenant_id", order: orderByRevenuePurchases}
	byLocale = martDimension{expr: "COALESCE(locale, 'unknown')", keepUnallocated: true, order: orderByRevenuePurchases}
	byPair   = martDimension{expr: "CONCAT(tenant_id, '::', test_id)", order: orderByRevenue}
)

func (d martDimension) ordered(order string) martDimension {
	d.order = order
	return d
}

func (d martDimension) limited(n int) martDimension {
	d.limit = n
	return d
}

func (d martDimension) withPartner(column string) martDimension {
	d.partner = column
	return d
}

func (d martDimension) narrowed(params Params, conditions ...string) martDimension {
	d.where = append(append([]string(nil), d.where...), conditions...)
	d.whereParams = d.whereParams.merge(params)
	return d
}

// dimensionQuery is the two-CTE funnel and P&L pattern grouped by d. Every
// row carries total_rows, the count before LIMIT.
func dimensionQuery(t martTables, c martClauses, d martDimension) (string, Params) {
	funnelWhere := c.funnel.and(d.where...)
	pnlWhere := c.pnl.and(d.where...)

	pnlCTE := `SELECT
    ` + d.expr + ` AS dim,
    ` + moneySumsSQL + `,
    MAX(date) AS last_pnl_date
  FROM ` + t.pnl + `
  ` + pnlWhere.SQL + `
  GROUP BY dim`
	if d.funnelOnly {
		pnlCTE = emptyPnlCTE
	}

	var b strings.Builder
	b.WriteString(`WITH funnel_by_dim AS (
  SELECT
    ` + d.expr + ` AS dim,
    ` + funnelSumsSQL + `,
    MAX(date) AS last_funnel_date
  FROM ` + t.funnel + `
  ` + funnelWhere.SQL + `
  GROUP BY dim
),
pnl_by_dim AS (
  ` + pnlCTE + `
),`)

	partnerSelect := "CAST(NULL AS STRING) AS top_partner"
	partnerJoin := ""
	if d.partner != "" {
		b.WriteString(`
partner_revenue AS (
  SELECT
    ` + d.expr + ` AS dim,
    ` + d.partner + ` AS partner,
    COALESCE(SUM(net_revenue_eur), 0) AS net_revenue_eur
  FROM ` + t.pnl + `
  ` + pnlWhere.SQL + `
  GROUP BY dim, partner
),
ranked_partners AS (
  SELECT
    dim,
    partner,
    ROW_NUMBER() OVER (PARTITION BY dim ORDER BY net_revenue_eur DESC, partner ASC) AS row_num
  FROM partner_revenue
  WHERE partner IS NOT NULL
    AND partner != '` + unallocated + `'
),`)
		partnerSelect = "ranked_partners.partner AS top_partner"
		partnerJoin = `
  LEFT JOIN ranked_partners
    ON ranked_partners.dim = COALESCE(funnel_by_dim.dim, pnl_by_dim.dim)
    AND ranked_partners.row_num = 1`
	}

	b.WriteString(`
merged AS (
  SELECT
    COALESCE(funnel_by_dim.dim, pnl_by_dim.dim) AS dim,
    COALESCE(funnel_by_dim.sessions, 0) AS sessions,
    COALESCE(funnel_by_dim.test_starts, 0) AS test_starts,
    COALESCE(funnel_by_dim.test_completes, 0) AS test_completes,
    COALESCE(funnel_by_dim.paywall_views, 0) AS paywall_views,
    COALESCE(funnel_by_dim.checkout_starts, 0) AS checkout_starts,
    COALESCE(funnel_by_dim.purchases, 0) AS purchases,
    SAFE_DIVIDE(
      COALESCE(funnel_by_dim.purchases, 0),
      NULLIF(COALESCE(funnel_by_dim.sessions, 0), 0)
    ) AS paid_conversion,
    COALESCE(pnl_by_dim.gross_revenue_eur, 0) AS gross_revenue_eur,
    COALESCE(pnl_by_dim.net_revenue_eur, 0) AS net_revenue_eur,
    COALESCE(pnl_by_dim.refunds_eur, 0) AS refunds_eur,
    COALESCE(pnl_by_dim.disputes_eur, 0) AS disputes_eur,
    COALESCE(pnl_by_dim.payment_fees_eur, 0) AS payment_fees_eur,
    CASE
      WHEN funnel_by_dim.last_funnel_date IS NULL AND pnl_by_dim.last_pnl_date IS NULL THEN NULL
      ELSE CAST(GREATEST(
        COALESCE(funnel_by_dim.last_funnel_date, ` + lastActivityFallbackSQL + `),
        COALESCE(pnl_by_dim.last_pnl_date, ` + lastActivityFallbackSQL + `)
      ) AS STRING)
    END AS last_activity_date,
    ` + partnerSelect + `
  FROM funnel_by_dim
  FULL OUTER JOIN pnl_by_dim
    ON funnel_by_dim.dim = pnl_by_dim.dim` + partnerJoin + `
)
SELECT
  merged.*,
  COUNT(*) OVER () AS total_rows
FROM merged`)

	if !d.keepUnallocated {
		b.WriteString(`
WHERE dim IS NOT NULL
  AND dim != '` + unallocated + `'`)
	}
	b.WriteString("\nORDER BY " + d.order)
	if d.limit > 0 {
		b.WriteString("\n" + limitSQL(d.limit))
	}

	return b.String(), c.funnel.Params.merge(c.pnl.Params, d.whereParams)
}

func (p *Provider) fetchAggregate(ctx context.Context, c martClauses) (analytics.Aggregate, error) {
	sql, params := aggregateQuery(p.martTables(), c)
	rows, err := p.query(ctx, "aggregate", sql, params)
	if err != nil {
		return analytics.Aggregate{}, err
	}
	if len(rows) == 0 {
		return analytics.Aggregate{}, nil
	}
	return decodeAggregate(rows[0]), nil
}

func (p *Provider) fetchDaily(ctx context.Context, c martClauses) (map[string]dailyRow, error) {
	sql, params := dailyQuery(p.martTables(), c)
	rows, err := p.query(ctx, "daily", sql, params)
	if err != nil {
		return nil, err
	}
	return decodeDaily(rows), nil
}

func (p *Provider) fetchDimension(ctx context.Context, operation string, c martClauses, d martDimension) ([]dimensionRow, error) {
	sql, params := dimensionQuery(p.martTables(), c, d)
	rows, err := p.query(ctx, operation, sql, params)
	if err != nil {
		return nil, err
	}
	return decodeDimensions(rows), nil
}

// fetchSlugs maps test_id to its catalog slug from the tmp dataset.
// A missing catalog table yields no slugs.
func (p *Provider) fetchSlugs(ctx context.Context, testIDs []string) (map[string]string, error) {
	slugs := map[string]string{}
	if len(testIDs) == 0 || p.datasets.Tmp == "" {
		return slugs, nil
	}

	sql := `SELECT test_id, slug
FROM ` + p.table(p.datasets.Tmp, tableTests) + `
WHERE test_id IN UNNEST(@test_ids)`
	res, err := p.queryOptional(ctx, "test_slugs", p.datasets.Tmp+"."+tableTests, sql, Params{"test_ids": testIDs})
	if err != nil {
		return nil, err
	}
	rows, _ := res.Get()
	for _, r := range rows {
		testID, okTest := r.key("test_id")
		slug, okSlug := r.key("slug")
		if okTest && okSlug {
			slugs[testID] = slug
		}
	}
	return slugs, nil
}

// timeseries projects one daily value across every date in the range.
func timeseries(f analytics.Filters, daily map[string]dailyRow, value func(dailyRow) float64) []analytics.TimeseriesPoint {
	values := make(map[string]float64, len(daily))
	for d, row := range daily {
		values[d] = value(row)
	}
	return analytics.FillTimeseries(f.Start, f.End, values)
}

func sessionsOf(d dailyRow) float64 { return d.sessions }

func netRevenueOf(d dailyRow) float64 { return d.money.NetRevenueEUR }
