// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"fmt"
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// Clause is a parameterized WHERE fragment. SQL only ever holds column
// references and $n placeholders; every filter value lives in Params.
type Clause struct {
	SQL    string
	Params []any
}

// EventClauseOptions tunes BuildEventFilterClause.
type EventClauseOptions struct {
	Alias       string // defaults to "ae"
	ExcludeTest bool
	StartIndex  int // first placeholder number, defaults to 1
}

// StripeClauseOptions tunes BuildStripeFilterClause.
type StripeClauseOptions struct {
	Alias       string // defaults to "sp"
	ExcludeTest bool
	StartIndex  int
	// EventsAvailable allows the device filter to correlate against
	// analytics_events. Without it a device filter matches nothing.
	EventsAvailable bool
}

type clauseBuilder struct {
	conditions []string
	params     []any
	base       int
}

func newClauseBuilder(startIndex int) *clauseBuilder {
	if startIndex < 1 {
		startIndex = 1
	}
	return &clauseBuilder{base: startIndex}
}

// bind appends value and returns its placeholder.
func (b *clauseBuilder) bind(value any) string {
	b.params = append(b.params, value)
	return fmt.Sprintf("$%d", b.base+len(b.params)-1)
}

func (b *clauseBuilder) add(condition string) {
	b.conditions = append(b.conditions, condition)
}

func (b *clauseBuilder) clause() Clause {
	return Clause{
		SQL:    "WHERE " + strings.Join(b.conditions, " AND "),
		Params: b.params,
	}
}

// BuildEventFilterClause scopes analytics_events rows to f.
func BuildEventFilterClause(f analytics.Filters, opts EventClauseOptions) Clause {
	alias := opts.Alias
	if alias == "" {
		alias = "ae"
	}

	b := newClauseBuilder(opts.StartIndex)
	b.add(fmt.Sprintf("%s.occurred_date >= %s::date", alias, b.bind(f.Start)))
	b.add(fmt.Sprintf("%s.occurred_date <= %s::date", alias, b.bind(f.End)))

	if f.TenantID != nil {
		b.add(fmt.Sprintf("%s.tenant_id = %s", alias, b.bind(*f.TenantID)))
	}
	if !opts.ExcludeTest && f.TestID != nil {
		b.add(fmt.Sprintf("%s.test_id = %s", alias, b.bind(*f.TestID)))
	}
	if f.Locale != analytics.FilterAll {
		b.add(fmt.Sprintf("%s.locale = %s", alias, b.bind(f.Locale)))
	}
	if f.DeviceType != analytics.FilterAll {
		b.add(fmt.Sprintf("%s.device_type = %s", alias, b.bind(f.DeviceType)))
	}
	if f.UTMSource != nil {
		b.add(fmt.Sprintf("%s.utm_source = %s", alias, b.bind(*f.UTMSource)))
	}

	return b.clause()
}

// BuildStripeFilterClause scopes stripe_purchases rows to f. The ledger has
// no device column, so a device filter becomes a correlated EXISTS against
// the event log on session_id.
func BuildStripeFilterClause(f analytics.Filters, opts StripeClauseOptions) Clause {
	alias := opts.Alias
	if alias == "" {
		alias = "sp"
	}

	b := newClauseBuilder(opts.StartIndex)
	startPH := b.bind(f.Start)
	endPH := b.bind(f.End)
	b.add(fmt.Sprintf("%s.created_utc::date >= %s::date", alias, startPH))
	b.add(fmt.Sprintf("%s.created_utc::date <= %s::date", alias, endPH))

	if f.TenantID != nil {
		b.add(fmt.Sprintf("%s.tenant_id = %s", alias, b.bind(*f.TenantID)))
	}
	if !opts.ExcludeTest && f.TestID != nil {
		b.add(fmt.Sprintf("%s.test_id = %s", alias, b.bind(*f.TestID)))
	}
	if f.Locale != analytics.FilterAll {
		b.add(fmt.Sprintf("%s.locale = %s", alias, b.bind(f.Locale)))
	}
	if f.UTMSource != nil {
		b.add(fmt.Sprintf("%s.utm_source = %s", alias, b.bind(*f.UTMSource)))
	}

	if f.DeviceType != analytics.FilterAll {
		if !opts.EventsAvailable {
			b.add("1 = 0")
		} else {
			b.add(fmt.Sprintf(`EXISTS (
  SELECT 1
  FROM analytics_events ae_device
  WHERE ae_device.session_id = %s.session_id
    AND ae_device.occurred_date >= %s::date
    AND ae_device.occurred_date <= %s::date
    AND ae_device.device_type = %s
)`, alias, startPH, endPH, b.bind(f.DeviceType)))
		}
	}

	return b.clause()
}

// ledgerCTEs returns the per-purchase fee, refund and dispute rollups.
// Missing tables are replaced by empty typed CTEs so their contribution is zero.
func ledgerCTEs(tables Tables) string {
	feeCTE := `fee_by_purchase AS (
  SELECT NULL::text AS purchase_id, 0::numeric AS payment_fees_eur, 0::numeric AS net_after_fees_eur
  WHERE FALSE
)`
	if tables.StripeFees {
		feeCTE = `fee_by_purchase AS (
  SELECT
    purchase_id,
    SUM(COALESCE(fee_eur, 0))::numeric AS payment_fees_eur,
    SUM(COALESCE(net_eur, 0))::numeric AS net_after_fees_eur
  FROM stripe_fees
  GROUP BY purchase_id
)`
	}

	refundCTE := `refund_by_purchase AS (
  SELECT NULL::text AS purchase_id, 0::numeric AS refunds_eur
  WHERE FALSE
)`
	if tables.StripeRefunds {
		refundCTE = `refund_by_purchase AS (
  SELECT purchase_id, SUM(COALESCE(amount_eur, 0))::numeric AS refunds_eur
  FROM stripe_refunds
  GROUP BY purchase_id
)`
	}

	disputeCTE := `dispute_by_purchase AS (
  SELECT NULL::text AS purchase_id, 0::numeric AS disputes_eur
  WHERE FALSE
)`
	if tables.StripeDisputes {
		disputeCTE = `dispute_by_purchase AS (
  SELECT purchase_id, SUM(COALESCE(amount_eur, 0))::numeric AS disputes_eur
  FROM stripe_disputes
  GROUP BY purchase_id
)`
	}

	return feeCTE + ",\n" + refundCTE + ",\n" + disputeCTE
}

// netRevenueSQL is net-after-fees (or gross when no fee row exists) minus
// refunds and disputes, followed by the joins it depends on.
const netRevenueSQL = `    (
      CASE
        WHEN fee_by_purchase.purchase_id IS NOT NULL
          THEN COALESCE(fee_by_purchase.net_after_fees_eur, 0)::numeric
        ELSE COALESCE(sp.amount_eur, 0)::numeric
      END
      - COALESCE(refund_by_purchase.refunds_eur, 0)::numeric
      - COALESCE(dispute_by_purchase.disputes_eur, 0)::numeric
    ) AS net_revenue_eur
  FROM stripe_purchases sp
  LEFT JOIN fee_by_purchase ON fee_by_purchase.purchase_id = sp.purchase_id
  LEFT JOIN refund_by_purchase ON refund_by_purchase.purchase_id = sp.purchase_id
  LEFT JOIN dispute_by_purchase ON dispute_by_purchase.purchase_id = sp.purchase_id`

// stripeCTE returns the WITH body that materializes filtered_purchases with
// the per-purchase gross-to-net waterfall, or false when the ledger is absent.
func stripeCTE(f analytics.Filters, tables Tables, excludeTest bool) (Clause, bool) {
	if !tables.StripePurchases {
		return Clause{}, false
	}

	where := BuildStripeFilterClause(f, StripeClauseOptions{
		Alias:           "sp",
		ExcludeTest:     excludeTest,
		EventsAvailable: tables.AnalyticsEvents,
	})

	sql := ledgerCTEs(tables) + `,
filtered_purchases AS (
  SELECT
    sp.purchase_id,
    sp.created_utc::date AS purchase_date,
    sp.tenant_id,
    sp.test_id,
    sp.locale,
    sp.utm_source,
    sp.utm_campaign,
    sp.session_id,
    sp.offer_key,
    sp.product_type,
    sp.pricing_variant,
    COALESCE(sp.amount_eur, 0)::numeric AS gross_revenue_eur,
    COALESCE(refund_by_purchase.refunds_eur, 0)::numeric AS refunds_eur,
    COALESCE(dispute_by_purchase.disputes_eur, 0)::numeric AS disputes_eur,
    COALESCE(fee_by_purchase.payment_fees_eur, 0)::numeric AS payment_fees_eur,
` + netRevenueSQL + `
  ` + where.SQL + `
)`

	return Clause{SQL: sql, Params: where.Params}, true
}
