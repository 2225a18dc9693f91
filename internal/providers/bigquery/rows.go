// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

func (r Row) number(column string) float64 {
	return analytics.ToNumber(r[column])
}

func (r Row) currency(column string) float64 {
	return analytics.RoundCurrency(r.number(column))
}

func (r Row) ratio(column string) float64 {
	return analytics.RoundTo(r.number(column), 4)
}

func (r Row) text(column string) *string {
	return analytics.ToNullableString(r[column])
}

// key returns a non-blank identifier.
func (r Row) key(column string) (string, bool) {
	s := r.text(column)
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", false
	}
	return *s, true
}

func (r Row) date(column string) *string {
	return analytics.ToDateOnly(r[column])
}

// nullableNumber keeps NULL distinct from zero.
func (r Row) nullableNumber(column string) *float64 {
	if r[column] == nil {
		return nil
	}
	return analytics.Ptr(r.number(column))
}

func (r Row) money() analytics.MoneyBreakdown {
	return analytics.MoneyBreakdown{
		GrossRevenueEUR: r.currency("gross_revenue_eur"),
		RefundsEUR:      r.currency("refunds_eur"),
		DisputesFeesEUR: r.currency("disputes_eur"),
		PaymentFeesEUR:  r.currency("payment_fees_eur"),
		NetRevenueEUR:   r.currency("net_revenue_eur"),
	}
}

func decodeAggregate(r Row) analytics.Aggregate {
	if r == nil {
		return analytics.Aggregate{}
	}
	return analytics.Aggregate{
		Sessions:        r.number("sessions"),
		TestStarts:      r.number("test_starts"),
		TestCompletes:   r.number("test_completes"),
		PaywallViews:    r.number("paywall_views"),
		CheckoutStarts:  r.number("checkout_starts"),
		Purchases:       r.number("purchases"),
		PaidConversion:  r.ratio("paid_conversion"),
		GrossRevenueEUR: r.currency("gross_revenue_eur"),
		NetRevenueEUR:   r.currency("net_revenue_eur"),
		RefundsEUR:      r.currency("refunds_eur"),
		DisputesEUR:     r.currency("disputes_eur"),
		PaymentFeesEUR:  r.currency("payment_fees_eur"),
	}
}

// dimensionRow is one merged funnel and P&L row of a dimension query.
type dimensionRow struct {
	key            string
	sessions       float64
	testStarts     float64
	testCompletes  float64
	purchases      float64
	paidConversion float64
	money          analytics.MoneyBreakdown
	lastActivity   *string
	topPartner     *string
	totalRows      int
}

func decodeDimension(r Row) (dimensionRow, bool) {
	key, ok := r.key("dim")
	if !ok {
		return dimensionRow{}, false
	}
	return dimensionRow{
		key:            key,
		sessions:       r.number("sessions"),
		testStarts:     r.number("test_starts"),
		testCompletes:  r.number("test_completes"),
		purchases:      r.number("purchases"),
		paidConversion: r.ratio("paid_conversion"),
		money:          r.money(),
		lastActivity:   r.date("last_activity_date"),
		topPartner:     r.text("top_partner"),
		totalRows:      int(r.number("total_rows")),
	}, true
}

func decodeDimensions(rows []Row) []dimensionRow {
	out := make([]dimensionRow, 0, len(rows))
	for _, r := range rows {
		if d, ok := decodeDimension(r); ok {
			out = append(out, d)
		}
	}
	return out
}

// totalOf is the pre-limit row count carried by every row.
func totalOf(rows []dimensionRow) int {
	if len(rows) == 0 {
		return 0
	}
	return rows[0].totalRows
}

func (d dimensionRow) performance() analytics.PerformanceMetrics {
	return analytics.PerformanceMetrics{
		Sessions:       d.sessions,
		Starts:         d.testStarts,
		Completes:      d.testCompletes,
		Purchases:      d.purchases,
		PaidConversion: d.paidConversion,
		NetRevenueEUR:  d.money.NetRevenueEUR,
		RefundsEUR:     d.money.RefundsEUR,
	}
}

func (d dimensionRow) tenantMetrics() analytics.TenantMetrics {
	return analytics.TenantMetrics{
		Sessions:        d.sessions,
		TestStarts:      d.testStarts,
		TestCompletions: d.testCompletes,
		Purchases:       d.purchases,
		PaidConversion:  d.paidConversion,
		NetRevenueEUR:   d.money.NetRevenueEUR,
		RefundsEUR:      d.money.RefundsEUR,
	}
}

// dailyRow is one date of the merged daily series.
type dailyRow struct {
	sessions      float64
	testCompletes float64
	purchases     float64
	money         analytics.MoneyBreakdown
}

func decodeDaily(rows []Row) map[string]dailyRow {
	out := make(map[string]dailyRow, len(rows))
	for _, r := range rows {
		d := r.date("date")
		if d == nil {
			continue
		}
		out[*d] = dailyRow{
			sessions:      r.number("sessions"),
			testCompletes: r.number("test_completes"),
			purchases:     r.number("purchases"),
			money:         r.money(),
		}
	}
	return out
}
