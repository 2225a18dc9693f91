// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"math/big"
	"strings"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// numeric scans any driver representation of a number: lib/pq hands NUMERIC
// over as text, DuckDB as Decimal or HUGEINT.
type numeric float64

func (n *numeric) Scan(src any) error {
	switch v := src.(type) {
	case duckdb.Decimal:
		if v.Value == nil {
			*n = 0
			return nil
		}
		den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(v.Scale)), nil)
		*n = numeric(analytics.ToNumber(new(big.Rat).SetFrac(v.Value, den)))
	case *big.Int:
		if v == nil {
			*n = 0
			return nil
		}
		*n = numeric(analytics.ToNumber(new(big.Rat).SetInt(v)))
	default:
		*n = numeric(analytics.ToNumber(src))
	}
	return nil
}

func (n numeric) float() float64 { return float64(n) }

func (n numeric) currency() float64 { return analytics.RoundCurrency(float64(n)) }

// text scans a nullable scalar as a trimmed string.
type text struct {
	value *string
}

func (t *text) Scan(src any) error {
	t.value = analytics.ToNullableString(src)
	return nil
}

// key returns the trimmed value and whether it is non-empty.
func (t text) key() (string, bool) {
	if t.value == nil {
		return "", false
	}
	s := strings.TrimSpace(*t.value)
	return s, s != ""
}

// orElse returns the trimmed value or fallback when null or blank.
func (t text) orElse(fallback string) string {
	if s, ok := t.key(); ok {
		return s
	}
	return fallback
}

func (t text) ptr() *string { return t.value }

// date returns the value as YYYY-MM-DD.
func (t text) date() *string {
	if t.value == nil {
		return nil
	}
	return analytics.ToDateOnly(*t.value)
}

// nullBool scans a boolean that may be null or of a non-boolean type.
type nullBool struct {
	value *bool
}

func (b *nullBool) Scan(src any) error {
	if v, ok := src.(bool); ok {
		b.value = &v
	} else {
		b.value = nil
	}
	return nil
}

type eventAggregateRow struct {
	Sessions       numeric `db:"sessions"`
	TestStarts     numeric `db:"test_starts"`
	TestCompletes  numeric `db:"test_completes"`
	PaywallViews   numeric `db:"paywall_views"`
	CheckoutStarts numeric `db:"checkout_starts"`
}

type moneyColumns struct {
	Purchases       numeric `db:"purchases"`
	GrossRevenueEUR numeric `db:"gross_revenue_eur"`
	RefundsEUR      numeric `db:"refunds_eur"`
	DisputesEUR     numeric `db:"disputes_eur"`
	PaymentFeesEUR  numeric `db:"payment_fees_eur"`
	NetRevenueEUR   numeric `db:"net_revenue_eur"`
}

func (m moneyColumns) metrics() stripeMetrics {
	return stripeMetrics{
		Purchases: m.Purchases.float(),
		Money: analytics.MoneyBreakdown{
			GrossRevenueEUR: m.GrossRevenueEUR.currency(),
			RefundsEUR:      m.RefundsEUR.currency(),
			DisputesFeesEUR: m.DisputesEUR.currency(),
			PaymentFeesEUR:  m.PaymentFeesEUR.currency(),
			NetRevenueEUR:   m.NetRevenueEUR.currency(),
		},
	}
}

type eventDimensionRow struct {
	Dim            text    `db:"dim"`
	Sessions       numeric `db:"sessions"`
	Starts         numeric `db:"starts"`
	Completes      numeric `db:"completes"`
	PaywallViews   numeric `db:"paywall_views"`
	CheckoutStarts numeric `db:"checkout_starts"`
	LastActivity   text    `db:"last_activity_date"`
}

func (r eventDimensionRow) metrics() eventMetrics {
	return eventMetrics{
		Sessions:       r.Sessions.float(),
		Starts:         r.Starts.float(),
		Completes:      r.Completes.float(),
		PaywallViews:   r.PaywallViews.float(),
		CheckoutStarts: r.CheckoutStarts.float(),
		LastActivity:   r.LastActivity.date(),
	}
}

type stripeDimensionRow struct {
	Dim text `db:"dim"`
	moneyColumns
	LastActivity text `db:"last_activity_date"`
}

func (r stripeDimensionRow) metrics() stripeMetrics {
	m := r.moneyColumns.metrics()
	m.LastActivity = r.LastActivity.date()
	return m
}

type sessionsByDateRow struct {
	Date      text    `db:"date"`
	Sessions  numeric `db:"sessions"`
	Completes numeric `db:"completes"`
}

type stripeByDateRow struct {
	Date text `db:"date"`
	moneyColumns
}

type slugRow struct {
	TestID text `db:"test_id"`
	Slug   text `db:"slug"`
}

type publicationRow struct {
	TenantID  text     `db:"tenant_id"`
	TestID    text     `db:"test_id"`
	VersionID text     `db:"version_id"`
	Enabled   nullBool `db:"is_enabled"`
}

type trafficSegmentRow struct {
	Segment       text    `db:"segment"`
	Sessions      numeric `db:"sessions"`
	Purchases     numeric `db:"purchases"`
	NetRevenueEUR numeric `db:"net_revenue_eur"`
}

// eventMetrics is the event-log side of a dimension value.
type eventMetrics struct {
	Sessions       float64
	Starts         float64
	Completes      float64
	PaywallViews   float64
	CheckoutStarts float64
	LastActivity   *string
}

// stripeMetrics is the ledger side of a dimension value.
type stripeMetrics struct {
	Purchases    float64
	Money        analytics.MoneyBreakdown
	LastActivity *string
}
