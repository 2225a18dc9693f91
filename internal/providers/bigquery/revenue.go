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

const (
	reconciliationAvailableDetail   = "Reconciliation compares mart_pnl_daily and mart_funnel_daily against raw Stripe purchases."
	reconciliationUnavailableDetail = "Raw Stripe purchases are unavailable; reconciliation is skipped."
)

// offerRow is one offer and pricing variant of the unit economics mart.
type offerRow struct {
	offerKey       string
	pricingVariant string
	purchases      float64
	money          analytics.MoneyBreakdown
}

// fetchOffers sums mart_unit_econ_daily per offer. The mart is optional.
func (p *Provider) fetchOffers(ctx context.Context, c martClauses) ([]offerRow, error) {
	sql := `SELECT
  COALESCE(NULLIF(offer_key, ''), 'unknown') AS offer_key,
  COALESCE(NULLIF(pricing_variant, ''), 'default') AS pricing_variant,
  COALESCE(SUM(purchases), 0) AS purchases,
  ` + moneySumsSQL + `
FROM ` + p.mart(tableUnitEconDaily) + `
` + c.unitEcon.SQL + `
GROUP BY offer_key, pricing_variant
ORDER BY net_revenue_eur DESC, offer_key ASC, pricing_variant ASC
` + limitSQL(detailRowsLimit)

	res, err := p.queryOptional(ctx, "revenue_by_offer", p.datasets.Marts+"."+tableUnitEconDaily, sql, c.unitEcon.Params)
	if err != nil {
		return nil, err
	}
	rows, _ := res.Get()
	out := make([]offerRow, 0, len(rows))
	for _, r := range rows {
		offerKey, ok := r.key("offer_key")
		if !ok {
			offerKey = "unknown"
		}
		variant, ok := r.key("pricing_variant")
		if !ok {
			variant = "default"
		}
		out = append(out, offerRow{
			offerKey:       offerKey,
			pricingVariant: variant,
			purchases:      r.number("purchases"),
			money:          r.money(),
		})
	}
	return out, nil
}

// stripeTotals are raw ledger totals for reconciliation.
type stripeTotals struct {
	available bool
	purchases float64
	grossEUR  float64
}

// fetchStripeTotals counts raw Stripe purchases in scope. Locale, device and
// channel filters do not exist on the ledger and are ignored.
func (p *Provider) fetchStripeTotals(ctx context.Context, f analytics.Filters) (stripeTotals, error) {
	if p.datasets.Stripe == "" {
		return stripeTotals{}, nil
	}

	conditions := "WHERE DATE(created_utc) BETWEEN DATE(@start) AND DATE(@end)"
	params := Params{"start": f.Start, "end": f.End}
	if f.TenantID != nil {
		conditions += " AND tenant_id = @tenant_id"
		params["tenant_id"] = *f.TenantID
	}
	if f.TestID != nil {
		conditions += " AND test_id = @test_id"
		params["test_id"] = *f.TestID
	}

	sql := `SELECT
  COUNT(*) AS stripe_purchase_count,
  COALESCE(SUM(amount_eur), 0) AS stripe_gross_revenue_eur
FROM ` + p.table(p.datasets.Stripe, tableStripeOrders) + `
` + conditions

	res, err := p.queryOptional(ctx, "reconciliation_stripe", p.datasets.Stripe+"."+tableStripeOrders, sql, params)
	if err != nil {
		return stripeTotals{}, err
	}
	rows, available := res.Get()
	totals := stripeTotals{available: available}
	if len(rows) > 0 {
		totals.purchases = rows[0].number("stripe_purchase_count")
		totals.grossEUR = rows[0].currency("stripe_gross_revenue_eur")
	}
	return totals, nil
}

// diffPct divides by the ledger value, falling back to the internal value
// and then 1 so the ratio is always defined.
func diffPct(diff, stripe, internal float64) float64 {
	base := stripe
	if base == 0 {
		base = internal
	}
	if base == 0 {
		base = 1
	}
	return analytics.SafeRatio(diff, base)
}

func reconcile(agg analytics.Aggregate, stripe stripeTotals) analytics.RevenueReconciliation {
	r := analytics.RevenueReconciliation{
		Available:               stripe.available,
		Detail:                  reconciliationUnavailableDetail,
		InternalPurchaseCount:   analytics.Ptr(agg.Purchases),
		InternalGrossRevenueEUR: analytics.Ptr(agg.GrossRevenueEUR),
	}
	if !stripe.available {
		return r
	}

	countDiff := agg.Purchases - stripe.purchases
	grossDiff := analytics.RoundCurrency(agg.GrossRevenueEUR - stripe.grossEUR)

	r.Detail = reconciliationAvailableDetail
	r.StripePurchaseCount = analytics.Ptr(stripe.purchases)
	r.StripeGrossRevenueEUR = analytics.Ptr(stripe.grossEUR)
	r.PurchaseCountDiff = analytics.Ptr(countDiff)
	r.PurchaseCountDiffPct = analytics.Ptr(diffPct(countDiff, stripe.purchases, agg.Purchases))
	r.GrossRevenueDiffEUR = analytics.Ptr(grossDiff)
	r.GrossRevenueDiffPct = analytics.Ptr(diffPct(grossDiff, stripe.grossEUR, agg.GrossRevenueEUR))
	return r
}

// GetRevenue returns the gross-to-net waterfall by day, offer, tenant and
// test, reconciled against raw Stripe purchases.
func (p *Provider) GetRevenue(ctx context.Context, f analytics.Filters) (*analytics.RevenueResponse, error) {
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get revenue: %w", err)
	}

	var (
		agg     analytics.Aggregate
		daily   map[string]dailyRow
		offers  []offerRow
		tenants []dimensionRow
		tests   []dimensionRow
		stripe  stripeTotals
	)
	err = parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, c); return },
		func() (err error) { daily, err = p.fetchDaily(ctx, c); return },
		func() (err error) { offers, err = p.fetchOffers(ctx, c); return },
		func() (err error) {
			tenants, err = p.fetchDimension(ctx, "revenue_by_tenant", c,
				byTenant.ordered(orderByRevenue).limited(detailRowsLimit))
			return
		},
		func() (err error) {
			tests, err = p.fetchDimension(ctx, "revenue_by_test", c,
				byTest.ordered(orderByRevenue).limited(detailRowsLimit))
			return
		},
		func() (err error) { stripe, err = p.fetchStripeTotals(ctx, f); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get revenue: %w", err)
	}

	dates := analytics.ListDatesInclusive(f.Start, f.End)
	dailyRows := make([]analytics.RevenueDailyRow, len(dates))
	for i, d := range dates {
		dailyRows[i] = analytics.RevenueDailyRow{Date: d, MoneyBreakdown: daily[d].money}
	}

	offerRows := make([]analytics.RevenueByOfferRow, len(offers))
	for i, o := range offers {
		offerRows[i] = analytics.RevenueByOfferRow{
			OfferType:      analytics.ResolveOfferType(o.offerKey, ""),
			OfferKey:       o.offerKey,
			PricingVariant: o.pricingVariant,
			Purchases:      o.purchases,
			MoneyBreakdown: o.money,
		}
	}

	tenantRows := make([]analytics.RevenueByTenantRow, len(tenants))
	for i, r := range tenants {
		tenantRows[i] = analytics.RevenueByTenantRow{TenantID: r.key, Purchases: r.purchases, MoneyBreakdown: r.money}
	}
	testRows := make([]analytics.RevenueByTestRow, len(tests))
	for i, r := range tests {
		testRows[i] = analytics.RevenueByTestRow{TestID: r.key, Purchases: r.purchases, MoneyBreakdown: r.money}
	}

	return &analytics.RevenueResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		Kpis:           analytics.BuildKpis(agg),
		Daily:          dailyRows,
		ByOffer:        offerRows,
		ByTenant:       tenantRows,
		ByTest:         testRows,
		Reconciliation: reconcile(agg, stripe),
	}, nil
}
