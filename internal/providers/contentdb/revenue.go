// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"context"
	"fmt"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

const (
	reconciliationAvailableDetail = "Reconciliation compares analytics_events.purchase_success against stripe_purchases."
	reconciliationPartialDetail   = "analytics_events or stripe_purchases is unavailable; reconciliation is partial."
)

func (p *Provider) internalPurchaseCount(ctx context.Context, f analytics.Filters, tables Tables) (float64, error) {
	if !tables.AnalyticsEvents {
		return 0, nil
	}

	c := BuildEventFilterClause(f, EventClauseOptions{})
	query := "SELECT COUNT(*) AS internal_purchase_count\nFROM analytics_events ae\n" + c.SQL +
		"\n  AND ae.event_name = 'purchase_success'"

	var counts []numeric
	if err := p.selectRows(ctx, "internal_purchase_count", &counts, query, c.Params...); err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0].float(), nil
}

func reconcile(tables Tables, agg analytics.Aggregate, internal float64) analytics.RevenueReconciliation {
	both := tables.AnalyticsEvents && tables.StripePurchases
	r := analytics.RevenueReconciliation{Available: both, Detail: reconciliationPartialDetail}
	if both {
		r.Detail = reconciliationAvailableDetail
	}

	if tables.StripePurchases {
		r.StripePurchaseCount = analytics.Ptr(agg.Purchases)
		r.StripeGrossRevenueEUR = analytics.Ptr(agg.GrossRevenueEUR)
	}
	if tables.AnalyticsEvents {
		r.InternalPurchaseCount = analytics.Ptr(internal)
	}
	if both {
		diff := internal - agg.Purchases
		base := agg.Purchases
		if base == 0 {
			base = internal
		}
		if base == 0 {
			base = 1
		}
		r.PurchaseCountDiff = analytics.Ptr(diff)
		r.PurchaseCountDiffPct = analytics.Ptr(analytics.SafeRatio(diff, base))
	}
	return r
}

// GetRevenue returns the gross-to-net waterfall by day, offer, tenant and
// test, plus a purchase count reconciliation between events and the ledger.
func (p *Provider) GetRevenue(ctx context.Context, f analytics.Filters) (*analytics.RevenueResponse, error) {
	tables := p.tables(ctx)

	var (
		agg      analytics.Aggregate
		daily    map[string]stripeMetrics
		offers   []stripeDimensionRow
		tenants  []stripeDimensionRow
		tests    []stripeDimensionRow
		internal float64
	)
	err := parallel(
		func() (err error) { agg, err = p.fetchAggregate(ctx, f, tables); return },
		func() (err error) { daily, err = p.stripeDaily(ctx, f, tables); return },
		func() (err error) { offers, err = p.stripeBy(ctx, f, tables, byOffer.limited(detailRowsLimit)); return },
		func() (err error) { tenants, err = p.stripeBy(ctx, f, tables, byTenant.limited(detailRowsLimit)); return },
		func() (err error) { tests, err = p.stripeBy(ctx, f, tables, byTest.limited(detailRowsLimit)); return },
		func() (err error) { internal, err = p.internalPurchaseCount(ctx, f, tables); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get revenue: %w", err)
	}

	dates := analytics.ListDatesInclusive(f.Start, f.End)
	dailyRows := make([]analytics.RevenueDailyRow, len(dates))
	for i, d := range dates {
		dailyRows[i] = analytics.RevenueDailyRow{Date: d, MoneyBreakdown: daily[d].Money}
	}

	byOfferRows := make([]analytics.RevenueByOfferRow, 0, len(offers))
	for _, r := range offers {
		parts := splitKey(r.Dim.orElse("::"), 3)
		offerKey := parts[0]
		if offerKey == "" {
			offerKey = "unknown"
		}
		variant := parts[2]
		if variant == "" {
			variant = "default"
		}
		m := r.metrics()
		byOfferRows = append(byOfferRows, analytics.RevenueByOfferRow{
			OfferType:      analytics.ResolveOfferType(offerKey, parts[1]),
			OfferKey:       offerKey,
			PricingVariant: variant,
			Purchases:      m.Purchases,
			MoneyBreakdown: m.Money,
		})
	}

	byTenantRows := make([]analytics.RevenueByTenantRow, 0, len(tenants))
	for _, r := range tenants {
		if id, ok := r.Dim.key(); ok {
			m := r.metrics()
			byTenantRows = append(byTenantRows, analytics.RevenueByTenantRow{TenantID: id, Purchases: m.Purchases, MoneyBreakdown: m.Money})
		}
	}

	byTestRows := make([]analytics.RevenueByTestRow, 0, len(tests))
	for _, r := range tests {
		if id, ok := r.Dim.key(); ok {
			m := r.metrics()
			byTestRows = append(byTestRows, analytics.RevenueByTestRow{TestID: id, Purchases: m.Purchases, MoneyBreakdown: m.Money})
		}
	}

	return &analytics.RevenueResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		Kpis:           analytics.BuildKpis(agg),
		Daily:          dailyRows,
		ByOffer:        byOfferRows,
		ByTenant:       byTenantRows,
		ByTest:         byTestRows,
		Reconciliation: reconcile(tables, agg, internal),
	}, nil
}
