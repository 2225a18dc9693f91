// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

const contentTypeTest = "test"

func trimmedOption(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func groupedBy(f analytics.Filters) analytics.AttributionGroupBy {
	if f.TenantID != nil {
		return analytics.GroupByContent
	}
	return analytics.GroupByTenant
}

// buildAttributionMix sums rows per tenant or per content key.
func buildAttributionMix(rows []analytics.AttributionRow, by analytics.AttributionGroupBy) []analytics.AttributionMixRow {
	index := map[string]int{}
	mix := []analytics.AttributionMixRow{}
	for _, r := range rows {
		segment := r.TenantID
		if by == analytics.GroupByContent {
			segment = r.ContentKey
		}
		i, ok := index[segment]
		if !ok {
			i = len(mix)
			index[segment] = i
			mix = append(mix, analytics.AttributionMixRow{Segment: segment})
		}
		mix[i].Add(r.MoneyBreakdown)
	}

	analytics.SortByRevenue(mix,
		func(m analytics.AttributionMixRow) float64 { return m.NetRevenueEUR },
		func(m analytics.AttributionMixRow) string { return m.Segment })
	return analytics.Limit(mix, attributionMixLimit)
}

// GetAttribution joins ledger revenue per tenant, test, offer and pricing
// variant with the visits of the same tenant and test. Only tests are
// attributable content; any other content type yields empty results.
func (p *Provider) GetAttribution(ctx context.Context, f analytics.Filters, opts analytics.AttributionOptions) (*analytics.AttributionResponse, error) {
	contentType := trimmedOption(opts.ContentType)
	if contentType != nil {
		lowered := strings.ToLower(*contentType)
		contentType = &lowered
	}
	contentKey := trimmedOption(opts.ContentKey)

	if contentType != nil && *contentType != contentTypeTest {
		return &analytics.AttributionResponse{
			Filters:        f,
			GeneratedAtUTC: p.generatedAt(),
			ContentType:    *contentType,
			ContentKey:     contentKey,
			GroupedBy:      groupedBy(f),
			Mix:            []analytics.AttributionMixRow{},
			Rows:           []analytics.AttributionRow{},
		}, nil
	}

	tables := p.tables(ctx)
	scoped := f
	if contentKey != nil {
		scoped = f.WithTest(*contentKey)
	}

	var (
		stripe []stripeDimensionRow
		visits []eventDimensionRow
	)
	err := parallel(
		func() (err error) {
			stripe, err = p.stripeBy(ctx, scoped, tables, byAttribution.limited(detailRowsLimit))
			return
		},
		func() (err error) {
			visits, err = p.eventsBy(ctx, scoped, tables, byAttribution.limited(detailRowsLimit))
			return
		},
	)
	if err != nil {
		return nil, fmt.Errorf("get attribution: %w", err)
	}

	visitsByPair := map[string]float64{}
	for _, r := range visits {
		if key, ok := r.Dim.key(); ok {
			visitsByPair[key] = r.Sessions.float()
		}
	}

	rows := []analytics.AttributionRow{}
	for _, r := range stripe {
		raw, ok := r.Dim.key()
		if !ok {
			continue
		}
		parts := splitKey(raw, 4)
		tenantID, testID := parts[0], parts[1]
		if tenantID == "" || testID == "" {
			continue
		}
		offerKey := parts[2]
		if offerKey == "" {
			offerKey = "unknown"
		}
		variant := parts[3]
		if variant == "" {
			variant = "default"
		}

		m := r.metrics()
		v := visitsByPair[pairKey(tenantID, testID)]
		rows = append(rows, analytics.AttributionRow{
			TenantID:       tenantID,
			ContentType:    contentTypeTest,
			ContentKey:     testID,
			OfferKey:       offerKey,
			PricingVariant: variant,
			Purchases:      m.Purchases,
			Visits:         v,
			Conversion:     analytics.SafeRatio(m.Purchases, v),
			MoneyBreakdown: m.Money,
		})
	}

	slices.SortStableFunc(rows, func(a, b analytics.AttributionRow) int {
		return cmp.Or(
			cmp.Compare(b.NetRevenueEUR, a.NetRevenueEUR),
			cmp.Compare(b.Purchases, a.Purchases),
			cmp.Compare(a.TenantID, b.TenantID),
			cmp.Compare(a.ContentKey, b.ContentKey),
			cmp.Compare(a.OfferKey, b.OfferKey),
		)
	})

	by := groupedBy(f)
	return &analytics.AttributionResponse{
		Filters:        scoped,
		GeneratedAtUTC: p.generatedAt(),
		ContentType:    contentTypeTest,
		ContentKey:     contentKey,
		GroupedBy:      by,
		Mix:            buildAttributionMix(rows, by),
		Rows:           rows,
	}, nil
}
