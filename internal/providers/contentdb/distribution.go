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

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

type pairMetrics struct {
	tenantID  string
	testID    string
	sessions  float64
	purchases float64
	net       float64
}

// rankKeys orders totals by value descending then key, keeping the first n.
func rankKeys(totals map[string]float64, n int) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return analytics.Limit(keys, n)
}

// GetDistribution ranks tenants and tests independently by net revenue, then
// fills the cells of the top rows and columns with pair metrics and the
// tenant's publication state.
func (p *Provider) GetDistribution(ctx context.Context, f analytics.Filters, opts analytics.DistributionOptions) (*analytics.DistributionResponse, error) {
	tables := p.tables(ctx)
	opts = analytics.ResolveDistributionOptions(opts)

	var (
		events       []eventDimensionRow
		stripe       []stripeDimensionRow
		publications map[string]publication
	)
	err := parallel(
		func() (err error) { events, err = p.eventsBy(ctx, f, tables, byTenantTest); return },
		func() (err error) { stripe, err = p.stripeBy(ctx, f, tables, byTenantTest); return },
		func() (err error) { publications, err = p.fetchPublications(ctx, f, tables); return },
	)
	if err != nil {
		return nil, fmt.Errorf("get distribution: %w", err)
	}

	pairs := map[string]*pairMetrics{}
	pairFor := func(raw text) *pairMetrics {
		key, ok := raw.key()
		if !ok {
			return nil
		}
		parts := splitKey(key, 2)
		if parts[0] == "" || parts[1] == "" {
			return nil
		}
		key = pairKey(parts[0], parts[1])
		m, ok := pairs[key]
		if !ok {
			m = &pairMetrics{tenantID: parts[0], testID: parts[1]}
			pairs[key] = m
		}
		return m
	}
	for _, r := range events {
		if m := pairFor(r.Dim); m != nil {
			m.sessions = r.Sessions.float()
		}
	}
	for _, r := range stripe {
		if m := pairFor(r.Dim); m != nil {
			m.purchases = r.Purchases.float()
			m.net = r.NetRevenueEUR.currency()
		}
	}

	rowRevenue := map[string]float64{}
	colRevenue := map[string]float64{}
	for _, m := range pairs {
		rowRevenue[m.tenantID] += m.net
		colRevenue[m.testID] += m.net
	}
	for key := range publications {
		parts := splitKey(key, 2)
		rowRevenue[parts[0]] += 0
		colRevenue[parts[1]] += 0
	}
	if f.TenantID != nil {
		rowRevenue[*f.TenantID] += 0
	}
	if f.TestID != nil {
		colRevenue[*f.TestID] += 0
	}

	rowOrder := rankKeys(rowRevenue, opts.TopTenants)
	columnOrder := rankKeys(colRevenue, opts.TopTests)

	columns := make(map[string]analytics.DistributionColumn, len(columnOrder))
	for _, testID := range columnOrder {
		columns[testID] = analytics.DistributionColumn{
			TestID:          testID,
			NetRevenueEUR7d: analytics.RoundCurrency(colRevenue[testID]),
		}
	}

	rows := make(map[string]analytics.DistributionRow, len(rowOrder))
	for _, tenantID := range rowOrder {
		cells := make(map[string]analytics.DistributionCell, len(columnOrder))
		for _, testID := range columnOrder {
			key := pairKey(tenantID, testID)
			cell := analytics.DistributionCell{TenantID: tenantID, TestID: testID}
			if m, ok := pairs[key]; ok {
				cell.NetRevenueEUR7d = analytics.RoundCurrency(m.net)
				cell.PaidConversion7d = analytics.SafeRatio(m.purchases, m.sessions)
			}
			if pub, ok := publications[key]; ok {
				cell.IsPublished = pub.isPublished
				cell.VersionID = pub.versionID
				cell.Enabled = pub.enabled
			}
			cells[testID] = cell
		}
		rows[tenantID] = analytics.DistributionRow{
			TenantID:        tenantID,
			NetRevenueEUR7d: analytics.RoundCurrency(rowRevenue[tenantID]),
			Cells:           cells,
		}
	}

	return &analytics.DistributionResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		TopTenants:     opts.TopTenants,
		TopTests:       opts.TopTests,
		RowOrder:       rowOrder,
		ColumnOrder:    columnOrder,
		Rows:           rows,
		Columns:        columns,
	}, nil
}
