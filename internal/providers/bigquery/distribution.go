// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

const pairSeparator = "::"

type publication struct {
	versionID *string
	enabled   *bool
}

// rankRevenue orders keys by revenue descending then key, keeping the first n.
func rankRevenue(revenue map[string]float64, n int) []string {
	keys := slices.AppendSeq(make([]string, 0, len(revenue)), maps.Keys(revenue))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(revenue[b], revenue[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return analytics.Limit(keys, n)
}

// revenueByKey keeps the net revenue of each ranked dimension row and makes
// sure a filtered id is present even without activity.
func revenueByKey(rows []dimensionRow, filtered *string) map[string]float64 {
	out := make(map[string]float64, len(rows)+1)
	for _, r := range rows {
		out[r.key] = r.money.NetRevenueEUR
	}
	if filtered != nil {
		out[*filtered] += 0
	}
	return out
}

// GetDistribution builds the tenant x test matrix in two passes: rows and
// columns are ranked independently, then only the selected cells are read.
func (p *Provider) GetDistribution(ctx context.Context, f analytics.Filters, opts analytics.DistributionOptions) (*analytics.DistributionResponse, error) {
	opts = analytics.ResolveDistributionOptions(opts)
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get distribution: %w", err)
	}

	var tenants, tests []dimensionRow
	err = parallel(
		func() (err error) {
			tenants, err = p.fetchDimension(ctx, "distribution_tenants", c,
				byTenant.ordered(orderByRevenue).limited(opts.TopTenants))
			return
		},
		func() (err error) {
			tests, err = p.fetchDimension(ctx, "distribution_tests", c,
				byTest.ordered(orderByRevenue).limited(opts.TopTests))
			return
		},
	)
	if err != nil {
		return nil, fmt.Errorf("get distribution: %w", err)
	}

	rowRevenue := revenueByKey(tenants, f.TenantID)
	colRevenue := revenueByKey(tests, f.TestID)
	rowOrder := rankRevenue(rowRevenue, opts.TopTenants)
	columnOrder := rankRevenue(colRevenue, opts.TopTests)

	var (
		pairs        map[string]dimensionRow
		publications map[string]publication
	)
	if len(rowOrder) > 0 && len(columnOrder) > 0 {
		err = parallel(
			func() (err error) { pairs, err = p.fetchPairs(ctx, c, rowOrder, columnOrder); return },
			func() (err error) { publications, err = p.fetchPublications(ctx, rowOrder, columnOrder); return },
		)
		if err != nil {
			return nil, fmt.Errorf("get distribution: %w", err)
		}
	}

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
			key := tenantID + pairSeparator + testID
			cell := analytics.DistributionCell{TenantID: tenantID, TestID: testID}
			if m, ok := pairs[key]; ok {
				cell.NetRevenueEUR7d = m.money.NetRevenueEUR
				cell.PaidConversion7d = m.paidConversion
			}
			if pub, ok := publications[key]; ok {
				cell.IsPublished = pub.versionID != nil
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

// fetchPairs reads pair metrics for the selected rows and columns only.
func (p *Provider) fetchPairs(ctx context.Context, c martClauses, tenantIDs, testIDs []string) (map[string]dimensionRow, error) {
	d := byPair.narrowed(
		Params{"row_tenants": tenantIDs, "column_tests": testIDs},
		"tenant_id IN UNNEST(@row_tenants)",
		"test_id IN UNNEST(@column_tests)",
	)
	found, err := p.fetchDimension(ctx, "distribution_cells", c, d)
	if err != nil {
		return nil, err
	}

	out := make(map[string]dimensionRow, len(found))
	for _, r := range found {
		tenantID, testID, ok := strings.Cut(r.key, pairSeparator)
		if !ok || tenantID == "" || testID == "" || tenantID == unallocated || testID == unallocated {
			continue
		}
		out[r.key] = r
	}
	return out, nil
}

// fetchPublications maps "tenant::test" to the tenant's publication state
// from the catalog snapshot. A missing snapshot leaves every cell unpublished.
func (p *Provider) fetchPublications(ctx context.Context, tenantIDs, testIDs []string) (map[string]publication, error) {
	out := map[string]publication{}
	if p.datasets.Tmp == "" {
		return out, nil
	}

	sql := `SELECT
  tenant_id,
  test_id,
  CAST(published_version_id AS STRING) AS version_id,
  is_enabled
FROM ` + p.table(p.datasets.Tmp, tableTenantTests) + `
WHERE tenant_id IN UNNEST(@row_tenants)
  AND test_id IN UNNEST(@column_tests)`
	params := Params{"row_tenants": tenantIDs, "column_tests": testIDs}

	res, err := p.queryOptional(ctx, "publication_state", p.datasets.Tmp+"."+tableTenantTests, sql, params)
	if err != nil {
		return nil, err
	}
	rows, _ := res.Get()
	for _, r := range rows {
		tenantID, okTenant := r.key("tenant_id")
		testID, okTest := r.key("test_id")
		if !okTenant || !okTest {
			continue
		}
		pub := publication{}
		if v, ok := r.key("version_id"); ok {
			pub.versionID = &v
		}
		if enabled, ok := r["is_enabled"].(bool); ok {
			pub.enabled = &enabled
		}
		out[tenantID+pairSeparator+testID] = pub
	}
	return out, nil
}
