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

// trafficDimension is a segment expression over the daily marts. column names
// the optional mart column it needs, empty for channel_key derivations.
type trafficDimension struct {
	name     string
	expr     string
	column   string
	fallback string
}

var trafficDimensions = []trafficDimension{
	{name: "utm_source", expr: utmSourceSQL("channel_key"), fallback: "(none)"},
	{name: "utm_campaign", expr: utmCampaignSQL("channel_key"), fallback: "(none)"},
	{name: "referrer", expr: columnReferrer, column: columnReferrer, fallback: "(none)"},
	{name: "device_type", expr: columnDeviceType, column: columnDeviceType, fallback: "(unknown)"},
	{name: "country", expr: columnCountry, column: columnCountry, fallback: "(unknown)"},
}

// dimension groups by the segment with blanks folded into the fallback.
// Returns false when the funnel mart lacks the column.
func (d trafficDimension) dimension(cols martColumns, topN int) (martDimension, bool) {
	md := martDimension{
		expr:            "COALESCE(NULLIF(" + d.expr + ", ''), '" + d.fallback + "')",
		keepUnallocated: true,
		order:           orderBySessions,
		limit:           topN,
	}
	if d.column == "" {
		return md, true
	}
	if !cols.has(tableFunnelDaily, d.column) {
		return md, false
	}
	md.funnelOnly = !cols.has(tablePnlDaily, d.column)
	return md, true
}

func (p *Provider) trafficBreakdown(ctx context.Context, c martClauses, cols martColumns, d trafficDimension, topN int) ([]analytics.TrafficSegmentRow, error) {
	rows := []analytics.TrafficSegmentRow{}
	md, ok := d.dimension(cols, topN)
	if !ok {
		p.log.Debug().Str("dimension", d.name).Msg("Traffic dimension column missing, returning empty breakdown")
		return rows, nil
	}

	found, err := p.fetchDimension(ctx, "traffic_"+d.name, c, md)
	if err != nil {
		return nil, err
	}
	for _, r := range found {
		rows = append(rows, analytics.TrafficSegmentRow{
			Segment:        r.key,
			Sessions:       r.sessions,
			Purchases:      r.purchases,
			PaidConversion: r.paidConversion,
			NetRevenueEUR:  r.money.NetRevenueEUR,
		})
	}
	return rows, nil
}

// GetTraffic breaks sessions and purchases down by acquisition channel,
// referrer, device and country. Columns the marts lack yield empty lists.
func (p *Provider) GetTraffic(ctx context.Context, f analytics.Filters, opts analytics.TrafficOptions) (*analytics.TrafficResponse, error) {
	opts = analytics.ResolveTrafficOptions(opts)

	cols, err := p.optionalColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("get traffic: %w", err)
	}
	c, err := p.clauses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("get traffic: %w", err)
	}

	var agg analytics.Aggregate
	breakdowns := make([][]analytics.TrafficSegmentRow, len(trafficDimensions))
	fns := []func() error{
		func() (err error) { agg, err = p.fetchAggregate(ctx, c); return },
	}
	for i, d := range trafficDimensions {
		fns = append(fns, func() (err error) {
			breakdowns[i], err = p.trafficBreakdown(ctx, c, cols, d, opts.TopN)
			return
		})
	}
	if err := parallel(fns...); err != nil {
		return nil, fmt.Errorf("get traffic: %w", err)
	}

	return &analytics.TrafficResponse{
		Filters:        f,
		GeneratedAtUTC: p.generatedAt(),
		TopN:           opts.TopN,
		Kpis:           analytics.BuildKpis(agg),
		ByUTMSource:    breakdowns[0],
		ByUTMCampaign:  breakdowns[1],
		ByReferrer:     breakdowns[2],
		ByDeviceType:   breakdowns[3],
		ByCountry:      breakdowns[4],
	}, nil
}
