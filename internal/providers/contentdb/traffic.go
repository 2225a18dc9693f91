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

// trafficDimension is a per-session attribute of analytics_events. Names come
// from the fixed list below and are interpolated as column names.
type trafficDimension struct {
	column   string
	fallback string
}

var (
	trafficUTMSource   = trafficDimension{column: "utm_source", fallback: "(none)"}
	trafficUTMCampaign = trafficDimension{column: "utm_campaign", fallback: "(none)"}
	trafficReferrer    = trafficDimension{column: "referrer", fallback: "(none)"}
	trafficDeviceType  = trafficDimension{column: "device_type", fallback: "(unknown)"}
	trafficCountry     = trafficDimension{column: "country", fallback: "(unknown)"}

	trafficDimensions = []trafficDimension{
		trafficUTMSource, trafficUTMCampaign, trafficReferrer, trafficDeviceType, trafficCountry,
	}
)

// trafficQuery attributes each session's purchases to the session's
// non-blank value of d. Only d's column is read, so a missing optional column
// empties a single breakdown. Purchases are scoped by date only; the session
// join carries the remaining filters.
func trafficQuery(f analytics.Filters, tables Tables, d trafficDimension, topN int) (string, []any) {
	events := BuildEventFilterClause(f, EventClauseOptions{})

	purchases := `filtered_purchases AS (
  SELECT NULL::text AS purchase_id, NULL::text AS session_id, 0::numeric AS net_revenue_eur
  WHERE FALSE
)`
	if tables.StripePurchases {
		purchases = `filtered_purchases AS (
  SELECT
    sp.purchase_id,
    sp.session_id,
` + netRevenueSQL + `
  WHERE sp.created_utc::date >= $1::date
    AND sp.created_utc::date <= $2::date
)`
	}

	query := `WITH
event_sessions AS (
  SELECT
    ae.session_id,
    COALESCE(NULLIF(MAX(ae.` + d.column + `), ''), '` + d.fallback + `') AS segment
  FROM analytics_events ae
  ` + events.SQL + `
  GROUP BY ae.session_id
),
` + ledgerCTEs(tables) + `,
` + purchases + `
SELECT
  event_sessions.segment,
  COUNT(DISTINCT event_sessions.session_id) AS sessions,
  COUNT(DISTINCT fp.purchase_id) AS purchases,
  COALESCE(SUM(fp.net_revenue_eur), 0) AS net_revenue_eur
FROM event_sessions
LEFT JOIN filtered_purchases fp ON fp.session_id = event_sessions.session_id
GROUP BY event_sessions.segment
ORDER BY sessions DESC, segment ASC
` + limitSQL(topN)

	return query, events.Params
}

func (p *Provider) trafficBreakdown(ctx context.Context, f analytics.Filters, tables Tables, d trafficDimension, topN int) ([]analytics.TrafficSegmentRow, error) {
	rows := []analytics.TrafficSegmentRow{}
	if !tables.AnalyticsEvents {
		return rows, nil
	}

	query, args := trafficQuery(f, tables, d, topN)
	res, err := selectOptional[trafficSegmentRow](ctx, p, "traffic_"+d.column, "analytics_events."+d.column, query, args...)
	if err != nil {
		return nil, err
	}

	scanned, _ := res.Get()
	for _, r := range scanned {
		sessions, purchases := r.Sessions.float(), r.Purchases.float()
		rows = append(rows, analytics.TrafficSegmentRow{
			Segment:        normalizeSegment(r.Segment, d.fallback),
			Sessions:       sessions,
			Purchases:      purchases,
			PaidConversion: analytics.SafeRatio(purchases, sessions),
			NetRevenueEUR:  r.NetRevenueEUR.currency(),
		})
	}
	return rows, nil
}

// GetTraffic breaks sessions and purchases down by acquisition channel,
// device and country.
func (p *Provider) GetTraffic(ctx context.Context, f analytics.Filters, opts analytics.TrafficOptions) (*analytics.TrafficResponse, error) {
	tables := p.tables(ctx)
	opts = analytics.ResolveTrafficOptions(opts)

	var agg analytics.Aggregate
	breakdowns := make([][]analytics.TrafficSegmentRow, len(trafficDimensions))

	fns := []func() error{
		func() (err error) { agg, err = p.fetchAggregate(ctx, f, tables); return },
	}
	for i, d := range trafficDimensions {
		fns = append(fns, func() (err error) {
			breakdowns[i], err = p.trafficBreakdown(ctx, f, tables, d, opts.TopN)
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
