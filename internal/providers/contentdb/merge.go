// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"cmp"
	"slices"
	"strings"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// merged joins the event and ledger metrics of one dimension key.
type merged struct {
	key    string
	events eventMetrics
	stripe stripeMetrics
}

func (m *merged) netRevenue() float64 { return m.stripe.Money.NetRevenueEUR }

func (m *merged) paidConversion() float64 {
	return analytics.SafeRatio(m.stripe.Purchases, m.events.Sessions)
}

func (m *merged) lastActivity() *string {
	return analytics.MaxDate(m.events.LastActivity, m.stripe.LastActivity)
}

func (m *merged) performance() analytics.PerformanceMetrics {
	return analytics.PerformanceMetrics{
		Sessions:       m.events.Sessions,
		Starts:         m.events.Starts,
		Completes:      m.events.Completes,
		Purchases:      m.stripe.Purchases,
		PaidConversion: m.paidConversion(),
		NetRevenueEUR:  m.stripe.Money.NetRevenueEUR,
		RefundsEUR:     m.stripe.Money.RefundsEUR,
	}
}

func (m *merged) tenantMetrics() analytics.TenantMetrics {
	return analytics.TenantMetrics{
		Sessions:        m.events.Sessions,
		TestStarts:      m.events.Starts,
		TestCompletions: m.events.Completes,
		Purchases:       m.stripe.Purchases,
		PaidConversion:  m.paidConversion(),
		NetRevenueEUR:   m.stripe.Money.NetRevenueEUR,
		RefundsEUR:      m.stripe.Money.RefundsEUR,
	}
}

// keyFunc normalizes a scanned dimension value; false drops the row.
type keyFunc func(text) (string, bool)

func idKey(t text) (string, bool) { return t.key() }

func localeKey(t text) (string, bool) {
	return normalizeSegment(t, "(unknown)"), true
}

// normalizeSegment maps a blank segment to fallback.
func normalizeSegment(t text, fallback string) string {
	return t.orElse(fallback)
}

// mergeSet accumulates merged rows in first-seen key order.
type mergeSet struct {
	order []string
	byKey map[string]*merged
}

func newMergeSet() *mergeSet {
	return &mergeSet{byKey: map[string]*merged{}}
}

func (s *mergeSet) get(key string) *merged {
	m, ok := s.byKey[key]
	if !ok {
		m = &merged{key: key}
		s.byKey[key] = m
		s.order = append(s.order, key)
	}
	return m
}

func (s *mergeSet) addEvents(rows []eventDimensionRow, keyOf keyFunc) *mergeSet {
	for _, r := range rows {
		key, ok := keyOf(r.Dim)
		if !ok {
			continue
		}
		m := s.get(key)
		e := r.metrics()
		m.events.Sessions += e.Sessions
		m.events.Starts += e.Starts
		m.events.Completes += e.Completes
		m.events.PaywallViews += e.PaywallViews
		m.events.CheckoutStarts += e.CheckoutStarts
		m.events.LastActivity = analytics.MaxDate(m.events.LastActivity, e.LastActivity)
	}
	return s
}

func (s *mergeSet) addStripe(rows []stripeDimensionRow, keyOf keyFunc) *mergeSet {
	for _, r := range rows {
		key, ok := keyOf(r.Dim)
		if !ok {
			continue
		}
		m := s.get(key)
		st := r.metrics()
		m.stripe.Purchases += st.Purchases
		m.stripe.Money.Add(st.Money)
		m.stripe.LastActivity = analytics.MaxDate(m.stripe.LastActivity, st.LastActivity)
	}
	return s
}

// ensure adds zero rows for keys that must appear even without activity.
func (s *mergeSet) ensure(keys ...*string) *mergeSet {
	for _, k := range keys {
		if k != nil && strings.TrimSpace(*k) != "" {
			s.get(strings.TrimSpace(*k))
		}
	}
	return s
}

// ranked returns the rows ordered by net revenue descending then key.
func (s *mergeSet) ranked() []*merged {
	rows := make([]*merged, 0, len(s.order))
	for _, k := range s.order {
		rows = append(rows, s.byKey[k])
	}
	analytics.SortByRevenue(rows, (*merged).netRevenue, func(m *merged) string { return m.key })
	return rows
}

// topPartner picks, per leading key of "a::b" rows, the partner with the most
// sessions. Rows arrive ordered by sessions descending, so the first wins.
func topPartner(rows []eventDimensionRow) map[string]string {
	best := map[string]string{}
	sessions := map[string]float64{}
	for _, r := range rows {
		raw, ok := r.Dim.key()
		if !ok {
			continue
		}
		parts := splitKey(raw, 2)
		if parts[0] == "" || parts[1] == "" {
			continue
		}
		if prev, seen := sessions[parts[0]]; seen && prev >= r.Sessions.float() {
			continue
		}
		best[parts[0]] = parts[1]
		sessions[parts[0]] = r.Sessions.float()
	}
	return best
}

// revenueTimeseries expands the ledger by day over [start, end].
func revenueTimeseries(start, end string, daily map[string]stripeMetrics) []analytics.TimeseriesPoint {
	values := make(map[string]float64, len(daily))
	for d, m := range daily {
		values[d] = analytics.RoundCurrency(m.Money.NetRevenueEUR)
	}
	return analytics.FillTimeseries(start, end, values)
}

func sessionsTimeseries(start, end string, daily map[string]eventMetrics) []analytics.TimeseriesPoint {
	values := make(map[string]float64, len(daily))
	for d, m := range daily {
		values[d] = m.Sessions
	}
	return analytics.FillTimeseries(start, end, values)
}

func compareDesc(a, b float64) int { return cmp.Compare(b, a) }

// sortOverviewTests orders top tests by revenue, then conversion, then id.
func sortOverviewTests(rows []analytics.OverviewTopTestRow) {
	slices.SortStableFunc(rows, func(a, b analytics.OverviewTopTestRow) int {
		if c := compareDesc(a.NetRevenueEUR, b.NetRevenueEUR); c != 0 {
			return c
		}
		if c := compareDesc(a.PurchaseConversion, b.PurchaseConversion); c != 0 {
			return c
		}
		return cmp.Compare(a.TestID, b.TestID)
	})
}
