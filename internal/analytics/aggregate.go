// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"cmp"
	"slices"
)

// Aggregate is the funnel and money totals of a filtered scope, as produced
// by the SQL-backed providers.
type Aggregate struct {
	Sessions        float64
	TestStarts      float64
	TestCompletes   float64
	PaywallViews    float64
	CheckoutStarts  float64
	Purchases       float64
	PaidConversion  float64
	GrossRevenueEUR float64
	NetRevenueEUR   float64
	RefundsEUR      float64
	DisputesEUR     float64
	PaymentFeesEUR  float64
}

// IsZero reports whether every count and amount is zero.
func (a Aggregate) IsZero() bool {
	return a == Aggregate{}
}

// BuildKpis renders the ten headline cards. SQL providers do not compute deltas.
func BuildKpis(a Aggregate) []KpiCard {
	return []KpiCard{
		{Key: "sessions", Label: "Sessions", Value: a.Sessions, Unit: UnitCount},
		{Key: "test_starts", Label: "Test starts", Value: a.TestStarts, Unit: UnitCount},
		{Key: "test_completes", Label: "Test completes", Value: a.TestCompletes, Unit: UnitCount},
		{Key: "purchases", Label: "Purchases", Value: a.Purchases, Unit: UnitCount},
		{Key: "paid_conversion", Label: "Paid conversion", Value: a.PaidConversion, Unit: UnitRatio},
		{Key: "gross_revenue_eur", Label: "Gross revenue (EUR)", Value: a.GrossRevenueEUR, Unit: UnitCurrencyEUR},
		{Key: "net_revenue_eur", Label: "Net revenue (EUR)", Value: a.NetRevenueEUR, Unit: UnitCurrencyEUR},
		{Key: "refunds_eur", Label: "Refunds (EUR)", Value: a.RefundsEUR, Unit: UnitCurrencyEUR},
		{Key: "disputes_eur", Label: "Disputes (EUR)", Value: a.DisputesEUR, Unit: UnitCurrencyEUR},
		{Key: "payment_fees_eur", Label: "Payment fees (EUR)", Value: a.PaymentFeesEUR, Unit: UnitCurrencyEUR},
	}
}

// FunnelStage names one step for BuildFunnel.
type FunnelStage struct {
	Key   string
	Label string
	Count float64
}

// BuildFunnel computes each step's conversion against the previous step.
// The first step and any step with a zero predecessor have a nil rate.
func BuildFunnel(stages ...FunnelStage) []FunnelStep {
	steps := make([]FunnelStep, len(stages))
	for i, s := range stages {
		steps[i] = FunnelStep{Key: s.Key, Label: s.Label, Count: s.Count}
		if i > 0 && stages[i-1].Count > 0 {
			steps[i].ConversionRate = Ptr(SafeRatio(s.Count, stages[i-1].Count))
		}
	}
	return steps
}

// BuildAggregateFunnel is the six-step session to purchase funnel.
func BuildAggregateFunnel(a Aggregate) []FunnelStep {
	return BuildFunnel(
		FunnelStage{Key: "sessions", Label: "Sessions", Count: a.Sessions},
		FunnelStage{Key: "test_starts", Label: "Test starts", Count: a.TestStarts},
		FunnelStage{Key: "test_completes", Label: "Test completes", Count: a.TestCompletes},
		FunnelStage{Key: "paywall_views", Label: "Paywall views", Count: a.PaywallViews},
		FunnelStage{Key: "checkout_starts", Label: "Checkout starts", Count: a.CheckoutStarts},
		FunnelStage{Key: "purchases", Label: "Purchases", Count: a.Purchases},
	)
}

// FillTimeseries emits one point per day in [start, end], zero where values has no entry.
func FillTimeseries(start, end string, values map[string]float64) []TimeseriesPoint {
	dates := ListDatesInclusive(start, end)
	points := make([]TimeseriesPoint, len(dates))
	for i, d := range dates {
		points[i] = TimeseriesPoint{Date: d, Value: values[d]}
	}
	return points
}

// SortByRevenue orders rows by revenue descending then key ascending.
func SortByRevenue[T any](rows []T, revenue func(T) float64, key func(T) string) {
	slices.SortStableFunc(rows, func(a, b T) int {
		if c := cmp.Compare(revenue(b), revenue(a)); c != 0 {
			return c
		}
		return cmp.Compare(key(a), key(b))
	})
}

// Limit truncates rows to at most n entries.
func Limit[T any](rows []T, n int) []T {
	if n >= 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// NonNil returns an empty slice instead of nil so JSON renders [].
func NonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
