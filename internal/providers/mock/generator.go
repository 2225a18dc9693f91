// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package mock

import (
	"math"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

type catalogTest struct {
	id    string
	title string
}

var testCatalog = []catalogTest{
	{id: "test-focus-rhythm", title: "Focus Rhythm"},
	{id: "test-energy-balance", title: "Energy Balance"},
	{id: "test-stress-recovery", title: "Stress Recovery"},
	{id: "test-social-style", title: "Social Style"},
}

var tenantCatalog = []string{
	"tenant-quizfactory-en",
	"tenant-quizfactory-es",
	"tenant-quizfactory-pt-br",
	"tenant-quizfactory-hub",
}

var (
	defaultChannels  = []string{"direct", "google", "meta", "newsletter"}
	defaultCampaigns = []string{"brand", "evergreen", "retargeting", "spring_launch"}
	defaultReferrers = []string{"(direct)", "google.com", "instagram.com", "newsletter.quizfactory.com"}
	defaultCountries = []string{"BR", "ES", "MX", "PT", "US"}
	defaultDevices   = []string{"desktop", "mobile", "tablet"}
	defaultLocales   = []string{"en", "es", "pt-BR"}
	offerTypes       = []string{"single", "pack_5", "pack_10"}
)

// dailyMetrics is one generated day. Funnel stages never exceed their parent.
type dailyMetrics struct {
	date            string
	visits          int64
	uniqueVisitors  int64
	testStarts      int64
	testCompletions int64
	purchases       int64
	grossRevenue    float64
	refunds         float64
	disputes        float64
	paymentFees     float64
	netRevenue      float64
}

type summary struct {
	visits          int64
	uniqueVisitors  int64
	testStarts      int64
	testCompletions int64
	purchases       int64
	grossRevenue    float64
	refunds         float64
	disputes        float64
	paymentFees     float64
	netRevenue      float64
}

// stableHash is djb2 with xor over UTF-16 code units, as unsigned 32-bit.
func stableHash(value string) uint32 {
	var h uint32 = 5381
	for _, unit := range utf16.Encode([]rune(value)) {
		h = (h * 33) ^ uint32(unit)
	}
	return h
}

func seedFromFilters(f analytics.Filters, scope string) int64 {
	key := strings.Join([]string{
		scope,
		f.Start,
		f.End,
		orStar(f.TenantID),
		orStar(f.TestID),
		f.Locale,
		f.DeviceType,
		orStar(f.UTMSource),
	}, "|")
	return int64(stableHash(key))
}

func orStar(s *string) string {
	if s == nil {
		return "*"
	}
	return *s
}

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}

func divide(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return analytics.RoundTo(numerator/denominator, 4)
}

func buildDailySeries(f analytics.Filters, scope string) []dailyMetrics {
	dates := analytics.ListDatesInclusive(f.Start, f.End)
	seed := seedFromFilters(f, scope)

	multiplier := 1.0
	if f.TenantID != nil {
		multiplier *= 0.82
	}
	if f.TestID != nil {
		multiplier *= 0.9
	}
	if f.Locale != analytics.FilterAll {
		multiplier *= 0.9
	}
	if f.DeviceType != analytics.FilterAll {
		multiplier *= 0.94
	}
	if f.UTMSource != nil {
		multiplier *= 0.87
	}

	series := make([]dailyMetrics, len(dates))
	for i, date := range dates {
		idx := int64(i)
		base := 120 + (seed+idx*29)%210
		visits := max(24, roundInt(float64(base)*multiplier))
		unique := min(visits, max(16, roundInt(float64(visits)*(0.68+float64((seed+idx)%4)*0.04))))
		// Starts are clamped to visits so the funnel stays monotone on low-traffic days.
		starts := min(visits, max(8, roundInt(float64(visits)*(0.58+float64((seed+idx*3)%7)*0.02))))
		completions := min(starts, max(5, roundInt(float64(starts)*(0.6+float64((seed+idx*5)%6)*0.02))))
		purchases := min(completions, max(1, roundInt(float64(visits)*(0.06+float64((seed+idx*7)%6)*0.004))))

		aov := float64(17 + (seed+idx*11)%13)
		gross := analytics.RoundCurrency(float64(purchases) * aov)
		refunds := analytics.RoundCurrency(gross * (0.018 + float64((seed+idx)%3)*0.008))
		disputes := analytics.RoundCurrency(gross * (0.004 + float64((seed+idx*2)%2)*0.003))
		fees := analytics.RoundCurrency(gross * 0.031)
		net := analytics.RoundCurrency(math.Max(gross-refunds-disputes-fees, 0))

		series[i] = dailyMetrics{
			date:            date,
			visits:          visits,
			uniqueVisitors:  unique,
			testStarts:      starts,
			testCompletions: completions,
			purchases:       purchases,
			grossRevenue:    gross,
			refunds:         refunds,
			disputes:        disputes,
			paymentFees:     fees,
			netRevenue:      net,
		}
	}
	return series
}

func summarize(daily []dailyMetrics) summary {
	var s summary
	for _, d := range daily {
		s.visits += d.visits
		s.uniqueVisitors += d.uniqueVisitors
		s.testStarts += d.testStarts
		s.testCompletions += d.testCompletions
		s.purchases += d.purchases
		s.grossRevenue += d.grossRevenue
		s.refunds += d.refunds
		s.disputes += d.disputes
		s.paymentFees += d.paymentFees
		s.netRevenue += d.netRevenue
	}
	s.grossRevenue = analytics.RoundCurrency(s.grossRevenue)
	s.refunds = analytics.RoundCurrency(s.refunds)
	s.disputes = analytics.RoundCurrency(s.disputes)
	s.paymentFees = analytics.RoundCurrency(s.paymentFees)
	s.netRevenue = analytics.RoundCurrency(s.netRevenue)
	return s
}

// trendDelta compares the second half of the series to the first.
func trendDelta(daily []dailyMetrics, selector func(dailyMetrics) float64) *float64 {
	if len(daily) < 2 {
		return nil
	}

	midpoint := max(1, len(daily)/2)
	var previous, current float64
	for i, d := range daily {
		if i < midpoint {
			previous += selector(d)
		} else {
			current += selector(d)
		}
	}

	if previous <= 0 {
		return nil
	}
	delta := analytics.RoundTo((current-previous)/previous, 4)
	return &delta
}

// AllocateByWeights apportions total across weights with the largest
// remainder method. The result always sums to total; ties on the fractional
// part go to the lower index.
func AllocateByWeights(total int64, weights []int64) []int64 {
	if len(weights) == 0 {
		return []int64{}
	}

	allocated := make([]int64, len(weights))
	if total <= 0 {
		return allocated
	}

	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	if weightSum <= 0 {
		allocated[0] = total
		return allocated
	}

	type share struct {
		index    int
		fraction float64
	}
	shares := make([]share, len(weights))
	var assigned int64
	for i, w := range weights {
		exact := float64(total) * float64(w) / float64(weightSum)
		floor := math.Floor(exact)
		allocated[i] = int64(floor)
		assigned += allocated[i]
		shares[i] = share{index: i, fraction: exact - floor}
	}

	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].fraction > shares[b].fraction
	})

	for i := int64(0); i < total-assigned; i++ {
		allocated[shares[i%int64(len(shares))].index]++
	}
	return allocated
}

func segmentWeights(n int, seed, step, mod, offset int64) []int64 {
	weights := make([]int64, n)
	for i := range weights {
		weights[i] = (seed+int64(i)*step)%mod + offset
	}
	return weights
}

// allocateCurrency apportions an amount in cents and converts back to euros.
func allocateCurrency(amount float64, weights []int64) []float64 {
	cents := AllocateByWeights(roundInt(amount*100), weights)
	out := make([]float64, len(cents))
	for i, c := range cents {
		out[i] = analytics.RoundCurrency(float64(c) / 100)
	}
	return out
}

func formatTitleFromID(value string) string {
	normalized := strings.TrimPrefix(value, "test-")
	var words []string
	for _, segment := range strings.Split(normalized, "-") {
		if segment == "" {
			continue
		}
		words = append(words, strings.ToUpper(segment[:1])+segment[1:])
	}
	return strings.Join(words, " ")
}

func titleFor(testID string) string {
	for _, t := range testCatalog {
		if t.id == testID {
			return t.title
		}
	}
	return formatTitleFromID(testID)
}

func resolveTestIDs(f analytics.Filters) []string {
	if f.TestID != nil {
		return []string{*f.TestID}
	}
	ids := make([]string, len(testCatalog))
	for i, t := range testCatalog {
		ids[i] = t.id
	}
	return ids
}

func isKnownTenant(tenantID string) bool {
	for _, t := range tenantCatalog {
		if t == tenantID {
			return true
		}
	}
	return false
}

func resolveTenantIDs(f analytics.Filters) []string {
	if f.TenantID != nil {
		if isKnownTenant(*f.TenantID) {
			return []string{*f.TenantID}
		}
		return []string{}
	}
	return append([]string(nil), tenantCatalog...)
}

func segmentsOr(filterValue string, defaults []string) []string {
	if filterValue == analytics.FilterAll {
		return append([]string(nil), defaults...)
	}
	return []string{filterValue}
}
