// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package mock

import (
	"math/rand"
	"testing"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

func testFilters() analytics.Filters {
	return analytics.Filters{Start: "2026-02-01", End: "2026-02-14", Locale: "all", DeviceType: "all"}
}

func TestStableHash(t *testing.T) {
	t.Parallel()

	if got := stableHash(""); got != 5381 {
		t.Errorf("expected 5381 for empty input, got %d", got)
	}
	if got := stableHash("a"); got != 177604 {
		t.Errorf("expected 177604 for \"a\", got %d", got)
	}
	if stableHash("overview|x") != stableHash("overview|x") {
		t.Error("expected hash to be stable")
	}
}

func TestAllocateByWeightsExact(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		total := rng.Int63n(100_000)
		weights := make([]int64, 1+rng.Intn(8))
		for j := range weights {
			weights[j] = 1 + rng.Int63n(20)
		}

		got := AllocateByWeights(total, weights)
		var sum int64
		for _, v := range got {
			if v < 0 {
				t.Fatalf("negative allocation %v for total %d weights %v", got, total, weights)
			}
			sum += v
		}
		if sum != total {
			t.Fatalf("expected sum %d, got %d (weights %v, result %v)", total, sum, weights, got)
		}
	}
}

func TestAllocateByWeightsTieBreak(t *testing.T) {
	t.Parallel()

	got := AllocateByWeights(10, []int64{1, 1, 1})
	if got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Errorf("expected remainder on lowest index [4 3 3], got %v", got)
	}
	if got := AllocateByWeights(0, []int64{2, 3}); got[0] != 0 || got[1] != 0 {
		t.Errorf("expected zeros for zero total, got %v", got)
	}
	if got := AllocateByWeights(5, nil); len(got) != 0 {
		t.Errorf("expected empty result for no weights, got %v", got)
	}
}

func TestDailySeriesFunnelMonotonic(t *testing.T) {
	t.Parallel()

	scopes := []string{"overview", "traffic", "revenue", "tests-detail:test-a"}
	variants := []analytics.Filters{
		testFilters(),
		testFilters().WithTenant("tenant-quizfactory-es").WithTest("test-social-style"),
		{Start: "2025-11-01", End: "2026-01-31", Locale: "pt-BR", DeviceType: "tablet", UTMSource: analytics.Ptr("meta")},
	}

	for _, f := range variants {
		for _, scope := range scopes {
			for _, d := range buildDailySeries(f, scope) {
				if !(d.purchases <= d.testCompletions && d.testCompletions <= d.testStarts && d.testStarts <= d.visits) {
					t.Fatalf("%s %s: funnel not monotonic: %+v", scope, d.date, d)
				}
				if d.uniqueVisitors > d.visits {
					t.Fatalf("%s %s: unique visitors exceed visits: %+v", scope, d.date, d)
				}
				if d.netRevenue < 0 {
					t.Fatalf("%s %s: negative net revenue: %+v", scope, d.date, d)
				}
			}
		}
	}
}

func TestTrendDelta(t *testing.T) {
	t.Parallel()

	one := []dailyMetrics{{visits: 10}}
	if trendDelta(one, func(d dailyMetrics) float64 { return float64(d.visits) }) != nil {
		t.Error("expected nil delta for a single point")
	}

	series := []dailyMetrics{{visits: 10}, {visits: 10}, {visits: 15}, {visits: 15}}
	delta := trendDelta(series, func(d dailyMetrics) float64 { return float64(d.visits) })
	if delta == nil || *delta != 0.5 {
		t.Errorf("expected 0.5, got %v", delta)
	}

	zero := []dailyMetrics{{visits: 0}, {visits: 5}}
	if trendDelta(zero, func(d dailyMetrics) float64 { return float64(d.visits) }) != nil {
		t.Error("expected nil delta when previous half sums to zero")
	}
}

func TestFormatTitleFromID(t *testing.T) {
	t.Parallel()

	if got := formatTitleFromID("test-love-style--quiz"); got != "Love Style Quiz" {
		t.Errorf("expected Love Style Quiz, got %q", got)
	}
	if got := titleFor("test-focus-rhythm"); got != "Focus Rhythm" {
		t.Errorf("expected catalog title, got %q", got)
	}
}
