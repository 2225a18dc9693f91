// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

func TestNumeric_Scan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  any
		want float64
	}{
		{"nil", nil, 0},
		{"int64", int64(42), 42},
		{"postgres numeric bytes", []byte("19.99"), 19.99},
		{"string", "7.5", 7.5},
		{"duckdb decimal", duckdb.Decimal{Width: 18, Scale: 3, Value: big.NewInt(12345)}, 12.345},
		{"duckdb hugeint", big.NewInt(9000), 9000},
		{"garbage", "n/a", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var n numeric
			if err := n.Scan(tt.src); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.float() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, n.float())
			}
		})
	}
}

func TestText_Helpers(t *testing.T) {
	t.Parallel()

	var blank text
	if err := blank.Scan([]byte("   ")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := blank.key(); ok {
		t.Error("expected blank value to have no key")
	}
	if got := blank.orElse("(none)"); got != "(none)" {
		t.Errorf("expected fallback, got %q", got)
	}

	var stamp text
	if err := stamp.Scan(time.Date(2026, 1, 5, 13, 4, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := stamp.date(); d == nil || *d != "2026-01-05" {
		t.Errorf("expected 2026-01-05, got %v", d)
	}
}

func TestSplitKey(t *testing.T) {
	t.Parallel()

	if got := splitKey("tenant-a::test-b", 2); !reflect.DeepEqual(got, []string{"tenant-a", "test-b"}) {
		t.Errorf("expected two parts, got %v", got)
	}
	if got := splitKey("offer::", 3); !reflect.DeepEqual(got, []string{"offer", "", ""}) {
		t.Errorf("expected padded parts, got %v", got)
	}
}

func dimText(s string) text {
	return text{value: &s}
}

func TestTopPartner(t *testing.T) {
	t.Parallel()

	rows := []eventDimensionRow{
		{Dim: dimText("test-a::tenant-1"), Sessions: 50},
		{Dim: dimText("test-a::tenant-2"), Sessions: 20},
		{Dim: dimText("test-b::tenant-2"), Sessions: 10},
		{Dim: dimText("test-c::"), Sessions: 99},
	}

	got := topPartner(rows)
	want := map[string]string{"test-a": "tenant-1", "test-b": "tenant-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMergeSet_Ranked(t *testing.T) {
	t.Parallel()

	events := []eventDimensionRow{
		{Dim: dimText("test-a"), Sessions: 100, LastActivity: dimText("2026-01-03")},
		{Dim: dimText("test-b"), Sessions: 40},
	}
	stripe := []stripeDimensionRow{
		{Dim: dimText("test-b"), moneyColumns: moneyColumns{Purchases: 4, NetRevenueEUR: 80}, LastActivity: dimText("2026-01-05")},
		{Dim: dimText("test-c"), moneyColumns: moneyColumns{Purchases: 1, NetRevenueEUR: 80}},
	}
	filterID := "test-z"

	rows := newMergeSet().addEvents(events, idKey).addStripe(stripe, idKey).ensure(&filterID).ranked()

	var keys []string
	for _, m := range rows {
		keys = append(keys, m.key)
	}
	want := []string{"test-b", "test-c", "test-a", "test-z"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected order %v, got %v", want, keys)
	}

	b := rows[0]
	if got := b.paidConversion(); got != 0.1 {
		t.Errorf("expected paid conversion 0.1, got %v", got)
	}
	if got := b.lastActivity(); got == nil || *got != "2026-01-05" {
		t.Errorf("expected last activity 2026-01-05, got %v", got)
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	agg := analytics.Aggregate{Purchases: 8, GrossRevenueEUR: 120}

	full := reconcile(Tables{AnalyticsEvents: true, StripePurchases: true}, agg, 10)
	if !full.Available || full.Detail != reconciliationAvailableDetail {
		t.Errorf("expected available reconciliation, got %+v", full)
	}
	if full.PurchaseCountDiff == nil || *full.PurchaseCountDiff != 2 {
		t.Errorf("expected diff 2, got %v", full.PurchaseCountDiff)
	}
	if full.PurchaseCountDiffPct == nil || *full.PurchaseCountDiffPct != 0.25 {
		t.Errorf("expected diff pct 0.25, got %v", full.PurchaseCountDiffPct)
	}
	if full.InternalGrossRevenueEUR != nil || full.GrossRevenueDiffEUR != nil {
		t.Error("expected internal gross fields to stay null")
	}

	partial := reconcile(Tables{StripePurchases: true}, agg, 0)
	if partial.Available || partial.Detail != reconciliationPartialDetail {
		t.Errorf("expected partial reconciliation, got %+v", partial)
	}
	if partial.InternalPurchaseCount != nil || partial.PurchaseCountDiff != nil {
		t.Error("expected internal fields to be null without events")
	}
	if partial.StripePurchaseCount == nil || *partial.StripePurchaseCount != 8 {
		t.Errorf("expected stripe count 8, got %v", partial.StripePurchaseCount)
	}
}

func TestBuildAttributionMix(t *testing.T) {
	t.Parallel()

	money := func(net float64) analytics.MoneyBreakdown {
		return analytics.MoneyBreakdown{GrossRevenueEUR: net, NetRevenueEUR: net}
	}
	rows := []analytics.AttributionRow{
		{TenantID: "tenant-a", ContentKey: "test-1", MoneyBreakdown: money(10.10)},
		{TenantID: "tenant-b", ContentKey: "test-1", MoneyBreakdown: money(30)},
		{TenantID: "tenant-a", ContentKey: "test-2", MoneyBreakdown: money(25.25)},
	}

	byTenant := buildAttributionMix(rows, analytics.GroupByTenant)
	if len(byTenant) != 2 || byTenant[0].Segment != "tenant-a" || byTenant[0].NetRevenueEUR != 35.35 {
		t.Errorf("unexpected tenant mix: %+v", byTenant)
	}

	byContent := buildAttributionMix(rows, analytics.GroupByContent)
	if len(byContent) != 2 || byContent[0].Segment != "test-1" || byContent[0].NetRevenueEUR != 40.1 {
		t.Errorf("unexpected content mix: %+v", byContent)
	}
}

func TestRankKeys(t *testing.T) {
	t.Parallel()

	totals := map[string]float64{"b": 10, "a": 10, "c": 0, "d": 30}
	got := rankKeys(totals, 3)
	want := []string{"d", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
