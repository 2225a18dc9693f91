// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"slices"
	"strings"
	"testing"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

func TestBuildMartFilterClause_DateOnly(t *testing.T) {
	t.Parallel()

	c := BuildMartFilterClause(baseFilters(), MartClauseOptions{})

	want := "WHERE date BETWEEN DATE(@start) AND DATE(@end)"
	if c.SQL != want {
		t.Errorf("expected %q, got %q", want, c.SQL)
	}
	if len(c.Params) != 2 || c.Params["start"] != "2026-01-01" || c.Params["end"] != "2026-01-07" {
		t.Errorf("expected start and end params, got %v", c.Params)
	}
}

func TestBuildMartFilterClause_AllFilters(t *testing.T) {
	t.Parallel()

	f := baseFilters()
	f.TenantID = analytics.Ptr("tenant-quizfactory-en")
	f.TestID = analytics.Ptr("test-career-fit")
	f.Locale = "de"
	f.DeviceType = "mobile"
	f.UTMSource = analytics.Ptr("meta")

	c := BuildMartFilterClause(f, MartClauseOptions{})

	for _, fragment := range []string{
		"tenant_id = @tenant_id",
		"test_id = @test_id",
		"locale = @locale",
		"device_type = @device_type",
		"SPLIT(channel_key, ':')[SAFE_OFFSET(0)] ELSE channel_key END) = @utm_source",
	} {
		if !strings.Contains(c.SQL, fragment) {
			t.Errorf("expected clause to contain %q, got %q", fragment, c.SQL)
		}
	}
	for _, literal := range []string{"'tenant-quizfactory-en'", "'test-career-fit'", "'de'", "'mobile'", "'meta'"} {
		if strings.Contains(c.SQL, literal) {
			t.Errorf("expected %s to be bound, found it in %q", literal, c.SQL)
		}
	}
	if len(c.Params) != 7 {
		t.Errorf("expected 7 params, got %d: %v", len(c.Params), c.Params)
	}
}

func TestBuildMartFilterClause_DeviceUnavailable(t *testing.T) {
	t.Parallel()

	f := baseFilters()
	f.DeviceType = "mobile"

	c := BuildMartFilterClause(f, MartClauseOptions{DeviceUnavailable: true})

	if !strings.HasSuffix(c.SQL, " AND FALSE") {
		t.Errorf("expected device filter to match nothing, got %q", c.SQL)
	}
	if _, ok := c.Params["device_type"]; ok {
		t.Error("expected no device_type param")
	}
}

func TestBuildMartFilterClause_Exclusions(t *testing.T) {
	t.Parallel()

	f := baseFilters()
	f.TestID = analytics.Ptr("test-career-fit")
	f.Locale = "de"
	f.UTMSource = analytics.Ptr("meta")

	c := BuildMartFilterClause(f, MartClauseOptions{ExcludeTest: true, ExcludeLocale: true, ExcludeUTMSource: true})

	if strings.Contains(c.SQL, "@test_id") || strings.Contains(c.SQL, "@locale") || strings.Contains(c.SQL, "@utm_source") {
		t.Errorf("expected excluded filters to be dropped, got %q", c.SQL)
	}
}

func TestBuildMartFilterClause_ColumnOverrides(t *testing.T) {
	t.Parallel()

	f := baseFilters()
	f.TenantID = analytics.Ptr("tenant-quizfactory-en")

	c := BuildMartFilterClause(f, MartClauseOptions{DateColumn: "day", TenantColumn: "owner_id"})

	want := "WHERE day BETWEEN DATE(@start) AND DATE(@end) AND owner_id = @tenant_id"
	if c.SQL != want {
		t.Errorf("expected %q, got %q", want, c.SQL)
	}
}

func TestMartClauseAnd(t *testing.T) {
	t.Parallel()

	c := MartClause{SQL: "WHERE a = 1"}
	if got := c.and().SQL; got != "WHERE a = 1" {
		t.Errorf("expected unchanged clause, got %q", got)
	}
	if got := c.and("b = 2", "c = 3").SQL; got != "WHERE a = 1 AND b = 2 AND c = 3" {
		t.Errorf("expected appended conditions, got %q", got)
	}
}

func TestParamsListSortedAndMerged(t *testing.T) {
	t.Parallel()

	base := Params{"start": "2026-01-01", "tenant_id": "a"}
	merged := base.merge(Params{"tenant_id": "b", "end": "2026-01-07"})

	if base["tenant_id"] != "a" {
		t.Errorf("expected merge to leave receiver untouched, got %v", base)
	}
	if merged["tenant_id"] != "b" {
		t.Errorf("expected later params to win, got %v", merged["tenant_id"])
	}

	got := paramNames(merged.list())
	want := []string{"end", "start", "tenant_id"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestUTMCampaignSQL(t *testing.T) {
	t.Parallel()

	if got := utmCampaignSQL("channel_key"); got != "SPLIT(channel_key, ':')[SAFE_OFFSET(1)]" {
		t.Errorf("unexpected campaign expression %q", got)
	}
}
