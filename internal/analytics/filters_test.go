// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)

func hasIssue(issues []Issue, field, message string) bool {
	for _, i := range issues {
		if i.Field == field && i.Message == message {
			return true
		}
	}
	return false
}

func TestParseFiltersDefaults(t *testing.T) {
	t.Parallel()

	f, issues := ParseFilters(url.Values{}, fixedNow)
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if f.Start != "2026-02-08" || f.End != "2026-02-14" {
		t.Errorf("expected default window 2026-02-08..2026-02-14, got %s..%s", f.Start, f.End)
	}
	if f.Locale != "all" || f.DeviceType != "all" {
		t.Errorf("expected enum defaults all/all, got %s/%s", f.Locale, f.DeviceType)
	}
	if f.TenantID != nil || f.TestID != nil || f.UTMSource != nil {
		t.Errorf("expected nil optional filters, got %+v", f)
	}
}

func TestParseFiltersRoundTrip(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"2026-01-01", "2026-01-01"},
		{"2025-12-31", "2026-01-02"},
		{"2024-02-29", "2024-03-31"},
	}

	for _, p := range pairs {
		f, issues := ParseFilters(url.Values{"start": {p[0]}, "end": {p[1]}}, fixedNow)
		if len(issues) != 0 {
			t.Errorf("%v: unexpected issues %v", p, issues)
			continue
		}
		if f.Start != p[0] || f.End != p[1] {
			t.Errorf("expected %s..%s, got %s..%s", p[0], p[1], f.Start, f.End)
		}
	}
}

func TestParseFiltersDateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  url.Values
		field   string
		message string
	}{
		{
			name:    "start only",
			params:  url.Values{"start": {"2026-02-10"}},
			field:   "params",
			message: "start and end must both be provided when either one is set",
		},
		{
			name:    "empty end",
			params:  url.Values{"start": {"2026-02-10"}, "end": {""}},
			field:   "params",
			message: "start and end must both be provided when either one is set",
		},
		{
			name:    "bad start",
			params:  url.Values{"start": {"2026-02-30"}, "end": {"2026-03-01"}},
			field:   "start",
			message: "must match YYYY-MM-DD",
		},
		{
			name:    "bad end",
			params:  url.Values{"start": {"2026-02-01"}, "end": {"2026/03/01"}},
			field:   "end",
			message: "must match YYYY-MM-DD",
		},
		{
			name:    "inverted",
			params:  url.Values{"start": {"2026-02-10"}, "end": {"2026-02-01"}},
			field:   "params",
			message: "start must be on or before end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, issues := ParseFilters(tt.params, fixedNow)
			if !hasIssue(issues, tt.field, tt.message) {
				t.Errorf("expected issue {%s %s}, got %v", tt.field, tt.message, issues)
			}
			if f.Start != "2026-02-08" || f.End != "2026-02-14" {
				t.Errorf("expected fallback to default window, got %s..%s", f.Start, f.End)
			}
		})
	}
}

func TestParseFiltersOptionalStrings(t *testing.T) {
	t.Parallel()

	f, issues := ParseFilters(url.Values{
		"tenant_id":  {"  tenant-a  "},
		"test_id":    {"   "},
		"utm_source": {"google"},
	}, fixedNow)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}
	if Deref(f.TenantID) != "tenant-a" {
		t.Errorf("expected trimmed tenant-a, got %q", Deref(f.TenantID))
	}
	if f.TestID != nil {
		t.Errorf("expected blank test_id to be nil, got %q", *f.TestID)
	}
	if Deref(f.UTMSource) != "google" {
		t.Errorf("expected google, got %q", Deref(f.UTMSource))
	}
}

func TestParseFiltersCollectsEveryIssue(t *testing.T) {
	t.Parallel()

	_, issues := ParseFilters(url.Values{
		"start":       {"2026-02-10"},
		"tenant_id":   {"tenant-\u0000bad"},
		"test_id":     {strings.Repeat("x", 121)},
		"locale":      {"fr"},
		"device_type": {"watch"},
		"utm_source":  {"ok"},
	}, fixedNow)

	expected := []Issue{
		{Field: "params", Message: "start and end must both be provided when either one is set"},
		{Field: "tenant_id", Message: "contains control characters"},
		{Field: "test_id", Message: "must be 120 characters or fewer"},
		{Field: "locale", Message: "must be one of all, en, es, pt-BR"},
		{Field: "device_type", Message: "must be one of all, desktop, mobile, tablet"},
	}

	if len(issues) != len(expected) {
		t.Fatalf("expected %d issues, got %d: %v", len(expected), len(issues), issues)
	}
	for i, want := range expected {
		if issues[i] != want {
			t.Errorf("issue %d: expected %+v, got %+v", i, want, issues[i])
		}
	}
}

func TestParseFiltersLengthCountsUTF16Units(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"ascii at limit", strings.Repeat("a", 120), false},
		{"sixty astral characters", strings.Repeat("\U0001F3AF", 60), false},
		{"astral character pushes over", strings.Repeat("a", 119) + "\U0001F3AF", true},
		{"bmp characters count once", strings.Repeat("\u00e9", 120), false},
	}

	for _, tt := range tests {
		f, issues := ParseFilters(url.Values{"utm_source": {tt.value}}, fixedNow)
		got := hasIssue(issues, "utm_source", "must be 120 characters or fewer")
		if got != tt.wantErr {
			t.Errorf("%s: expected length issue %v, got %v", tt.name, tt.wantErr, issues)
		}
		if !tt.wantErr && (f.UTMSource == nil || *f.UTMSource != tt.value) {
			t.Errorf("%s: expected utm_source kept, got %v", tt.name, f.UTMSource)
		}
	}
}

func TestParseFiltersEnumCoercion(t *testing.T) {
	t.Parallel()

	f, issues := ParseFilters(url.Values{"locale": {"pt-BR"}, "device_type": {"Mobile"}}, fixedNow)
	if f.Locale != "pt-BR" {
		t.Errorf("expected pt-BR, got %s", f.Locale)
	}
	if f.DeviceType != "all" {
		t.Errorf("expected invalid device to coerce to all, got %s", f.DeviceType)
	}
	if !hasIssue(issues, "device_type", "must be one of all, desktop, mobile, tablet") {
		t.Errorf("expected device_type issue, got %v", issues)
	}
}

func TestHasControlCharacters(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"a\tb", "\u007f", "x\ny"} {
		if !HasControlCharacters(s) {
			t.Errorf("expected %q to contain control characters", s)
		}
	}
	if HasControlCharacters("tenant-ñ 🎉") {
		t.Error("expected printable unicode to pass")
	}
}
