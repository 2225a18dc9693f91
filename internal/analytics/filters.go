// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf16"
)

// MaxOptionalFilterLength bounds free-text filter values and route identifiers.
const MaxOptionalFilterLength = 120

// Locales accepted by the locale filter, in display order.
var Locales = []string{"all", "en", "es", "pt-BR"}

// DeviceTypes accepted by the device_type filter, in display order.
var DeviceTypes = []string{"all", "desktop", "mobile", "tablet"}

// FilterAll is the sentinel for an unrestricted enum filter.
const FilterAll = "all"

// Filters is the canonical, validated query scope shared by every provider.
// Treat values as immutable; use the With* helpers to derive scoped copies.
type Filters struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	TenantID   *string `json:"tenant_id"`
	TestID     *string `json:"test_id"`
	Locale     string  `json:"locale"`
	DeviceType string  `json:"device_type"`
	UTMSource  *string `json:"utm_source"`
}

// Issue is a single field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WithTenant returns a copy of f scoped to tenantID.
func (f Filters) WithTenant(tenantID string) Filters {
	f.TenantID = &tenantID
	return f
}

// WithTest returns a copy of f scoped to testID.
func (f Filters) WithTest(testID string) Filters {
	f.TestID = &testID
	return f
}

// Deref returns the value of an optional filter or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HasControlCharacters reports whether value contains a codepoint <= 31 or == 127.
func HasControlCharacters(value string) bool {
	for _, r := range value {
		if r <= 31 || r == 127 {
			return true
		}
	}
	return false
}

// ParseFilters validates raw query parameters. Every invalid field is reported;
// the returned Filters always holds usable fallbacks, and callers must treat a
// non-empty issue list as a rejection.
func ParseFilters(params url.Values, now time.Time) (Filters, []Issue) {
	var issues []Issue

	dr := parseDateRange(params, now, &issues)

	f := Filters{
		Start:      dr.Start,
		End:        dr.End,
		TenantID:   NormalizeOptionalString("tenant_id", lookup(params, "tenant_id"), &issues),
		TestID:     NormalizeOptionalString("test_id", lookup(params, "test_id"), &issues),
		Locale:     parseEnum("locale", lookup(params, "locale"), Locales, &issues),
		DeviceType: parseEnum("device_type", lookup(params, "device_type"), DeviceTypes, &issues),
		UTMSource:  NormalizeOptionalString("utm_source", lookup(params, "utm_source"), &issues),
	}

	return f, issues
}

// lookup distinguishes an absent parameter (nil) from an empty one.
func lookup(params url.Values, key string) *string {
	if _, ok := params[key]; !ok {
		return nil
	}
	v := params.Get(key)
	return &v
}

// NormalizeOptionalString trims value and applies the length and control
// character rules, appending an issue for field on failure.
func NormalizeOptionalString(field string, value *string, issues *[]Issue) *string {
	if value == nil {
		return nil
	}

	normalized := strings.TrimSpace(*value)
	if normalized == "" {
		return nil
	}

	if textLength(normalized) > MaxOptionalFilterLength {
		*issues = append(*issues, Issue{Field: field, Message: "must be 120 characters or fewer"})
		return nil
	}

	if HasControlCharacters(normalized) {
		*issues = append(*issues, Issue{Field: field, Message: "contains control characters"})
		return nil
	}

	return &normalized
}

func parseDateRange(params url.Values, now time.Time, issues *[]Issue) DateRange {
	defaults := DefaultRange(now)
	startRaw := lookup(params, "start")
	endRaw := lookup(params, "end")

	if startRaw == nil && endRaw == nil {
		return defaults
	}

	if Deref(startRaw) == "" || Deref(endRaw) == "" {
		*issues = append(*issues, Issue{
			Field:   "params",
			Message: "start and end must both be provided when either one is set",
		})
		return defaults
	}

	start, okStart := ParseDate(*startRaw)
	end, okEnd := ParseDate(*endRaw)

	if !okStart {
		*issues = append(*issues, Issue{Field: "start", Message: "must match YYYY-MM-DD"})
	}
	if !okEnd {
		*issues = append(*issues, Issue{Field: "end", Message: "must match YYYY-MM-DD"})
	}
	if !okStart || !okEnd {
		return defaults
	}

	if start.After(end) {
		*issues = append(*issues, Issue{Field: "params", Message: "start must be on or before end"})
		return defaults
	}

	return DateRange{Start: FormatDate(start), End: FormatDate(end)}
}

// parseEnum matches value exactly against allowed; a blank value means "all".
func parseEnum(field string, value *string, allowed []string, issues *[]Issue) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return FilterAll
	}

	for _, a := range allowed {
		if *value == a {
			return a
		}
	}

	*issues = append(*issues, Issue{
		Field:   field,
		Message: "must be one of " + strings.Join(allowed, ", "),
	})
	return FilterAll
}

// textLength counts UTF-16 code units, so characters outside the BMP count twice.
func textLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}
