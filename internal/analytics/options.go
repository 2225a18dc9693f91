// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultDistributionTop = 20
	MaxDistributionTop     = 50
	DefaultTrafficTopN     = 50
	MaxTrafficTopN         = 200
)

var (
	digitsPattern = regexp.MustCompile(`^\d+$`)
	testIDPattern = regexp.MustCompile(`^test-[a-z0-9-]+$`)
)

// DistributionOptions bounds the tenant x test matrix.
type DistributionOptions struct {
	TopTenants int `json:"top_tenants"`
	TopTests   int `json:"top_tests"`
}

// TrafficOptions bounds each traffic breakdown.
type TrafficOptions struct {
	TopN int `json:"top_n"`
}

// AttributionOptions narrows attribution to a content item.
type AttributionOptions struct {
	ContentType *string `json:"content_type"`
	ContentKey  *string `json:"content_key"`
}

// ParseDistributionOptions reads top_tenants and top_tests (1..50, default 20).
func ParseDistributionOptions(params url.Values) (DistributionOptions, []Issue) {
	var issues []Issue
	opts := DistributionOptions{
		TopTenants: parseBoundedInt(params, "top_tenants", DefaultDistributionTop, MaxDistributionTop, &issues),
		TopTests:   parseBoundedInt(params, "top_tests", DefaultDistributionTop, MaxDistributionTop, &issues),
	}
	return opts, issues
}

// ParseTrafficOptions reads top_n (1..200, default 50).
func ParseTrafficOptions(params url.Values) (TrafficOptions, []Issue) {
	var issues []Issue
	opts := TrafficOptions{
		TopN: parseBoundedInt(params, "top_n", DefaultTrafficTopN, MaxTrafficTopN, &issues),
	}
	return opts, issues
}

// ParseAttributionOptions reads content_type (only "test") and content_key.
func ParseAttributionOptions(params url.Values) (AttributionOptions, []Issue) {
	var issues []Issue

	contentType := NormalizeOptionalString("content_type", lookup(params, "content_type"), &issues)
	contentKey := NormalizeOptionalString("content_key", lookup(params, "content_key"), &issues)

	if contentType != nil {
		lowered := strings.ToLower(*contentType)
		contentType = &lowered
		if lowered != "test" {
			issues = append(issues, Issue{Field: "content_type", Message: "must be test when provided"})
		}
	}

	opts := AttributionOptions{ContentType: contentType, ContentKey: contentKey}
	return opts, issues
}

// ResolveDistributionOptions clamps programmatic callers into range.
func ResolveDistributionOptions(o DistributionOptions) DistributionOptions {
	return DistributionOptions{
		TopTenants: clampInt(o.TopTenants, DefaultDistributionTop, MaxDistributionTop),
		TopTests:   clampInt(o.TopTests, DefaultDistributionTop, MaxDistributionTop),
	}
}

// ResolveTrafficOptions clamps programmatic callers into range.
func ResolveTrafficOptions(o TrafficOptions) TrafficOptions {
	return TrafficOptions{TopN: clampInt(o.TopN, DefaultTrafficTopN, MaxTrafficTopN)}
}

func clampInt(v, def, maxValue int) int {
	switch {
	case v == 0:
		return def
	case v < 1:
		return 1
	case v > maxValue:
		return maxValue
	default:
		return v
	}
}

func parseBoundedInt(params url.Values, field string, def, maxValue int, issues *[]Issue) int {
	raw := strings.TrimSpace(params.Get(field))
	if raw == "" {
		return def
	}

	message := "must be an integer between 1 and " + strconv.Itoa(maxValue)
	if !digitsPattern.MatchString(raw) {
		*issues = append(*issues, Issue{Field: field, Message: message})
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxValue {
		*issues = append(*issues, Issue{Field: field, Message: message})
		return def
	}

	return n
}

// ParseRouteIdentifier validates a tenant_id or test_id path segment.
func ParseRouteIdentifier(field, value string) (string, *Issue) {
	normalized := strings.TrimSpace(value)

	switch {
	case normalized == "":
		return "", &Issue{Field: field, Message: "must be provided"}
	case textLength(normalized) > MaxOptionalFilterLength:
		return "", &Issue{Field: field, Message: "must be 120 characters or fewer"}
	case HasControlCharacters(normalized):
		return "", &Issue{Field: field, Message: "contains control characters"}
	case field == "test_id" && !testIDPattern.MatchString(normalized):
		return "", &Issue{Field: field, Message: "must match test-[a-z0-9-]+"}
	}

	return normalized, nil
}

// CheckDetailConsistency rejects a query filter that contradicts the route identifier.
func CheckDetailConsistency(field, routeValue string, f Filters) *Issue {
	var filterValue *string
	if field == "tenant_id" {
		filterValue = f.TenantID
	} else {
		filterValue = f.TestID
	}

	if filterValue != nil && *filterValue != routeValue {
		return &Issue{Field: field, Message: field + " query filter must match route parameter"}
	}
	return nil
}
