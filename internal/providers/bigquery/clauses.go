// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// Params are named query parameters, referenced in SQL as @name.
type Params map[string]any

// merge returns a new set holding p and others; later sets win on collision.
func (p Params) merge(others ...Params) Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// list renders the parameters sorted by name.
func (p Params) list() []bigquery.QueryParameter {
	names := slices.Sorted(maps.Keys(p))
	out := make([]bigquery.QueryParameter, len(names))
	for i, name := range names {
		out[i] = bigquery.QueryParameter{Name: name, Value: p[name]}
	}
	return out
}

// MartClause is a WHERE clause over a daily mart plus its bound values.
type MartClause struct {
	SQL    string
	Params Params
}

// and appends conditions to the clause. Clauses always carry the date bound,
// so the result stays a single WHERE.
func (c MartClause) and(conditions ...string) MartClause {
	if len(conditions) == 0 {
		return c
	}
	c.SQL += " AND " + strings.Join(conditions, " AND ")
	return c
}

// MartClauseOptions overrides column names and drops optional filters.
type MartClauseOptions struct {
	DateColumn    string
	TenantColumn  string
	TestColumn    string
	LocaleColumn  string
	ChannelColumn string
	DeviceColumn  string

	ExcludeTest      bool
	ExcludeLocale    bool
	ExcludeUTMSource bool

	// DeviceUnavailable marks a mart without the device column. A device
	// filter then matches no rows instead of being ignored.
	DeviceUnavailable bool
}

// utmSourceSQL extracts the source segment of a "{source}" or
// "{source}:{campaign}" channel key.
func utmSourceSQL(channelColumn string) string {
	return "(CASE WHEN STRPOS(" + channelColumn + ", ':') > 0 THEN SPLIT(" + channelColumn +
		", ':')[SAFE_OFFSET(0)] ELSE " + channelColumn + " END)"
}

// utmCampaignSQL extracts the campaign segment, NULL when absent.
func utmCampaignSQL(channelColumn string) string {
	return "SPLIT(" + channelColumn + ", ':')[SAFE_OFFSET(1)]"
}

// BuildMartFilterClause composes the WHERE clause shared by every mart query.
// Filter values are always bound as parameters, never interpolated.
func BuildMartFilterClause(f analytics.Filters, opts MartClauseOptions) MartClause {
	dateColumn := cmp.Or(opts.DateColumn, "date")
	tenantColumn := cmp.Or(opts.TenantColumn, "tenant_id")
	testColumn := cmp.Or(opts.TestColumn, "test_id")
	localeColumn := cmp.Or(opts.LocaleColumn, "locale")
	channelColumn := cmp.Or(opts.ChannelColumn, "channel_key")
	deviceColumn := cmp.Or(opts.DeviceColumn, "device_type")

	conditions := []string{dateColumn + " BETWEEN DATE(@start) AND DATE(@end)"}
	params := Params{"start": f.Start, "end": f.End}

	if f.TenantID != nil {
		conditions = append(conditions, tenantColumn+" = @tenant_id")
		params["tenant_id"] = *f.TenantID
	}
	if !opts.ExcludeTest && f.TestID != nil {
		conditions = append(conditions, testColumn+" = @test_id")
		params["test_id"] = *f.TestID
	}
	if !opts.ExcludeLocale && f.Locale != "" && f.Locale != analytics.FilterAll {
		conditions = append(conditions, localeColumn+" = @locale")
		params["locale"] = f.Locale
	}
	if f.DeviceType != "" && f.DeviceType != analytics.FilterAll {
		if opts.DeviceUnavailable {
			conditions = append(conditions, "FALSE")
		} else {
			conditions = append(conditions, deviceColumn+" = @device_type")
			params["device_type"] = f.DeviceType
		}
	}
	if !opts.ExcludeUTMSource && f.UTMSource != nil {
		conditions = append(conditions, utmSourceSQL(channelColumn)+" = @utm_source")
		params["utm_source"] = *f.UTMSource
	}

	return MartClause{
		SQL:    "WHERE " + strings.Join(conditions, " AND "),
		Params: params,
	}
}
