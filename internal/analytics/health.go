// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"math"
	"time"
)

// HealthStatus is the freshness classification of a data source.
type HealthStatus string

const (
	StatusOK    HealthStatus = "ok"
	StatusWarn  HealthStatus = "warn"
	StatusError HealthStatus = "error"
)

// Thresholds are the lag limits, in minutes, for a single table.
type Thresholds struct {
	WarnAfterMinutes  float64 `json:"warn_after_minutes"`
	ErrorAfterMinutes float64 `json:"error_after_minutes"`
}

var defaultThresholds = Thresholds{WarnAfterMinutes: 180, ErrorAfterMinutes: 360}

// Batch marts load daily; raw purchases stream in near real time.
var thresholdOverrides = map[string]Thresholds{
	"marts.mart_funnel_daily": {WarnAfterMinutes: 26 * 60, ErrorAfterMinutes: 52 * 60},
	"marts.mart_pnl_daily":    {WarnAfterMinutes: 30 * 60, ErrorAfterMinutes: 60 * 60},
	"raw_stripe.purchases":    {WarnAfterMinutes: 90, ErrorAfterMinutes: 180},
}

// ResolveThresholds returns the override for dataset.table or the default.
func ResolveThresholds(dataset, table string) Thresholds {
	if t, ok := thresholdOverrides[dataset+"."+table]; ok {
		return t
	}
	return defaultThresholds
}

// EvaluateStatus classifies a lag. Unknown, non-finite or negative lags are errors,
// and a lag equal to a threshold falls into the stricter bucket.
func EvaluateStatus(lagMinutes *float64, t Thresholds) HealthStatus {
	if lagMinutes == nil || math.IsNaN(*lagMinutes) || math.IsInf(*lagMinutes, 0) || *lagMinutes < 0 {
		return StatusError
	}

	switch lag := *lagMinutes; {
	case lag >= t.ErrorAfterMinutes:
		return StatusError
	case lag >= t.WarnAfterMinutes:
		return StatusWarn
	default:
		return StatusOK
	}
}

// CombineStatus returns the worst of statuses; an empty list is ok.
func CombineStatus(statuses ...HealthStatus) HealthStatus {
	worst := StatusOK
	for _, s := range statuses {
		if s == StatusError {
			return StatusError
		}
		if s == StatusWarn {
			worst = StatusWarn
		}
	}
	return worst
}

// LagMinutes is the whole-minute delay between lastLoaded and now, never
// negative. An absent or unparseable timestamp yields nil.
func LagMinutes(lastLoaded *string, now time.Time) *float64 {
	if lastLoaded == nil {
		return nil
	}
	t, err := time.Parse(ISOTimestampLayout, *lastLoaded)
	if err != nil {
		return nil
	}
	return Ptr(math.Max(0, math.Round(now.Sub(t).Minutes())))
}
