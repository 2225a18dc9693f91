// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the canonical wire format for analytics dates.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// DateRange is an inclusive [Start, End] window of YYYY-MM-DD dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FormatDate renders t as YYYY-MM-DD using its UTC calendar fields.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a strict, zero-padded YYYY-MM-DD string into a UTC midnight.
// Calendar-invalid dates such as 2026-02-30 are rejected.
func ParseDate(value string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	// time.Date normalizes overflow, so compare the fields it produced.
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}

	return d, true
}

// DefaultRange returns the trailing seven-day window ending on now's UTC date.
func DefaultRange(now time.Time) DateRange {
	u := now.UTC()
	end := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -6)

	return DateRange{Start: FormatDate(start), End: FormatDate(end)}
}

// ResolveRange returns the parsed range, or the default window when either
// bound is missing, malformed, or out of order.
func ResolveRange(start, end string, now time.Time) DateRange {
	s, okStart := ParseDate(start)
	e, okEnd := ParseDate(end)
	if !okStart || !okEnd || s.After(e) {
		return DefaultRange(now)
	}

	return DateRange{Start: FormatDate(s), End: FormatDate(e)}
}

// ListDatesInclusive enumerates every calendar day from start to end.
// A malformed or inverted range yields just []string{end}.
func ListDatesInclusive(start, end string) []string {
	s, okStart := ParseDate(start)
	e, okEnd := ParseDate(end)
	if !okStart || !okEnd || s.After(e) {
		return []string{end}
	}

	dates := make([]string, 0, int(e.Sub(s).Hours()/24)+1)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}

	return dates
}
