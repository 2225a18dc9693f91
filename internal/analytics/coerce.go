// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ISOTimestampLayout matches the millisecond UTC timestamps emitted in responses.
const ISOTimestampLayout = "2006-01-02T15:04:05.000Z"

// ToNumber converts a driver scalar into a finite float64. Unparseable or
// non-finite input yields 0.
func ToNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case *big.Rat:
		if v == nil {
			return 0
		}
		f, _ := v.Float64()
		return finite(f)
	case []byte:
		return parseNumber(string(v))
	case string:
		return parseNumber(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case driver.Valuer:
		inner, err := v.Value()
		if err != nil {
			return 0
		}
		return ToNumber(inner)
	case fmt.Stringer:
		return parseNumber(v.String())
	default:
		return 0
	}
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToNullableString converts a driver scalar into an optional string.
// Timestamps render as ISO-8601 UTC.
func ToNullableString(value any) *string {
	var s string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		s = v.UTC().Format(ISOTimestampLayout)
	case driver.Valuer:
		inner, err := v.Value()
		if err != nil || inner == nil {
			return nil
		}
		return ToNullableString(inner)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return &s
}

// ToString is ToNullableString with "" for null.
func ToString(value any) string {
	return Deref(ToNullableString(value))
}

// ToIsoTimestamp converts a timestamp-like scalar into an ISO-8601 UTC string.
func ToIsoTimestamp(value any) *string {
	if t, ok := value.(time.Time); ok {
		s := t.UTC().Format(ISOTimestampLayout)
		return &s
	}

	raw := ToNullableString(value)
	if raw == nil {
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05.999999999", DateLayout} {
		if t, err := time.Parse(layout, *raw); err == nil {
			s := t.UTC().Format(ISOTimestampLayout)
			return &s
		}
	}
	return nil
}

// ToDateOnly converts a date or timestamp scalar into YYYY-MM-DD.
func ToDateOnly(value any) *string {
	raw := ToNullableString(value)
	if raw == nil || *raw == "" {
		return nil
	}
	if datePattern.MatchString(*raw) {
		return raw
	}
	if t, ok := value.(time.Time); ok {
		s := FormatDate(t)
		return &s
	}
	iso := ToIsoTimestamp(*raw)
	if iso == nil {
		return nil
	}
	s := (*iso)[:len(DateLayout)]
	return &s
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// RoundCurrency rounds to cents.
func RoundCurrency(v float64) float64 {
	return RoundTo(v, 2)
}

// SafeRatio divides and rounds to 4 decimals; a non-positive or non-finite
// denominator yields 0.
func SafeRatio(numerator, denominator float64) float64 {
	if math.IsNaN(numerator) || math.IsInf(numerator, 0) || math.IsNaN(denominator) || math.IsInf(denominator, 0) || denominator <= 0 {
		return 0
	}
	return RoundTo(numerator/denominator, 4)
}

// MaxDate returns the later of two optional YYYY-MM-DD dates.
func MaxDate(left, right *string) *string {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if *left >= *right {
		return left
	}
	return right
}

// GeneratedAt formats the response generation timestamp.
func GeneratedAt(now time.Time) string {
	return now.UTC().Format(ISOTimestampLayout)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
