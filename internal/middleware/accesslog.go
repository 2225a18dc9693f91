// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package middleware

import (
	"net/http"
	"time"

	"github.com/quizfactory/quizfactory-analytics/internal/logging"
)

// AccessLog logs every request at debug level. Requests slower than
// slowThreshold, and server errors, are logged at warn.
func AccessLog(slowThreshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			event := logging.Ctx(r.Context()).Debug()
			switch {
			case sw.status >= http.StatusInternalServerError:
				event = logging.Ctx(r.Context()).Warn()
			case slowThreshold > 0 && elapsed > slowThreshold:
				event = logging.Ctx(r.Context()).Warn().Bool("slow", true)
			}
			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int64("duration_ms", elapsed.Milliseconds()).
				Msg("HTTP request")
		})
	}
}
