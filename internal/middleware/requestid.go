// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxUpstreamIDLength caps ids accepted from a proxy.
const maxUpstreamIDLength = 128

// RequestID reuses a sane upstream X-Request-ID or generates a UUID, echoes it
// in the response and stores it, plus a fresh correlation id, in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" || len(requestID) > maxUpstreamIDLength || analytics.HasControlCharacters(requestID) {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
