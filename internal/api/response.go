// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package api

import (
	"fmt"
	"hash/fnv"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// Error codes.
const (
	ErrCodeInvalidFilters   = "invalid_filters"
	ErrCodeInvalidPathParam = "invalid_path_param"
	ErrCodeInternal         = "internal_error"
	ErrCodeRateLimited      = "rate_limited"
)

// ValidationErrorResponse is the 400 body.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details []analytics.Issue `json:"details"`
}

// ErrorResponse is the body of 5xx and 429 responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// respondJSON encodes v, tags it with a weak ETag and honours If-None-Match
// on successful responses.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")

	if status == http.StatusOK {
		etag := generateETag(data)
		h.Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// routeOf returns the matched chi route pattern.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

func generateETag(data []byte) string {
	hash := fnv.New64a()
	_, _ = hash.Write(data)
	return fmt.Sprintf(`W/"%x"`, hash.Sum64())
}

// respondValidation writes the 400 validation shape.
func respondValidation(w http.ResponseWriter, r *http.Request, code string, issues []analytics.Issue) {
	metrics.APIValidationFailures.WithLabelValues(routeOf(r), code).Inc()
	respondJSON(w, r, http.StatusBadRequest, ValidationErrorResponse{Error: code, Details: issues})
}

// respondProviderError maps a provider failure to 501 or 500. Internal
// details are logged, never returned.
func respondProviderError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if nie, ok := analytics.AsNotImplemented(err); ok {
		logging.Ctx(r.Context()).Info().Str("operation", operation).Msg(nie.Message)
		respondJSON(w, r, nie.Status, ErrorResponse{Error: nie.Code, Detail: nie.Message})
		return
	}

	logging.Ctx(r.Context()).Error().Err(err).Str("operation", operation).Msg("Analytics request failed")
	respondJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: ErrCodeInternal})
}
