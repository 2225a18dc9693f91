// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/cache"
)

// DefaultOverviewTTL is how long overview responses are reused.
const DefaultOverviewTTL = 45 * time.Second

// ProviderSource yields the active analytics provider. providers.Holder
// satisfies it.
type ProviderSource interface {
	Get(ctx context.Context) (analytics.Provider, error)
}

// HandlerConfig tunes a Handler.
type HandlerConfig struct {
	// OverviewStore caches overview responses; nil means in-process memory.
	OverviewStore cache.Store
	OverviewTTL   time.Duration
	// Mode reports the selected backend for /health.
	Mode func() string
	// Now is the clock used for default date ranges.
	Now func() time.Time
}

// Handler serves the analytics routes.
type Handler struct {
	providers   ProviderSource
	overview    cache.Store
	overviewTTL time.Duration
	mode        func() string
	now         func() time.Time
	startTime   time.Time
}

// NewHandler creates a handler over providers.
func NewHandler(providers ProviderSource, cfg HandlerConfig) *Handler {
	if cfg.OverviewTTL <= 0 {
		cfg.OverviewTTL = DefaultOverviewTTL
	}
	if cfg.OverviewStore == nil {
		cfg.OverviewStore = cache.NewMemoryStore(cache.New(cfg.OverviewTTL, cache.WithName("overview")))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Mode == nil {
		cfg.Mode = func() string { return "" }
	}
	return &Handler{
		providers:   providers,
		overview:    cfg.OverviewStore,
		overviewTTL: cfg.OverviewTTL,
		mode:        cfg.Mode,
		now:         cfg.Now,
		startTime:   cfg.Now(),
	}
}

// parseFilters validates the shared filters, writing a 400 on failure.
func (h *Handler) parseFilters(w http.ResponseWriter, r *http.Request) (analytics.Filters, bool) {
	f, issues := analytics.ParseFilters(r.URL.Query(), h.now().UTC())
	if len(issues) > 0 {
		respondValidation(w, r, ErrCodeInvalidFilters, issues)
		return analytics.Filters{}, false
	}
	return f, true
}

// parseDetail validates a detail route: path identifier, then filters, then
// that any matching query filter agrees with the path. The returned filters
// are scoped to the identifier.
func (h *Handler) parseDetail(w http.ResponseWriter, r *http.Request, field string) (string, analytics.Filters, bool) {
	id, issue := analytics.ParseRouteIdentifier(field, chi.URLParam(r, field))
	if issue != nil {
		respondValidation(w, r, ErrCodeInvalidPathParam, []analytics.Issue{*issue})
		return "", analytics.Filters{}, false
	}

	f, ok := h.parseFilters(w, r)
	if !ok {
		return "", analytics.Filters{}, false
	}

	if issue := analytics.CheckDetailConsistency(field, id, f); issue != nil {
		respondValidation(w, r, ErrCodeInvalidFilters, []analytics.Issue{*issue})
		return "", analytics.Filters{}, false
	}

	if field == "tenant_id" {
		return id, f.WithTenant(id), true
	}
	return id, f.WithTest(id), true
}

// serve resolves the provider, runs call and writes its payload or error.
func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, operation string, call func(ctx context.Context, p analytics.Provider) (T, error)) {
	ctx := r.Context()
	p, err := h.providers.Get(ctx)
	if err != nil {
		respondProviderError(w, r, operation, err)
		return
	}

	payload, err := call(ctx, p)
	if err != nil {
		respondProviderError(w, r, operation, err)
		return
	}
	respondJSON(w, r, http.StatusOK, payload)
}
