// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quizfactory/quizfactory-analytics/internal/middleware"
)

// AnalyticsBasePath prefixes every analytics route.
const AnalyticsBasePath = "/api/admin/analytics"

// DefaultSlowRequestThreshold marks requests worth a warning in the access log.
const DefaultSlowRequestThreshold = 2 * time.Second

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	slowThreshold time.Duration
}

// NewRouter creates a router. A nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		slowThreshold: DefaultSlowRequestThreshold,
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.AccessLog(router.slowThreshold))
	r.Use(middleware.PrometheusMetrics)

	h := router.handler
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(AnalyticsBasePath, func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/overview", h.Overview)
		r.Get("/tests", h.Tests)
		r.Get("/tests/{test_id}", h.TestDetail)
		r.Get("/tenants", h.Tenants)
		r.Get("/tenants/{tenant_id}", h.TenantDetail)
		r.Get("/distribution", h.Distribution)
		r.Get("/traffic", h.Traffic)
		r.Get("/revenue", h.Revenue)
		r.Get("/attribution", h.Attribution)
		r.Get("/data", h.DataHealth)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, req, http.StatusNotFound, ErrorResponse{Error: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, req, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed"})
	})

	return r
}
