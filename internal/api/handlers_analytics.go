// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package api

import (
	"context"
	"net/http"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/cache"
)

// Overview serves KPIs, funnel, series, top lists, freshness and alerts.
// Responses are cached per backend mode and canonical filter set.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}

	serve(h, w, r, "overview", func(ctx context.Context, p analytics.Provider) (*analytics.OverviewResponse, error) {
		// Mode is read after the provider is resolved so the key names the
		// backend that answers.
		key := overviewKey(h.mode(), f)
		resp, _, err := cache.Remember(ctx, h.overview, key, h.overviewTTL, func() (*analytics.OverviewResponse, error) {
			return p.GetOverview(ctx, f)
		})
		return resp, err
	})
}

func overviewKey(mode string, f analytics.Filters) string {
	return cache.GenerateKey("overview", struct {
		Mode    string            `json:"mode"`
		Filters analytics.Filters `json:"filters"`
	}{mode, f})
}

// Tests serves the per-test performance table.
func (h *Handler) Tests(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	serve(h, w, r, "tests", func(ctx context.Context, p analytics.Provider) (*analytics.TestsResponse, error) {
		return p.GetTests(ctx, f)
	})
}

// TestDetail serves one test scoped by the test_id path parameter.
func (h *Handler) TestDetail(w http.ResponseWriter, r *http.Request) {
	testID, f, ok := h.parseDetail(w, r, "test_id")
	if !ok {
		return
	}
	serve(h, w, r, "test_detail", func(ctx context.Context, p analytics.Provider) (*analytics.TestDetailResponse, error) {
		return p.GetTestDetail(ctx, testID, f)
	})
}

// Tenants serves the per-tenant performance table.
func (h *Handler) Tenants(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	serve(h, w, r, "tenants", func(ctx context.Context, p analytics.Provider) (*analytics.TenantsResponse, error) {
		return p.GetTenants(ctx, f)
	})
}

// TenantDetail serves one tenant scoped by the tenant_id path parameter.
func (h *Handler) TenantDetail(w http.ResponseWriter, r *http.Request) {
	tenantID, f, ok := h.parseDetail(w, r, "tenant_id")
	if !ok {
		return
	}
	serve(h, w, r, "tenant_detail", func(ctx context.Context, p analytics.Provider) (*analytics.TenantDetailResponse, error) {
		return p.GetTenantDetail(ctx, tenantID, f)
	})
}

// Distribution serves the tenant x test revenue matrix.
func (h *Handler) Distribution(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	opts, issues := analytics.ParseDistributionOptions(r.URL.Query())
	if len(issues) > 0 {
		respondValidation(w, r, ErrCodeInvalidFilters, issues)
		return
	}
	serve(h, w, r, "distribution", func(ctx context.Context, p analytics.Provider) (*analytics.DistributionResponse, error) {
		return p.GetDistribution(ctx, f, opts)
	})
}

// Traffic serves the acquisition breakdowns.
func (h *Handler) Traffic(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	opts, issues := analytics.ParseTrafficOptions(r.URL.Query())
	if len(issues) > 0 {
		respondValidation(w, r, ErrCodeInvalidFilters, issues)
		return
	}
	serve(h, w, r, "traffic", func(ctx context.Context, p analytics.Provider) (*analytics.TrafficResponse, error) {
		return p.GetTraffic(ctx, f, opts)
	})
}

// Revenue serves the money breakdowns and Stripe reconciliation.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	serve(h, w, r, "revenue", func(ctx context.Context, p analytics.Provider) (*analytics.RevenueResponse, error) {
		return p.GetRevenue(ctx, f)
	})
}

// Attribution serves content attribution; some providers answer 501.
func (h *Handler) Attribution(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	opts, issues := analytics.ParseAttributionOptions(r.URL.Query())
	if len(issues) > 0 {
		respondValidation(w, r, ErrCodeInvalidFilters, issues)
		return
	}
	serve(h, w, r, "attribution", func(ctx context.Context, p analytics.Provider) (*analytics.AttributionResponse, error) {
		return p.GetAttribution(ctx, f, opts)
	})
}

// DataHealth serves freshness, checks and alerts.
func (h *Handler) DataHealth(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	serve(h, w, r, "data_health", func(ctx context.Context, p analytics.Provider) (*analytics.DataHealthResponse, error) {
		return p.GetDataHealth(ctx, f)
	})
}
