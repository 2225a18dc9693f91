// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/quizfactory/quizfactory-analytics/internal/middleware"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/mock"
)

// counterValue reads a counter without going through the registry.
func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// familyTotal sums every series of a counter family in the default registry.
func familyTotal(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	h := NewHandler(stubSource{provider: mock.New()}, HandlerConfig{})
	srv := NewRouter(h, NewChiMiddleware(cfg)).Setup()

	before := familyTotal(t, "api_rate_limit_hits_total")

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, AnalyticsBasePath+"/tests", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		srv.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error != ErrCodeRateLimited {
		t.Errorf("expected %s, got %s", ErrCodeRateLimited, body.Error)
	}
	if got := familyTotal(t, "api_rate_limit_hits_total") - before; got < 1 {
		t.Errorf("expected rate limit hit to be counted, got %v", got)
	}

	// Health is outside the limited group.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected health to bypass rate limit, got %d", w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitDisabled = true
	m := NewChiMiddleware(cfg)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
	handler := m.RateLimit()(next)
	for i := 0; i < 5; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if calls != 5 {
		t.Errorf("expected 5 calls, got %d", calls)
	}
}

// containsFold ignores case since cors canonicalizes header names.
func containsFold(list, header string) bool {
	return strings.Contains(strings.ToLower(list), strings.ToLower(header))
}

func TestCORS_RequestIDHeader(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://admin.example.com"}
	handler := NewChiMiddleware(cfg).CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	exposed := w.Header().Get("Access-Control-Expose-Headers")
	if !containsFold(exposed, middleware.RequestIDHeader) {
		t.Errorf("expected %s to be exposed, got %q", middleware.RequestIDHeader, exposed)
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/health", nil)
	preflight.Header.Set("Origin", "https://admin.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	preflight.Header.Set("Access-Control-Request-Headers", middleware.RequestIDHeader)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, preflight)

	allowed := w.Header().Get("Access-Control-Allow-Headers")
	if !containsFold(allowed, middleware.RequestIDHeader) {
		t.Errorf("expected %s to be allowed, got %q", middleware.RequestIDHeader, allowed)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://admin.example.com"}
	cfg.RateLimitDisabled = true
	h := NewHandler(stubSource{provider: mock.New()}, HandlerConfig{})
	srv := NewRouter(h, NewChiMiddleware(cfg)).Setup()

	tests := []struct {
		origin string
		want   string
	}{
		{"https://admin.example.com", "https://admin.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: expected %q, got %q", tt.origin, tt.want, got)
		}
	}
}
