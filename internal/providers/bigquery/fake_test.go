// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// fakeResponse answers every query containing match.
type fakeResponse struct {
	match string
	rows  []Row
	err   error
}

type fakeCall struct {
	sql    string
	params []bigquery.QueryParameter
}

// fakeRunner answers with the first response whose match is a substring of
// the SQL, or no rows.
type fakeRunner struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []fakeCall
}

func (r *fakeRunner) on(match string, rows ...Row) *fakeRunner {
	r.responses = append(r.responses, fakeResponse{match: match, rows: rows})
	return r
}

func (r *fakeRunner) fail(match string, err error) *fakeRunner {
	r.responses = append(r.responses, fakeResponse{match: match, err: err})
	return r
}

func (r *fakeRunner) Query(_ context.Context, sql string, params []bigquery.QueryParameter) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, fakeCall{sql: sql, params: params})
	for _, resp := range r.responses {
		if strings.Contains(sql, resp.match) {
			return resp.rows, resp.err
		}
	}
	return nil, nil
}

// count reports how many queries contained match.
func (r *fakeRunner) count(match string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if strings.Contains(c.sql, match) {
			n++
		}
	}
	return n
}

// find returns the first query containing match.
func (r *fakeRunner) find(t *testing.T, match string) fakeCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.calls {
		if strings.Contains(c.sql, match) {
			return c
		}
	}
	t.Fatalf("no query containing %q", match)
	return fakeCall{}
}

func notFound(object string) error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "Not found: Table " + object}
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
}

func newTestProvider(runner Runner, project string) *Provider {
	return New(runner, Options{
		ProjectID: project,
		Datasets:  Datasets{Stripe: "raw_stripe", RawCosts: "raw_costs", Tmp: "tmp", Marts: "marts"},
		Now:       fixedNow,
	})
}

func baseFilters() analytics.Filters {
	return analytics.Filters{
		Start:      "2026-01-01",
		End:        "2026-01-07",
		Locale:     analytics.FilterAll,
		DeviceType: analytics.FilterAll,
	}
}

func paramNames(params []bigquery.QueryParameter) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func kpiValue(t *testing.T, kpis []analytics.KpiCard, key string) float64 {
	t.Helper()
	for _, k := range kpis {
		if k.Key == key {
			return k.Value
		}
	}
	t.Fatalf("kpi %s not found", key)
	return 0
}
