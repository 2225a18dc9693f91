// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestGuard_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).fail("", errors.New("backend unavailable"))
	g := Guard(fake, GuardOptions{Name: "test_guard_opens"})

	for i := 0; i < 10; i++ {
		if _, err := g.Query(context.Background(), "SELECT 1", nil); err == nil {
			t.Fatalf("expected error on attempt %d", i)
		}
	}

	if g.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", stateToString(g.State()))
	}

	_, err := g.Query(context.Background(), "SELECT 1", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open state error, got %v", err)
	}
	if n := fake.count("SELECT 1"); n != 10 {
		t.Errorf("expected rejected query not to reach the runner, got %d calls", n)
	}
}

func TestGuard_NotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()

	fake := (&fakeRunner{}).fail("", notFound("marts.alert_events"))
	g := Guard(fake, GuardOptions{Name: "test_guard_not_found"})

	for i := 0; i < 15; i++ {
		_, err := g.Query(context.Background(), "SELECT 1", nil)
		if !isNotFound(err) {
			t.Fatalf("expected not found error, got %v", err)
		}
	}

	if g.State() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", stateToString(g.State()))
	}
}

func TestGuard_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	g := Guard(&fakeRunner{}, GuardOptions{Name: "test_guard_rate", MaxQPS: 0.001, Burst: 1})

	if _, err := g.Query(context.Background(), "SELECT 1", nil); err != nil {
		t.Fatalf("expected first query within burst, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Query(ctx, "SELECT 1", nil); err == nil {
		t.Error("expected canceled context to abort the limiter wait")
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"googleapi 404", notFound("marts.mart_funnel_daily"), true},
		{"wrapped 404", fmt.Errorf("aggregate: %w", notFound("marts.x")), true},
		{"message only", errors.New("Not found: Dataset qf:tmp"), true},
		{"other", errors.New("quota exceeded"), false},
	}

	for _, tt := range tests {
		if got := isNotFound(tt.err); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestStateConversions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state gobreaker.State
		f     float64
		s     string
	}{
		{gobreaker.StateClosed, 0, "closed"},
		{gobreaker.StateHalfOpen, 1, "half-open"},
		{gobreaker.StateOpen, 2, "open"},
	}

	for _, tt := range tests {
		if got := stateToFloat(tt.state); got != tt.f {
			t.Errorf("expected %v, got %v", tt.f, got)
		}
		if got := stateToString(tt.state); got != tt.s {
			t.Errorf("expected %s, got %s", tt.s, got)
		}
	}
}
