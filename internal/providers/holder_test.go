// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/mock"
)

// countingFactory builds mock-backed instances and records every build.
type countingFactory struct {
	builds []Mode
	closed []Mode
	err    error
}

func (f *countingFactory) build(_ context.Context, mode Mode, _ Settings) (*Instance, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.builds = append(f.builds, mode)
	return &Instance{
		Provider: mock.New(),
		Mode:     mode,
		close: func() error {
			f.closed = append(f.closed, mode)
			return nil
		},
	}, nil
}

func TestHolder_CachesPerMode(t *testing.T) {
	t.Parallel()

	f := &countingFactory{}
	h := NewHolder(Settings{ContentDB: ContentDBSettings{URL: "postgres://db/quiz"}}, f.build)
	ctx := context.Background()

	first, err := h.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := h.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the cached instance to be reused")
	}
	if len(f.builds) != 1 || f.builds[0] != ModeContentDB {
		t.Errorf("expected one content_db build, got %v", f.builds)
	}
	if h.Mode() != ModeContentDB {
		t.Errorf("expected content_db, got %s", h.Mode())
	}

	h.Update(Settings{ContentDB: ContentDBSettings{URL: "postgres://db/other"}})
	if _, err := h.Get(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.builds) != 1 {
		t.Errorf("expected no rebuild for unchanged mode, got %v", f.builds)
	}

	h.Update(Settings{Mode: "mock"})
	if _, err := h.Get(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.builds) != 2 || f.builds[1] != ModeMock {
		t.Errorf("expected rebuild as mock, got %v", f.builds)
	}
	if len(f.closed) != 1 || f.closed[0] != ModeContentDB {
		t.Errorf("expected previous provider closed, got %v", f.closed)
	}
}

func TestHolder_WarnsOncePerKey(t *testing.T) {
	t.Parallel()

	f := &countingFactory{}
	h := NewHolder(Settings{Mode: "holder-test-mode"}, f.build)
	counter := metrics.ProviderFallbacks.WithLabelValues("holder-test-mode")
	before := testutil.ToFloat64(counter)

	for range 3 {
		if _, err := h.Get(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected one fallback recorded, got %v", got)
	}

	if err := h.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if h.Mode() != "" {
		t.Errorf("expected no cached mode after reset, got %s", h.Mode())
	}
	if _, err := h.Get(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected warning again after reset, got %v", got)
	}
	if len(f.builds) != 2 {
		t.Errorf("expected rebuild after reset, got %v", f.builds)
	}
}

func TestHolder_FactoryError(t *testing.T) {
	t.Parallel()

	f := &countingFactory{err: errors.New("no credentials")}
	h := NewHolder(Settings{BigQuery: fullBigQuery}, f.build)

	if _, err := h.Get(context.Background()); err == nil {
		t.Error("expected factory error")
	}
	if h.Mode() != "" {
		t.Errorf("expected nothing cached, got %s", h.Mode())
	}
}

func TestNew_Mock(t *testing.T) {
	t.Parallel()

	inst, err := New(context.Background(), ModeMock, Settings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Mode != ModeMock {
		t.Errorf("expected mock, got %s", inst.Mode)
	}
	if err := inst.Close(); err != nil {
		t.Errorf("expected mock close to succeed, got %v", err)
	}
}

func TestNew_ContentDBDuckDB(t *testing.T) {
	t.Parallel()

	inst, err := New(context.Background(), ModeContentDB, Settings{
		ContentDB: ContentDBSettings{URL: ":memory:", Driver: "duckdb", MaxOpenConns: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer inst.Close()

	if inst.Mode != ModeContentDB {
		t.Errorf("expected content_db, got %s", inst.Mode)
	}
}

func TestNew_UnknownMode(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Mode("oracle"), Settings{}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
