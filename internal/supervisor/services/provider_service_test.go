// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/mock"
)

type fakeHolder struct {
	getErr error
	gets   atomic.Int32
}

func (h *fakeHolder) Get(context.Context) (analytics.Provider, error) {
	h.gets.Add(1)
	if h.getErr != nil {
		return nil, h.getErr
	}
	return mock.New(), nil
}

func TestProviderService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		getErr error
	}{
		{"warm", nil},
		{"warm-up failure keeps running", errors.New("no credentials")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			holder := &fakeHolder{getErr: tt.getErr}
			svc := NewProviderService(holder)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected deadline exceeded, got %v", err)
			}
			if holder.gets.Load() != 1 {
				t.Errorf("expected 1 warm-up, got %d", holder.gets.Load())
			}
		})
	}
}
