// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package services

import (
	"context"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
)

// ProviderHolder is satisfied by *providers.Holder.
type ProviderHolder interface {
	Get(ctx context.Context) (analytics.Provider, error)
}

// ProviderService builds the analytics provider at startup so the first
// request does not pay for client and pool setup. Closing stays with the
// owner, after the HTTP server has drained.
type ProviderService struct {
	holder ProviderHolder
}

// NewProviderService wraps holder.
func NewProviderService(holder ProviderHolder) *ProviderService {
	return &ProviderService{holder: holder}
}

// Serve implements suture.Service. A failed warm-up is only logged; the
// next request retries the build.
func (s *ProviderService) Serve(ctx context.Context) error {
	log := logging.WithComponent("providers")
	if _, err := s.holder.Get(ctx); err != nil {
		log.Warn().Err(err).Msg("Analytics provider warm-up failed")
	}

	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *ProviderService) String() string {
	return "analytics-provider"
}
