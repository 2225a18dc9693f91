// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package analytics

import "context"

// Provider computes admin analytics payloads for validated filters.
// Methods a backend cannot serve return a *NotImplementedError.
type Provider interface {
	GetOverview(ctx context.Context, f Filters) (*OverviewResponse, error)
	GetTests(ctx context.Context, f Filters) (*TestsResponse, error)
	GetTestDetail(ctx context.Context, testID string, f Filters) (*TestDetailResponse, error)
	GetTenants(ctx context.Context, f Filters) (*TenantsResponse, error)
	GetTenantDetail(ctx context.Context, tenantID string, f Filters) (*TenantDetailResponse, error)
	GetDistribution(ctx context.Context, f Filters, opts DistributionOptions) (*DistributionResponse, error)
	GetTraffic(ctx context.Context, f Filters, opts TrafficOptions) (*TrafficResponse, error)
	GetRevenue(ctx context.Context, f Filters) (*RevenueResponse, error)
	GetDataHealth(ctx context.Context, f Filters) (*DataHealthResponse, error)
	GetAttribution(ctx context.Context, f Filters, opts AttributionOptions) (*AttributionResponse, error)
}
