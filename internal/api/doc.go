// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package api serves the admin analytics HTTP surface with the chi router.

Routes (all GET):

	/api/admin/analytics/overview
	/api/admin/analytics/tests
	/api/admin/analytics/tests/{test_id}
	/api/admin/analytics/tenants
	/api/admin/analytics/tenants/{tenant_id}
	/api/admin/analytics/distribution   top_tenants, top_tests
	/api/admin/analytics/traffic        top_n
	/api/admin/analytics/revenue
	/api/admin/analytics/attribution    content_type, content_key
	/api/admin/analytics/data
	/health
	/metrics

Every analytics route accepts the shared filters start, end, tenant_id,
test_id, locale, device_type and utm_source.

# Responses

Successful payloads are the provider response bodies, JSON encoded with
github.com/goccy/go-json. Failures use three shapes:

	400 {"error": "invalid_filters" | "invalid_path_param", "details": [{"field", "message"}]}
	501 {"error": "not_implemented", "detail": "..."}
	500 {"error": "internal_error"}

Validation always happens before the provider is touched.

# Caching

Overview responses are cached for OVERVIEW_CACHE_TTL (45s by default) keyed
by the canonical filters, in memory or in Redis when REDIS_URL is set.
*/
package api
