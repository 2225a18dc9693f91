// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package middleware provides the HTTP middleware shared by every route:
request ids, Prometheus instrumentation and access logging.

Each middleware has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(time.Second))
	r.Use(middleware.PrometheusMetrics)

Metrics are labelled with the chi route pattern ("/api/admin/analytics/tests/{test_id}")
rather than the raw path, so identifiers never become label values.
*/
package middleware
