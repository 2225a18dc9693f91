// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package config loads and validates the service configuration.

# Configuration Sources

Sources are layered, later ones winning:
  - Built-in defaults
  - An optional YAML file (CONFIG_PATH, or config.yaml in the working directory
    or /etc/quizfactory-analytics)
  - Environment variables, after ENV_FILE or .env.local and .env are applied

# Environment Variables

Analytics backend:
  - ADMIN_ANALYTICS_MODE: force bigquery, content_db or mock
  - BIGQUERY_PROJECT_ID, BIGQUERY_STRIPE_DATASET, BIGQUERY_RAW_COSTS_DATASET,
    BIGQUERY_TMP_DATASET: all four select the BigQuery provider
  - BIGQUERY_MARTS_DATASET: marts dataset (default: marts)
  - BIGQUERY_MAX_QPS: warehouse query jobs per second (default: 10, 0 disables)
  - CONTENT_DATABASE_URL: selects the content database provider
  - CONTENT_DATABASE_DRIVER: postgres or duckdb (default: postgres)

HTTP server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 3000)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: per-IP limit (default: 120 per 1m)

Caching:
  - OVERVIEW_CACHE_TTL: overview response cache lifetime (default: 45s)
  - REDIS_URL: share the overview cache through Redis

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: include caller file and line (default: false)

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Server.Addr())
*/
package config
