// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package cache provides TTL caching for analytics responses.

Two layers are provided:
  - Cache: a thread-safe in-memory map with per-entry expiry, used directly
    for BigQuery freshness rows and as the default response store
  - Store: serialized values, either in memory (MemoryStore) or shared across
    replicas through Redis (RedisStore)

Remember wraps a computation with read-through caching. Values are encoded
with github.com/goccy/go-json, and cache failures degrade to a recompute.

# Expiry

Expired entries are dropped lazily on Get. Cache.Serve sweeps the rest on a
ticker and is meant to run under the supervisor tree.

# Usage

	overview := cache.NewMemoryStore(cache.New(45*time.Second, cache.WithName("overview")))
	resp, hit, err := cache.Remember(ctx, overview, key, 45*time.Second, func() (*analytics.OverviewResponse, error) {
	    return provider.GetOverview(ctx, filters)
	})

# Metrics

Named caches export cache_hits_total, cache_misses_total, cache_entries and
cache_evictions_total labelled by cache_type.
*/
package cache
