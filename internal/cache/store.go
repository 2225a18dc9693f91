// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// Store holds serialized values shared between requests, in process or
// across replicas.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryStore adapts Cache to Store.
type MemoryStore struct {
	c *Cache
}

// NewMemoryStore wraps c.
func NewMemoryStore(c *Cache) *MemoryStore {
	return &MemoryStore{c: c}
}

// Get implements Store. A miss also sweeps expired entries.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		s.c.Sweep()
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.c.SetWithTTL(key, value, ttl)
	return nil
}

// RedisStore shares cached values through Redis. Keys are namespaced by
// prefix so several services can use one database.
type RedisStore struct {
	client *redis.Client
	prefix string
	name   string
}

// NewRedisStore connects to the Redis URL and verifies it with PING.
func NewRedisStore(ctx context.Context, url, prefix, name string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, name: name}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(s.name, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	metrics.RecordCacheLookup(s.name, true)
	return data, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Remember returns the cached value for key, or computes it with fn and
// stores it for ttl. Store failures are logged and never fail the call.
// The boolean reports a cache hit.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, fn func() (T, error)) (T, bool, error) {
	if data, ok, err := s.Get(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, true, nil
		}
		logging.Ctx(ctx).Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	}

	v, err := fn()
	if err != nil {
		return v, false, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return v, false, nil
	}
	if err := s.Set(ctx, key, data, ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return v, false, nil
}
