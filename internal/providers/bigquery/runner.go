// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/bigquery"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"

	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// Row is one result row keyed by column name.
type Row map[string]bigquery.Value

// Runner executes a standard-SQL query with named parameters and returns
// every row. Tests substitute a fake.
type Runner interface {
	Query(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]Row, error)
}

// ClientRunner runs queries through a BigQuery client.
type ClientRunner struct {
	client *bigquery.Client
}

// NewClientRunner wraps client. The runner owns the client and closes it on Close.
func NewClientRunner(client *bigquery.Client) *ClientRunner {
	return &ClientRunner{client: client}
}

// Query implements Runner.
func (r *ClientRunner) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]Row, error) {
	q := r.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, it.TotalRows)
	for {
		var values map[string]bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row(values))
	}
	return rows, nil
}

// Close releases the client.
func (r *ClientRunner) Close() error {
	return r.client.Close()
}

// GuardOptions configures Guard.
type GuardOptions struct {
	// Name labels the circuit breaker metrics.
	Name string
	// MaxQPS caps query jobs per second; 0 disables the limiter.
	MaxQPS float64
	// Burst is the limiter bucket size, at least 1.
	Burst int
}

// GuardedRunner protects a Runner with a QPS limiter and a circuit breaker.
// Missing tables or columns are expected answers, not outages, so they do not
// count as breaker failures.
type GuardedRunner struct {
	next    Runner
	cb      *gobreaker.CircuitBreaker[[]Row]
	limiter *rate.Limiter
	name    string
}

// Guard wraps next.
//
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func Guard(next Runner, opts GuardOptions) *GuardedRunner {
	if opts.Name == "" {
		opts.Name = "bigquery"
	}

	metrics.CircuitBreakerState.WithLabelValues(opts.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(opts.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]Row](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("breaker", opts.Name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isNotFound(err) || errors.Is(err, context.Canceled)
		},
	})

	g := &GuardedRunner{next: next, cb: cb, name: opts.Name}
	if opts.MaxQPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.MaxQPS), max(opts.Burst, 1))
	}
	return g
}

// Query implements Runner.
func (g *GuardedRunner) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]Row, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bigquery rate limit: %w", err)
		}
	}

	rows, err := g.cb.Execute(func() ([]Row, error) {
		return g.next.Query(ctx, sql, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("breaker", g.name).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("bigquery circuit breaker: %w", err)
		}
		if !isNotFound(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()
			counts := g.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(g.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(g.name).Set(0)
	return rows, nil
}

// State reports the breaker state.
func (g *GuardedRunner) State() gobreaker.State {
	return g.cb.State()
}

// Close closes the wrapped runner when it holds resources.
func (g *GuardedRunner) Close() error {
	if c, ok := g.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
