// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	BigQuery  BigQueryConfig  `koanf:"bigquery"`
	ContentDB ContentDBConfig `koanf:"content_db"`
	Security  SecurityConfig  `koanf:"security"`
	Cache     CacheConfig     `koanf:"cache"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// AnalyticsConfig selects the analytics backend.
type AnalyticsConfig struct {
	// Mode forces bigquery, content_db or mock. Empty means pick from the
	// configured backends. Unknown values fall back to mock at runtime.
	Mode string `koanf:"mode"`
}

// BigQueryConfig names the warehouse project and datasets.
type BigQueryConfig struct {
	ProjectID       string  `koanf:"project_id"`
	StripeDataset   string  `koanf:"stripe_dataset"`
	RawCostsDataset string  `koanf:"raw_costs_dataset"`
	TmpDataset      string  `koanf:"tmp_dataset"`
	MartsDataset    string  `koanf:"marts_dataset"`
	MaxQPS          float64 `koanf:"max_qps" validate:"gte=0"`
}

// ContentDBConfig points at the content database.
type ContentDBConfig struct {
	// URL is a Postgres connection string or a DuckDB file path.
	URL    string `koanf:"url"`
	Driver string `koanf:"driver" validate:"oneof=postgres duckdb"`
	// Schema defaults per driver when empty.
	Schema       string        `koanf:"schema"`
	MaxOpenConns int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLife  time.Duration `koanf:"conn_max_lifetime"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	OverviewTTL time.Duration `koanf:"overview_ttl" validate:"min=1s"`
	// RedisURL switches the overview cache to a shared Redis store.
	RedisURL string `koanf:"redis_url" validate:"omitempty,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err
	}
	// Values are left out since URLs may carry credentials.
	msgs := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
