// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/quizfactory/quizfactory-analytics/internal/logging"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// DefaultPingTimeout bounds the connection check in Open.
const DefaultPingTimeout = 5 * time.Second

// ErrUnsupportedDriver is returned for drivers other than postgres and duckdb.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Config describes a content database connection.
type Config struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultSchema returns the schema holding user tables for driver.
func DefaultSchema(driver string) string {
	if driver == DriverDuckDB {
		return "main"
	}
	return "public"
}

// dsn converts the configured URL into the driver's connection string.
// DuckDB accepts duckdb:// URLs and plain paths; extensions are never
// auto-installed so a restricted network cannot stall startup.
func dsn(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return cfg.URL, nil
	case DriverDuckDB:
		path := strings.TrimPrefix(cfg.URL, "duckdb://")
		if path == ":memory:" {
			path = ""
		}
		opts := "access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
		if path == "" {
			return "?" + opts, nil
		}
		return path + "?" + opts, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// Open connects to the content database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	connStr, err := dsn(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverDuckDB {
		// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
		if dir := filepath.Dir(strings.SplitN(connStr, "?", 2)[0]); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sqlx.Open(cfg.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	configurePool(db, cfg)

	if err := verify(ctx, db, cfg.PingTimeout); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver, err)
	}

	logging.Info().
		Str("driver", cfg.Driver).
		Str("url", logging.RedactURL(cfg.URL)).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Content database connected")
	return db, nil
}

func configurePool(db *sqlx.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func verify(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(pingCtx)
}
