// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    Config
		prefix string
	}{
		{"postgres passthrough", Config{Driver: DriverPostgres, URL: "postgres://u@db/quiz"}, "postgres://u@db/quiz"},
		{"duckdb url", Config{Driver: DriverDuckDB, URL: "duckdb:///data/quiz.duckdb"}, "/data/quiz.duckdb?"},
		{"duckdb memory", Config{Driver: DriverDuckDB, URL: ":memory:"}, "?access_mode"},
		{"duckdb path", Config{Driver: DriverDuckDB, URL: "quiz.duckdb"}, "quiz.duckdb?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dsn(tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
			if tt.cfg.Driver == DriverDuckDB && !strings.Contains(got, "autoinstall_known_extensions=false") {
				t.Errorf("expected extension autoinstall disabled, got %q", got)
			}
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Driver: "mysql", URL: "mysql://x"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestOpen_DuckDBFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "content.duckdb")
	db, err := Open(context.Background(), Config{Driver: DriverDuckDB, URL: path, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer Close(db, "test database")

	var one int
	if err := db.Get(&one, "SELECT 1"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if one != 1 {
		t.Errorf("expected 1, got %d", one)
	}
}

func TestVerify_PingFailure(t *testing.T) {
	t.Parallel()

	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	db := sqlx.NewDb(conn, "postgres")
	if err := verify(context.Background(), db, time.Second); err == nil {
		t.Error("expected ping error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDefaultSchema(t *testing.T) {
	t.Parallel()

	if got := DefaultSchema(DriverDuckDB); got != "main" {
		t.Errorf("expected main, got %s", got)
	}
	if got := DefaultSchema(DriverPostgres); got != "public" {
		t.Errorf("expected public, got %s", got)
	}
}
