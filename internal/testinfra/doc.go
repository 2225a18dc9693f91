// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

// Package testinfra starts disposable containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/providers/contentdb/...
//
// # Postgres
//
// NewPostgresContainer runs a throwaway Postgres and returns its DSN:
//
//	func TestContentDB(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    db, err := database.Open(ctx, database.Config{Driver: database.DriverPostgres, URL: pg.DSN})
//	    // ...
//	}
//
// Tests skip when no Docker daemon is reachable. The first run pulls the
// image; later runs use the local cache.
package testinfra
