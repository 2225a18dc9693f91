// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package database opens the content database used by the content_db analytics
provider.

Two drivers are supported:
  - postgres: the production content database, through github.com/lib/pq
  - duckdb: a local file or in-memory database, through github.com/duckdb/duckdb-go

Connections are returned as *sqlx.DB and verified with a bounded ping before
use. The provider issues read-only queries, so no schema is created here.
*/
package database
