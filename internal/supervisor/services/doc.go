// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package services adapts application components to suture.Service.

  - HTTPServerService runs an *http.Server and shuts it down gracefully.
  - ProviderService builds the analytics provider at startup.

Cache janitors need no wrapper: *cache.Cache implements Serve directly.

Each service returns ctx.Err() when canceled so suture does not restart
it, and any other error to request a restart with backoff.
*/
package services
