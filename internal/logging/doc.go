// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package logging provides the service's zerolog-based structured logging.

A single global logger is configured once from main:

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().Str("addr", addr).Msg("HTTP server listening")

Request-scoped lines go through Ctx, which adds request_id and correlation_id
when the request middleware stored them:

	logging.Ctx(ctx).Warn().Err(err).Msg("Provider query failed")

Packages that keep a logger tag it with WithComponent. The supervisor tree
logs through sutureslog, bridged by SlogHandler.

Connection URLs pass through RedactURL before they are logged.

Always terminate an event with Msg or Send; an unterminated event is dropped.
*/
package logging
