// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

/*
Package supervisor runs the service's long-lived goroutines under a
github.com/thejerf/suture/v4 tree.

Failed services are restarted with exponential backoff. Supervisor events
are logged through github.com/thejerf/sutureslog using the zerolog-backed
slog handler from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMaintenanceService(overviewCache)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)

Serve returns once ctx is canceled and every service has stopped or
exceeded ShutdownTimeout. UnstoppedServiceReport names the stragglers.
*/
package supervisor
