// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package api

import (
	"net/http"

	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Mode          string  `json:"mode,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports liveness and the selected backend. It never queries the
// backend, so a slow warehouse cannot fail the probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	uptime := h.now().Sub(h.startTime).Seconds()
	metrics.AppUptime.Set(uptime)

	respondJSON(w, r, http.StatusOK, HealthResponse{
		Status:        "ok",
		Mode:          h.mode(),
		UptimeSeconds: uptime,
	})
}
