// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package providers

import (
	"context"
	"sync"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/logging"
	"github.com/quizfactory/quizfactory-analytics/internal/metrics"
)

// Factory builds a provider instance; New is the production factory.
type Factory func(ctx context.Context, mode Mode, s Settings) (*Instance, error)

// Holder caches one provider instance. The instance is rebuilt only when the
// resolved mode changes.
type Holder struct {
	factory Factory

	mu       sync.Mutex
	settings Settings
	current  *Instance
	warned   map[string]bool
}

// NewHolder returns a holder for s. A nil factory means New.
func NewHolder(s Settings, factory Factory) *Holder {
	if factory == nil {
		factory = New
	}
	return &Holder{
		factory:  factory,
		settings: s,
		warned:   make(map[string]bool),
	}
}

// Get returns the provider for the current settings, building it on first
// use or after a mode change.
func (h *Holder) Get(ctx context.Context) (analytics.Provider, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mode, warnings := ResolveMode(h.settings)
	for _, w := range warnings {
		h.warnOnce(w)
	}

	if h.current != nil && h.current.Mode == mode {
		return h.current, nil
	}

	inst, err := h.factory(ctx, mode, h.settings)
	if err != nil {
		return nil, err
	}
	if h.current != nil {
		previous := h.current.Mode
		if err := h.current.Close(); err != nil {
			logging.Warn().Err(err).Str("mode", string(previous)).Msg("Failed to close previous analytics provider")
		}
	}
	h.current = inst

	metrics.SetProviderMode(string(mode), AllModes...)
	logging.Info().Str("mode", string(mode)).Msg("Analytics provider selected")
	return inst, nil
}

// Mode returns the mode of the cached provider, or "" before first use.
func (h *Holder) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return ""
	}
	return h.current.Mode
}

// Update replaces the settings. The provider is rebuilt on the next Get only
// if the resolved mode differs.
func (h *Holder) Update(s Settings) {
	h.mu.Lock()
	h.settings = s
	h.mu.Unlock()
}

// Reset closes the cached provider and forgets logged warnings.
func (h *Holder) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.current.Close()
	h.current = nil
	clear(h.warned)
	return err
}

// Close releases the cached provider.
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.current.Close()
	h.current = nil
	return err
}

func (h *Holder) warnOnce(w Warning) {
	if h.warned[w.Key] {
		return
	}
	h.warned[w.Key] = true

	metrics.ProviderFallbacks.WithLabelValues(w.Requested).Inc()
	logging.Warn().Str("key", w.Key).Str("requested_mode", w.Requested).Msg(w.Message)
}
