// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

// Package providers selects and constructs the analytics backend.
//
// Resolution order without an override is bigquery, content_db, mock. An
// ADMIN_ANALYTICS_MODE override naming a backend whose settings are missing
// falls back to mock with a warning.
package providers

import (
	"fmt"
	"strings"
	"time"
)

// Mode names an analytics backend.
type Mode string

// Supported modes.
const (
	ModeBigQuery  Mode = "bigquery"
	ModeContentDB Mode = "content_db"
	ModeMock      Mode = "mock"
)

// AllModes lists every mode, for metric labels.
var AllModes = []string{string(ModeBigQuery), string(ModeContentDB), string(ModeMock)}

// BigQuerySettings locates the warehouse datasets.
type BigQuerySettings struct {
	ProjectID       string
	StripeDataset   string
	RawCostsDataset string
	TmpDataset      string
	MartsDataset    string
	MaxQPS          float64
}

// Complete reports whether the project and the three raw datasets are set.
func (s BigQuerySettings) Complete() bool {
	for _, v := range []string{s.ProjectID, s.StripeDataset, s.RawCostsDataset, s.TmpDataset} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// ContentDBSettings locates the content database.
type ContentDBSettings struct {
	URL             string
	Driver          string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Configured reports whether a content database URL is set.
func (s ContentDBSettings) Configured() bool {
	return strings.TrimSpace(s.URL) != ""
}

// Settings is everything needed to pick and build a provider.
type Settings struct {
	// Mode is the raw ADMIN_ANALYTICS_MODE override; empty means auto.
	Mode      string
	BigQuery  BigQuerySettings
	ContentDB ContentDBSettings
}

// Warning explains an override that could not be honoured. Key identifies
// the condition so repeated resolutions log it once.
type Warning struct {
	Key       string
	Requested string
	Message   string
}

// ResolveMode picks the backend for s.
func ResolveMode(s Settings) (Mode, []Warning) {
	override := strings.ToLower(strings.TrimSpace(s.Mode))

	switch override {
	case "":
		switch {
		case s.BigQuery.Complete():
			return ModeBigQuery, nil
		case s.ContentDB.Configured():
			return ModeContentDB, nil
		default:
			return ModeMock, nil
		}
	case string(ModeMock):
		return ModeMock, nil
	case string(ModeBigQuery):
		if s.BigQuery.Complete() {
			return ModeBigQuery, nil
		}
		return ModeMock, []Warning{{
			Key:       "override-bigquery-missing-env",
			Requested: override,
			Message:   "ADMIN_ANALYTICS_MODE=bigquery requested, but required BigQuery env vars are missing. Falling back to mock provider.",
		}}
	case string(ModeContentDB):
		if s.ContentDB.Configured() {
			return ModeContentDB, nil
		}
		return ModeMock, []Warning{{
			Key:       "override-content-db-missing-env",
			Requested: override,
			Message:   "ADMIN_ANALYTICS_MODE=content_db requested, but CONTENT_DATABASE_URL is missing. Falling back to mock provider.",
		}}
	default:
		return ModeMock, []Warning{{
			Key:       "override-invalid-" + override,
			Requested: override,
			Message:   fmt.Sprintf("Unsupported ADMIN_ANALYTICS_MODE=%s. Falling back to mock provider.", override),
		}}
	}
}
