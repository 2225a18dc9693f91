// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package providers

import (
	"context"
	"fmt"

	bq "cloud.google.com/go/bigquery"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
	"github.com/quizfactory/quizfactory-analytics/internal/database"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/bigquery"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/contentdb"
	"github.com/quizfactory/quizfactory-analytics/internal/providers/mock"
)

// Instance is a constructed provider together with the resources it owns.
type Instance struct {
	analytics.Provider
	Mode  Mode
	close func() error
}

// Close releases the provider's client or connection pool.
func (i *Instance) Close() error {
	if i == nil || i.close == nil {
		return nil
	}
	return i.close()
}

// New builds the provider for mode.
func New(ctx context.Context, mode Mode, s Settings) (*Instance, error) {
	switch mode {
	case ModeBigQuery:
		client, err := bq.NewClient(ctx, s.BigQuery.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create bigquery client: %w", err)
		}
		runner := bigquery.Guard(bigquery.NewClientRunner(client), bigquery.GuardOptions{
			Name:   bigquery.ProviderName,
			MaxQPS: s.BigQuery.MaxQPS,
		})
		p := bigquery.New(runner, bigquery.Options{
			ProjectID: s.BigQuery.ProjectID,
			Datasets: bigquery.Datasets{
				Stripe:   s.BigQuery.StripeDataset,
				RawCosts: s.BigQuery.RawCostsDataset,
				Tmp:      s.BigQuery.TmpDataset,
				Marts:    s.BigQuery.MartsDataset,
			},
		})
		return &Instance{Provider: p, Mode: mode, close: p.Close}, nil

	case ModeContentDB:
		db, err := database.Open(ctx, database.Config{
			Driver:          s.ContentDB.Driver,
			URL:             s.ContentDB.URL,
			MaxOpenConns:    s.ContentDB.MaxOpenConns,
			MaxIdleConns:    s.ContentDB.MaxIdleConns,
			ConnMaxLifetime: s.ContentDB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		schema := s.ContentDB.Schema
		if schema == "" {
			schema = database.DefaultSchema(s.ContentDB.Driver)
		}
		p := contentdb.New(db, contentdb.Options{Schema: schema})
		return &Instance{Provider: p, Mode: mode, close: db.Close}, nil

	case ModeMock:
		return &Instance{Provider: mock.New(), Mode: mode}, nil

	default:
		return nil, fmt.Errorf("unknown provider mode %q", mode)
	}
}
