// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package bigquery

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/quizfactory/quizfactory-analytics/internal/analytics"
)

// Optional mart columns detected through INFORMATION_SCHEMA.
const (
	columnDeviceType = "device_type"
	columnReferrer   = "referrer"
	columnCountry    = "country"
)

var (
	introspectedTables  = []string{tableFunnelDaily, tablePnlDaily, tableUnitEconDaily}
	introspectedColumns = []string{columnDeviceType, columnReferrer, columnCountry}
)

// martColumns maps a mart to the optional columns it carries.
type martColumns map[string]map[string]bool

func (c martColumns) has(table, column string) bool {
	return c[table][column]
}

// isNotFound reports whether err means a dataset, table or column is missing.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// optionalColumns returns the cached column map, introspecting on first use.
// A missing dataset reports no optional columns and is retried next time.
func (p *Provider) optionalColumns(ctx context.Context) (martColumns, error) {
	p.columnsMu.Lock()
	defer p.columnsMu.Unlock()

	if p.columns != nil {
		return p.columns, nil
	}

	sql := `SELECT table_name, column_name
FROM ` + p.table(p.datasets.Marts, "INFORMATION_SCHEMA.COLUMNS") + `
WHERE table_name IN UNNEST(@tables)
  AND column_name IN UNNEST(@columns)`
	params := Params{"tables": introspectedTables, "columns": introspectedColumns}

	res, err := p.queryOptional(ctx, "introspect_columns", "INFORMATION_SCHEMA.COLUMNS", sql, params)
	if err != nil {
		return nil, err
	}
	rows, ok := res.Get()
	if !ok {
		return martColumns{}, nil
	}

	cols := martColumns{}
	for _, r := range rows {
		table, column := analytics.ToString(r["table_name"]), analytics.ToString(r["column_name"])
		if cols[table] == nil {
			cols[table] = map[string]bool{}
		}
		cols[table][column] = true
	}
	p.columns = cols

	for _, table := range []string{tableFunnelDaily, tablePnlDaily} {
		for _, column := range introspectedColumns {
			if !cols.has(table, column) {
				p.log.Debug().Str("table", table).Str("column", column).Msg("Optional mart column absent")
			}
		}
	}
	return cols, nil
}

// martClauses holds one filter clause per mart.
type martClauses struct {
	funnel   MartClause
	pnl      MartClause
	unitEcon MartClause
}

// clauses builds the filter clause of each mart for f. Columns are only
// introspected when a device filter needs them.
func (p *Provider) clauses(ctx context.Context, f analytics.Filters) (martClauses, error) {
	cols := martColumns{}
	if f.DeviceType != "" && f.DeviceType != analytics.FilterAll {
		var err error
		if cols, err = p.optionalColumns(ctx); err != nil {
			return martClauses{}, err
		}
	}

	build := func(table string) MartClause {
		return BuildMartFilterClause(f, MartClauseOptions{DeviceUnavailable: !cols.has(table, columnDeviceType)})
	}
	return martClauses{
		funnel:   build(tableFunnelDaily),
		pnl:      build(tablePnlDaily),
		unitEcon: build(tableUnitEconDaily),
	}, nil
}
