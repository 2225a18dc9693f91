// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package contentdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Expected tables, in probe order.
const (
	tableAnalyticsEvents = "analytics_events"
	tableStripePurchases = "stripe_purchases"
	tableStripeRefunds   = "stripe_refunds"
	tableStripeDisputes  = "stripe_disputes"
	tableStripeFees      = "stripe_fees"
	tableTests           = "tests"
	tableTenantTests     = "tenant_tests"
)

var expectedTables = []string{
	tableAnalyticsEvents,
	tableStripePurchases,
	tableStripeRefunds,
	tableStripeDisputes,
	tableStripeFees,
	tableTests,
	tableTenantTests,
}

// Tables records which expected tables exist in the content database.
type Tables struct {
	AnalyticsEvents bool
	StripePurchases bool
	StripeRefunds   bool
	StripeDisputes  bool
	StripeFees      bool
	Tests           bool
	TenantTests     bool
}

func tablesFromSet(present map[string]bool) Tables {
	return Tables{
		AnalyticsEvents: present[tableAnalyticsEvents],
		StripePurchases: present[tableStripePurchases],
		StripeRefunds:   present[tableStripeRefunds],
		StripeDisputes:  present[tableStripeDisputes],
		StripeFees:      present[tableStripeFees],
		Tests:           present[tableTests],
		TenantTests:     present[tableTenantTests],
	}
}

// probeQuery lists the expected tables present in schema $1.
func probeQuery() (string, []any) {
	placeholders := make([]string, len(expectedTables))
	args := make([]any, 0, len(expectedTables)+1)
	args = append(args, nil)
	for i, name := range expectedTables {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, name)
	}
	query := `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_name IN (` + strings.Join(placeholders, ", ") + `)`
	return query, args
}

// tables returns the cached availability, probing on first use. A failed
// probe reports every table missing and is retried on the next request.
func (p *Provider) tables(ctx context.Context) Tables {
	p.tablesMu.Lock()
	defer p.tablesMu.Unlock()

	if p.probed != nil {
		return *p.probed
	}

	query, args := probeQuery()
	args[0] = p.schema

	var names []string
	if err := p.selectRows(ctx, "probe_tables", &names, query, args...); err != nil {
		p.log.Warn().Err(err).Str("schema", p.schema).Msg("Content DB table probe failed, treating all tables as missing")
		return Tables{}
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	t := tablesFromSet(present)
	p.probed = &t

	missing := make([]string, 0)
	for _, name := range expectedTables {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		p.log.Warn().Strs("missing_tables", missing).Msg("Content DB schema is partial, affected metrics default to zero")
	}
	return t
}

// isUndefinedObject reports whether err means a table or column does not
// exist. Postgres signals this with SQLSTATE 42P01 or 42703; DuckDB only
// exposes a message.
func isUndefinedObject(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01" || pqErr.Code == "42703"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") ||
		(strings.Contains(msg, "catalog error") && strings.Contains(msg, "not found"))
}
