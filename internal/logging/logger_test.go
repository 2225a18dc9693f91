// Quizfactory Analytics - Admin analytics aggregation service
// Copyright 2026 Quizfactory contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quizfactory/quizfactory-analytics

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(previous) })
	return &buf
}

func decodeLine(t *testing.T, line []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestInit_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	previous := Logger()
	t.Cleanup(func() {
		SetLogger(previous)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	Init(Config{Level: "warn", Format: "json", Output: &buf})
	Info().Msg("dropped")
	Warn().Str("mode", "mock").Msg("fallback")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %s", len(lines), buf.String())
	}
	m := decodeLine(t, lines[0])
	if m["service"] != ServiceName {
		t.Errorf("expected service %s, got %v", ServiceName, m["service"])
	}
	if m["message"] != "fallback" || m["mode"] != "mock" {
		t.Errorf("unexpected line %v", m)
	}
	if _, ok := m["time"]; !ok {
		t.Error("expected time field")
	}
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	previous := Logger()
	t.Cleanup(func() { SetLogger(previous) })

	Init(Config{Format: "console", Output: &buf})
	Info().Msg("console line")

	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("expected console output, got %q", buf.String())
	}
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Error("expected non-JSON console output")
	}
}

func TestErr(t *testing.T) {
	buf := captureGlobal(t)

	Err(errors.New("boom")).Msg("failed")
	m := decodeLine(t, bytes.TrimSpace(buf.Bytes()))
	if m["error"] != "boom" || m["level"] != "error" {
		t.Errorf("unexpected line %v", m)
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t)

	l := WithComponent("bigquery_provider")
	l.Info().Msg("ready")
	m := decodeLine(t, bytes.TrimSpace(buf.Bytes()))
	if m["component"] != "bigquery_provider" {
		t.Errorf("expected component field, got %v", m)
	}
}
