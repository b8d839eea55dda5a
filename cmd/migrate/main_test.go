package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
)

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	statuses := []*goose.MigrationStatus{
		{
			State:     goose.StateApplied,
			AppliedAt: applied,
			Source:    &goose.Source{Path: "20260301120000_create_stores_and_accounts.sql", Version: 20260301120000},
		},
		{
			State:  goose.StatePending,
			Source: &goose.Source{Path: "20260301120100_create_products_table.sql", Version: 20260301120100},
		},
	}

	var buf bytes.Buffer
	if err := printStatus(&buf, statuses); err != nil {
		t.Fatalf("print status: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "applied") || !strings.Contains(lines[1], "2026-03-01T12:00:00Z") {
		t.Fatalf("unexpected applied row %q", lines[1])
	}
	if !strings.Contains(lines[2], "pending") || !strings.Contains(lines[2], " - ") {
		t.Fatalf("unexpected pending row %q", lines[2])
	}
}

func TestArgAt(t *testing.T) {
	if got := argAt([]string{"a"}, 0); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := argAt(nil, 0); got != "" {
		t.Fatalf("got %q", got)
	}
}
