package main

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/appq/appq/internal/platform/db"
	"github.com/appq/appq/internal/platform/scheduling"
)

func TestParseRange(t *testing.T) {
	r, err := parseRange(" 09:00 - 17:30 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r[0] != "09:00" || r[1] != "17:30" {
		t.Errorf("got %v, want [09:00 17:30]", r)
	}

	for _, in := range []string{"09:00", "9am-5pm", "09:00-25:00"} {
		if _, err := parseRange(in); err == nil {
			t.Errorf("parseRange(%q): expected error", in)
		}
	}
	if _, err := parseRange("09:00-99:00"); !errors.Is(err, scheduling.ErrInvalidClock) {
		t.Errorf("expected ErrInvalidClock, got %v", err)
	}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSlotsCmd(t *testing.T) {
	out, err := runCmd(t, "slots", "--open", "09:00-12:00", "--break", "10:00-10:30", "--interval", "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "09:00-09:30\n09:30-10:00\n10:30-11:00\n11:00-11:30\n11:30-12:00\n5 slot(s)\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestSlotsCmd_Errors(t *testing.T) {
	if _, err := runCmd(t, "slots", "--open", "nine-five"); err == nil {
		t.Error("expected error for malformed opening range")
	}
	if _, err := runCmd(t, "slots", "--interval", "0"); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestMigrateDownIsRefused(t *testing.T) {
	out, err := runCmd(t, "migrate", "down")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "not supported") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "tenant", "slots"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	applied := formatStatus(db.MigrationStatus{Version: 1, Name: "001_core.sql", Applied: true, AppliedAt: &at})
	if !strings.Contains(applied, "applied") || !strings.HasSuffix(applied, "2026-10-19 09:30:00") {
		t.Errorf("unexpected line %q", applied)
	}
	pending := formatStatus(db.MigrationStatus{Version: 2, Name: "002_next.sql"})
	if !strings.HasSuffix(pending, "pending") {
		t.Errorf("unexpected line %q", pending)
	}
}

func TestMigrationFiles_Embedded(t *testing.T) {
	if _, err := fs.Stat(migrationFiles(""), "001_core.sql"); err != nil {
		t.Errorf("embedded migrations missing 001_core.sql: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)
	logger.Info().Str("k", "v").Msg("hello")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	logger = newLogger("development", &buf)
	logger.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}
