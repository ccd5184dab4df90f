// ABOUTME: Tests for the zap logger wrapper.
// ABOUTME: Verifies credential redaction and observer-backed output.
package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	got := sanitizeKVs([]interface{}{"store", "postgres", "PG_PASSWORD", "hunter2", "mongo_uri", "mongodb://u:p@h"})
	want := []interface{}{"store", "postgres", "PG_PASSWORD", "[REDACTED]", "mongo_uri", "[REDACTED]"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "importer").Info("imported", "table", "users", "rows", 3, "password", "x")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "importer" {
		t.Errorf("component = %v", fields["component"])
	}
	if fields["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want redacted", fields["password"])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "test"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		l.Info("hello")
	}
}
