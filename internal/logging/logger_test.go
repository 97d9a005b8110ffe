package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		max    int
		expect string
	}{
		{"short", 10, "short"},
		{"line one\nline two", 100, "line one line two"},
		{"  padded  ", 10, "padded"},
		{"abcdefghij", 4, "abcd..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.expect {
			t.Errorf("Truncate(%q, %d): expected %q, got %q", tt.in, tt.max, tt.expect, got)
		}
	}
}

func TestSubsystemField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev.Desugar()) })

	Info("reconcile", "removed %d projects", 3)
	Debug("gtd", "key %s missing", "goals")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "removed 3 projects" {
		t.Errorf("Expected formatted message, got %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["subsystem"]; got != "reconcile" {
		t.Errorf("Expected subsystem 'reconcile', got %v", got)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Errorf("Expected debug level, got %v", entries[1].Level)
	}
}
