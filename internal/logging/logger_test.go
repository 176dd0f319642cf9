package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	NewComponentLogger(logger, "usecase").Info("clip done", slog.String(FieldClip, "C0001.MP4"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != "usecase" || rec[FieldClip] != "C0001.MP4" {
		t.Fatalf("record=%v", rec)
	}
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output=%q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour codes written to a non-terminal: %q", out)
	}
}

func TestNew_RejectsUnknownValues(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestNewComponentLogger_NilBase(t *testing.T) {
	l := NewComponentLogger(nil, "x")
	l.Error("discarded")
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("nop logger should be disabled")
	}
}
