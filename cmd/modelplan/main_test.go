package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_Format(t *testing.T) {
	var text, js bytes.Buffer
	newLogger(&text, "text", slog.LevelInfo).Info("configuration loaded", "path", "configs/modelplan.yaml")
	newLogger(&js, "json", slog.LevelInfo).Info("configuration loaded", "path", "configs/modelplan.yaml")

	if !strings.Contains(text.String(), `msg="configuration loaded"`) {
		t.Errorf("expected text output, got %q", text.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(js.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", js.String(), err)
	}
	if rec["msg"] != "configuration loaded" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewLogger_LevelVarApplies(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := newLogger(&buf, "text", level)

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected debug record after level change, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
