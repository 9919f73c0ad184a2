package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "auto" {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.Output == nil {
		t.Error("DefaultConfig().Output should not be nil")
	}
}

func TestLogger_NilOutputDoesNotPanic(t *testing.T) {
	t.Parallel()
	logger := New(Config{Level: "error", Format: "text"})
	logger.Debug("dropped")
}

func TestLogger_Formats(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format string
		check  func(string) bool
	}{
		{"json", func(s string) bool { return strings.HasPrefix(s, "{") }},
		{"text", func(s string) bool { return strings.Contains(s, "msg=") }},
		// auto falls back to JSON when the output is not a terminal
		{"auto", func(s string) bool { return strings.HasPrefix(s, "{") }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Level: "info", Format: tt.format, Output: &buf}).Info("listing processes")
			if !tt.check(buf.String()) {
				t.Errorf("unexpected %s output: %q", tt.format, buf.String())
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "text", Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filtering failed: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_ContextFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})
	logger.WithPID(4242).WithReport("memory", "r-1").WithComponent("metrics").Info("collected")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["pid"] != float64(4242) {
		t.Errorf("pid = %v", rec["pid"])
	}
	if rec["report"] != "memory" || rec["report_id"] != "r-1" || rec["component"] != "metrics" {
		t.Errorf("missing fields: %v", rec)
	}
}

func TestLogger_SanitizesMessagesAndArgs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})
	logger.Info("target started with password=hunter2hunter2",
		"args", []string{"app", "--token", "abc"},
		"url", "postgres://svc:s3cret@db:5432/app")

	out := buf.String()
	for _, leaked := range []string{"hunter2hunter2", "abc\"", "s3cret"} {
		if strings.Contains(out, leaked) {
			t.Errorf("output leaks %q: %s", leaked, out)
		}
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker: %s", out)
	}
}

func TestNewNop(t *testing.T) {
	t.Parallel()
	logger := NewNop()
	logger.Error("nothing happens")
	if logger.Sanitizer() == nil {
		t.Error("nop logger should still carry a sanitizer")
	}
}

func TestPrettyHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelDebug)).With("pid", 7).WithGroup("mem")
	logger.Debug("sampled", "rss", 1024)
	logger.Error("failed")

	out := buf.String()
	for _, want := range []string{"DBG", "ERR", "sampled", "pid", "mem.rss"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q: %q", want, out)
		}
	}
}
