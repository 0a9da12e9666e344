package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, FormatText, &buf)
	logger.Info("queue drained", "dispatched", 3)
	if out := buf.String(); !strings.Contains(out, "queue drained") || !strings.Contains(out, "dispatched=3") {
		t.Errorf("text output missing fields: %s", out)
	}

	buf.Reset()
	logger = NewLoggerWithWriter(slog.LevelInfo, FormatJSON, &buf)
	logger.Info("queue drained", "dispatched", 3)
	if out := buf.String(); !strings.Contains(out, `"msg":"queue drained"`) || !strings.Contains(out, `"dispatched":3`) {
		t.Errorf("json output missing fields: %s", out)
	}

	// Unknown formats fall back to text.
	buf.Reset()
	logger = NewLoggerWithWriter(slog.LevelInfo, "fancy", &buf)
	logger.Info("hello")
	if out := buf.String(); strings.Contains(out, `"msg"`) {
		t.Errorf("unknown format did not fall back to text: %s", out)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, FormatText, &buf)

	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("WARN message should pass at WARN level: %s", out)
	}
}

func TestNewLoggerWithWriter_ComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelDebug, FormatText, &buf)
	child := logger.With("component", "scheduler")

	child.Debug("dispatch", "variant", "async")

	out := buf.String()
	if !strings.Contains(out, "component=scheduler") || !strings.Contains(out, "variant=async") {
		t.Errorf("derived logger lost attributes: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
