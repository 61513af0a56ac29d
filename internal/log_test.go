package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{"INFO", LogLevelInfo},
		{"Debug", LogLevelDebug},
		{"TRACE", LogLevelTrace},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(LogLevelInfo, log.New(&buf, "", 0))

	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)
	logger.Error("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked at info level: %s", out)
	}
	if !strings.Contains(out, "[INFO] shown 2") || !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing expected lines: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(LogLevelTrace, log.New(&buf, "", 0)).WithComponent("montecarlo")

	logger.Trace("round %d", 4)
	if got := buf.String(); got != "[TRACE] [montecarlo] round 4\n" {
		t.Errorf("unexpected output %q", got)
	}
	if !logger.Enabled(LogLevelTrace) {
		t.Error("trace should be enabled")
	}
}
