package logger

import (
	"bytes"
	"strings"
	"testing"
)

// TestLogLevelFiltering verifies that messages are filtered based on log level
func TestLogLevelFiltering(t *testing.T) {
	order := []string{"trace", "debug", "info", "warn", "error"}

	for li, logLevel := range order {
		for mi, messageLevel := range order {
			shouldAppear := mi >= li
			t.Run(logLevel+"/"+messageLevel, func(t *testing.T) {
				buf := &bytes.Buffer{}
				cl := NewConsoleLogger(buf, logLevel)

				switch messageLevel {
				case "trace":
					cl.LogTrace("msg")
				case "debug":
					cl.LogDebug("msg")
				case "info":
					cl.LogInfo("msg")
				case "warn":
					cl.LogWarn("msg")
				case "error":
					cl.LogError("msg")
				}

				out := buf.String()
				if shouldAppear && !strings.Contains(out, "["+strings.ToUpper(messageLevel)+"] msg") {
					t.Errorf("expected %s message at %s level, got %q", messageLevel, logLevel, out)
				}
				if !shouldAppear && out != "" {
					t.Errorf("expected %s message filtered at %s level, got %q", messageLevel, logLevel, out)
				}
			})
		}
	}
}

func TestLogLevelNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "info"},
		{"DEBUG", "debug"},
		{" Error ", "error"},
		{"verbose", "info"},
	}
	for _, tt := range tests {
		if got := normalizeLogLevel(tt.in); got != tt.want {
			t.Errorf("normalizeLogLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevelLineFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	fixedLogger(buf, "info").LogWarn("disk almost full")
	if got, want := buf.String(), "[09:05:07] [WARN] disk almost full\n"; got != want {
		t.Errorf("LogWarn() = %q, want %q", got, want)
	}
}
