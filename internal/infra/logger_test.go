package infra

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"production", "", zerolog.InfoLevel},
		{"development", "", zerolog.DebugLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"production", "nonsense", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		if got := newLogger(&bytes.Buffer{}, tc.env, tc.level).GetLevel(); got != tc.want {
			t.Fatalf("newLogger(%q, %q) level = %s, want %s", tc.env, tc.level, got, tc.want)
		}
	}
}

func TestNewLoggerWritesJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "production", "")
	l.Info().Msg("hello")
	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"service":"versa-api"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewConsoleLoggerDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
