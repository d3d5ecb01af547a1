package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_FiltersByLevel(t *testing.T) {
	t.Setenv("GO_ENV", "")
	var buf bytes.Buffer
	Init(&buf, "warn")
	defer Discard()

	Info("hidden")
	Warn("haptic pulse failed", "hand", "left")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message leaked: %q", out)
	}
	if !strings.Contains(out, "haptic pulse failed") || !strings.Contains(out, "hand=left") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestInit_JSONInProduction(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	var buf bytes.Buffer
	Init(&buf, "info")
	defer Discard()

	L().With("source", "parrot").Info("registered")
	if !strings.Contains(buf.String(), `"source":"parrot"`) {
		t.Errorf("not JSON: %q", buf.String())
	}
}
