package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("Expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line") {
		t.Errorf("Expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line err=boom") {
		t.Errorf("Expected error line with err key, got %q", out)
	}
}

func TestKeyValueFormatting(t *testing.T) {
	buf := captureOutput(t, LevelDebug)

	Info("loaded", "count", 3, "path", "my events.json", "dangling")

	out := buf.String()
	if !strings.Contains(out, "count=3") {
		t.Errorf("Expected count=3 in %q", out)
	}
	if !strings.Contains(out, `path="my events.json"`) {
		t.Errorf("Expected quoted path in %q", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("Expected odd trailing value to be dropped, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
