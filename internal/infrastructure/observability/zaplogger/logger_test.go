package zaplogger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/workboxhq/workbox/internal/observability"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNewWritesToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "service.log")

	log := New(Options{Level: "debug", FilePath: path},
		observability.F("service", "workbox-test"),
	)
	log.Info("file_sink_check")
	if s, ok := log.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "file_sink_check") {
		t.Error("log file does not contain the emitted entry")
	}
	if !strings.Contains(string(data), "workbox-test") {
		t.Error("log file is missing the fixed service field")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	log := New(Options{Level: "warn", FilePath: path})
	log.Debug("too_quiet")
	log.Warn("loud_enough")
	if s, ok := log.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "too_quiet") {
		t.Error("debug entry emitted at warn level")
	}
	if !strings.Contains(string(data), "loud_enough") {
		t.Error("warn entry missing")
	}
}
