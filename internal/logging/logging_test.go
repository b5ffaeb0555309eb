package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	mgr, logger := NewManager(DefaultConfig())
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if got := mgr.Config(); got.Level != "info" || got.Format != "json" {
		t.Errorf("unexpected config: %+v", got)
	}
}

func TestManager_LevelChangeReachesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := newManager(Config{Level: "info", Format: "json"}, &buf)
	defer mgr.Close() //nolint:errcheck

	child := logger.With(slog.String("component", "roster"))
	if child.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at info")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json"})
	if !child.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("derived logger should see the new level")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if child.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error")
	}
}

func TestManager_FormatChangeReachesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := newManager(Config{Level: "info", Format: "json"}, &buf)
	defer mgr.Close() //nolint:errcheck

	child := logger.With(slog.String("component", "discovery")).WithGroup("build")
	child.Info("first", slog.Int("n", 1))
	if !strings.Contains(buf.String(), `"component":"discovery"`) || !strings.Contains(buf.String(), `"build":{"n":1}`) {
		t.Fatalf("unexpected json output: %s", buf.String())
	}

	buf.Reset()
	mgr.Reconfigure(Config{Level: "info", Format: "text"})
	child.Info("second", slog.Int("n", 2))
	out := buf.String()
	if !strings.Contains(out, "component=discovery") || !strings.Contains(out, "build.n=2") {
		t.Errorf("derived logger did not switch to text: %s", out)
	}
}

func TestManager_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "aurral.log")
	var stdout bytes.Buffer
	mgr, logger := newManager(Config{
		Level:          "info",
		Format:         "json",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
	}, &stdout)

	logger.Info("hello from test")
	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello from test")) {
		t.Errorf("log file missing record: %s", data)
	}
	if !strings.Contains(stdout.String(), "hello from test") {
		t.Error("stdout should also receive the record")
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.out {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestValidLevelAndFormat(t *testing.T) {
	for _, l := range []string{"debug", "Info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
	if !ValidFormat("text") || !ValidFormat("json") || ValidFormat("xml") {
		t.Error("unexpected ValidFormat result")
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if s := cfg.String(); s != "level=info format=json" {
		t.Errorf("unexpected string: %s", s)
	}
	cfg.FilePath = "/var/log/aurral.log"
	cfg.FileMaxSizeMB, cfg.FileMaxFiles, cfg.FileMaxAgeDays = 50, 5, 7
	want := "level=info format=json file=/var/log/aurral.log max_size=50MB max_files=5 max_age=7d"
	if s := cfg.String(); s != want {
		t.Errorf("got %q, want %q", s, want)
	}
}
