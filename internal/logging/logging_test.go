package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if dir == "" {
		t.Error("DefaultLogDir returned empty string")
	}
	if !strings.Contains(dir, ".ferrex") || !strings.Contains(dir, "logs") {
		t.Errorf("DefaultLogDir should contain .ferrex/logs, got: %s", dir)
	}
}

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	if filepath.Base(path) != "ferrex.log" {
		t.Errorf("DefaultLogPath should end with ferrex.log, got: %s", path)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 {
		t.Errorf("expected MaxSizeMB 10, got: %d", cfg.MaxSizeMB)
	}
	if cfg.MaxFiles != 5 {
		t.Errorf("expected MaxFiles 5, got: %d", cfg.MaxFiles)
	}
	if !cfg.WriteToStderr {
		t.Error("expected WriteToStderr to be true")
	}
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()
	if cfg.Level != "debug" {
		t.Errorf("expected level 'debug', got: %s", cfg.Level)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
		{"", "INFO"},
	}

	for _, c := range cases {
		got := LevelFromString(c.input).String()
		if got != c.want {
			t.Errorf("LevelFromString(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestSetupWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferrex.log")

	logger, cleanup, err := Setup(Config{
		Level:         "debug",
		FilePath:      path,
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	logger.Info("deletion pipeline started", "docs", 3)
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "deletion pipeline started") {
		t.Errorf("expected log line in output, got: %s", data)
	}
}

func TestEnsureLogDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := EnsureLogDir(); err != nil {
		t.Fatalf("EnsureLogDir failed: %v", err)
	}
	if _, err := os.Stat(DefaultLogDir()); err != nil {
		t.Errorf("expected log dir to exist: %v", err)
	}
}

func TestFindLogFile(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.log")
	if err := os.WriteFile(explicit, []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("writing explicit log: %v", err)
	}

	got, err := FindLogFile(explicit)
	if err != nil {
		t.Fatalf("FindLogFile: %v", err)
	}
	if got != explicit {
		t.Errorf("FindLogFile = %q, want %q", got, explicit)
	}

	if _, err := FindLogFile(filepath.Join(dir, "missing.log")); err == nil {
		t.Error("expected error for missing explicit log file")
	}
}
