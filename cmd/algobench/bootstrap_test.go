package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/algobench/pkg/algobench/config"
	"github.com/jamesainslie/algobench/pkg/algobench/logging"
)

func TestLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{
		Level:        "warn",
		ConsoleLevel: "info",
		Components:   map[string]string{"session": "error"},
		Rotation:     config.RotationConfig{MaxSize: "1MB", MaxAge: 3, MaxBackups: 1},
	}

	tests := []struct {
		name           string
		verbose, quiet bool
		wantLevel      string
		wantConsole    string
		wantComponents int
	}{
		{name: "configured", wantLevel: "warn", wantConsole: "info", wantComponents: 1},
		{name: "verbose", verbose: true, wantLevel: "debug", wantConsole: "debug", wantComponents: 0},
		{name: "quiet", quiet: true, wantLevel: "warn", wantConsole: "", wantComponents: 1},
		{name: "quiet wins", verbose: true, quiet: true, wantLevel: "warn", wantConsole: "", wantComponents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := loggingConfig(lc, tt.verbose, tt.quiet)

			if got.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", got.Level, tt.wantLevel)
			}
			if got.ConsoleLevel != tt.wantConsole {
				t.Errorf("ConsoleLevel = %q, want %q", got.ConsoleLevel, tt.wantConsole)
			}
			if len(got.Components) != tt.wantComponents {
				t.Errorf("Components = %v, want %d entries", got.Components, tt.wantComponents)
			}
			if got.Rotation.MaxSize != 1<<20 {
				t.Errorf("Rotation.MaxSize = %d, want %d", got.Rotation.MaxSize, 1<<20)
			}
		})
	}
}

func TestInitializeLoggingWritesLogFile(t *testing.T) {
	// XDG paths are cached at package init, so the state directory is the
	// real one; the log file itself is redirected.
	logPath := filepath.Join(t.TempDir(), "algobench.log")

	t.Setenv("ALGOBENCH_LOGGING_PATH", logPath)
	initConfig()
	t.Cleanup(func() { _ = logging.Close() })

	if err := initializeLogging(nil, nil); err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}

	if _, err := os.Stat(config.StateDir()); os.IsNotExist(err) {
		t.Errorf("state directory was not created: %s", config.StateDir())
	}

	logging.Get("bootstrap-test").Info("hello")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
