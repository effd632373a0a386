package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/algobench/pkg/algobench/logging"
)

// These tests share package-level logging state and must not run in parallel.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{in: "debug", want: logging.LevelDebug},
		{in: "INFO", want: logging.LevelInfo},
		{in: "", want: logging.LevelInfo},
		{in: "warning", want: logging.LevelWarn},
		{in: " error ", want: logging.LevelError},
		{in: "loud", want: logging.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, logging.ErrInvalidLevel) {
				t.Errorf("error %v does not wrap ErrInvalidLevel", err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit_InvalidLevels(t *testing.T) {
	dir := t.TempDir()

	cfgs := []logging.Config{
		{Level: "nope", Path: filepath.Join(dir, "a.log")},
		{Level: "info", Path: filepath.Join(dir, "b.log"), ConsoleLevel: "nope"},
		{Level: "info", Path: filepath.Join(dir, "c.log"), Components: map[string]string{"session": "nope"}},
	}
	for _, cfg := range cfgs {
		if err := logging.Init(cfg); err == nil {
			t.Errorf("Init(%+v) succeeded, want error", cfg)
		}
	}
	_ = logging.Close()
}

func TestGet_WritesToFileAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")

	before := logging.Get("runner")
	before.Info("dropped before init")

	if err := logging.Init(logging.Config{Level: "info", Path: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	log := logging.Get("runner")
	log.With("device", 1).Info("worker started", "algo", "sha256d")
	log.Debug("hidden at info level")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)

	for _, want := range []string{"runner", "worker started", "device=1", "algo=sha256d"} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q:\n%s", want, content)
		}
	}
	for _, unwanted := range []string{"dropped before init", "hidden at info level"} {
		if strings.Contains(content, unwanted) {
			t.Errorf("log unexpectedly contains %q", unwanted)
		}
	}
}

func TestComponentLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")
	cfg := logging.Config{
		Level:      "warn",
		Path:       path,
		Components: map[string]string{"session": "debug"},
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("session").Debug("session detail")
	logging.Get("runner").Info("runner detail")
	_ = logging.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "session detail") {
		t.Error("session debug message missing")
	}
	if strings.Contains(string(data), "runner detail") {
		t.Error("runner info message should be filtered at warn")
	}
}

func TestConsoleOutput(t *testing.T) {
	var console bytes.Buffer
	cfg := logging.Config{
		Level:        "info",
		Path:         filepath.Join(t.TempDir(), "bench.log"),
		ConsoleLevel: "warn",
		Console:      &console,
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer func() { _ = logging.Close() }()

	log := logging.Get("session")
	log.Info("quiet on console")
	log.Warn("possible memory leak", "mb", 2)

	out := console.String()
	if !strings.Contains(out, "possible memory leak") {
		t.Errorf("console missing warning: %q", out)
	}
	if strings.Contains(out, "quiet on console") {
		t.Errorf("console shows info message: %q", out)
	}
	if log.Component() != "session" {
		t.Errorf("Component() = %q", log.Component())
	}
}

func TestClose_Idempotent(t *testing.T) {
	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logging.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
