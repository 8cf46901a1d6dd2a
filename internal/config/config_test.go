package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"jigpipe/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.OutputCSV = filepath.Join(cfg.OutputDir, "records.csv")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[platform]
remote_target = "sandbox"

[workflow]
max_tasks = 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.Platform.RemoteTarget != "sandbox" {
		t.Fatalf("expected sandbox target, got %q", cfg.Platform.RemoteTarget)
	}
	if cfg.Workflow.MaxTasks != 3 {
		t.Fatalf("expected max_tasks 3, got %d", cfg.Workflow.MaxTasks)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Platform.RemoteTarget != "release" {
		t.Fatalf("expected default remote target, got %q", cfg.Platform.RemoteTarget)
	}
}

func TestAuthOverrideEnvWins(t *testing.T) {
	t.Setenv("AUTH_OVERRIDE", "env-token")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Platform.Token != "env-token" {
		t.Fatalf("expected AUTH_OVERRIDE to win, got %q", cfg.Platform.Token)
	}
}

func TestUnknownRemoteTargetRejected(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.OutputCSV = filepath.Join(cfg.OutputDir, "records.csv")
	cfg.Platform.RemoteTarget = "staging"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown remote target")
	}
}

func TestAPIBaseURLPerTarget(t *testing.T) {
	cases := map[string]string{
		"local":   "http://localhost:8080",
		"sandbox": "https://api.sandbox.jigzi.org",
		"release": "https://api.jigzi.org",
	}
	for target, want := range cases {
		cfg := config.Default()
		cfg.Platform.RemoteTarget = target
		got, err := cfg.APIBaseURL()
		if err != nil {
			t.Fatalf("APIBaseURL(%s): %v", target, err)
		}
		if got != want {
			t.Fatalf("APIBaseURL(%s) = %q, want %q", target, got, want)
		}
	}
}
