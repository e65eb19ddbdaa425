package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "telemetry-client" {
		t.Errorf("expected app name 'telemetry-client', got %s", cfg.App.Name)
	}
	if cfg.Client.BatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.Client.BatchSize)
	}
	if cfg.Client.FlushInterval != 10*time.Second {
		t.Errorf("expected flush interval 10s, got %v", cfg.Client.FlushInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "telemetry.yaml")

	configContent := `
app:
  name: custom-service
  version: 2.0.0
  environment: staging
client:
  batch_size: 50
log:
  level: debug
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader(WithConfigPaths(configPath))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-service" {
		t.Errorf("expected app name 'custom-service', got %s", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %s", cfg.App.Version)
	}
	if cfg.Client.BatchSize != 50 {
		t.Errorf("expected batch size 50, got %d", cfg.Client.BatchSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	os.Setenv("TELEMETRY_APP_NAME", "env-service")
	os.Setenv("TELEMETRY_CLIENT_BATCH_SIZE", "75")
	defer func() {
		os.Unsetenv("TELEMETRY_APP_NAME")
		os.Unsetenv("TELEMETRY_CLIENT_BATCH_SIZE")
	}()

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-service" {
		t.Errorf("expected app name 'env-service', got %s", cfg.App.Name)
	}
	if cfg.Client.BatchSize != 75 {
		t.Errorf("expected batch size 75, got %d", cfg.Client.BatchSize)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "telemetry.yaml")
	err := os.WriteFile(configPath, []byte("client:\n  batch_size: 10\n"), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("TELEMETRY_CLIENT_BATCH_SIZE", "200")
	defer os.Unsetenv("TELEMETRY_CLIENT_BATCH_SIZE")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Client.BatchSize != 200 {
		t.Errorf("expected env to override file, got batch size %d", cfg.Client.BatchSize)
	}
}

func TestLoader_RejectsInvalidConfig(t *testing.T) {
	os.Setenv("TELEMETRY_CLIENT_BATCH_SIZE", "0")
	defer os.Unsetenv("TELEMETRY_CLIENT_BATCH_SIZE")

	_, err := NewLoader().Load()
	if err == nil {
		t.Fatal("expected validation error for zero batch size")
	}
}
