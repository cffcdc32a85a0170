package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verdict.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
registry:
  mode: "file"
  path: "./packs/financial"
  watch: true
  reload_schedule: "@every 5m"
  max_retries: 5

evaluation:
  workers: 2

evidence:
  enabled: true
  backend: "sqlite"
  sqlite:
    path: "./test-verdicts.db"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Registry.Path != "./packs/financial" {
		t.Errorf("expected registry path %q, got %q", "./packs/financial", cfg.Registry.Path)
	}
	if !cfg.Registry.Watch {
		t.Error("expected watch to be enabled")
	}
	if cfg.Registry.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Registry.MaxRetries)
	}
	if cfg.Evaluation.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Evaluation.Workers)
	}
	if cfg.Evidence.SQLite.Path != "./test-verdicts.db" {
		t.Errorf("expected sqlite path %q, got %q", "./test-verdicts.db", cfg.Evidence.SQLite.Path)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_DefaultsPreserved(t *testing.T) {
	configPath := writeConfig(t, `
registry:
  path: "./rules"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Registry.RequireCompatible {
		t.Error("expected require_compatible to default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to default to enabled")
	}
	if !cfg.Evidence.SQLite.WALMode {
		t.Error("expected WAL mode to default to true")
	}
	if cfg.Registry.DebounceInterval != DefaultRegistryDebounceInterval {
		t.Errorf("expected debounce %v, got %v", DefaultRegistryDebounceInterval, cfg.Registry.DebounceInterval)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	configPath := writeConfig(t, `
registry:
  require_compatible: false
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Registry.RequireCompatible {
		t.Error("expected require_compatible false to be kept")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics false to be kept")
	}
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Registry.Mode != DefaultRegistryMode {
		t.Errorf("expected mode %q, got %q", DefaultRegistryMode, cfg.Registry.Mode)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/verdict.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "registry: [unclosed")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
registry:
  mode: "s3"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "registry.mode" {
		t.Errorf("expected registry.mode error, got %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
registry:
  path: "./rules"
telemetry:
  logging:
    level: "info"
`)

	t.Setenv("VERDICT_REGISTRY_PATH", "/etc/verdict/rules")
	t.Setenv("VERDICT_REGISTRY_DEBOUNCE_INTERVAL", "1s")
	t.Setenv("VERDICT_EVALUATION_WORKERS", "7")
	t.Setenv("VERDICT_EVIDENCE_ENABLED", "true")
	t.Setenv("VERDICT_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("VERDICT_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Registry.Path != "/etc/verdict/rules" {
		t.Errorf("expected path override, got %q", cfg.Registry.Path)
	}
	if cfg.Registry.DebounceInterval != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Registry.DebounceInterval)
	}
	if cfg.Evaluation.Workers != 7 {
		t.Errorf("expected 7 workers, got %d", cfg.Evaluation.Workers)
	}
	if !cfg.Evidence.Enabled {
		t.Error("expected evidence enabled by env")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("expected sample ratio 0.25, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("VERDICT_REGISTRY_MODE", "ftp")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected validation error after override")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfigWithEnvOverrides_MalformedValuesIgnored(t *testing.T) {
	t.Setenv("VERDICT_EVALUATION_WORKERS", "many")
	t.Setenv("VERDICT_REGISTRY_WATCH", "perhaps")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Evaluation.Workers < 1 {
		t.Errorf("expected default workers, got %d", cfg.Evaluation.Workers)
	}
	if cfg.Registry.Watch {
		t.Error("expected malformed bool to be ignored")
	}
}
