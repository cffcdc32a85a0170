package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// File values are decoded over NewDefaultConfig, remaining zero values are
// defaulted and the result is validated. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(cfg)

	// Validate
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VERDICT_SECTION_FIELD (e.g., VERDICT_REGISTRY_PATH).
// Environment variables always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format VERDICT_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Registry overrides
	envString("VERDICT_REGISTRY_MODE", &cfg.Registry.Mode)
	envString("VERDICT_REGISTRY_PATH", &cfg.Registry.Path)
	envBool("VERDICT_REGISTRY_WATCH", &cfg.Registry.Watch)
	envDuration("VERDICT_REGISTRY_DEBOUNCE_INTERVAL", &cfg.Registry.DebounceInterval)
	envString("VERDICT_REGISTRY_RELOAD_SCHEDULE", &cfg.Registry.ReloadSchedule)
	envDuration("VERDICT_REGISTRY_RELOAD_TIMEOUT", &cfg.Registry.ReloadTimeout)
	envInt("VERDICT_REGISTRY_MAX_RETRIES", &cfg.Registry.MaxRetries)
	envBool("VERDICT_REGISTRY_REQUIRE_COMPATIBLE", &cfg.Registry.RequireCompatible)
	envString("VERDICT_REGISTRY_GIT_REPOSITORY", &cfg.Registry.Git.Repository)
	envString("VERDICT_REGISTRY_GIT_BRANCH", &cfg.Registry.Git.Branch)
	envString("VERDICT_REGISTRY_GIT_PATH", &cfg.Registry.Git.Path)
	envString("VERDICT_REGISTRY_GIT_AUTH_TYPE", &cfg.Registry.Git.Auth.Type)
	envString("VERDICT_REGISTRY_GIT_AUTH_TOKEN", &cfg.Registry.Git.Auth.Token)
	envString("VERDICT_REGISTRY_GIT_AUTH_SSH_KEY_PATH", &cfg.Registry.Git.Auth.SSHKeyPath)

	// Evaluation overrides
	envInt("VERDICT_EVALUATION_WORKERS", &cfg.Evaluation.Workers)
	envBool("VERDICT_EVALUATION_CHECK_CONFORMANCE", &cfg.Evaluation.CheckConformance)

	// Evidence overrides
	envBool("VERDICT_EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	envString("VERDICT_EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envString("VERDICT_EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envDuration("VERDICT_EVIDENCE_RETENTION_MAX_AGE", &cfg.Evidence.Retention.MaxAge)

	// Server overrides
	envString("VERDICT_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)

	// Telemetry overrides
	envString("VERDICT_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("VERDICT_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("VERDICT_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("VERDICT_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("VERDICT_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("VERDICT_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("VERDICT_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
