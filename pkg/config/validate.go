package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "registry.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRegistry(&cfg.Registry)...)
	errs = append(errs, validateEvaluation(&cfg.Evaluation)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateRegistry(cfg *RegistryConfig) []FieldError {
	var errs []FieldError

	// Validate mode
	validModes := map[string]bool{"file": true, "git": true}
	if cfg.Mode == "" {
		errs = append(errs, FieldError{
			Field:   "registry.mode",
			Message: "mode is required",
		})
	} else if !validModes[cfg.Mode] {
		errs = append(errs, FieldError{
			Field:   "registry.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'file' or 'git'", cfg.Mode),
		})
	}

	if cfg.Mode == "file" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "registry.path",
			Message: "path is required when mode is 'file'",
		})
	}

	if cfg.Mode == "git" {
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "registry.git.repository",
				Message: "git repository is required when mode is 'git'",
			})
		}
		if cfg.Git.Branch == "" {
			errs = append(errs, FieldError{
				Field:   "registry.git.branch",
				Message: "git branch is required when mode is 'git'",
			})
		}
		validAuth := map[string]bool{"none": true, "token": true, "ssh": true}
		if !validAuth[cfg.Git.Auth.Type] {
			errs = append(errs, FieldError{
				Field:   "registry.git.auth.type",
				Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token' or 'ssh'", cfg.Git.Auth.Type),
			})
		}
		if cfg.Git.Auth.Type == "token" && cfg.Git.Auth.Token == "" {
			errs = append(errs, FieldError{
				Field:   "registry.git.auth.token",
				Message: "token is required when auth type is 'token'",
			})
		}
		if cfg.Git.Auth.Type == "ssh" && cfg.Git.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{
				Field:   "registry.git.auth.ssh_key_path",
				Message: "ssh key path is required when auth type is 'ssh'",
			})
		}
	}

	if cfg.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ReloadSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "registry.reload_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "registry.debounce_interval",
			Message: "debounce interval must be non-negative",
		})
	}
	if cfg.ReloadTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "registry.reload_timeout",
			Message: "reload timeout must be positive",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "registry.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.MaxFileSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "registry.max_file_size",
			Message: "max file size must be positive",
		})
	}

	return errs
}

func validateEvaluation(cfg *EvaluationConfig) []FieldError {
	if cfg.Workers < 1 {
		return []FieldError{{
			Field:   "evaluation.workers",
			Message: fmt.Sprintf("workers must be at least 1, got %d", cfg.Workers),
		}}
	}
	return nil
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Enabled && cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "evidence.sqlite.path",
			Message: "sqlite path is required when backend is 'sqlite'",
		})
	}
	if cfg.SQLite.MaxOpenConns < 1 {
		errs = append(errs, FieldError{
			Field:   "evidence.sqlite.max_open_conns",
			Message: "max open connections must be at least 1",
		})
	}
	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "evidence.retention.max_age",
			Message: "max age must be non-negative",
		})
	}
	if cfg.Retention.MaxAge > 0 {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "evidence.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if !strings.Contains(cfg.ListenAddress, ":") {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: expected host:port", cfg.ListenAddress),
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be non-negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Enabled && !strings.HasPrefix(cfg.Health.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.path",
			Message: "health path must start with /",
		})
	}

	return errs
}
