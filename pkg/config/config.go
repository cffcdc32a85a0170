package config

import "time"

// Config is the root configuration structure for verdict.
type Config struct {
	// Registry controls where rule packs come from and how they are reloaded.
	Registry RegistryConfig `yaml:"registry"`

	// Evaluation contains batch evaluation settings.
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Evidence contains configuration for the verdict ledger.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Report contains default output locations for run reports.
	Report ReportConfig `yaml:"report"`

	// Server configures the HTTP listener used by "verdict run" for
	// metrics and health endpoints.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RegistryConfig configures rule pack loading.
type RegistryConfig struct {
	// Mode specifies how rule packs are loaded.
	// Options: "file" (local file or directory), "git" (Git repository)
	// Default: "file"
	Mode string `yaml:"mode"`

	// Path is the rule pack file or directory when Mode is "file".
	// Default: "./rules"
	Path string `yaml:"path"`

	// Git contains repository settings used when Mode is "git".
	Git GitConfig `yaml:"git"`

	// Watch enables reloading when files under Path change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period after a file event before reloading.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// ReloadSchedule is an optional cron expression for periodic reloads,
	// e.g. "@every 5m" or "*/10 * * * *". Empty disables scheduled reloads.
	ReloadSchedule string `yaml:"reload_schedule"`

	// ReloadTimeout bounds a single reload attempt including retries.
	// Default: 30s
	ReloadTimeout time.Duration `yaml:"reload_timeout"`

	// MaxRetries is the number of additional attempts after a failed load.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// MaxFileSize is the largest rule pack file accepted, in bytes.
	// Default: 1048576 (1MB)
	MaxFileSize int64 `yaml:"max_file_size"`

	// RequireCompatible rejects reloads that fail the compatibility check.
	// Default: true
	RequireCompatible bool `yaml:"require_compatible"`
}

// GitConfig configures Git-based rule pack loading.
type GitConfig struct {
	// Repository URL (HTTPS or SSH).
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to the rule pack file or directory.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Timeout for clone and pull operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Clone configures repository cloning.
	Clone GitCloneConfig `yaml:"clone"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh" or "none".
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication. Required when Type is "token".
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication. Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitCloneConfig configures repository cloning.
type GitCloneConfig struct {
	// Depth for shallow clones (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// LocalPath where the repository is cloned.
	// Default: system temp directory
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes the local clone before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// EvaluationConfig configures batch evaluation.
type EvaluationConfig struct {
	// Workers bounds how many envelopes are evaluated concurrently.
	// Default: number of CPUs
	Workers int `yaml:"workers"`

	// CheckConformance reports signal definition mismatches alongside
	// each result. It never changes the verdict.
	// Default: false
	CheckConformance bool `yaml:"check_conformance"`
}

// EvidenceConfig configures the verdict ledger.
type EvidenceConfig struct {
	// Enabled controls whether verdicts are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention controls pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/verdicts.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig controls how long verdict records are kept.
type RetentionConfig struct {
	// MaxAge is the age after which records are pruned (0 = keep forever).
	// Default: 0
	MaxAge time.Duration `yaml:"max_age"`

	// PruneSchedule is the cron expression for pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// ReportConfig contains default output paths for "verdict evaluate".
type ReportConfig struct {
	// JSONPath is where the JSON run report is written. Empty disables it.
	JSONPath string `yaml:"json_path"`

	// MarkdownPath is where the Markdown summary is written. Empty disables it.
	MarkdownPath string `yaml:"markdown_path"`

	// Title is the heading of the Markdown summary.
	// Default: "Verdict Run Report"
	Title string `yaml:"title"`
}

// ServerConfig configures the operational HTTP listener.
type ServerConfig struct {
	// ListenAddress is the address for /metrics and /healthz.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "verdict"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for evaluation duration (seconds).
	// Default: [0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "verdict"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether the health endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the health endpoint path.
	// Default: "/healthz"
	Path string `yaml:"path"`
}
