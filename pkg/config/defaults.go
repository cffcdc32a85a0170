package config

import (
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	// Registry defaults
	DefaultRegistryMode              = "file"
	DefaultRegistryPath              = "./rules"
	DefaultRegistryDebounceInterval  = 250 * time.Millisecond
	DefaultRegistryReloadTimeout     = 30 * time.Second
	DefaultRegistryMaxRetries        = 3
	DefaultRegistryMaxFileSize       = int64(1048576) // 1MB
	DefaultRegistryRequireCompatible = true
	DefaultGitBranch                 = "main"
	DefaultGitTimeout                = 30 * time.Second
	DefaultGitCloneDepth             = 1
	DefaultGitAuthType               = "none"

	// Evidence defaults
	DefaultEvidenceBackend            = "sqlite"
	DefaultEvidenceSQLitePath         = "data/verdicts.db"
	DefaultEvidenceSQLiteMaxOpenConns = 4
	DefaultEvidenceSQLiteWALMode      = true
	DefaultEvidenceSQLiteBusyTimeout  = 5 * time.Second
	DefaultEvidenceRetentionSchedule  = "0 3 * * *"
	DefaultReportTitle                = "Verdict Run Report"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9464"
	DefaultReadTimeout     = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "verdict"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "verdict"
	DefaultTracingInsecure     = true
	DefaultTracingTimeout      = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultHealthPath          = "/healthz"
)

// DefaultDurationBuckets are the evaluation latency buckets in seconds.
var DefaultDurationBuckets = []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}

// NewDefaultConfig returns a configuration with every default applied,
// including boolean settings that default to true. File values are decoded
// on top of it so that omitted keys keep their defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Registry.RequireCompatible = DefaultRegistryRequireCompatible
	cfg.Evidence.SQLite.WALMode = DefaultEvidenceSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields are left alone because false is a meaningful setting; use
// NewDefaultConfig for a fully defaulted value.
func ApplyDefaults(cfg *Config) {
	// Registry defaults
	if cfg.Registry.Mode == "" {
		cfg.Registry.Mode = DefaultRegistryMode
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = DefaultRegistryPath
	}
	if cfg.Registry.DebounceInterval == 0 {
		cfg.Registry.DebounceInterval = DefaultRegistryDebounceInterval
	}
	if cfg.Registry.ReloadTimeout == 0 {
		cfg.Registry.ReloadTimeout = DefaultRegistryReloadTimeout
	}
	if cfg.Registry.MaxRetries == 0 {
		cfg.Registry.MaxRetries = DefaultRegistryMaxRetries
	}
	if cfg.Registry.MaxFileSize == 0 {
		cfg.Registry.MaxFileSize = DefaultRegistryMaxFileSize
	}

	// Git defaults
	if cfg.Registry.Git.Branch == "" {
		cfg.Registry.Git.Branch = DefaultGitBranch
	}
	if cfg.Registry.Git.Timeout == 0 {
		cfg.Registry.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Registry.Git.Clone.Depth == 0 {
		cfg.Registry.Git.Clone.Depth = DefaultGitCloneDepth
	}
	if cfg.Registry.Git.Auth.Type == "" {
		cfg.Registry.Git.Auth.Type = DefaultGitAuthType
	}

	// Evaluation defaults
	if cfg.Evaluation.Workers == 0 {
		cfg.Evaluation.Workers = runtime.NumCPU()
	}

	// Evidence defaults
	if cfg.Evidence.Backend == "" {
		cfg.Evidence.Backend = DefaultEvidenceBackend
	}
	if cfg.Evidence.SQLite.Path == "" {
		cfg.Evidence.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if cfg.Evidence.SQLite.MaxOpenConns == 0 {
		cfg.Evidence.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if cfg.Evidence.SQLite.BusyTimeout == 0 {
		cfg.Evidence.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if cfg.Evidence.Retention.PruneSchedule == "" {
		cfg.Evidence.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	}

	// Report defaults
	if cfg.Report.Title == "" {
		cfg.Report.Title = DefaultReportTitle
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.Path == "" {
		cfg.Telemetry.Health.Path = DefaultHealthPath
	}
}
