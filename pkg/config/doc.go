// Package config provides configuration management for verdict.
//
// Configuration is read from a YAML file, layered over defaults and
// overridden by environment variables:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("verdict.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VERDICT_SECTION_FIELD.
// For example:
//
//   - VERDICT_REGISTRY_PATH overrides registry.path
//   - VERDICT_EVALUATION_WORKERS overrides evaluation.workers
//   - VERDICT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Process-wide configuration
//
// Commands install the active configuration with Use and read it back with
// Current. Library code takes an explicit *Config.
package config
