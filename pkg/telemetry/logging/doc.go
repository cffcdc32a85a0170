// Package logging builds the log/slog loggers used across verdict.
//
// Every component takes a *slog.Logger and tags it with a "component"
// attribute. This package turns the telemetry logging configuration into
// that logger:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, nil)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	reg := logging.Component(logger, "registry")
//
// Records logged with a context carry run_id, envelope_id, registry_version
// and the active trace and span ids:
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "run started")
//
// Repository credentials are redacted before they reach the handler.
package logging
