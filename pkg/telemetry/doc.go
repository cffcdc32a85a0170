// Package telemetry bundles the observability stack of verdict.
//
// # Components
//
//   - logging: slog loggers with context fields and credential redaction
//   - metrics: Prometheus collectors for evaluation, registry and evidence
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	tel, err := telemetry.New(ctx, &cfg.Telemetry, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tel.Logger().Info("starting")
//	reloader := registry.NewReloader(store, src, loader, registry.ReloaderOptions{
//	    Observer: tel.Metrics(),
//	})
package telemetry
