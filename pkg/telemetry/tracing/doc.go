// Package tracing configures OpenTelemetry tracing for verdict.
//
// When enabled, spans are exported over OTLP gRPC and the provider is
// installed globally. Packages create spans with otel.Tracer, so they need
// no reference to this package:
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Sampling is parent based with a trace id ratio taken from
// TracingConfig.SampleRatio. When tracing is disabled the global noop
// provider stays in place.
package tracing
