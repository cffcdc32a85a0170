package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sta-hq/verdict/pkg/config"
	"sta-hq/verdict/pkg/telemetry/health"
	"sta-hq/verdict/pkg/telemetry/logging"
	"sta-hq/verdict/pkg/telemetry/metrics"
	"sta-hq/verdict/pkg/telemetry/tracing"
)

// Telemetry holds the initialised logger, metrics collector, tracer and
// health checker.
type Telemetry struct {
	config  *config.TelemetryConfig
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// Options adjusts New.
type Options struct {
	// LogWriter receives log output (default os.Stderr).
	LogWriter io.Writer
}

// New initialises every component from cfg.
func New(ctx context.Context, cfg *config.TelemetryConfig, version string, opts ...Options) (*Telemetry, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	logger, err := logging.New(cfg.Logging, o.LogWriter)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	tracer, err := tracing.New(ctx, &cfg.Tracing, version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	return &Telemetry{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(5 * time.Second),
	}, nil
}

// Logger returns the root logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Mount registers the enabled metrics and health endpoints on mux.
func (t *Telemetry) Mount(mux *http.ServeMux, version, commit, buildTime string) {
	if t.config.Metrics.Enabled {
		mux.Handle(t.config.Metrics.Path, t.metrics.Handler())
	}
	if t.config.Health.Enabled {
		health.Register(mux, t.config.Health.Path, t.health, version, commit, buildTime)
	}
}

// Handler returns mux wrapped in trace propagation.
func (t *Telemetry) Handler(mux *http.ServeMux) http.Handler {
	if t.tracer.Enabled() {
		return tracing.HTTPMiddleware(mux)
	}
	return mux
}

// Shutdown flushes the tracer.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
