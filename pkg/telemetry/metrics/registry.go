package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sta-hq/verdict/pkg/config"
)

// RegistryMetrics tracks rule registry reloads.
//
// Metrics:
//   - verdict_registry_reloads_total: reload attempts by result
//   - verdict_registry_reload_duration_seconds: reload duration
//   - verdict_registry_rules: rules in the active snapshot
type RegistryMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	rules          prometheus.Gauge
}

// NewRegistryMetrics creates and registers registry metrics.
func NewRegistryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RegistryMetrics {
	rm := &RegistryMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "registry",
				Name:      "reloads_total",
				Help:      "Total number of registry reload attempts",
			},
			[]string{"result"},
		),

		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "registry",
				Name:      "reload_duration_seconds",
				Help:      "Duration of registry reloads in seconds",
				// Local reads are milliseconds, git pulls can take seconds
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),

		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "registry",
				Name:      "rules",
				Help:      "Number of rules in the active registry snapshot",
			},
		),
	}

	registry.MustRegister(
		rm.reloadsTotal,
		rm.reloadDuration,
		rm.rules,
	)

	return rm
}

// RecordReload records a reload attempt.
func (rm *RegistryMetrics) RecordReload(result string, duration time.Duration) {
	rm.reloadsTotal.WithLabelValues(result).Inc()
	rm.reloadDuration.Observe(duration.Seconds())
}

// UpdateRules sets the active rule count.
func (rm *RegistryMetrics) UpdateRules(n int) {
	rm.rules.Set(float64(n))
}
