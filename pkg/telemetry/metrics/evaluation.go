package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sta-hq/verdict/pkg/config"
)

// EvaluationMetrics tracks envelope evaluation.
//
// Metrics:
//   - verdict_evaluations_total: evaluated envelopes by signal and escalation
//   - verdict_evaluation_duration_seconds: time to evaluate one envelope
//   - verdict_rule_matches_total: rule matches by rule id
//   - verdict_invalid_envelopes_total: envelopes rejected before evaluation
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	ruleMatchesTotal   *prometheus.CounterVec
	invalidTotal       prometheus.Counter
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluations_total",
				Help:      "Total number of evaluated envelopes",
			},
			[]string{"signal_id", "escalation"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of a single envelope evaluation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_matches_total",
				Help:      "Total number of rule matches",
			},
			[]string{"rule_id"},
		),

		invalidTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "invalid_envelopes_total",
				Help:      "Total number of envelopes rejected as invalid",
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.ruleMatchesTotal,
		em.invalidTotal,
	)

	return em
}

// RecordEvaluation records one evaluation and its duration.
func (em *EvaluationMetrics) RecordEvaluation(signalID, escalation string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(signalID, escalation).Inc()
	em.evaluationDuration.Observe(duration.Seconds())
}

// RecordMatch records a rule match.
func (em *EvaluationMetrics) RecordMatch(ruleID string) {
	em.ruleMatchesTotal.WithLabelValues(ruleID).Inc()
}

// RecordInvalid records a rejected envelope.
func (em *EvaluationMetrics) RecordInvalid() {
	em.invalidTotal.Inc()
}
