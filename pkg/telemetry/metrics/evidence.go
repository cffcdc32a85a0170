package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sta-hq/verdict/pkg/config"
)

// EvidenceMetrics tracks the verdict ledger.
//
// Metrics:
//   - verdict_evidence_writes_total: ledger writes by status
//   - verdict_evidence_pruned_total: records removed by retention
type EvidenceMetrics struct {
	writesTotal *prometheus.CounterVec
	prunedTotal prometheus.Counter
}

// NewEvidenceMetrics creates and registers evidence metrics.
func NewEvidenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvidenceMetrics {
	em := &EvidenceMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "evidence",
				Name:      "writes_total",
				Help:      "Total number of verdict ledger writes",
			},
			[]string{"status"},
		),
		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "evidence",
				Name:      "pruned_total",
				Help:      "Total number of verdict records removed by retention",
			},
		),
	}

	registry.MustRegister(em.writesTotal, em.prunedTotal)

	return em
}

// RecordWrite records a ledger write.
func (em *EvidenceMetrics) RecordWrite(status string) {
	em.writesTotal.WithLabelValues(status).Inc()
}

// RecordPruned adds n pruned records.
func (em *EvidenceMetrics) RecordPruned(n int64) {
	if n > 0 {
		em.prunedTotal.Add(float64(n))
	}
}
