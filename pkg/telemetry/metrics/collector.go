package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sta-hq/verdict/pkg/config"
	"sta-hq/verdict/pkg/registry"
)

// otherLabel replaces label values once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns every Prometheus metric verdict exports. It is safe for
// concurrent use, and a nil *Collector is a valid no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	evaluationMetrics *EvaluationMetrics
	registryMetrics   *RegistryMetrics
	evidenceMetrics   *EvidenceMetrics

	// Rule ids come from loaded packs, so they are bounded here rather
	// than trusted.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics. If registry
// is nil a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "verdict"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "verdict"
	}
	if len(cfg.DurationBuckets) == 0 {
		// Evaluations are in-memory tree walks (10µs - 50ms)
		cfg.DurationBuckets = []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}

	c.evaluationMetrics = NewEvaluationMetrics(cfg, registry)
	c.registryMetrics = NewRegistryMetrics(cfg, registry)
	c.evidenceMetrics = NewEvidenceMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEvaluation records one evaluated envelope.
//
// Parameters:
//   - signalID: signal the envelope was routed to
//   - escalation: final escalation level ("none", "advisory", ...)
//   - duration: time spent evaluating rules and computing the decision
//   - ruleIDs: rules that matched
//
// Example:
//
//	collector.RecordEvaluation("exposure", "board_review", 80*time.Microsecond,
//		[]string{"R-EXP-001"})
func (c *Collector) RecordEvaluation(signalID, escalation string, duration time.Duration, ruleIDs []string) {
	if !c.enabled() {
		return
	}

	if !c.cardinalityLimiter.Allow("signal:" + signalID) {
		signalID = otherLabel
	}
	c.evaluationMetrics.RecordEvaluation(signalID, escalation, duration)

	for _, id := range ruleIDs {
		if !c.cardinalityLimiter.Allow("rule:" + id) {
			id = otherLabel
		}
		c.evaluationMetrics.RecordMatch(id)
	}
}

// RecordInvalidEnvelope records an envelope rejected before evaluation.
func (c *Collector) RecordInvalidEnvelope() {
	if !c.enabled() {
		return
	}

	c.evaluationMetrics.RecordInvalid()
}

// ObserveReload implements registry.ReloadObserver.
func (c *Collector) ObserveReload(result string, duration time.Duration, snap *registry.Snapshot) {
	if !c.enabled() {
		return
	}

	c.registryMetrics.RecordReload(result, duration)
	if snap != nil {
		c.registryMetrics.UpdateRules(snap.Len())
	}
}

// RecordEvidence records the outcome of a ledger write ("ok" or "error").
func (c *Collector) RecordEvidence(status string) {
	if !c.enabled() {
		return
	}

	c.evidenceMetrics.RecordWrite(status)
}

// RecordPruned records records removed by a retention run.
func (c *Collector) RecordPruned(n int64) {
	if !c.enabled() {
		return
	}

	c.evidenceMetrics.RecordPruned(n)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values tracked.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label set may be used. Known label sets are
// always allowed; new ones are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
