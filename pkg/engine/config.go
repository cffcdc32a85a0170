package engine

import (
	"log/slog"
	"runtime"
	"time"
)

// Recorder receives evaluation metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordEvaluation(signalID, escalation string, duration time.Duration, ruleIDs []string)
	RecordInvalidEnvelope()
}

// Options configures an Engine.
type Options struct {
	// Workers bounds concurrent evaluations in EvaluateAll.
	// Default: runtime.NumCPU().
	Workers int

	// CheckConformance compares each envelope with its signal definition
	// and reports mismatches on the result. It never changes the verdict.
	CheckConformance bool

	// Metrics, if set, records every evaluation.
	Metrics Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
