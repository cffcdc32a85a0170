// Package recorder turns engine results into ledger records and writes them
// to an evidence.Storage, either synchronously per batch or through an
// asynchronous queue for long-running sessions.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sta-hq/verdict/pkg/engine"
	"sta-hq/verdict/pkg/evidence"
	"sta-hq/verdict/pkg/registry"
)

// Write outcomes reported to Metrics.
const (
	StatusStored  = "stored"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

// Metrics receives one call per record write attempt.
// *metrics.Collector satisfies it.
type Metrics interface {
	RecordEvidence(status string)
}

// Options configures a Recorder.
type Options struct {
	// Metrics is optional.
	Metrics Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// AsyncBuffer is the queue size used by Start.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each asynchronous write.
	// Default: 5s
	WriteTimeout time.Duration

	// Now is the clock used for RecordedAt. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.AsyncBuffer <= 0 {
		o.AsyncBuffer = 1000
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Recorder builds and persists verdict records.
type Recorder struct {
	storage evidence.Storage
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	queue   chan *evidence.Record
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a recorder writing to storage.
func New(storage evidence.Storage, opts Options) *Recorder {
	opts = opts.withDefaults()
	return &Recorder{
		storage: storage,
		opts:    opts,
		logger:  opts.Logger.With("component", "evidence.recorder"),
	}
}

// Build creates the record for res. snap supplies the pack identity and may
// be nil.
func (r *Recorder) Build(runID string, snap *registry.Snapshot, res engine.Result) (*evidence.Record, error) {
	hash, err := HashResult(res)
	if err != nil {
		return nil, evidence.NewRecorderError(res.EnvelopeID, err)
	}

	record := &evidence.Record{
		ID:                  uuid.NewString(),
		RunID:               runID,
		RecordedAt:          r.opts.Now().UTC(),
		EnvelopeID:          res.EnvelopeID,
		SignalID:            res.SignalID,
		StructuralRiskScore: res.StructuralRiskScore,
		Escalation:          res.Escalation.String(),
		ScoreLevel:          res.ScoreLevel.String(),
		FloorLevel:          res.FloorLevel.String(),
		RuleIDs:             res.RuleIDs(),
		ViolationCount:      len(res.Violations),
		RegistryVersion:     res.RegistryVersion,
		ResultHash:          hash,
	}
	if snap != nil {
		pack := snap.Pack()
		record.PackID = pack.ID
		record.PackVersion = pack.Version
	}
	return record, nil
}

// RecordBatch writes one record per successful item in a single storage
// call and returns how many were written. Items carrying an error are
// skipped.
func (r *Recorder) RecordBatch(ctx context.Context, runID string, snap *registry.Snapshot, items []engine.BatchItem) (int, error) {
	records := make([]*evidence.Record, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			continue
		}
		record, err := r.Build(runID, snap, item.Result)
		if err != nil {
			return 0, err
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	if err := r.storage.StoreBatch(ctx, records); err != nil {
		r.observe(StatusFailed, len(records))
		return 0, evidence.NewRecorderError("", err)
	}
	r.observe(StatusStored, len(records))

	r.logger.Info("verdicts recorded",
		"run_id", runID,
		"count", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return len(records), nil
}

// Start launches the background writer used by Enqueue.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.queue = make(chan *evidence.Record, r.opts.AsyncBuffer)
	r.done = make(chan struct{})
	r.started = true

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("evidence recorder started",
		"async_buffer", r.opts.AsyncBuffer,
		"write_timeout", r.opts.WriteTimeout,
	)
}

// Enqueue builds the record for res and queues it for writing without
// blocking. It returns false when the queue is full or the recorder is not
// running; the record is then dropped.
func (r *Recorder) Enqueue(runID string, snap *registry.Snapshot, res engine.Result) bool {
	record, err := r.Build(runID, snap, res)
	if err != nil {
		r.logger.Error("failed to build verdict record", "envelope_id", res.EnvelopeID, "error", err)
		r.observe(StatusFailed, 1)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		r.observe(StatusDropped, 1)
		return false
	}

	select {
	case r.queue <- record:
		return true
	default:
		r.logger.Error("evidence queue full, dropping record",
			"envelope_id", record.EnvelopeID,
			"queue_capacity", r.opts.AsyncBuffer,
		)
		r.observe(StatusDropped, 1)
		return false
	}
}

// Close stops the background writer after draining the queue.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("evidence recorder stopped")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.queue:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.queue:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *evidence.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store verdict record",
			"record_id", record.ID,
			"envelope_id", record.EnvelopeID,
			"error", err,
		)
		r.observe(StatusFailed, 1)
		return
	}
	r.observe(StatusStored, 1)

	r.logger.Debug("verdict recorded",
		"record_id", record.ID,
		"envelope_id", record.EnvelopeID,
		"escalation", record.Escalation,
	)
}

func (r *Recorder) observe(status string, n int) {
	if r.opts.Metrics == nil {
		return
	}
	for range n {
		r.opts.Metrics.RecordEvidence(status)
	}
}
