package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/registry"
)

var tracer = otel.Tracer("sta-hq/verdict/pkg/engine")

// Engine evaluates envelopes against the snapshot held by a registry.Store.
// It is safe for concurrent use.
type Engine struct {
	store  *registry.Store
	opts   Options
	logger *slog.Logger
}

// New creates an engine reading rules from store.
func New(store *registry.Store, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		store:  store,
		opts:   opts,
		logger: opts.Logger.With("component", "engine"),
	}
}

// Snapshot returns the snapshot the next evaluation will use.
func (e *Engine) Snapshot() *registry.Snapshot {
	return e.store.Current()
}

// Evaluate evaluates one envelope against the current snapshot. The only
// error it returns is an *envelope.InvalidEnvelopeError.
func (e *Engine) Evaluate(ctx context.Context, env *envelope.Envelope) (Result, error) {
	snap := e.store.Current()

	_, span := tracer.Start(ctx, "engine.Evaluate")
	defer span.End()

	res, err := e.evaluate(snap, env)
	span.SetAttributes(
		attribute.String("verdict.envelope_id", res.EnvelopeID),
		attribute.String("verdict.signal_id", res.SignalID),
		attribute.String("verdict.registry.version", res.RegistryVersion),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(
		attribute.String("verdict.escalation", res.Escalation.String()),
		attribute.Int("verdict.violations", len(res.Violations)),
	)
	return res, nil
}

// EvaluateAll evaluates envs against one snapshot and returns one item per
// envelope in input order. Items not started before ctx is cancelled carry
// ctx.Err().
func (e *Engine) EvaluateAll(ctx context.Context, envs []*envelope.Envelope) []BatchItem {
	items := make([]envelope.Item, len(envs))
	for i, env := range envs {
		items[i] = envelope.Item{Envelope: env}
	}
	return e.EvaluateItems(ctx, items)
}

// EvaluateItems is EvaluateAll over decoded records. Records that failed
// to decode keep their decode error and are counted as invalid.
func (e *Engine) EvaluateItems(ctx context.Context, items []envelope.Item) []BatchItem {
	snap := e.store.Current()

	ctx, span := tracer.Start(ctx, "engine.EvaluateAll", trace.WithAttributes(
		attribute.Int("verdict.batch.size", len(items)),
		attribute.String("verdict.registry.version", snap.Version()),
		attribute.Int("verdict.registry.rules", snap.Len()),
	))
	defer span.End()

	out := make([]BatchItem, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i, item := range items {
		if err := gctx.Err(); err != nil {
			out[i] = BatchItem{Index: i, Err: err}
			continue
		}
		g.Go(func() error {
			out[i] = e.evaluateItem(snap, i, item)
			return nil
		})
	}
	_ = g.Wait()

	invalid := 0
	for _, item := range out {
		if item.Err != nil {
			invalid++
		}
	}
	span.SetAttributes(attribute.Int("verdict.batch.invalid", invalid))
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	e.logger.Debug("batch evaluated",
		"envelopes", len(items),
		"invalid", invalid,
		"registry_version", snap.Version(),
	)

	return out
}

func (e *Engine) evaluateItem(snap *registry.Snapshot, i int, item envelope.Item) BatchItem {
	if item.Err != nil {
		e.recordInvalid(item.Err)
		return BatchItem{Index: i, Err: item.Err}
	}
	if item.Envelope == nil {
		err := &envelope.InvalidEnvelopeError{Reason: "no envelope"}
		e.recordInvalid(err)
		return BatchItem{Index: i, Err: err}
	}
	res, err := e.evaluate(snap, item.Envelope)
	return BatchItem{Index: i, Result: res, Err: err}
}

// evaluate is the pure core shared by Evaluate and the batch path.
func (e *Engine) evaluate(snap *registry.Snapshot, env *envelope.Envelope) (Result, error) {
	if env == nil {
		err := &envelope.InvalidEnvelopeError{Reason: "no envelope"}
		e.recordInvalid(err)
		return Result{RegistryVersion: snap.Version()}, err
	}

	start := time.Now()

	res := Result{
		EnvelopeID:          env.ID(),
		SignalID:            env.SignalID(),
		StructuralRiskScore: env.StructuralRiskScore(),
		RegistryVersion:     snap.Version(),
	}
	if err := env.Validate(); err != nil {
		e.recordInvalid(err)
		return res, err
	}

	res.Violations = snap.Violations(env.SignalID(), env)

	decision := snap.Policy().Explain(res.StructuralRiskScore, res.Violations)
	res.Escalation = decision.Level
	res.ScoreLevel = decision.ScoreLevel
	res.FloorLevel = decision.FloorLevel

	if e.opts.CheckConformance {
		if def, ok := snap.Signal(env.SignalID()); ok {
			res.Nonconformances = def.Conforms(env)
		}
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordEvaluation(res.SignalID, res.Escalation.String(), time.Since(start), res.RuleIDs())
	}

	return res, nil
}

func (e *Engine) recordInvalid(err error) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordInvalidEnvelope()
	}
	var invalid *envelope.InvalidEnvelopeError
	if errors.As(err, &invalid) {
		e.logger.Warn("invalid envelope", "envelope_id", invalid.EnvelopeID, "error", err)
		return
	}
	e.logger.Warn("undecodable record", "error", err)
}
