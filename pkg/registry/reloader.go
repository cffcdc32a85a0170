package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"sta-hq/verdict/pkg/compat"
)

// Reload outcomes reported to a ReloadObserver.
const (
	ReloadSuccess   = "success"
	ReloadUnchanged = "unchanged"
	ReloadRejected  = "rejected"
	ReloadError     = "error"
)

// ReloadObserver receives the outcome of every reload attempt.
type ReloadObserver interface {
	ObserveReload(result string, duration time.Duration, snap *Snapshot)
}

// ReloaderOptions configures a Reloader.
type ReloaderOptions struct {
	// Timeout bounds one Reload call including retries (0 = no bound).
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a failed load.
	MaxRetries int

	// InitialBackoff is the first retry delay. Later delays grow exponentially.
	InitialBackoff time.Duration

	// RequireCompatible rejects snapshots that fail the compatibility check
	// against the current snapshot.
	RequireCompatible bool

	// Observer, if set, is told about every reload.
	Observer ReloadObserver

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Reloader loads a fresh snapshot from a Source and swaps it into a Store.
// Reloads are serialised; readers of the Store are never blocked.
type Reloader struct {
	store  *Store
	source Source
	loader *Loader
	opts   ReloaderOptions
	logger *slog.Logger

	mu sync.Mutex
}

// NewReloader creates a reloader.
func NewReloader(store *Store, source Source, loader *Loader, opts ReloaderOptions) *Reloader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = NewLoader(nil, logger)
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 100 * time.Millisecond
	}
	return &Reloader{
		store:  store,
		source: source,
		loader: loader,
		opts:   opts,
		logger: logger.With("component", "registry.reloader", "source", source.String()),
	}
}

// Reload fetches and loads the source, runs the compatibility guard against
// the current snapshot and swaps the new snapshot in. On any failure the
// current snapshot stays in place and the error is returned. A snapshot
// whose version equals the current one is not swapped.
func (r *Reloader) Reload(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.Reload")
	defer span.End()

	start := time.Now()
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	next, err := r.load(ctx)
	if err != nil {
		r.finish(ReloadError, start, nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		r.logger.Error("rule pack reload failed", "error", err)
		return nil, err
	}

	current := r.store.Current()
	span.SetAttributes(
		attribute.String("registry.pack_id", next.Pack().ID),
		attribute.String("registry.pack_version", next.Pack().Version),
		attribute.String("registry.version", next.Version()),
		attribute.Int("registry.rules", next.Len()),
	)

	if current.Version() == next.Version() {
		r.finish(ReloadUnchanged, start, current)
		r.logger.Debug("rule pack unchanged", "version", current.Version())
		return current, nil
	}

	if r.opts.RequireCompatible && !isEmpty(current) {
		report := compat.Check(current.Revision(), next.Revision())
		if err := report.Err(); err != nil {
			r.finish(ReloadRejected, start, nil)
			span.RecordError(err)
			span.SetStatus(codes.Error, "incompatible")
			r.logger.Warn("rule pack reload rejected",
				"old_version", report.OldVersion,
				"new_version", report.NewVersion,
				"violations", len(report.Violations),
				"error", err,
			)
			return nil, err
		}
	}

	r.store.Swap(next)
	r.finish(ReloadSuccess, start, next)
	r.logger.Info("rule pack reloaded",
		"pack_id", next.Pack().ID,
		"pack_version", next.Pack().Version,
		"version", next.Version(),
		"previous_version", current.Version(),
		"rules", next.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return next, nil
}

// load fetches and loads with exponential backoff between attempts.
func (r *Reloader) load(ctx context.Context) (*Snapshot, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialBackoff

	attempt := 0
	snap, err := backoff.Retry(ctx, func() (*Snapshot, error) {
		attempt++
		path, err := r.source.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", r.source, err)
		}
		return r.loader.Load(ctx, path)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("rule pack load attempt failed, retrying",
				"attempt", attempt,
				"retry_in", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &LoadError{Path: r.source.String(), Message: "reload timed out", Cause: err}
		}
		return nil, err
	}
	return snap, nil
}

func (r *Reloader) finish(result string, start time.Time, snap *Snapshot) {
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveReload(result, time.Since(start), snap)
	}
}

// isEmpty reports whether s is the placeholder installed before the first load.
func isEmpty(s *Snapshot) bool {
	return s.Pack().ID == "" && s.Len() == 0
}

const tracerName = "sta-hq/verdict/pkg/registry"
