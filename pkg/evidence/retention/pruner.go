// Package retention deletes ledger records older than the configured
// maximum age, on demand or on a cron schedule.
package retention

import (
	"context"
	"log/slog"
	"time"

	"sta-hq/verdict/pkg/config"
	"sta-hq/verdict/pkg/evidence"
)

// Metrics receives the number of records removed by each prune.
type Metrics interface {
	RecordPruned(n int64)
}

// Options configures a Pruner.
type Options struct {
	Metrics Metrics
	Logger  *slog.Logger

	// Now is the clock used to compute the cutoff. Defaults to time.Now.
	Now func() time.Time
}

// Pruner enforces the retention policy on a storage backend.
type Pruner struct {
	storage evidence.Storage
	config  config.RetentionConfig
	metrics Metrics
	logger  *slog.Logger
	base    *slog.Logger
	now     func() time.Time
}

// NewPruner creates a pruner. A zero MaxAge keeps records forever.
func NewPruner(storage evidence.Storage, cfg config.RetentionConfig, opts Options) *Pruner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pruner{
		storage: storage,
		config:  cfg,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "evidence.retention"),
		base:    opts.Logger,
		now:     opts.Now,
	}
}

// Prune deletes records recorded before now minus MaxAge and returns how
// many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.MaxAge <= 0 {
		p.logger.Debug("retention disabled, nothing pruned")
		return 0, nil
	}

	// EndTime is inclusive; step back one nanosecond so a record stamped
	// exactly at the cutoff is kept.
	cutoff := p.now().Add(-p.config.MaxAge).Add(-time.Nanosecond)
	deleted, err := p.storage.Delete(ctx, &evidence.Query{EndTime: &cutoff})
	if err != nil {
		return 0, &evidence.RetentionError{MaxAge: p.config.MaxAge.String(), Cause: err}
	}

	if p.metrics != nil && deleted > 0 {
		p.metrics.RecordPruned(deleted)
	}

	if deleted == 0 {
		p.logger.Debug("no records pruned", "max_age", p.config.MaxAge)
	} else {
		p.logger.Info("evidence pruning completed",
			"deleted_count", deleted,
			"max_age", p.config.MaxAge,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}
