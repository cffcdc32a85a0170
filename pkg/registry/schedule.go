package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Schedule runs a job on a cron schedule, for example periodic reloads of
// a Git-backed rule pack. Specs use the standard five-field syntax or
// descriptors such as "@every 5m".
type Schedule struct {
	spec   string
	cron   *cron.Cron
	job    func(context.Context)
	logger *slog.Logger
}

// NewSchedule validates spec and returns a schedule for job.
func NewSchedule(spec string, job func(context.Context), logger *slog.Logger) (*Schedule, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Schedule{
		spec:   spec,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:    job,
		logger: logger.With("component", "registry.schedule"),
	}, nil
}

// Run starts the schedule and blocks until ctx is cancelled. It waits for a
// running job to finish before returning.
func (s *Schedule) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.job(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("reload schedule started", "schedule", s.spec)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("reload schedule stopped")
	return nil
}

// ReloadJob adapts a Reloader to a scheduled or watched job. Failures are
// logged by the Reloader and otherwise ignored.
func ReloadJob(r *Reloader) func(context.Context) {
	return func(ctx context.Context) {
		_, _ = r.Reload(ctx)
	}
}
