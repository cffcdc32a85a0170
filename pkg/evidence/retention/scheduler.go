package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on the cron expression from its retention
// config, for example "0 3 * * *" for daily at 3 AM.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: pruner.base.With("component", "evidence.scheduler"),
	}
}

// Start schedules pruning until ctx is done or Stop is called. It does
// nothing when retention is disabled or no schedule is set.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.pruner.config
	if cfg.MaxAge <= 0 || cfg.PruneSchedule == "" {
		s.logger.Info("retention not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(cfg.PruneSchedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.PruneSchedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", cfg.PruneSchedule,
		"max_age", cfg.MaxAge,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled prune, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
