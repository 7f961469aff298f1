package usage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig controls scheduled ledger pruning.
type SchedulerConfig struct {
	// Schedule is a standard cron expression ("0 3 * * *" runs daily at
	// 3 AM). Empty disables scheduled pruning.
	Schedule string

	// Retention is how long rows are kept.
	Retention time.Duration
}

// Scheduler prunes old usage rows on a cron schedule.
type Scheduler struct {
	store   *Store
	config  SchedulerConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a retention scheduler over the store.
func NewScheduler(store *Store, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "usage.scheduler"),
	}
}

// Start begins scheduled pruning. It validates the cron expression and
// stops the scheduler when ctx is cancelled. An empty schedule is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runPruning(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("usage retention scheduler started",
		"schedule", s.config.Schedule,
		"retention", s.config.Retention.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runPruning(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.Retention)

	deleted, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduled usage pruning failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled usage pruning completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled usage pruning completed, no rows deleted")
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("usage retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
