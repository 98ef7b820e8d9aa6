// Package maintenance runs the periodic order retention job.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/xivishop/xivi/internal/services"
)

type cleanupRunner interface {
	Run(ctx context.Context) (*services.CleanupResult, error)
}

// Scheduler ticks once a day and triggers the retention cleanup on the first
// day of each month. A failed run is retried on the next tick; the date gate
// below keeps retries inside day one of the month.
type Scheduler struct {
	runner   cleanupRunner
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	lastRun time.Time
}

const defaultInterval = 24 * time.Hour

func NewScheduler(runner cleanupRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: defaultInterval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, firing the cleanup on schedule.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retention scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.shouldRun(s.now()) {
		return
	}
	s.logger.Info("starting scheduled retention cleanup")
	result, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled retention cleanup failed", "error", err)
		return
	}
	s.logger.Info("scheduled retention cleanup finished",
		"archived", result.Archived, "deleted", result.Deleted)
	s.lastRun = s.now()
}

// shouldRun gates runs to the first day of the month and suppresses a second
// successful run within the same month.
func (s *Scheduler) shouldRun(now time.Time) bool {
	if now.Day() != 1 {
		return false
	}
	if !s.lastRun.IsZero() &&
		s.lastRun.Year() == now.Year() && s.lastRun.Month() == now.Month() {
		return false
	}
	return true
}
