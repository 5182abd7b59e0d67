package application

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler triggers refresh cycles on a fixed interval. The first cycle runs
// immediately on start.
type Scheduler struct {
	refreshService *RefreshService
	interval       time.Duration
	logger         *slog.Logger
}

// NewScheduler creates a new Scheduler driving the given refresh service.
func NewScheduler(refreshService *RefreshService, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refreshService: refreshService,
		interval:       interval,
		logger:         logger,
	}
}

// Run blocks until ctx is cancelled, refreshing immediately and then every
// interval. A cycle already running when the tick fires is left alone.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	_, err := s.refreshService.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRefreshInProgress):
		s.logger.Debug("skipping scheduled refresh, cycle still running")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error("scheduled refresh failed", "error", err)
	}
}
