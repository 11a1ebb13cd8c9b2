package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/store"
)

// HousekeepingService periodically drops revocation entries for refresh
// tokens that have expired anyway, and closed second-factor failure windows.
type HousekeepingService struct {
	Revocations store.RevokedTokens
	Attempts    store.TwoFactorAttempts
	Logger      *slog.Logger
	Interval    time.Duration

	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(revocations store.RevokedTokens, attempts store.TwoFactorAttempts, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Revocations: revocations,
		Attempts:    attempts,
		Logger:      logger,
		Interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup. It is a
// no-op when the worker never started.
func (s *HousekeepingService) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()
	now := time.Now()

	revocations, err := s.Revocations.DeleteExpired(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
		return
	}

	var attempts int64
	if s.Attempts != nil {
		if attempts, err = s.Attempts.DeleteExpired(ctx, now); err != nil {
			s.Logger.Error("failed to delete expired two-factor attempts", "error", err)
			return
		}
	}

	s.Logger.Info("housekeeping cleanup completed",
		"revocations_deleted", revocations,
		"attempts_deleted", attempts,
	)
}
