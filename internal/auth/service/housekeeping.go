package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/ratelimit"
)

// HousekeepingService periodically cleans up expired refresh tokens, idle
// rate limit buckets, and stale failed-attempt counters so none of them
// grow without bound.
type HousekeepingService struct {
	Store      store.Store
	Buckets    *ratelimit.Registry
	Attempts   *AttemptRegistry
	Logger     *slog.Logger
	Interval   time.Duration
	BucketIdle time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service.
// A zero or negative interval defaults to 1 hour, as does bucketIdle.
func NewHousekeepingService(
	st store.Store,
	buckets *ratelimit.Registry,
	attempts *AttemptRegistry,
	logger *slog.Logger,
	interval, bucketIdle time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if bucketIdle <= 0 {
		bucketIdle = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:      st,
		Buckets:    buckets,
		Attempts:   attempts,
		Logger:     logger,
		Interval:   interval,
		BucketIdle: bucketIdle,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
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

// cleanup performs the actual sweeps. Each sweep is independent - a failure
// in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Info("starting housekeeping cleanup")

	// Clean expired refresh tokens
	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		s.Logger.Debug("deleted expired refresh tokens")
	}

	// Drop idle rate limit buckets
	evicted := s.Buckets.Sweep(s.BucketIdle)
	s.Logger.Debug("swept idle rate limit buckets", "evicted", evicted)

	// Drop stale failed-attempt counters
	dropped := s.Attempts.SweepStale(s.BucketIdle)
	s.Logger.Debug("swept stale attempt counters", "dropped", dropped)

	s.Logger.Info("housekeeping cleanup completed")
}
