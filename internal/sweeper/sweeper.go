// Package sweeper runs the periodic deadline jobs: expiring unpaid
// transfer registrations, expiring unanswered waitlist offers, and
// auditing participant counters.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/moimlab/booking/pkg/booking"
)

const (
	defaultInterval      = time.Minute
	defaultDriftInterval = 15 * time.Minute
	failureAlertAfter    = 3
)

// Sweeper drives booking sweep operations on a ticker.
type Sweeper struct {
	service       *booking.Service
	logger        *zap.Logger
	interval      time.Duration
	driftInterval time.Duration

	consecutiveFailures int
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithInterval overrides the deadline sweep cadence.
func WithInterval(interval time.Duration) Option {
	return func(sweeper *Sweeper) {
		if interval > 0 {
			sweeper.interval = interval
		}
	}
}

// WithDriftInterval overrides the participant-count audit cadence.
func WithDriftInterval(interval time.Duration) Option {
	return func(sweeper *Sweeper) {
		if interval > 0 {
			sweeper.driftInterval = interval
		}
	}
}

func New(service *booking.Service, logger *zap.Logger, options ...Option) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	sweeper := &Sweeper{
		service:       service,
		logger:        logger,
		interval:      defaultInterval,
		driftInterval: defaultDriftInterval,
	}
	for _, option := range options {
		option(sweeper)
	}
	return sweeper
}

// Run blocks until the context is cancelled. Each tick is independent; a
// failed sweep is retried on the next tick and only repeated failures
// escalate to error level.
func (sweeper *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()
	driftTicker := time.NewTicker(sweeper.driftInterval)
	defer driftTicker.Stop()

	sweeper.logger.Info("sweeper started",
		zap.Duration("interval", sweeper.interval),
		zap.Duration("drift_interval", sweeper.driftInterval))

	for {
		select {
		case <-ctx.Done():
			sweeper.logger.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			sweeper.sweepOnce(ctx)
		case <-driftTicker.C:
			sweeper.auditCounts(ctx)
		}
	}
}

// SweepOnce runs a single deadline pass. Exposed for operational tooling
// that wants an immediate sweep.
func (sweeper *Sweeper) SweepOnce(ctx context.Context) {
	sweeper.sweepOnce(ctx)
}

func (sweeper *Sweeper) sweepOnce(ctx context.Context) {
	transferStats, transferErr := sweeper.service.ExpireTransfers(ctx)
	if transferErr != nil {
		sweeper.recordFailure("transfer sweep failed", transferErr)
	} else if transferStats.Scanned > 0 {
		sweeper.logger.Info("transfer sweep",
			zap.Int("scanned", transferStats.Scanned),
			zap.Int("expired", transferStats.Expired),
			zap.Int("skipped", transferStats.Skipped))
	}

	waitlistStats, waitlistErr := sweeper.service.ExpireWaitlistNotifications(ctx)
	if waitlistErr != nil {
		sweeper.recordFailure("waitlist sweep failed", waitlistErr)
	} else if waitlistStats.Scanned > 0 {
		sweeper.logger.Info("waitlist sweep",
			zap.Int("scanned", waitlistStats.Scanned),
			zap.Int("expired", waitlistStats.Expired),
			zap.Int("skipped", waitlistStats.Skipped))
	}

	if transferErr == nil && waitlistErr == nil {
		sweeper.consecutiveFailures = 0
	}
}

func (sweeper *Sweeper) auditCounts(ctx context.Context) {
	drifts, err := sweeper.service.CheckParticipantCounts(ctx)
	if err != nil {
		sweeper.logger.Warn("participant count audit failed", zap.Error(err))
		return
	}
	for _, drift := range drifts {
		sweeper.logger.Warn("participant count drift",
			zap.String("meeting_id", drift.MeetingID),
			zap.Int("counter", drift.Counter),
			zap.Int("actual", drift.Actual))
	}
}

func (sweeper *Sweeper) recordFailure(message string, err error) {
	sweeper.consecutiveFailures++
	if sweeper.consecutiveFailures >= failureAlertAfter {
		sweeper.logger.Error(message,
			zap.Error(err),
			zap.Int("consecutive_failures", sweeper.consecutiveFailures))
		return
	}
	sweeper.logger.Warn(message, zap.Error(err))
}
