// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 5 * time.Minute

// InvitePurger deletes invites whose validity window has passed.
type InvitePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	started bool
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}
}

// AddInvitePurge registers the expired invite cleanup on schedule.
func (s *Scheduler) AddInvitePurge(schedule string, purger InvitePurger) error {
	if _, err := s.cron.AddFunc(schedule, PurgeInvites(purger, s.logger)); err != nil {
		return fmt.Errorf("failed to schedule invite purge %q: %w", schedule, err)
	}
	return nil
}

// Start runs the scheduler in the background. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("cron jobs still running at shutdown")
	}
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// PurgeInvites returns a cron job that purges expired invites once.
func PurgeInvites(purger InvitePurger, logger *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		purged, err := purger.PurgeExpired(ctx)
		if err != nil {
			logger.Error("failed to purge expired invites", zap.Error(err))
			return
		}
		if purged > 0 {
			logger.Info("purged expired invites", zap.Int64("count", purged))
		}
	}
}
