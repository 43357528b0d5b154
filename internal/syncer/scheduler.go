package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Scheduler fires the orchestrator once per day at a fixed wall-clock time
// in the operational timezone.
type Scheduler struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
	hour         int
	minute       int
}

// NewScheduler parses the "HH:MM" trigger time and returns a Scheduler.
func NewScheduler(o *Orchestrator, logger *zap.Logger, at string) (*Scheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid sync time %q: expected HH:MM", at)
	}
	return &Scheduler{
		orchestrator: o,
		logger:       logger,
		hour:         t.Hour(),
		minute:       t.Minute(),
	}, nil
}

// Run blocks until ctx is done, firing the scheduled sync at each daily
// trigger. The timer is re-armed per occurrence rather than ticking a fixed
// interval, so DST shifts in the operational timezone keep the wall-clock
// time stable.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := time.Now().In(s.orchestrator.Location)
		next := s.nextRunAt(now)
		s.logger.Info("sync scheduled", zap.Time("next_run", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sync scheduler stopping")
			return
		case <-timer.C:
			s.orchestrator.RunScheduled(ctx)
		}
	}
}

// nextRunAt returns the next occurrence of the trigger time at or after now.
func (s *Scheduler) nextRunAt(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
