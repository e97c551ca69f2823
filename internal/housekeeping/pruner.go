// Package housekeeping runs periodic maintenance jobs in the background.
package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EventPruner deletes activity older than a cutoff.
type EventPruner interface {
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler drops old account activity on a cron schedule.
type Scheduler struct {
	pruner    EventPruner
	retention time.Duration
	timeout   time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// NewScheduler validates schedule (standard cron or a descriptor like "@daily")
// and returns a stopped Scheduler.
func NewScheduler(pruner EventPruner, schedule string, retention time.Duration) (*Scheduler, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	s := &Scheduler{
		pruner:    pruner,
		retention: retention,
		timeout:   time.Minute,
		cron:      cron.New(),
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting background event pruner...")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		log.Info().Msg("Stopped background event pruner.")
	case <-ctx.Done():
		log.Warn().Msg("Event pruner still running at shutdown")
	}
}

// RunOnce prunes everything older than the retention window.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("Event pruning failed")
		return
	}
	log.Debug().Int64("removed", n).Time("cutoff", cutoff).Msg("Pruned old events")
}
