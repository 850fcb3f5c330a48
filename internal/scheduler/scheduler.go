// Package scheduler runs the periodic metrics prewarm job. On each tick it
// recomputes workload stats for the configured teams and publishes them to
// the shared cache, so dashboard reads stay warm across the cache TTL and,
// with Redis enabled, across service instances.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/cache"
	"ticketrouter/internal/common/logging"
)

// prewarmTimeout bounds one full prewarm sweep.
const prewarmTimeout = 30 * time.Second

// Scheduler owns the cron runner and the prewarm job.
type Scheduler struct {
	cron        *cron.Cron
	assigner    *assignment.Engine
	sharedCache cache.Cache
	teams       []string
	cacheTTL    time.Duration
	logger      logging.Logger
}

// New creates a scheduler prewarming the given teams. A nil shared cache or
// empty team list yields a scheduler that does nothing.
func New(assigner *assignment.Engine, sharedCache cache.Cache, teams []string, cacheTTL time.Duration, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Scheduler{
		cron:        cron.New(),
		assigner:    assigner,
		sharedCache: sharedCache,
		teams:       teams,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Start registers the prewarm job on the given cron schedule and starts the
// runner. The job also runs once immediately so the cache is warm from boot.
func (s *Scheduler) Start(schedule string) error {
	if s.sharedCache == nil || len(s.teams) == 0 {
		s.logger.Debug("metrics prewarm disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, s.prewarm); err != nil {
		return err
	}

	s.cron.Start()
	go s.prewarm()

	s.logger.Info("metrics prewarm scheduled",
		logging.String("schedule", schedule),
		logging.Int("teams", len(s.teams)),
	)
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) prewarm() {
	ctx, cancel := context.WithTimeout(context.Background(), prewarmTimeout)
	defer cancel()

	for _, teamID := range s.teams {
		stats, err := s.assigner.GetTeamWorkloadStats(ctx, teamID)
		if err != nil {
			s.logger.Warn("metrics prewarm failed for team",
				logging.String("team_id", teamID),
				logging.Err(err),
			)
			continue
		}

		if err := s.sharedCache.Set(ctx, assignment.WorkloadCacheKey(teamID), stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to publish workload stats",
				logging.String("team_id", teamID),
				logging.Err(err),
			)
		}
	}
}
