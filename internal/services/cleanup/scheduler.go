package cleanup

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler runs the orphan sweep on a cron schedule
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(service *Service, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start begins the scheduled sweeps
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every 6 hours
		schedule = "0 0 */6 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Cleanup scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Cleanup scheduler stopped")
}

// RunNow triggers an immediate sweep
func (s *Scheduler) RunNow() {
	go s.runSweep()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	results, err := s.service.CleanupAll(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled orphan sweep failed")
		return
	}

	removed := 0
	for _, r := range results {
		removed += r.ChunksRemoved
	}
	s.logger.Info().
		Int("knowledge_bases", len(results)).
		Int("chunks_removed", removed).
		Msg("Scheduled orphan sweep completed")
}
