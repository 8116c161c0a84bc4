package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/jobs"
	"rental-escrow-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner, cfg config.SchedulerConfig) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs(cfg config.SchedulerConfig) error {
	entries := []struct {
		name string
		spec string
		run  func() error
	}{
		{jobs.JobExpireStaleRequests, cfg.ExpireStaleRequests, s.jobs.ExpireStaleRequests},
		{jobs.JobSendOverdueReminders, cfg.SendOverdueReminders, s.jobs.SendOverdueReminders},
	}

	for _, e := range entries {
		run := e.run
		if _, err := s.cron.AddFunc(e.spec, func() { _ = run() }); err != nil {
			logger.Error("Failed to register job", "job", e.name, "spec", e.spec, "error", err)
			return fmt.Errorf("invalid schedule %q for %s: %w", e.spec, e.name, err)
		}
		logger.Debug("Registered job", "job", e.name, "spec", e.spec)
	}

	logger.Info("All cron jobs registered successfully", "count", len(entries))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// EntryCount is the number of registered jobs.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
