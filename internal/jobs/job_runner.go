package jobs

import (
	"context"
	"fmt"
	"time"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/metrics"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/service"
)

// Job names accepted by RunOnce and used as metric labels.
const (
	JobExpireStaleRequests  = "expire-stale-requests"
	JobSendOverdueReminders = "send-overdue-reminders"
	JobAllNightly           = "all-nightly"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	rentals  service.RentalService
	notifier notify.Dispatcher
	timeout  time.Duration
	now      func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(rentals service.RentalService, notifier notify.Dispatcher) *JobRunner {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &JobRunner{
		rentals:  rentals,
		notifier: notifier,
		timeout:  10 * time.Minute,
		now:      time.Now,
	}
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.JobRuns.WithLabelValues(jobName, outcome).Inc()
	}()

	logger.Info("Starting job", "job", jobName)
	start := jr.now()
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", jr.now().Sub(start))
	return nil
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() error {
	expireErr := jr.ExpireStaleRequests()
	remindErr := jr.SendOverdueReminders()
	if expireErr != nil {
		return expireErr
	}
	return remindErr
}

// RunOnce executes a job by name.
func (jr *JobRunner) RunOnce(name string) error {
	switch name {
	case JobExpireStaleRequests:
		return jr.ExpireStaleRequests()
	case JobSendOverdueReminders:
		return jr.SendOverdueReminders()
	case JobAllNightly:
		return jr.RunAllNightlyJobs()
	}
	return fmt.Errorf("unknown job %q", name)
}
