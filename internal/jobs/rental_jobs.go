package jobs

import (
	"context"

	"rental-escrow-backend/internal/logger"
)

// ExpireStaleRequests auto-rejects pending requests whose start date has
// passed. Each rental goes through the state machine in its own transaction.
func (jr *JobRunner) ExpireStaleRequests() error {
	return jr.runWithRecovery(JobExpireStaleRequests, func(ctx context.Context) error {
		count, err := jr.rentals.ExpireStaleRequests(ctx)
		logger.Info("Expired stale rental requests", "count", count)
		return err
	})
}
