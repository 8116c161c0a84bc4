package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/jobs"
)

func TestNewScheduler_RegistersJobs(t *testing.T) {
	s, err := NewScheduler(jobs.NewJobRunner(nil, nil), config.SchedulerConfig{
		ExpireStaleRequests:  "0 0 1 * * *",
		SendOverdueReminders: "0 0 3 * * *",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.EntryCount())
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(jobs.NewJobRunner(nil, nil), config.SchedulerConfig{
		ExpireStaleRequests:  "every night",
		SendOverdueReminders: "0 0 3 * * *",
	})
	assert.ErrorContains(t, err, "expire-stale-requests")
}
