package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rental",
		Name:      "transitions_total",
		Help:      "Rental status transitions committed, by command and resulting status.",
	}, []string{"command", "status"})

	CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rental",
		Name:      "command_errors_total",
		Help:      "Rejected or failed rental commands, by operation and error kind.",
	}, []string{"operation", "kind"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rental",
		Name:      "notification_failures_total",
		Help:      "Notifications that could not be delivered after commit.",
	}, []string{"event"})

	StorageCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rental",
		Name:      "storage_cleanup_failures_total",
		Help:      "Blobs left behind because deleting them after a failed transaction failed.",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rental",
		Name:      "job_runs_total",
		Help:      "Background job executions, by job and outcome.",
	}, []string{"job", "outcome"})

	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rental",
		Name:      "rpc_requests_total",
		Help:      "Handled gRPC requests, by method and status code.",
	}, []string{"method", "code"})
)
