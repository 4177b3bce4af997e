package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResultsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statuskeep_results_normalized_total",
		Help: "Check results normalized, by producer and result status.",
	}, []string{"producer", "status"})

	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statuskeep_probe_jobs_claimed_total",
		Help: "Pending jobs claimed by probes.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statuskeep_probe_jobs_completed_total",
		Help: "Probe jobs completed with a submitted result.",
	})

	DeploymentsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statuskeep_deployments_blocked_total",
		Help: "Deployment events rejected by the change freeze.",
	})

	AlertsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statuskeep_alerts_enqueued_total",
		Help: "Alert evaluations enqueued by the trigger gateway.",
	})
)
