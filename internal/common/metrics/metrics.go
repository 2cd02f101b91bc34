// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// RegistrationsTotal counts finished registration invocations by
	// trigger and outcome (submitted, failed).
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_registrations_total",
			Help: "Total number of watch registration invocations",
		},
		[]string{"trigger", "outcome"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_registration_stage_failures_total",
			Help: "Registration failures by pipeline stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watch_registration_stage_duration_seconds",
			Help:    "Time spent in each registration pipeline stage",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	LedgerSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_ledger_submissions_total",
			Help: "Ledger submissions by chain and transaction status",
		},
		[]string{"chain", "status"},
	)

	AppraisalCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_appraisal_cache_lookups_total",
			Help: "Appraisal registry cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
)
