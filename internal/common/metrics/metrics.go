package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CardsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_cards_built_total",
			Help: "Total number of cards built per connector",
		},
		[]string{"connector"},
	)

	CardDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_card_duplicates_total",
			Help: "Cards whose fingerprint was already recorded",
		},
		[]string{"connector"},
	)

	CardValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_card_validation_failures_total",
			Help: "Cards rejected by the card contract schema",
		},
		[]string{"connector"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_upstream_requests_total",
			Help: "Requests sent to upstream APIs by outcome",
		},
		[]string{"service", "method", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "connector_breaker_state",
			Help: "Circuit breaker state per upstream: 0 closed, 1 half-open, 2 open",
		},
		[]string{"service"},
	)

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
)
