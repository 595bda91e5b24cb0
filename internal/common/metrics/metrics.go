// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_submits_total",
			Help: "Total number of settled recommendation submits by outcome",
		},
		[]string{"outcome"},
	)

	SubmitsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_submits_rejected_total",
			Help: "Submits refused before any request was sent",
		},
		[]string{"reason"},
	)

	SubmitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_submit_duration_seconds",
			Help:    "Duration of the recommendation round trip in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	SubmitsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_submits_pending",
			Help: "Number of recommendation requests currently in flight",
		},
	)

	RecommendationsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_recommendations_returned",
			Help:    "Number of recommendations in successful responses",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
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
)
