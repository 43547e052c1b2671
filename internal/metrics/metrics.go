package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	IntentPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_predictions_total",
			Help: "Total number of intent predictions by label",
		},
		[]string{"label"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_failures_total",
			Help: "Total number of recovered provider failures",
		},
		[]string{"provider"},
	)

	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Total number of assistant requests by input source",
		},
		[]string{"source"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM chat completions",
		},
		[]string{"provider", "status"},
	)

	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_cost_usd_total",
			Help: "Estimated LLM spend in USD",
		},
		[]string{"provider"},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_training_runs_total",
			Help: "Total number of intent model training runs",
		},
		[]string{"status"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_training_duration_seconds",
			Help:    "Duration of intent model training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	FeedbackSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Total number of feedback submissions by store",
		},
		[]string{"store"},
	)

	QueueTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_tasks_total",
			Help: "Total number of processed background tasks",
		},
		[]string{"type", "status"},
	)
)
