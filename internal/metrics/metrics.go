package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warnengine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warnengine_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// EvaluationRuns counts evaluator passes per frequency and outcome.
	EvaluationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warnengine_evaluation_runs_total",
			Help: "Number of warning evaluation runs",
		},
		[]string{"frequency", "outcome"},
	)

	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warnengine_evaluation_duration_seconds",
			Help:    "Duration of warning evaluation runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"frequency"},
	)

	WarningsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warnengine_warnings_detected_total",
			Help: "Number of newly created warnings",
		},
		[]string{"definition"},
	)

	WarningsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warnengine_warnings_resolved_total",
			Help: "Number of warnings that reached a terminal state",
		},
		[]string{"definition", "status"},
	)

	WarningsEscalated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warnengine_warnings_escalated_total",
			Help: "Number of escalated warnings",
		},
		[]string{"definition"},
	)

	// NotificationsProcessed counts delivery outcomes: sent, failed, retried, deferred, suppressed, expired.
	NotificationsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warnengine_notifications_processed_total",
			Help: "Number of notification delivery outcomes",
		},
		[]string{"channel", "outcome"},
	)

	SendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warnengine_notification_send_duration_seconds",
			Help:    "Duration of provider send calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCount, RequestDuration,
		EvaluationRuns, EvaluationDuration,
		WarningsDetected, WarningsResolved, WarningsEscalated,
		NotificationsProcessed, SendDuration,
	)
}
