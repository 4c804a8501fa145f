package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Form submission metrics
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kasho_submissions_total",
		Help: "Total number of form submissions by form and outcome.",
	}, []string{"form", "outcome"}) // outcome: "succeeded", "skipped", "network", "client", "server"
	SubmissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kasho_submission_duration_seconds",
		Help:    "Time spent waiting on the authentication API per submission.",
		Buckets: prometheus.DefBuckets,
	}, []string{"form"})
	InFlightSubmissions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kasho_submissions_in_flight",
		Help: "Submissions currently waiting on the authentication API.",
	})

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kasho_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kasho_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kasho_rate_limited_total",
		Help: "Requests rejected by the submit rate limiter.",
	})
)
