package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "prioridades", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "prioridades", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	PrioritiesRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "prioridades", Name: "priorities_registered_total", Help: "Number of priorities registered."},
	)
	DocumentStatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "prioridades", Name: "document_status_updates_total", Help: "Number of document status changes by new status."},
		[]string{"status"},
	)
	ReportsExported = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "prioridades", Name: "reports_exported_total", Help: "Number of reports rendered by format."},
		[]string{"format"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "prioridades", Name: "http_request_duration_seconds", Help: "HTTP request latency by route and status.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PrioritiesRegistered)
	reg.MustRegister(DocumentStatusUpdates)
	reg.MustRegister(ReportsExported)
	reg.MustRegister(HTTPRequestDuration)
}
