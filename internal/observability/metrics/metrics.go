package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreview_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"method", "result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreview_tokens_issued_total",
			Help: "Total number of auth tokens issued.",
		},
		[]string{"flow", "result"},
	)

	OTPsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreview_otps_total",
			Help: "One-time password operations.",
		},
		[]string{"flow", "result"},
	)

	ReviewAssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreview_review_assignments_total",
			Help: "Review assignments handed to moderators.",
		},
		[]string{"mode", "result"},
	)

	ActiveClaims = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modreview_active_claims",
			Help: "Users currently claimed for review.",
		},
	)

	StatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreview_status_transitions_total",
			Help: "Requested review status transitions.",
		},
		[]string{"status", "result"},
	)

	ExternalCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modreview_external_calls_total",
			Help: "Calls to the external identity provider.",
		},
		[]string{"op", "result"},
	)

	ReconciliationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modreview_reconciliation_failures_total",
			Help: "Approvals granted externally whose local status write failed.",
		},
	)
)

// MustRegister registers every collector on the default registry with a
// constant service label.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		LoginsTotal,
		TokensIssuedTotal,
		OTPsTotal,
		ReviewAssignmentsTotal,
		ActiveClaims,
		StatusTransitionsTotal,
		ExternalCallsTotal,
		ReconciliationFailuresTotal,
	)
}
