package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command metrics
var (
	// InvocationsTotal tracks /unfollow invocations by outcome
	// (completed, failed, cooldown, busy, config_error)
	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igunfollow_invocations_total",
			Help: "Total unfollow command invocations by outcome",
		},
		[]string{"outcome"},
	)

	// GateRejections tracks invocations turned away by the cooldown gate
	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igunfollow_gate_rejections_total",
			Help: "Invocations rejected by the cooldown gate by reason (cooldown, in_progress)",
		},
		[]string{"reason"},
	)

	// RunDuration tracks wall time of accepted workflow runs in seconds
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "igunfollow_run_duration_seconds",
			Help:    "Unfollow workflow duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)
)

// Workflow metrics
var (
	// AccountsTotal tracks per-account unfollow results (unfollowed, failed, listed)
	AccountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igunfollow_accounts_total",
			Help: "Non-reciprocal accounts processed by result",
		},
		[]string{"result"},
	)

	// FetchRetries tracks retried relation fetches by relation (followers, following)
	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igunfollow_fetch_retries_total",
			Help: "Relation fetch retries by relation",
		},
		[]string{"relation"},
	)

	// LogoutFailures tracks swallowed logout errors
	LogoutFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "igunfollow_logout_failures_total",
			Help: "Logout attempts that failed and were ignored",
		},
	)
)

// Instagram client metrics
var (
	// InstagramRequestsTotal tracks HTTP calls to Instagram by operation and status class
	InstagramRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igunfollow_instagram_requests_total",
			Help: "Instagram API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	// InstagramRequestDuration tracks Instagram request latency in seconds
	InstagramRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "igunfollow_instagram_request_duration_seconds",
			Help:    "Instagram API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// StatusClass buckets an HTTP status code for labelling ("2xx", "4xx", ...).
// Zero means the request never got a response.
func StatusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
