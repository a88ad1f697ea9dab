// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "Total outbound requests by authorization policy and response status",
		},
		[]string{"policy", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intake_http_request_duration_seconds",
			Help: "Duration of outbound requests in seconds",
		},
		[]string{"policy"},
	)

	TokenClearedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_token_cleared_total",
			Help: "Number of times a 401 response cleared the stored bearer token",
		},
	)

	FormSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_form_submissions_total",
			Help: "Partner form submissions by outcome",
		},
		[]string{"outcome"},
	)
)

// StatusLabel maps a response status to a label value; 0 means the
// request never got a response.
func StatusLabel(status int) string {
	switch {
	case status == 0:
		return "transport_error"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status == 401:
		return "401"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
