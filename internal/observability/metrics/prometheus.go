package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// 1ms to 30s; gateway calls dominate.
	durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	// FanoutActivations counts fan-out activations by outcome
	// (sent, failed, skipped_sent, skipped_claimed, skipped_no_tokens).
	FanoutActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_gateway_fanout_activations_total",
			Help: "Total number of notification fan-out activations, by outcome.",
		},
		[]string{"outcome"},
	)

	// PushTokens counts per-token multicast results reported by the push gateway.
	PushTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_gateway_push_tokens_total",
			Help: "Total number of device tokens addressed by multicast sends, by result.",
		},
		[]string{"result"},
	)

	// CallRequests counts call-style handler invocations by handler and outcome kind.
	CallRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_gateway_call_requests_total",
			Help: "Total number of call-style handler invocations, by handler and outcome.",
		},
		[]string{"handler", "outcome"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_gateway_handler_duration_seconds",
			Help:    "Histogram of handler execution duration in seconds, by handler and success status.",
			Buckets: durationBuckets,
		},
		[]string{"handler", "success"},
	)

	TriggerMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_gateway_trigger_messages_received_total",
			Help: "Total number of record-created activations received, by trigger source.",
		},
		[]string{"source"},
	)

	TriggerMessagesDLQ = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_gateway_trigger_messages_dlq_total",
			Help: "Total number of record-created activations moved to the dead letter topic, by trigger source.",
		},
		[]string{"source"},
	)

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_gateway_http_requests_total",
			Help: "Total number of HTTP requests processed, labeled by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_gateway_http_request_duration_seconds",
			Help:    "Histogram of latencies for HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// MetricsHandler returns the HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveDuration records how long a handler ran.
func ObserveDuration(handler string, success bool, start time.Time) {
	successStr := "false"
	if success {
		successStr = "true"
	}
	HandlerDuration.WithLabelValues(handler, successStr).Observe(time.Since(start).Seconds())
}
