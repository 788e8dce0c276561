package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayRequestDuration) }

var gatewayRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Outbound payment gateway call latency by provider, operation and result.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"provider", "op", "result"}, // op: create|status, result: ok|error
)

// ObserveGateway records one outbound call started at start.
func ObserveGateway(provider, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	gatewayRequestDuration.WithLabelValues(norm(provider), norm(op), result).Observe(time.Since(start).Seconds())
}
