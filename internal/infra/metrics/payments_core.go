package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chargesCreatedTotal,
		confirmationsTotal,
		normalizerUnknownTotal,
	)
}

var (
	chargesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charges_created_total",
			Help: "Charge intents by gateway and result (ok/gateway_error/error).",
		},
		[]string{"provider", "result"},
	)

	// source: webhook_qrpay|webhook_cashin|poll
	// outcome: applied|noop|pending|not_found|error
	confirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmations_total",
			Help: "Confirmation signals by source and reconciliation outcome.",
		},
		[]string{"source", "outcome"},
	)

	normalizerUnknownTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "normalizer_unknown_status_total",
			Help: "Provider statuses outside the known vocabulary, treated as pending.",
		},
		[]string{"provider"},
	)
)

func IncChargeCreated(provider, result string) {
	chargesCreatedTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func IncConfirmation(source, outcome string) {
	confirmationsTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func IncUnknownStatus(provider string) {
	normalizerUnknownTotal.WithLabelValues(norm(provider)).Inc()
}
