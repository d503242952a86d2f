// Package metrics provides Prometheus instrumentation for the verification
// service. Counters are observational only and never affect control flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContractRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_registrations_total",
			Help: "Total number of contract registration attempts",
		},
		[]string{"outcome"},
	)

	VerificationStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_starts_total",
			Help: "Total number of verification challenge requests",
		},
		[]string{"outcome"},
	)

	VerificationCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_completions_total",
			Help: "Total number of verification completion attempts",
		},
		[]string{"outcome"},
	)

	verificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_failures_total",
			Help: "Verification pipeline failures by reason",
		},
		[]string{"reason"},
	)
)

// RecordFailure increments the named failure counter for one of the distinct
// failure categories of the verification pipeline.
func RecordFailure(reason string) {
	verificationFailures.WithLabelValues(reason).Inc()
}
