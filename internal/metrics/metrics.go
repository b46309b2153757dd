// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeDiscarded = "discarded"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

var (
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by source, event type and outcome",
		},
		[]string{"source", "type", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Time spent handling a webhook delivery",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Placeholders counts parent rows synthesized for out-of-order membership events.
	Placeholders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_placeholders_total",
			Help: "Placeholder users and organizations created during reconciliation",
		},
		[]string{"kind"},
	)

	WhatsAppStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_stage_failures_total",
			Help: "Failures of individual WhatsApp message handling stages",
		},
		[]string{"stage"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	APIKeyAuthentications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_authentications_total",
			Help: "API key authentication attempts by result",
		},
		[]string{"result"},
	)
)
