package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missiondesk_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// CapabilityChecks counts capability evaluations and their outcome (allowed|denied).
	CapabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missiondesk_capability_checks_total",
			Help: "Total number of capability checks",
		},
		[]string{"capability", "result"},
	)

	// MissionTransitions counts mission status transitions by kind and outcome.
	MissionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missiondesk_mission_transitions_total",
			Help: "Total number of mission workflow transitions",
		},
		[]string{"transition", "result"},
	)

	// OutboxDeliveries counts outbox event delivery attempts by outcome.
	OutboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missiondesk_outbox_deliveries_total",
			Help: "Total number of outbox delivery attempts",
		},
		[]string{"event", "result"},
	)

	// PhotoUploads counts mission photo uploads by outcome (stored|skipped).
	PhotoUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missiondesk_photo_uploads_total",
			Help: "Total number of mission photo upload attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "missiondesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
