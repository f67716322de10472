// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package metrics provides Prometheus instrumentation for the engine:
// cycle progress, ingestion outcomes, rate computation, alert dispatch,
// and upstream API health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cycle metrics
	CyclesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_cycles_started_total",
			Help: "Total number of ingestion/evaluation cycles started",
		},
	)

	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_cycles_skipped_total",
			Help: "Total number of scheduler ticks skipped because a cycle was still running",
		},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surgewatch_cycle_duration_seconds",
			Help:    "Duration of full cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ChannelsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surgewatch_channels_processed_total",
			Help: "Channels processed per cycle, by outcome",
		},
		[]string{"outcome"}, // "ok", "failed"
	)

	// Ingestion metrics
	SnapshotsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_snapshots_appended_total",
			Help: "Total number of stats snapshots appended",
		},
	)

	SnapshotsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_snapshots_duplicate_total",
			Help: "Total number of duplicate snapshot appends ignored",
		},
	)

	// Velocity metrics
	RatesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surgewatch_rates_computed_total",
			Help: "Rate computations by result",
		},
		[]string{"result"}, // "rate", "no_signal"
	)

	// Alert metrics
	Crossings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_rule_crossings_total",
			Help: "Total number of rule threshold crossings produced by evaluation",
		},
	)

	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surgewatch_alerts_dispatched_total",
			Help: "Alert dispatch attempts by outcome",
		},
		[]string{"outcome"}, // "delivered", "skipped", "delivery_failed"
	)

	ClaimConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_claim_conflicts_total",
			Help: "Total number of dedup ledger claims lost to an earlier claim",
		},
	)

	// Upstream API metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surgewatch_youtube_request_duration_seconds",
			Help:    "YouTube Data API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surgewatch_youtube_request_errors_total",
			Help: "YouTube Data API request errors",
		},
		[]string{"endpoint", "reason"}, // reason: "http_4xx", "http_5xx", "network", "decode"
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surgewatch_youtube_retries_total",
			Help: "Total number of retried YouTube Data API requests",
		},
	)

	QuotaWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surgewatch_quota_wait_seconds",
			Help:    "Time spent waiting on the shared API quota limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	// Circuit breaker state: 0 = closed, 1 = half-open, 2 = open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surgewatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surgewatch_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Delivery metrics
	WebhookDeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surgewatch_webhook_delivery_duration_seconds",
			Help:    "Outbound webhook delivery duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
