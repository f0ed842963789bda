// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

// Package metrics provides Prometheus metrics collection for observability.
//
// Metrics are exposed at /metrics in Prometheus text format and cover the
// HTTP surface, call lifecycle, signaling socket, rate limiting, and push
// dispatch.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Call Lifecycle Metrics
	CallsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_initiated_total",
			Help: "Total calls initiated",
		},
		[]string{"call_type", "anonymous"},
	)

	CallTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_transitions_total",
			Help: "Call state transitions by resulting status",
		},
		[]string{"status"},
	)

	CallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration of answered calls in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	// QR Metrics
	QRScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_scans_total",
			Help: "Total QR code scan resolutions",
		},
	)

	// Signaling Metrics
	SignalingClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaling_clients_active",
			Help: "Number of connected signaling clients",
		},
	)

	SignalingEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_events_published_total",
			Help: "Signaling events published by event type",
		},
		[]string{"event"},
	)

	// Rate Limit Metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"class"},
	)

	// Push Dispatch Metrics
	PushDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatches_total",
			Help: "Push dispatch attempts by resulting status",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCallInitiated records one initiated call.
func RecordCallInitiated(callType string, anonymous bool) {
	CallsInitiated.WithLabelValues(callType, strconv.FormatBool(anonymous)).Inc()
}

// RecordCallTransition records one call state transition.
func RecordCallTransition(status string) {
	CallTransitions.WithLabelValues(status).Inc()
}
