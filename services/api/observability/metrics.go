// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the API.
//
// # Description
//
// Counters, histograms, and gauges for the request surface, the
// renderer's degradation rate, and the model backend. Exposed on
// /metrics for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking. Every helper is also a no-op on a nil receiver, so code
// paths exercised in tests run without registering anything.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "mathsearch"

// Metrics holds all Prometheus metrics for the API service.
type Metrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	RequestsTotal *prometheus.CounterVec

	// LLMRequestSeconds measures model call latency by operation
	// (tag, analyze, hint).
	LLMRequestSeconds *prometheus.HistogramVec

	// LLMErrorsTotal counts failed model calls by operation and
	// reason (unavailable, error).
	LLMErrorsTotal *prometheus.CounterVec

	// RenderFallbacksTotal counts degraded render units served in
	// place of typeset math or images, by kind (malformed_math,
	// unresolved_image).
	RenderFallbacksTotal *prometheus.CounterVec

	// ProblemsLoaded mirrors the problem store's current size.
	ProblemsLoaded prometheus.GaugeFunc

	// ActiveHintSessions tracks open hint websocket connections.
	ActiveHintSessions prometheus.Gauge
}

// DefaultMetrics is the singleton initialized by InitMetrics. It stays
// nil in tests; all helpers tolerate that.
var DefaultMetrics *Metrics

// InitMetrics registers all metrics with the default registry. Call
// once at startup; problemCount feeds the problems gauge on scrape.
func InitMetrics(problemCount func() int) *Metrics {
	DefaultMetrics = &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		LLMRequestSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "llm_request_seconds",
				Help:      "Model call latency in seconds by operation",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		LLMErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "llm_errors_total",
				Help:      "Failed model calls by operation and reason",
			},
			[]string{"operation", "reason"},
		),

		RenderFallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "render_fallbacks_total",
				Help:      "Degraded render units served instead of typeset output",
			},
			[]string{"kind"},
		),

		ProblemsLoaded: promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "problems_loaded",
				Help:      "Problems currently loaded in the store",
			},
			func() float64 { return float64(problemCount()) },
		),

		ActiveHintSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_hint_sessions",
				Help:      "Open hint websocket connections",
			},
		),
	}
	return DefaultMetrics
}

// RecordRequest counts one handled request.
func (m *Metrics) RecordRequest(endpoint, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveLLM records one model call's latency and, when it failed,
// the failure reason.
func (m *Metrics) ObserveLLM(operation string, seconds float64, reason string) {
	if m == nil {
		return
	}
	m.LLMRequestSeconds.WithLabelValues(operation).Observe(seconds)
	if reason != "" {
		m.LLMErrorsTotal.WithLabelValues(operation, reason).Inc()
	}
}

// RecordRenderFallbacks counts degraded units of one kind in a render
// response.
func (m *Metrics) RecordRenderFallbacks(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RenderFallbacksTotal.WithLabelValues(kind).Add(float64(n))
}

// HintSessionStarted increments the open-connection gauge.
func (m *Metrics) HintSessionStarted() {
	if m == nil {
		return
	}
	m.ActiveHintSessions.Inc()
}

// HintSessionEnded decrements the open-connection gauge.
func (m *Metrics) HintSessionEnded() {
	if m == nil {
		return
	}
	m.ActiveHintSessions.Dec()
}
