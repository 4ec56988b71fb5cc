// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the monitor service.
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting. All metric operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chwmonitor"

// Metrics holds all Prometheus metrics for the monitor service.
//
// Initialize once at startup via InitMetrics().
type Metrics struct {
	// RequestsTotal counts HTTP requests by route, method and status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request latency by route and method.
	RequestDurationSeconds *prometheus.HistogramVec

	// AuthFailuresTotal counts rejected authentication attempts by reason
	// (invalid_credentials, deactivated, rate_limited).
	AuthFailuresTotal *prometheus.CounterVec

	// VisitsRecordedTotal counts recorded visits by type and capture mode
	// (online, offline).
	VisitsRecordedTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var (
	DefaultMetrics *Metrics
	initOnce       sync.Once
)

// InitMetrics creates and registers all metrics on the default registry.
// Safe to call more than once; registration happens only the first time.
func InitMetrics() *Metrics {
	initOnce.Do(func() {
		DefaultMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status.",
			}, []string{"route", "method", "status"}),
			RequestDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and method.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			AuthFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_failures_total",
				Help:      "Rejected authentication attempts by reason.",
			}, []string{"reason"}),
			VisitsRecordedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "visits_recorded_total",
				Help:      "Health visits recorded by type and capture mode.",
			}, []string{"visit_type", "capture"}),
		}
	})
	return DefaultMetrics
}

// RecordVisit increments the visit counter for one recorded visit.
func (m *Metrics) RecordVisit(visitType string, offline bool) {
	capture := "online"
	if offline {
		capture = "offline"
	}
	m.VisitsRecordedTotal.WithLabelValues(visitType, capture).Inc()
}

// Middleware returns a Gin middleware recording request count and latency.
// The route label uses the route template (e.g. /v1/chws/:chwId), not the
// raw path, to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(route, c.Request.Method,
			strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDurationSeconds.WithLabelValues(route, c.Request.Method).
			Observe(time.Since(start).Seconds())
	}
}
