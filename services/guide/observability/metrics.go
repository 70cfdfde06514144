// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the guide
// service.
//
// # Description
//
// Metrics cover the request surface and the domain events worth
// alerting on:
//   - Request counters (by endpoint, status)
//   - Run lifecycle counters (started, completed, abandoned)
//   - Progress reconciliation counters (applied / ignored / conflicts)
//   - Structural-edit gate counters (blocked, forked)
//   - Active run gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with
// Prometheus + Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for guide metrics
const guideSubsystem = "tours"

// GuideMetrics holds all Prometheus metrics for the guide service.
// Initialize once at startup via InitMetrics().
type GuideMetrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (start_run, sync, publish, ...), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RunsTotal counts run lifecycle events.
	// Labels: event (started, resumed, completed_manual, completed_automatic, abandoned)
	RunsTotal *prometheus.CounterVec

	// SyncUpdatesTotal counts batch sync outcomes per report.
	// Labels: outcome (applied, ignored, conflict)
	SyncUpdatesTotal *prometheus.CounterVec

	// StructuralEditsTotal counts structural edits through the gate.
	// Labels: outcome (in_place, blocked, forked)
	StructuralEditsTotal *prometheus.CounterVec

	// PublishesTotal counts version publishes by result.
	// Labels: status (success, error)
	PublishesTotal *prometheus.CounterVec

	// ActiveRuns tracks currently active (non-terminal) runs started
	// through this instance. A restart resets the gauge; treat it as a
	// rate signal, not an inventory.
	ActiveRuns prometheus.Gauge

	// SyncBatchSize measures the number of reports per sync request.
	SyncBatchSize prometheus.Histogram
}

// DefaultMetrics is the singleton instance of GuideMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GuideMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *GuideMetrics {
	DefaultMetrics = &GuideMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "runs_total",
				Help:      "Total run lifecycle events",
			},
			[]string{"event"},
		),

		SyncUpdatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "sync_updates_total",
				Help:      "Total batch sync reports by outcome",
			},
			[]string{"outcome"},
		),

		StructuralEditsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "structural_edits_total",
				Help:      "Total structural edits by gate outcome",
			},
			[]string{"outcome"},
		),

		PublishesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "publishes_total",
				Help:      "Total version publishes by status",
			},
			[]string{"status"},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "active_runs",
				Help:      "Currently active runs started through this instance",
			},
		),

		SyncBatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: guideSubsystem,
				Name:      "sync_batch_size",
				Help:      "Number of progress reports per sync request",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Event Names
// =============================================================================

// RunEvent labels a run lifecycle transition for metrics.
type RunEvent string

const (
	RunEventStarted            RunEvent = "started"
	RunEventResumed            RunEvent = "resumed"
	RunEventCompletedManual    RunEvent = "completed_manual"
	RunEventCompletedAutomatic RunEvent = "completed_automatic"
	RunEventAbandoned          RunEvent = "abandoned"
)

// GateOutcome labels how the structural change gate resolved an edit.
type GateOutcome string

const (
	GateOutcomeInPlace GateOutcome = "in_place"
	GateOutcomeBlocked GateOutcome = "blocked"
	GateOutcomeForked  GateOutcome = "forked"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed API request.
func (m *GuideMetrics) RecordRequest(endpoint string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordRunEvent records a run lifecycle event and keeps the active-run
// gauge in step.
func (m *GuideMetrics) RecordRunEvent(event RunEvent) {
	m.RunsTotal.WithLabelValues(string(event)).Inc()
	switch event {
	case RunEventStarted:
		m.ActiveRuns.Inc()
	case RunEventCompletedManual, RunEventCompletedAutomatic, RunEventAbandoned:
		m.ActiveRuns.Dec()
	}
}

// RecordSync records the outcome breakdown of one batch sync.
func (m *GuideMetrics) RecordSync(applied, ignored, conflicts int) {
	m.SyncUpdatesTotal.WithLabelValues("applied").Add(float64(applied))
	m.SyncUpdatesTotal.WithLabelValues("ignored").Add(float64(ignored))
	m.SyncUpdatesTotal.WithLabelValues("conflict").Add(float64(conflicts))
	m.SyncBatchSize.Observe(float64(applied + ignored + conflicts))
}

// RecordGate records a structural-edit gate outcome.
func (m *GuideMetrics) RecordGate(outcome GateOutcome) {
	m.StructuralEditsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordPublish records a version publish attempt.
func (m *GuideMetrics) RecordPublish(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.PublishesTotal.WithLabelValues(status).Inc()
}
