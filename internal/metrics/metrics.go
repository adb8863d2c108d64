// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package metrics registers the engine's Prometheus instrumentation:
// tick timing, engine mutex contention, async job throughput, device
// dispatch outcomes, and plugin supervisor crash/unload counts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarantula_tick_duration_seconds",
			Help:    "Duration of one engine tick across all channels",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		},
	)

	TickMutexMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tarantula_tick_mutex_misses_total",
			Help: "Ticks skipped because the engine mutex could not be acquired within its timeout",
		},
	)

	AsyncJobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarantula_async_jobs_submitted_total",
			Help: "Total async jobs submitted, by job kind",
		},
		[]string{"kind"},
	)

	AsyncJobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarantula_async_jobs_completed_total",
			Help: "Total async jobs that reached completion, by job kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "ok", "error"
	)

	AsyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tarantula_async_queue_depth",
			Help: "Number of jobs currently queued for the async worker",
		},
	)

	DeviceDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarantula_device_dispatch_total",
			Help: "Total device action dispatches, by device name and outcome",
		},
		[]string{"device", "outcome"}, // outcome: "ok", "error", "breaker_open"
	)

	DeviceDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tarantula_device_dispatch_duration_seconds",
			Help:    "Duration of a device action dispatch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"device"},
	)

	PluginCrashTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarantula_plugin_crash_total",
			Help: "Total plugin crash transitions observed by the supervisor, by plugin name",
		},
		[]string{"plugin"},
	)

	PluginUnloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarantula_plugin_unload_total",
			Help: "Total times a plugin was forced into the Unload state after exhausting its reload credits",
		},
		[]string{"plugin"},
	)

	PlaylistEventsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tarantula_playlist_events_active",
			Help: "Pending events currently in a channel's playlist store",
		},
		[]string{"channel"},
	)

	ScannerFilesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tarantula_scanner_files_total",
			Help: "Files currently known to the scanner catalogue, by presence state",
		},
		[]string{"state"}, // "present", "missing"
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tarantula_http_active_requests",
			Help: "In-flight HTTP requests on the web/status adapter",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarantula_http_requests_total",
			Help: "Total HTTP requests handled by the web/status adapter, by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tarantula_http_request_duration_seconds",
			Help:    "Duration of an HTTP request on the web/status adapter",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// TrackActiveRequest adjusts the in-flight HTTP request gauge; call with
// true on entry and false on exit of a handler.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordAPIRequest mirrors ObserveDispatch's pairing idiom for the HTTP
// adapter: one call records both the count and the latency observation
// for a completed request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveDispatch is a small helper mirroring the teacher's "one
// function per metric family" idiom, used by device dispatchers so the
// timer/counter pairing can't drift out of sync at call sites.
func ObserveDispatch(device string, start time.Time, err error, breakerOpen bool) {
	DeviceDispatchDuration.WithLabelValues(device).Observe(time.Since(start).Seconds())
	outcome := "ok"
	switch {
	case breakerOpen:
		outcome = "breaker_open"
	case err != nil:
		outcome = "error"
	}
	DeviceDispatchTotal.WithLabelValues(device, outcome).Inc()
}
