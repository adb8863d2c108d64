// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

/*
Package metrics exposes the engine's Prometheus instrumentation.

Metrics are registered as package-level variables via promauto, so
importing this package and referencing a metric is enough to register
it; the HTTP source adapter mounts promhttp.Handler() at /metrics.

Available series:

  - tarantula_tick_duration_seconds: one engine tick, all channels
  - tarantula_tick_mutex_misses_total: ticks that missed the mutex deadline
  - tarantula_async_jobs_submitted_total / _completed_total: job throughput by kind
  - tarantula_async_queue_depth: jobs currently queued
  - tarantula_device_dispatch_total / _duration_seconds: per-device dispatch outcome
  - tarantula_plugin_crash_total / _unload_total: supervisor backoff activity
  - tarantula_playlist_events_active: pending rows per channel
  - tarantula_scanner_files_total: catalogue size by presence state
*/
package metrics
