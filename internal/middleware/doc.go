// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

/*
Package middleware provides HTTP middleware components for the application.

This package implements two infrastructure middlewares: request ID
tracking and Prometheus metrics integration. It has no compression,
performance-monitor or authentication middleware.

Key Components:

  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

Both wrap an http.HandlerFunc and can be nested:

	http.HandleFunc("/endpoint",
	    middleware.PrometheusMetrics( // Layer 1: Metrics
	        middleware.RequestID(     // Layer 2: Request tracking
	            handler,              // Layer 3: Business logic
	        ),
	    ),
	)

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)

Thread Safety:

All middleware components are thread-safe:
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/source/httpapi: HTTP adapter that mounts this middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
