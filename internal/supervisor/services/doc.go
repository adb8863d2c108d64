// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

/*
Package services provides suture.Service wrappers for components whose
native lifecycle doesn't already look like:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

XMLWireService wraps the xmlwire source adapter's Listen/Close pair:
the adapter already accepts connections on its own goroutines, so
Serve only needs to block until ctx is cancelled and then close the
listener.

JobSystemService wraps the async job system's Run/Shutdown pair:
Run processes the work queue on its own goroutine; on a supervisor
stop Serve calls Shutdown, which queues a halt job ahead of anything
still queued, so Run returns promptly without running the remaining
jobs.

# Error Handling

nil means the service stopped cleanly and will not be restarted; a
non-nil error means the supervisor will restart it after the configured
backoff.
*/
package services
