// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package asyncjob implements the Async Job System: a single worker
// goroutine draining a priority-ordered queue, carrying long-running
// work off the tick thread while preserving the tick loop's invariants
// through a deterministic completion phase that only ever runs on the
// tick thread.
package asyncjob

import "context"

// State is a job's lifecycle stage.
type State int

const (
	StateReady State = iota
	StateRunning
	StateComplete
	StateFailed
	StateErased
)

// WorkFunc is a job's background work, run on the worker goroutine. It
// may acquire the engine mutex via lock when it needs to mutate shared
// engine state, but must not hold it across arbitrary waits.
type WorkFunc func(ctx context.Context, lock Locker, payload any) error

// CompletionFunc runs on the tick thread, once per tick, for every job
// that reached StateComplete since the last completion phase.
type CompletionFunc func(payload any, workErr error)

// Locker is the minimal interface a work-fn needs against the engine
// mutex; *enginelock.Mutex satisfies it.
type Locker interface {
	Lock()
	Unlock()
}

// Job is a single unit of background work.
type Job struct {
	ID         int64
	Priority   int // higher runs first
	Repeat     bool
	Work       WorkFunc
	Completion CompletionFunc
	Payload    any

	state  State
	seq    int64 // insertion order, used to break priority ties FIFO
	workErr error
}

func (j *Job) State() State { return j.state }
