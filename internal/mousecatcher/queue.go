// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package mousecatcher implements the MouseCatcher Core: the shared
// schedule-mutation queue and the source -> core -> processor ->
// playlist pipeline that turns a wire-level EventAction into playlist
// rows (or a reported snapshot, for the Update* kinds).
package mousecatcher

import (
	"sync"

	"github.com/broadcastauto/tarantula/internal/model"
)

// Queue is the source->core action queue. Its own mutex is
// independent of the engine mutex: adapters enqueue without holding
// the engine lock, and the core drains it once per tick under the
// engine mutex.
type Queue struct {
	mu      sync.Mutex
	pending []*model.EventAction
}

func NewQueue() *Queue { return &Queue{} }

// Push enqueues an action for the next drain. Safe to call without the
// engine mutex held.
func (q *Queue) Push(a *model.EventAction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, a)
}

// drain removes and returns every currently queued action.
func (q *Queue) drain() []*model.EventAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
