// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package asyncjob

import (
	"container/heap"
	"context"
	"sync"

	"github.com/broadcastauto/tarantula/internal/logging"
)

// System runs the single worker goroutine and owns the ready queue plus
// the set of jobs awaiting their completion phase.
type System struct {
	lock Locker

	mu        sync.Mutex // protects queue, completed, nextSeq, nextID, halted
	queue     priorityQueue
	completed []*Job
	nextSeq   int64
	nextID    int64
	halted    bool

	wake chan struct{}
	done chan struct{}
}

// New creates an async job system. lock is the engine mutex work-fns
// may acquire; it is never held by the system itself outside of a
// work-fn's own critical section.
func New(lock Locker) *System {
	s := &System{
		lock: lock,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	heap.Init(&s.queue)
	return s
}

// Submit inserts a job in priority order and signals the worker.
func (s *System) Submit(j *Job) int64 {
	s.mu.Lock()
	s.nextID++
	j.ID = s.nextID
	s.nextSeq++
	j.seq = s.nextSeq
	j.state = StateReady
	heap.Push(&s.queue, j)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return j.ID
}

// Run drains the queue on the calling goroutine until Shutdown is
// called, or until ctx is cancelled while the queue is empty. Callers run this as the single worker goroutine, typically
// under the process supervisor tree.
func (s *System) Run(ctx context.Context) error {
	for {
		job := s.nextReady()
		if job == nil {
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				close(s.done)
				return ctx.Err()
			}
		}

		if job == haltSentinel {
			close(s.done)
			return nil
		}

		job.state = StateRunning
		err := job.Work(ctx, s.lock, job.Payload)

		s.mu.Lock()
		if err != nil {
			job.state = StateFailed
			job.workErr = err
		} else {
			job.state = StateComplete
		}
		s.completed = append(s.completed, job)
		s.mu.Unlock()
	}
}

// haltSentinel is pushed by Shutdown to unblock a worker waiting on an
// empty queue without requiring a separate channel select branch in
// the hot path.
var haltSentinel = &Job{Priority: 1 << 30}

func (s *System) nextReady() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&s.queue).(*Job)
}

// Shutdown raises the halt flag and pushes a sentinel job so a worker
// blocked on an empty queue wakes and returns.
func (s *System) Shutdown() {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return
	}
	s.halted = true
	s.nextSeq++
	haltSentinel.seq = s.nextSeq
	heap.Push(&s.queue, haltSentinel)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// RunCompletionPhase runs on the tick thread once per tick: for every
// job that reached Complete or Failed since the last call, it invokes
// the completion-fn (skipped for Failed, which is only logged and
// dropped) and either erases the job (one-shot) or resets it to ready
// (repeat). Complete jobs run before Failed jobs; within each group,
// insertion order is preserved.
func (s *System) RunCompletionPhase() {
	s.mu.Lock()
	batch := s.completed
	s.completed = nil
	s.mu.Unlock()

	var ok, failed []*Job
	for _, j := range batch {
		if j.state == StateFailed {
			failed = append(failed, j)
		} else {
			ok = append(ok, j)
		}
	}

	for _, j := range ok {
		if j.Completion != nil {
			j.Completion(j.Payload, nil)
		}
		s.retireOrRepeat(j)
	}
	for _, j := range failed {
		logging.Error().Err(j.workErr).Int64("job_id", j.ID).Msg("async job failed")
		j.state = StateErased
	}
}

func (s *System) retireOrRepeat(j *Job) {
	if !j.Repeat {
		j.state = StateErased
		return
	}
	j.state = StateReady
	s.mu.Lock()
	s.nextSeq++
	j.seq = s.nextSeq
	heap.Push(&s.queue, j)
	s.mu.Unlock()
}

// Len reports the number of jobs currently queued (ready), for metrics;
// a running job has already been popped and is not counted.
func (s *System) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
