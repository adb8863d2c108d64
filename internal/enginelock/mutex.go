// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package enginelock provides the single timed mutex shared by the tick
// loop and the async worker: the tick loop acquires it with a one-frame
// timeout before running tick callbacks, and async work-fns acquire it
// explicitly whenever they need to mutate engine state (playlist
// stores, device registry, processor registry, plugin list).
package enginelock

import "time"

// Mutex is a mutual-exclusion lock that additionally supports a timed
// acquisition attempt, used by the tick loop to bound how long it will
// wait for the async worker to release the lock before skipping a tick.
type Mutex struct {
	c chan struct{}
}

// New returns an unlocked Mutex.
func New() *Mutex {
	m := &Mutex{c: make(chan struct{}, 1)}
	m.c <- struct{}{}
	return m
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	<-m.c
}

// Unlock releases the mutex. Unlocking an already-unlocked Mutex panics,
// matching sync.Mutex's contract.
func (m *Mutex) Unlock() {
	select {
	case m.c <- struct{}{}:
	default:
		panic("enginelock: unlock of unlocked mutex")
	}
}

// TryLockTimeout attempts to acquire the mutex within timeout, returning
// false if it could not be acquired in time.
func (m *Mutex) TryLockTimeout(timeout time.Duration) bool {
	select {
	case <-m.c:
		return true
	case <-time.After(timeout):
		return false
	}
}
