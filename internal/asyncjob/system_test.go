// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package asyncjob_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/asyncjob"
	"github.com/broadcastauto/tarantula/internal/enginelock"
)

func startWorker(t *testing.T, sys *asyncjob.System) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sys.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		sys.Shutdown()
		cancel()
		<-done
	})
}

func TestCompletionRunsAfterWork(t *testing.T) {
	sys := asyncjob.New(enginelock.New())
	startWorker(t, sys)

	var mu sync.Mutex
	var order []string

	sys.Submit(&asyncjob.Job{
		Priority: 1,
		Work: func(ctx context.Context, lock asyncjob.Locker, payload any) error {
			mu.Lock()
			order = append(order, "work")
			mu.Unlock()
			return nil
		},
		Completion: func(payload any, err error) {
			mu.Lock()
			order = append(order, "completion")
			mu.Unlock()
		},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 1 && order[0] == "work"
	}, time.Second, time.Millisecond)

	sys.RunCompletionPhase()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"work", "completion"}, order)
}

func TestFailedJobIsDroppedNotCompleted(t *testing.T) {
	sys := asyncjob.New(enginelock.New())
	startWorker(t, sys)

	var called bool
	sys.Submit(&asyncjob.Job{
		Priority: 1,
		Work: func(ctx context.Context, lock asyncjob.Locker, payload any) error {
			return errors.New("boom")
		},
		Completion: func(payload any, err error) {
			called = true
		},
	})

	require.Eventually(t, func() bool {
		sys.RunCompletionPhase()
		return true
	}, time.Second, time.Millisecond)

	require.False(t, called)
}

func TestHigherPriorityRunsFirst(t *testing.T) {
	sys := asyncjob.New(enginelock.New())

	var mu sync.Mutex
	var order []int

	record := func(p int) asyncjob.WorkFunc {
		return func(ctx context.Context, lock asyncjob.Locker, payload any) error {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
			return nil
		}
	}

	sys.Submit(&asyncjob.Job{Priority: 1, Work: record(1)})
	sys.Submit(&asyncjob.Job{Priority: 5, Work: record(5)})
	sys.Submit(&asyncjob.Job{Priority: 3, Work: record(3)})

	startWorker(t, sys)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{5, 3, 1}, order)
}

func TestRepeatJobResubmits(t *testing.T) {
	sys := asyncjob.New(enginelock.New())
	startWorker(t, sys)

	var mu sync.Mutex
	runs := 0

	sys.Submit(&asyncjob.Job{
		Priority: 1,
		Repeat:   true,
		Work: func(ctx context.Context, lock asyncjob.Locker, payload any) error {
			mu.Lock()
			runs++
			mu.Unlock()
			return nil
		},
	})

	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return runs == i+1
		}, time.Second, time.Millisecond)
		sys.RunCompletionPhase()
	}
}
