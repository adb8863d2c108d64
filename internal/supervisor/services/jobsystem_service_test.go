// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"
)

type mockRunner struct {
	runCount      atomic.Int32
	shutdownCount atomic.Int32
}

func (m *mockRunner) Run(ctx context.Context) error {
	m.runCount.Add(1)
	<-ctx.Done()
	return nil
}

func (m *mockRunner) Shutdown() {
	m.shutdownCount.Add(1)
}

func TestJobSystemServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*JobSystemService)(nil)
}

func TestJobSystemServiceStopsOnContextCancel(t *testing.T) {
	mock := &mockRunner{}
	svc := NewJobSystemService(mock)
	require.Equal(t, "asyncjob-system", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	require.EqualValues(t, 1, mock.runCount.Load())

	cancel()
	require.NoError(t, <-done)
	require.EqualValues(t, 1, mock.shutdownCount.Load())
}
