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

type mockCloser struct {
	name       string
	closeCount atomic.Int32
}

func (m *mockCloser) Name() string { return m.name }
func (m *mockCloser) Close() error {
	m.closeCount.Add(1)
	return nil
}

func TestXMLWireServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*XMLWireService)(nil)
}

func TestXMLWireServiceClosesOnShutdown(t *testing.T) {
	mock := &mockCloser{name: "xmlwire-9815"}
	svc := NewXMLWireService(mock)
	require.Equal(t, "xmlwire:xmlwire-9815", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	require.Zero(t, mock.closeCount.Load())

	cancel()
	require.NoError(t, <-done)
	require.EqualValues(t, 1, mock.closeCount.Load())
}
