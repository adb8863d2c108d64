// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package xmlwire

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/mousecatcher"
)

func TestAdapterRoundTripAddReceivesSuccessReply(t *testing.T) {
	a, err := Listen("test-xml", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	conn, err := net.Dial("tcp", a.listener.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reader := bufio.NewReader(conn)
	welcome, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, welcome, "Welcome to Tarantula")

	_, err = conn.Write([]byte(`<Command><ActionType>Add</ActionType><Channel>C1</Channel>` +
		`<Event><Type>fixed</Type><Device>VID1</Device><Trigger>1000</Trigger>` +
		`<Duration>10</Duration></Event></Command>` + "\n"))
	require.NoError(t, err)

	queue := mousecatcher.NewQueue()
	require.Eventually(t, func() bool {
		a.Tick(context.Background(), queue)
		a.mu.Lock()
		n := len(a.pending)
		a.mu.Unlock()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	a.mu.Lock()
	a.pending[0].action.Done = true
	a.mu.Unlock()

	require.Eventually(t, func() bool {
		a.Tick(context.Background(), queue)
		a.mu.Lock()
		n := len(a.pending)
		a.mu.Unlock()
		return n == 0
	}, time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	reply, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, reply, "200 SUCCESS")
}
