// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package crosspoint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/device/crosspoint"
	"github.com/broadcastauto/tarantula/internal/model"
)

type fakeTransport struct {
	switchErr    error
	handshakeErr error
	lastOut      crosspoint.Port
	lastIn       crosspoint.Port
}

func (f *fakeTransport) Switch(ctx context.Context, outputPort, inputPort crosspoint.Port) error {
	f.lastOut, f.lastIn = outputPort, inputPort
	return f.switchErr
}

func (f *fakeTransport) Handshake(ctx context.Context) error { return f.handshakeErr }

func newTestDevice(transport *fakeTransport) *crosspoint.Device {
	inputs := map[string]crosspoint.Port{"CAM1": {Video: 1, Audio: 1}}
	outputs := map[string]crosspoint.Port{"PGM": {Video: 5, Audio: 5}}
	return crosspoint.New("ROUTER1", transport, inputs, outputs, 25, "")
}

func TestRunEventSwitchUpdatesCurrentInput(t *testing.T) {
	transport := &fakeTransport{}
	d := newTestDevice(transport)

	err := d.RunEvent(context.Background(), &model.Event{
		Action: crosspoint.ActionSwitch,
		Extras: map[string]string{"input": "CAM1", "output": "PGM"},
	})
	require.NoError(t, err)

	in, ok := d.CurrentInput("PGM")
	require.True(t, ok)
	require.Equal(t, "CAM1", in)
	require.Equal(t, crosspoint.Port{Video: 5, Audio: 5}, transport.lastOut)
	require.Equal(t, crosspoint.Port{Video: 1, Audio: 1}, transport.lastIn)
}

func TestRunEventUnknownInputErrors(t *testing.T) {
	d := newTestDevice(&fakeTransport{})
	err := d.RunEvent(context.Background(), &model.Event{
		Action: crosspoint.ActionSwitch,
		Extras: map[string]string{"input": "GHOST", "output": "PGM"},
	})
	require.Error(t, err)
}

func TestRunEventUnknownOutputErrors(t *testing.T) {
	d := newTestDevice(&fakeTransport{})
	err := d.RunEvent(context.Background(), &model.Event{
		Action: crosspoint.ActionSwitch,
		Extras: map[string]string{"input": "CAM1", "output": "GHOST"},
	})
	require.Error(t, err)
}

func TestRunEventTransportFailureLeavesCurrentInputUnset(t *testing.T) {
	d := newTestDevice(&fakeTransport{switchErr: errors.New("router offline")})
	err := d.RunEvent(context.Background(), &model.Event{
		Action: crosspoint.ActionSwitch,
		Extras: map[string]string{"input": "CAM1", "output": "PGM"},
	})
	require.Error(t, err)
	_, ok := d.CurrentInput("PGM")
	require.False(t, ok)
}

func TestRunEventUnknownActionErrors(t *testing.T) {
	d := newTestDevice(&fakeTransport{})
	err := d.RunEvent(context.Background(), &model.Event{Action: 99, Extras: map[string]string{}})
	require.Error(t, err)
}

func TestUpdateHardwareStatusMarksCrashedOnHandshakeFailure(t *testing.T) {
	d := newTestDevice(&fakeTransport{handshakeErr: errors.New("no link")})
	err := d.UpdateHardwareStatus(context.Background())
	require.Error(t, err)
	require.Equal(t, model.StatusCrashed, d.Status())
}
