// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package graphics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/device/graphics"
	"github.com/broadcastauto/tarantula/internal/model"
)

type fakeTransport struct {
	addErr      error
	updateErr   error
	playErr     error
	removeErr   error
	handshakeErr error
	lastData    map[string]string
}

func (f *fakeTransport) Add(ctx context.Context, hostLayer, graphicName string, data map[string]string) error {
	f.lastData = data
	return f.addErr
}
func (f *fakeTransport) Update(ctx context.Context, hostLayer string, data map[string]string) error {
	f.lastData = data
	return f.updateErr
}
func (f *fakeTransport) Play(ctx context.Context, hostLayer string) error     { return f.playErr }
func (f *fakeTransport) Remove(ctx context.Context, hostLayer string) error   { return f.removeErr }
func (f *fakeTransport) Handshake(ctx context.Context) error                 { return f.handshakeErr }

func TestRunEventAddCreatesLayer(t *testing.T) {
	transport := &fakeTransport{}
	d := graphics.New("CG1", transport, 25, "")

	err := d.RunEvent(context.Background(), &model.Event{
		Action: graphics.ActionAdd,
		Extras: map[string]string{"graphicname": "lower-third", "hostlayer": "L1", "name": "Ada"},
	})
	require.NoError(t, err)

	l, ok := d.LayerState("L1")
	require.True(t, ok)
	require.Equal(t, "lower-third", l.Graphic)
	require.Equal(t, 0, l.PlayStep)
	require.Equal(t, "Ada", l.Data["name"])
	require.NotContains(t, l.Data, "graphicname")
	require.NotContains(t, l.Data, "hostlayer")
}

func TestRunEventPlayIncrementsStep(t *testing.T) {
	d := graphics.New("CG1", &fakeTransport{}, 25, "")
	require.NoError(t, d.RunEvent(context.Background(), &model.Event{
		Action: graphics.ActionAdd,
		Extras: map[string]string{"graphicname": "lower-third", "hostlayer": "L1"},
	}))
	require.NoError(t, d.RunEvent(context.Background(), &model.Event{
		Action: graphics.ActionPlay,
		Extras: map[string]string{"hostlayer": "L1"},
	}))
	l, ok := d.LayerState("L1")
	require.True(t, ok)
	require.Equal(t, 1, l.PlayStep)
}

func TestRunEventRemoveDeletesLayer(t *testing.T) {
	d := graphics.New("CG1", &fakeTransport{}, 25, "")
	require.NoError(t, d.RunEvent(context.Background(), &model.Event{
		Action: graphics.ActionAdd,
		Extras: map[string]string{"graphicname": "lower-third", "hostlayer": "L1"},
	}))
	require.NoError(t, d.RunEvent(context.Background(), &model.Event{
		Action: graphics.ActionRemove,
		Extras: map[string]string{"hostlayer": "L1"},
	}))
	_, ok := d.LayerState("L1")
	require.False(t, ok)
}

func TestRunEventAddPropagatesTransportFailure(t *testing.T) {
	transport := &fakeTransport{addErr: errors.New("cg offline")}
	d := graphics.New("CG1", transport, 25, "")
	err := d.RunEvent(context.Background(), &model.Event{
		Action: graphics.ActionAdd,
		Extras: map[string]string{"graphicname": "lower-third", "hostlayer": "L1"},
	})
	require.Error(t, err)
	_, ok := d.LayerState("L1")
	require.False(t, ok)
}

func TestUpdateHardwareStatusMarksCrashedOnHandshakeFailure(t *testing.T) {
	d := graphics.New("CG1", &fakeTransport{handshakeErr: errors.New("no link")}, 25, "")
	err := d.UpdateHardwareStatus(context.Background())
	require.Error(t, err)
	require.Equal(t, model.StatusCrashed, d.Status())
}

func TestRunEventUnknownActionErrors(t *testing.T) {
	d := graphics.New("CG1", &fakeTransport{}, 25, "")
	err := d.RunEvent(context.Background(), &model.Event{Action: 99, Extras: map[string]string{}})
	require.Error(t, err)
}
