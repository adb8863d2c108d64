// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package device_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/device"
	"github.com/broadcastauto/tarantula/internal/model"
)

func TestNewBaseDefaults(t *testing.T) {
	actions := []model.Action{{ID: 0, Name: "play"}}
	b := device.NewBase("VID1", model.FamilyVideo, actions, 25, "/etc/vid1.yaml")

	require.Equal(t, "VID1", b.Name())
	require.Equal(t, model.FamilyVideo, b.Family())
	require.Equal(t, 25, b.PollPeriod())
	require.Equal(t, "/etc/vid1.yaml", b.ConfigPath())
	require.Equal(t, model.StatusStarting, b.Status())

	a, ok := b.Actions().Lookup(0)
	require.True(t, ok)
	require.Equal(t, "play", a.Name)
}

func TestSetStatus(t *testing.T) {
	b := device.NewBase("VID1", model.FamilyVideo, nil, 25, "")
	b.SetStatus(model.StatusReady)
	require.Equal(t, model.StatusReady, b.Status())
}

func TestDispatchPassesThroughSuccess(t *testing.T) {
	b := device.NewBase("VID1", model.FamilyVideo, nil, 25, "")
	called := false
	err := b.Dispatch(func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestDispatchWrapsFailure(t *testing.T) {
	b := device.NewBase("VID1", model.FamilyVideo, nil, 25, "")
	want := errors.New("boom")
	err := b.Dispatch(func() error { return want })
	require.Error(t, err)
	require.ErrorIs(t, err, want)
}

func TestDispatchTripsBreakerAfterConsecutiveFailures(t *testing.T) {
	b := device.NewBase("VID1", model.FamilyVideo, nil, 25, "")
	want := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := b.Dispatch(func() error { return want })
		require.Error(t, err)
	}
	// the breaker is now open; Dispatch fails without invoking fn
	called := false
	err := b.Dispatch(func() error { called = true; return nil })
	require.Error(t, err)
	require.False(t, called)
}

func TestMarkCrashedSetsStatus(t *testing.T) {
	b := device.NewBase("VID1", model.FamilyVideo, nil, 25, "")
	b.SetStatus(model.StatusReady)
	b.MarkCrashed(context.Background(), errors.New("lost connection"))
	require.Equal(t, model.StatusCrashed, b.Status())
}
