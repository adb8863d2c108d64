// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package playlist_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/playlist"
)

func openTestStore(t *testing.T) *playlist.Store {
	t.Helper()
	s, err := playlist.Open(t.TempDir(), "C1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndGetEventDetails(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Add(&model.Event{
		Type:    model.EventFixed,
		Trigger: 1000,
		Device:  "C1.vid",
		Action:  0,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.GetEventDetails(id)
	require.NoError(t, err)
	require.Equal(t, "C1.vid", got.Device)
	require.Equal(t, model.ProcessedPending, got.Processed)
}

func TestGetEventsFiltersByTypeTriggerAndProcessed(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 500})
	require.NoError(t, err)
	_, err = s.Add(&model.Event{Type: model.EventFixed, Trigger: 600})
	require.NoError(t, err)
	_, err = s.Add(&model.Event{Type: model.EventManual, Trigger: 500})
	require.NoError(t, err)

	rows, err := s.GetEvents(model.EventFixed, 500)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, id1, rows[0].ID)

	require.NoError(t, s.Process(id1))
	rows, err = s.GetEvents(model.EventFixed, 500)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRemoveCascadesToChildren(t *testing.T) {
	s := openTestStore(t)

	parent, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 10})
	require.NoError(t, err)
	child, err := s.Add(&model.Event{Type: model.EventChild, Trigger: int64(parent), Parent: parent})
	require.NoError(t, err)

	require.NoError(t, s.Remove(parent))

	_, err = s.GetEventDetails(parent)
	require.ErrorIs(t, err, model.ErrEventNotFound)
	_, err = s.GetEventDetails(child)
	require.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestProcessIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 10})
	require.NoError(t, err)

	require.NoError(t, s.Process(id))
	first, err := s.GetEventDetails(id)
	require.NoError(t, err)

	require.NoError(t, s.Process(id))
	second, err := s.GetEventDetails(id)
	require.NoError(t, err)

	require.Equal(t, first.Processed, second.Processed)
}

func TestGetActiveHold(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Add(&model.Event{Type: model.EventManual, Trigger: 100})
	require.NoError(t, err)
	later, err := s.Add(&model.Event{Type: model.EventManual, Trigger: 150})
	require.NoError(t, err)

	hold, err := s.GetActiveHold(160)
	require.NoError(t, err)
	require.Equal(t, later, hold)

	hold, err = s.GetActiveHold(50)
	require.NoError(t, err)
	require.Zero(t, hold)
}

func TestShuntNeverMovesEventsBeforeStart(t *testing.T) {
	s := openTestStore(t)

	before, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 50})
	require.NoError(t, err)
	inRegion, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 100, Duration: 25 * 10})
	require.NoError(t, err)

	require.NoError(t, s.Shunt(100, 20, 25))

	untouched, err := s.GetEventDetails(before)
	require.NoError(t, err)
	require.EqualValues(t, 50, untouched.Trigger)

	moved, err := s.GetEventDetails(inRegion)
	require.NoError(t, err)
	require.EqualValues(t, 120, moved.Trigger)
}

// TestShuntConvertsDurationFromFrames guards against growing the shunt
// region by a root's raw frame count instead of its duration in seconds:
// a 10s clip stored as 250 frames at 25fps must extend the region by 10s,
// not 250s, so an unrelated later root stays untouched.
func TestShuntConvertsDurationFromFrames(t *testing.T) {
	s := openTestStore(t)

	inRegion, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 100, Duration: 250})
	require.NoError(t, err)
	farAway, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 200})
	require.NoError(t, err)

	require.NoError(t, s.Shunt(100, 20, 25))

	moved, err := s.GetEventDetails(inRegion)
	require.NoError(t, err)
	require.EqualValues(t, 120, moved.Trigger)

	untouched, err := s.GetEventDetails(farAway)
	require.NoError(t, err)
	require.EqualValues(t, 200, untouched.Trigger)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := playlist.Open(filepath.Join(dir, "db"), "C1")
	require.NoError(t, err)

	id, err := s.Add(&model.Event{Type: model.EventFixed, Trigger: 10, Device: "C1.vid"})
	require.NoError(t, err)

	snapPath := filepath.Join(dir, "snapshot.json")
	require.NoError(t, s.Snapshot(snapPath))
	require.NoError(t, s.Close())

	restored, err := playlist.Open(filepath.Join(dir, "db2"), "C1")
	require.NoError(t, err)
	defer restored.Close()

	require.NoError(t, restored.Restore(snapPath))
	got, err := restored.GetEventDetails(id)
	require.NoError(t, err)
	require.Equal(t, "C1.vid", got.Device)
}
