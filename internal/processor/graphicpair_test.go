// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package processor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broadcastauto/tarantula/internal/device/graphics"
	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/processor"
)

func TestGraphicPairEmitsAddAndRemoveChildren(t *testing.T) {
	p := processor.NewGraphicPair("GFXPAIR", "CG1")

	input := &model.PendingEvent{
		Type:            model.EventFixed,
		Device:          "GFXPAIR",
		TriggerUnix:     1000,
		DurationSeconds: 30,
		Extras: map[string]string{
			"graphicname": "lower-third",
			"hostlayer":   "L1",
		},
	}
	result := &model.PendingEvent{}
	require.NoError(t, p.Handle(context.Background(), input, result))

	require.Equal(t, model.FamilyProcessorPlaceholder, result.DeviceFamily)
	require.Len(t, result.ChildEvents, 2)

	add := result.ChildEvents[0]
	require.Equal(t, graphics.ActionAdd, add.Action)
	require.Equal(t, "lower-third", add.Extras["graphicname"])

	remove := result.ChildEvents[1]
	require.Equal(t, graphics.ActionRemove, remove.Action)
	require.Equal(t, int64(1030), remove.TriggerUnix)
}

func TestGraphicPairRejectsMissingFields(t *testing.T) {
	p := processor.NewGraphicPair("GFXPAIR", "CG1")
	input := &model.PendingEvent{DurationSeconds: 10}
	err := p.Handle(context.Background(), input, &model.PendingEvent{})
	require.Error(t, err)
}
