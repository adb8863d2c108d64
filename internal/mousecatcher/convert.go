// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package mousecatcher

import (
	"time"

	"github.com/broadcastauto/tarantula/internal/model"
)

// toPlaylistRow converts a wire-shaped PendingEvent into a storage-shaped
// Event. Duration crosses the seconds->frames boundary here, per the
// fixed rule: seconds at the wire, frames inside the store. parent is 0
// for a root event.
func toPlaylistRow(p *model.PendingEvent, parent int, frameRate float64) *model.Event {
	trigger := p.TriggerUnix
	if parent != 0 {
		trigger = int64(parent)
	}
	extras := p.Extras
	if extras == nil {
		extras = map[string]string{}
	}
	return &model.Event{
		Type:         eventTypeForParent(p.Type, parent),
		Trigger:      trigger,
		Device:       p.Device,
		DeviceFamily: p.DeviceFamily,
		Action:       p.Action,
		Duration:     int(p.DurationSeconds * frameRate),
		Parent:       parent,
		Description:  p.Description,
		PreProcessor: p.PreProcessor,
		Extras:       extras,
		Processed:    model.ProcessedPending,
		LastUpdate:   time.Now().Unix(),
	}
}

// eventTypeForParent forces Child for any non-root event, since a
// child's trigger is always reinterpreted as its parent's id regardless
// of what type the wire payload claimed.
func eventTypeForParent(t model.EventType, parent int) model.EventType {
	if parent != 0 {
		return model.EventChild
	}
	return t
}
