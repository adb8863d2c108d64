// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package channelrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/broadcastauto/tarantula/internal/device/crosspoint"
	"github.com/broadcastauto/tarantula/internal/model"
)

// ManualHoldRelease returns the manual-hold-release pre-processor bound
// to channel c: triggering a manual event with extras["switchchannel"]
// set erases that event's remaining children, shunts the timeline to
// close the gap left by the hold, and appends a synthetic crosspoint
// switch event as a new sibling under the original parent. This is the
// only pre-processor that mutates the playlist itself rather than just
// the in-flight event's extras.
func ManualHoldRelease(c *Channel) model.PreProcessor {
	return func(ctx context.Context, e *model.Event, channel string) error {
		switchTo, ok := e.Extras["switchchannel"]
		if !ok || switchTo == "" {
			return nil
		}

		children, err := c.Store.GetChildren(e.ID)
		if err != nil {
			return fmt.Errorf("manual-hold-release: get children of %d: %w", e.ID, err)
		}
		for _, child := range children {
			if err := c.Store.Remove(child.ID); err != nil {
				return fmt.Errorf("manual-hold-release: remove child %d: %w", child.ID, err)
			}
		}

		now := time.Now().Unix()
		endUnix := e.Trigger + int64(float64(e.Duration)/c.FrameRate)
		delta := now - endUnix
		if err := c.Store.Shunt(endUnix, delta, c.FrameRate); err != nil {
			return fmt.Errorf("manual-hold-release: shunt: %w", err)
		}

		switchEvent := &model.Event{
			Type:         model.EventChild,
			Trigger:      int64(e.Parent),
			Device:       c.RouterDevice,
			DeviceFamily: model.FamilyCrosspoint,
			Action:       crosspoint.ActionSwitch,
			Duration:     0,
			Parent:       e.Parent,
			Description:  "manual hold release: switch to " + switchTo,
			Extras: map[string]string{
				"input":  switchTo,
				"output": c.RouterOutput,
			},
			Processed: model.ProcessedPending,
		}
		if _, err := c.Store.Add(switchEvent); err != nil {
			return fmt.Errorf("manual-hold-release: add switch event: %w", err)
		}
		return nil
	}
}
