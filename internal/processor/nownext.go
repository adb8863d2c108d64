// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package processor

import (
	"context"
	"time"

	"github.com/broadcastauto/tarantula/internal/channelrunner"
	"github.com/broadcastauto/tarantula/internal/model"
)

// PopulateNowNext returns the populate-now-next pre-processor bound to
// channel c: immediately before a now/next overlay graphic dispatches,
// it fills nexttext/thentext in the event's extras from the channel's
// upcoming top-level schedule. Supplements spec.md's extra-data key
// list with the original's populateCGNowNext behaviour.
func PopulateNowNext(c *channelrunner.Channel) model.PreProcessor {
	return func(ctx context.Context, e *model.Event, channel string) error {
		now := time.Now().Unix()

		next, err := c.Store.GetNext(now)
		if err != nil {
			return err
		}
		if next == nil {
			e.Extras["nexttext"] = ""
			e.Extras["thentext"] = ""
			return nil
		}
		e.Extras["nexttext"] = next.Description

		after, err := c.Store.GetEventList(next.Trigger+1, 1<<40)
		if err != nil {
			return err
		}
		if len(after) > 0 {
			e.Extras["thentext"] = after[0].Description
		} else {
			e.Extras["thentext"] = ""
		}
		return nil
	}
}
