// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package mousecatcher

import (
	"context"

	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/scanner"
)

// handleUpdatePlaylist gathers the requested window of top-level events
// and reports them back through the action's originating Reporter.
func (c *Core) handleUpdatePlaylist(ctx context.Context, action *model.EventAction) {
	ch, err := c.Channels.Get(action.Channel)
	if err != nil {
		action.ReturnMessage = err.Error()
		return
	}
	events, err := ch.Store.GetEventList(action.UpdateStart, action.UpdateLength)
	if err != nil {
		action.ReturnMessage = err.Error()
		return
	}
	if r, ok := action.Origin.(Reporter); ok {
		r.ReportPlaylist(ctx, action.Correlation, events, ch.FrameRate)
	}
}

// handleUpdateDevices reports the current status snapshot of every
// registered device.
func (c *Core) handleUpdateDevices(ctx context.Context, action *model.EventAction) {
	all := c.Devices.All()
	snapshot := make([]model.Device, len(all))
	copy(snapshot, all)
	if r, ok := action.Origin.(Reporter); ok {
		r.ReportDevices(ctx, action.Correlation, snapshot)
	}
}

// handleUpdateActions reports each registered device's action table,
// keyed by device name.
func (c *Core) handleUpdateActions(ctx context.Context, action *model.EventAction) {
	tables := make(map[string]*model.ActionTable)
	for _, d := range c.Devices.All() {
		tables[d.Name()] = d.Actions()
	}
	if r, ok := action.Origin.(Reporter); ok {
		r.ReportActions(ctx, action.Correlation, tables)
	}
}

// handleUpdateProcessors reports every registered processor's name.
func (c *Core) handleUpdateProcessors(ctx context.Context, action *model.EventAction) {
	names := c.Processors.Names()
	if r, ok := action.Origin.(Reporter); ok {
		r.ReportProcessors(ctx, action.Correlation, names)
	}
}

// handleUpdateFiles reports the scanner's current record set. A nil
// Scanner (not configured for this deployment) reports an empty set
// rather than erroring, since file listing is an optional capability
// some devices never need.
func (c *Core) handleUpdateFiles(ctx context.Context, action *model.EventAction) {
	var records []*scanner.Record
	if c.Scanner != nil {
		all, err := c.Scanner.All()
		if err != nil {
			action.ReturnMessage = err.Error()
			return
		}
		records = all
	}
	if r, ok := action.Origin.(Reporter); ok {
		r.ReportFiles(ctx, action.Correlation, action.UpdateDevice, records)
	}
}
