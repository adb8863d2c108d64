// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package mousecatcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/channelrunner"
	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/registry"
	"github.com/broadcastauto/tarantula/internal/scanner"
)

// SourceAdapter is the contract every event source (XML/TCP, HTTP)
// implements. Tick is called once per engine tick and must not block;
// adapters push mutations onto queue as their own network polling
// completes.
type SourceAdapter interface {
	model.Source
	Tick(ctx context.Context, queue *Queue) error
}

// Reporter is the richer contract a source adapter exposes so the core
// can route an Update* action's resulting snapshot back to whichever
// connection asked for it, keyed by the action's Correlation payload.
type Reporter interface {
	model.Source
	ReportPlaylist(ctx context.Context, correlation any, events []*model.Event, frameRate float64)
	ReportDevices(ctx context.Context, correlation any, devices []model.Device)
	ReportActions(ctx context.Context, correlation any, tables map[string]*model.ActionTable)
	ReportProcessors(ctx context.Context, correlation any, names []string)
	ReportFiles(ctx context.Context, correlation any, device string, records []*scanner.Record)
}

// Core drives the mutation pipeline: per tick it ticks every source
// adapter, then drains and processes every queued action.
type Core struct {
	Queue     *Queue
	Channels  *channelrunner.Channels
	Devices   *registry.Devices
	Processors *registry.Processors
	Scanner   *scanner.Scanner // optional; nil disables UpdateFiles

	sources []SourceAdapter
	log     zerolog.Logger
}

// New constructs a mousecatcher core bound to the shared registries.
func New(channels *channelrunner.Channels, devices *registry.Devices, processors *registry.Processors, sc *scanner.Scanner) *Core {
	return &Core{
		Queue:      NewQueue(),
		Channels:   channels,
		Devices:    devices,
		Processors: processors,
		Scanner:    sc,
		log:        logging.WithComponent("mousecatcher"),
	}
}

// RegisterSource adds a source adapter to the set ticked every cycle.
func (c *Core) RegisterSource(s SourceAdapter) {
	c.sources = append(c.sources, s)
}

// Tick runs one cycle of the mutation pipeline: tick every source, then
// drain and process every action it (or any other caller) enqueued.
// Must run under the engine mutex.
func (c *Core) Tick(ctx context.Context) error {
	for _, s := range c.sources {
		if err := s.Tick(ctx, c.Queue); err != nil {
			c.log.Warn().Err(err).Str("source", s.Name()).Msg("source adapter tick failed")
		}
	}

	for _, action := range c.Queue.drain() {
		c.processAction(ctx, action)
	}
	return nil
}

func (c *Core) processAction(ctx context.Context, action *model.EventAction) {
	switch action.Kind {
	case model.ActionAdd:
		_, err := c.processEvent(ctx, action.Channel, action.Event, 0, action)
		if err != nil {
			action.ReturnMessage = err.Error()
		}
	case model.ActionRemove:
		c.handleRemove(action)
	case model.ActionEdit:
		removeAction := &model.EventAction{Channel: action.Channel, EventID: action.EventID}
		c.handleRemove(removeAction)
		if removeAction.ReturnMessage != "" {
			action.ReturnMessage = removeAction.ReturnMessage
		} else if _, err := c.processEvent(ctx, action.Channel, action.Event, 0, action); err != nil {
			action.ReturnMessage = err.Error()
		}
	case model.ActionUpdatePlaylist:
		c.handleUpdatePlaylist(ctx, action)
	case model.ActionUpdateDevices:
		c.handleUpdateDevices(ctx, action)
	case model.ActionUpdateActions:
		c.handleUpdateActions(ctx, action)
	case model.ActionUpdateProcessors:
		c.handleUpdateProcessors(ctx, action)
	case model.ActionUpdateFiles:
		c.handleUpdateFiles(ctx, action)
	default:
		action.ReturnMessage = fmt.Sprintf("unknown action kind %v", action.Kind)
	}
	action.Done = true
}

func (c *Core) handleRemove(action *model.EventAction) {
	ch, err := c.Channels.Get(action.Channel)
	if err != nil {
		action.ReturnMessage = err.Error()
		return
	}
	if err := ch.Store.Remove(action.EventID); err != nil {
		action.ReturnMessage = err.Error()
	}
}

// processEvent recursively translates a PendingEvent into playlist
// rows: if the target names a processor, the processor expands it into
// a replacement event first; otherwise the event (and its declared
// children) are written to the store directly.
func (c *Core) processEvent(ctx context.Context, channelName string, event *model.PendingEvent, parent int, action *model.EventAction) (int, error) {
	ch, err := c.Channels.Get(channelName)
	if err != nil {
		return 0, fmt.Errorf("channel %s not found", channelName)
	}

	working := event
	if _, devErr := c.Devices.Get(event.Device); devErr != nil {
		proc, procErr := c.Processors.Get(event.Device)
		if procErr != nil {
			return 0, fmt.Errorf("device/processor %s not found", event.Device)
		}
		input := *event
		input.Action = -1
		result := &model.PendingEvent{}
		if err := proc.Handle(ctx, &input, result); err != nil {
			return 0, fmt.Errorf("processor %s: %w", event.Device, err)
		}
		working = result
	} else if event.Type != model.EventFixed && parent == 0 {
		return 0, model.ErrOrphanEvent
	}

	row := toPlaylistRow(working, parent, ch.FrameRate)
	id, err := ch.Store.Add(row)
	if err != nil {
		return 0, err
	}

	for _, child := range working.ChildEvents {
		if _, err := c.processEvent(ctx, channelName, child, id, action); err != nil {
			c.log.Warn().Err(err).Int("parent_id", id).Msg("child event failed")
		}
	}

	return id, nil
}
