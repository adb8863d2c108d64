// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package channelrunner drives one channel's per-tick dispatch: pull
// due events, enforce the active manual hold, invoke pre-processors,
// dispatch to the target device, and periodically submit an async
// snapshot job. It owns no device or processor state itself — those
// live in the shared registries — only the channel's playlist and
// router identity.
package channelrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/asyncjob"
	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/metrics"
	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/playlist"
	"github.com/broadcastauto/tarantula/internal/registry"
)

// Channel is one playout channel: its identity, its router binding
// (used by the manual-hold-release pre-processor), its owned playlist
// store, and the shared registries it dispatches against.
type Channel struct {
	Name      string
	FrameRate float64

	// RouterDevice/RouterOutput name the crosspoint device and output
	// port this channel switches on manual-hold release.
	RouterDevice string
	RouterOutput string

	Store         *playlist.Store
	Devices       *registry.Devices
	PreProcessors *registry.PreProcessors

	SnapshotPath   string
	SnapshotEvery  int // ticks between snapshot jobs
	snapshotTicks  int

	log zerolog.Logger
}

// New constructs a channel runner bound to an already-open store.
func New(name string, frameRate float64, store *playlist.Store, devices *registry.Devices, preprocessors *registry.PreProcessors) *Channel {
	return &Channel{
		Name:          name,
		FrameRate:     frameRate,
		Store:         store,
		Devices:       devices,
		PreProcessors: preprocessors,
		SnapshotEvery: 750, // 30s at 25fps, matches the teacher's periodic-job cadence
		log:           logging.WithComponent("channelrunner").With().Str("channel", name).Logger(),
	}
}

// Tick runs one engine tick for this channel, per the spec's ordered
// four-step algorithm. It must be called under the engine mutex.
func (c *Channel) Tick(ctx context.Context, now int64, jobs *asyncjob.System) error {
	activeHold, err := c.Store.GetActiveHold(now)
	if err != nil {
		return fmt.Errorf("channel %s: get active hold: %w", c.Name, err)
	}

	due, err := c.dueEvents(now)
	if err != nil {
		return fmt.Errorf("channel %s: get due events: %w", c.Name, err)
	}

	for _, e := range due {
		if activeHold != 0 && e.Parent != activeHold {
			c.log.Info().Int("event_id", e.ID).Int("active_hold", activeHold).Msg("event skipped: channel under manual hold")
			continue
		}
		c.runEvent(ctx, e)
	}

	c.snapshotTicks++
	if jobs != nil && c.SnapshotPath != "" && c.snapshotTicks >= c.SnapshotEvery {
		c.snapshotTicks = 0
		c.submitSnapshot(jobs)
	}

	metrics.PlaylistEventsActive.WithLabelValues(c.Name).Set(float64(len(due)))
	return nil
}

// ManualTrigger is the external release operation for a manual hold:
// it dispatches the named event directly (running its pre-processor,
// e.g. manual-hold-release) regardless of the hold-skip rule that
// otherwise keeps a hold event itself from running during ordinary
// ticks. Callers reach this via the HTTP/XML adapters' operator
// actions, not via the per-tick due-event scan.
func (c *Channel) ManualTrigger(ctx context.Context, id int) error {
	e, err := c.Store.GetEventDetails(id)
	if err != nil {
		return fmt.Errorf("channel %s: manual trigger %d: %w", c.Name, id, err)
	}
	c.runEvent(ctx, e)
	return nil
}

func (c *Channel) dueEvents(now int64) ([]*model.Event, error) {
	fixed, err := c.Store.GetEvents(model.EventFixed, now)
	if err != nil {
		return nil, err
	}
	manual, err := c.Store.GetEvents(model.EventManual, now)
	if err != nil {
		return nil, err
	}
	return append(fixed, manual...), nil
}

// runEvent dispatches a single due event. Errors are caught and logged
// here; the row is always marked processed so one bad row cannot stall
// the channel, per the error-handling policy for device dispatch.
func (c *Channel) runEvent(ctx context.Context, e *model.Event) {
	if e.PreProcessor != "" {
		if fn, ok := c.PreProcessors.Get(e.PreProcessor); ok {
			if err := fn(ctx, e, c.Name); err != nil {
				c.log.Warn().Err(err).Int("event_id", e.ID).Str("preprocessor", e.PreProcessor).Msg("pre-processor failed")
			}
		} else {
			c.log.Warn().Int("event_id", e.ID).Str("preprocessor", e.PreProcessor).Msg("unknown pre-processor")
		}
	}

	if e.DeviceFamily == model.FamilyProcessorPlaceholder {
		c.markProcessed(e.ID)
		return
	}

	dev, err := c.Devices.Get(e.Device)
	if err != nil {
		c.log.Warn().Int("event_id", e.ID).Str("device", e.Device).Msg("target device not found")
		c.markProcessed(e.ID)
		return
	}

	start := time.Now()
	err = dev.RunEvent(ctx, e)
	metrics.ObserveDispatch(dev.Name(), start, err, false)
	if err != nil {
		c.log.Warn().Err(err).Int("event_id", e.ID).Str("device", e.Device).Msg("device dispatch failed")
	}
	c.markProcessed(e.ID)
}

func (c *Channel) markProcessed(id int) {
	if err := c.Store.Process(id); err != nil {
		c.log.Error().Err(err).Int("event_id", id).Msg("failed to mark event processed")
	}
}

func (c *Channel) submitSnapshot(jobs *asyncjob.System) {
	path := c.SnapshotPath
	metrics.AsyncJobsSubmittedTotal.WithLabelValues("snapshot").Inc()
	jobs.Submit(&asyncjob.Job{
		Priority: 0,
		Work: func(ctx context.Context, lock asyncjob.Locker, payload any) error {
			return c.Store.Snapshot(path)
		},
		Completion: func(payload any, workErr error) {
			outcome := "ok"
			if workErr != nil {
				outcome = "error"
				c.log.Error().Err(workErr).Msg("playlist snapshot job failed")
			}
			metrics.AsyncJobsCompletedTotal.WithLabelValues("snapshot", outcome).Inc()
		},
	})
}
