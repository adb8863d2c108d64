// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package video implements the Video device family: play/load/stop
// against a file catalogue refreshed off-tick by an async job.
package video

import (
	"context"
	"fmt"

	"github.com/broadcastauto/tarantula/internal/device"
	"github.com/broadcastauto/tarantula/internal/model"
)

// Action ids for the video family's fixed action table.
const (
	ActionPlay = iota
	ActionLoad
	ActionPlayLoaded
	ActionStop
)

var actionTable = []model.Action{
	{ID: ActionPlay, Name: "play", Description: "load then play a file", Params: map[string]string{"filename": "string"}},
	{ID: ActionLoad, Name: "load", Description: "cue a file without playing", Params: map[string]string{"filename": "string"}},
	{ID: ActionPlayLoaded, Name: "play-loaded", Description: "start playback of the currently loaded file"},
	{ID: ActionStop, Name: "stop", Description: "stop playback"},
}

// PlayState is the device's playback state.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Missing
	Fail
)

// CatalogueEntry describes one playable file as known to the device.
type CatalogueEntry struct {
	Path           string
	DurationFrames int
	SizeBytes      int64
}

// Catalogue is the name -> entry lookup a video device consults before
// dispatching play/load. It is refreshed by an async job that diffs
// against the persisted duration database (internal/scanner) rather
// than blocking the tick on a remote file listing.
type Catalogue interface {
	Lookup(name string) (CatalogueEntry, bool)
}

// Transport is the protocol-facing contract a concrete video-server
// driver implements; the wire protocol itself (e.g. AMCP to a specific
// server) is out of scope for the core and supplied by the caller.
type Transport interface {
	Load(ctx context.Context, filename string) error
	PlayLoaded(ctx context.Context) error
	Stop(ctx context.Context) error
	Handshake(ctx context.Context) error
}

// Device is a video-server playout channel.
type Device struct {
	*device.Base
	transport Transport
	catalogue Catalogue

	state           PlayState
	currentFilename string
	remainingFrames int
	frameRate       float64
}

// New constructs a video Device. frameRate is stored with the device;
// Poll decrements RemainingFrames by one per call and does not use it.
func New(name string, transport Transport, catalogue Catalogue, pollPeriod int, configPath string, frameRate float64) *Device {
	return &Device{
		Base:      device.NewBase(name, model.FamilyVideo, actionTable, pollPeriod, configPath),
		transport: transport,
		catalogue: catalogue,
		state:     Stopped,
		frameRate: frameRate,
	}
}

// State reports the current playback state, for UI/metrics.
func (d *Device) State() PlayState { return d.state }

// RemainingFrames reports how many frames remain in the current play.
func (d *Device) RemainingFrames() int { return d.remainingFrames }

// Poll decays RemainingFrames for the currently playing clip, stopping
// at zero. It runs once per tick, as required by the Device interface.
func (d *Device) Poll(ctx context.Context) error {
	if d.state == Playing && d.remainingFrames > 0 {
		d.remainingFrames--
		if d.remainingFrames == 0 {
			d.state = Stopped
		}
	}
	return nil
}

// UpdateHardwareStatus performs the handshake every PollPeriod ticks;
// a failure here, not a dispatch error, is what transitions the device
// to crashed.
func (d *Device) UpdateHardwareStatus(ctx context.Context) error {
	if err := d.transport.Handshake(ctx); err != nil {
		d.MarkCrashed(ctx, err)
		return err
	}
	if d.Status() == model.StatusStarting || d.Status() == model.StatusWaiting {
		d.SetStatus(model.StatusReady)
	}
	return nil
}

// RunEvent dispatches a playlist row to the matching video command.
func (d *Device) RunEvent(ctx context.Context, e *model.Event) error {
	switch e.Action {
	case ActionPlay:
		filename := e.Extras["filename"]
		if err := d.resolveDuration(filename, e); err != nil {
			d.state = Missing
			return err
		}
		return d.Dispatch(func() error {
			if err := d.transport.Load(ctx, filename); err != nil {
				return err
			}
			if err := d.transport.PlayLoaded(ctx); err != nil {
				return err
			}
			d.currentFilename = filename
			d.state = Playing
			return nil
		})
	case ActionLoad:
		filename := e.Extras["filename"]
		return d.Dispatch(func() error {
			err := d.transport.Load(ctx, filename)
			if err == nil {
				d.currentFilename = filename
			}
			return err
		})
	case ActionPlayLoaded:
		return d.Dispatch(func() error {
			err := d.transport.PlayLoaded(ctx)
			if err == nil {
				d.state = Playing
			}
			return err
		})
	case ActionStop:
		return d.Dispatch(func() error {
			err := d.transport.Stop(ctx)
			if err == nil {
				d.state = Stopped
				d.remainingFrames = 0
			}
			return err
		})
	default:
		return fmt.Errorf("video device %s: unknown action %d", d.Name(), e.Action)
	}
}

func (d *Device) resolveDuration(filename string, e *model.Event) error {
	if d.catalogue == nil {
		d.remainingFrames = e.Duration
		return nil
	}
	entry, ok := d.catalogue.Lookup(filename)
	if !ok {
		return fmt.Errorf("video device %s: file %q not in catalogue", d.Name(), filename)
	}
	if e.Duration > 0 {
		d.remainingFrames = e.Duration
	} else {
		d.remainingFrames = entry.DurationFrames
	}
	return nil
}

var _ model.Device = (*Device)(nil)
