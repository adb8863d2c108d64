// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package simulated provides logging, always-succeeding Transport
// implementations for the video, graphics and crosspoint device
// families. Real hardware protocols are explicitly out of scope (no
// rendering/transport of audio/video); these let a configured channel
// run end to end against no hardware at all, which is also useful for
// rehearsal and for exercising the mousecatcher/engine pipeline in
// integration tests without a device simulator on the network.
package simulated

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/device/crosspoint"
	"github.com/broadcastauto/tarantula/internal/logging"
)

// Video is a no-op video.Transport that logs every call.
type Video struct {
	Name string
	log  zerolog.Logger
}

// NewVideo constructs a simulated video transport for the named device.
func NewVideo(name string) *Video {
	return &Video{Name: name, log: logging.WithComponent("simulated-video").With().Str("device", name).Logger()}
}

func (v *Video) Load(ctx context.Context, filename string) error {
	v.log.Debug().Str("filename", filename).Msg("simulated load")
	return nil
}

func (v *Video) PlayLoaded(ctx context.Context) error {
	v.log.Debug().Msg("simulated play")
	return nil
}

func (v *Video) Stop(ctx context.Context) error {
	v.log.Debug().Msg("simulated stop")
	return nil
}

func (v *Video) Handshake(ctx context.Context) error {
	v.log.Debug().Msg("simulated handshake")
	return nil
}

// Graphics is a no-op graphics.Transport that logs every call.
type Graphics struct {
	Name string
	log  zerolog.Logger
}

func NewGraphics(name string) *Graphics {
	return &Graphics{Name: name, log: logging.WithComponent("simulated-graphics").With().Str("device", name).Logger()}
}

func (g *Graphics) Add(ctx context.Context, hostLayer, graphic string, data map[string]string) error {
	g.log.Debug().Str("layer", hostLayer).Str("graphic", graphic).Msg("simulated add")
	return nil
}

func (g *Graphics) Update(ctx context.Context, hostLayer string, data map[string]string) error {
	g.log.Debug().Str("layer", hostLayer).Msg("simulated update")
	return nil
}

func (g *Graphics) Play(ctx context.Context, hostLayer string) error {
	g.log.Debug().Str("layer", hostLayer).Msg("simulated play")
	return nil
}

func (g *Graphics) Remove(ctx context.Context, hostLayer string) error {
	g.log.Debug().Str("layer", hostLayer).Msg("simulated remove")
	return nil
}

func (g *Graphics) Handshake(ctx context.Context) error {
	g.log.Debug().Msg("simulated handshake")
	return nil
}

// Crosspoint is a no-op crosspoint.Transport that logs every call.
type Crosspoint struct {
	Name string
	log  zerolog.Logger
}

func NewCrosspoint(name string) *Crosspoint {
	return &Crosspoint{Name: name, log: logging.WithComponent("simulated-crosspoint").With().Str("device", name).Logger()}
}

func (c *Crosspoint) Switch(ctx context.Context, outputPort, inputPort crosspoint.Port) error {
	c.log.Debug().Int("output_video", outputPort.Video).Int("input_video", inputPort.Video).Msg("simulated switch")
	return nil
}

func (c *Crosspoint) Handshake(ctx context.Context) error {
	c.log.Debug().Msg("simulated handshake")
	return nil
}
