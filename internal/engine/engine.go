// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package engine drives the cooperatively single-threaded tick loop:
// acquire the engine mutex with a one-frame timeout, run every tick
// callback in order (channel runners, device polls, the plugin
// supervisor, the async worker's completion phase, then the
// mousecatcher core's source-adapter ticks and queue drain), release
// the mutex, and sleep whatever remains of the frame budget.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/asyncjob"
	"github.com/broadcastauto/tarantula/internal/channelrunner"
	"github.com/broadcastauto/tarantula/internal/enginelock"
	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/metrics"
	"github.com/broadcastauto/tarantula/internal/mousecatcher"
	"github.com/broadcastauto/tarantula/internal/plugin"
	"github.com/broadcastauto/tarantula/internal/registry"
)

// Engine owns the tick loop and the shared state every tick callback
// touches. It implements suture.Service so it can run as one of the
// process supervisor tree's services.
type Engine struct {
	FrameRate float64

	Lock      *enginelock.Mutex
	Channels  *channelrunner.Channels
	Devices   *registry.Devices
	Plugins   *plugin.Supervisor
	Jobs      *asyncjob.System
	Mouse     *mousecatcher.Core

	mu         sync.Mutex
	pollCounts map[string]int

	log zerolog.Logger
}

// New constructs an Engine. Plugins, Jobs and Mouse may be nil to
// disable that tick phase (e.g. in a minimal test harness); Devices,
// Channels and Lock are required.
func New(frameRate float64, lock *enginelock.Mutex, channels *channelrunner.Channels, devices *registry.Devices, plugins *plugin.Supervisor, jobs *asyncjob.System, mouse *mousecatcher.Core) *Engine {
	return &Engine{
		FrameRate:  frameRate,
		Lock:       lock,
		Channels:   channels,
		Devices:    devices,
		Plugins:    plugins,
		Jobs:       jobs,
		Mouse:      mouse,
		pollCounts: make(map[string]int),
		log:        logging.WithComponent("engine"),
	}
}

// String implements fmt.Stringer so the supervisor tree can label this
// service in logs.
func (e *Engine) String() string { return "engine" }

// Serve runs the tick loop until ctx is cancelled.
func (e *Engine) Serve(ctx context.Context) error {
	frame := e.frameDuration()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		e.tick(ctx, frame)
		elapsed := time.Since(start)

		if remaining := frame - elapsed; remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (e *Engine) frameDuration() time.Duration {
	if e.FrameRate <= 0 {
		return 40 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / e.FrameRate)
}

// tick runs exactly one pass of the spec's ordered tick-callback list,
// under the engine mutex acquired with a one-frame timeout.
func (e *Engine) tick(ctx context.Context, frame time.Duration) {
	start := time.Now()
	if !e.Lock.TryLockTimeout(frame) {
		metrics.TickMutexMissesTotal.Inc()
		e.log.Warn().Msg("tick skipped: engine mutex not acquired within one frame")
		return
	}
	defer e.Lock.Unlock()

	now := time.Now().Unix()

	for _, c := range e.Channels.All() {
		if err := c.Tick(ctx, now, e.Jobs); err != nil {
			e.log.Warn().Err(err).Str("channel", c.Name).Msg("channel tick failed")
		}
	}

	e.pollDevices(ctx)

	if e.Plugins != nil {
		e.Plugins.Tick()
	}

	if e.Jobs != nil {
		e.Jobs.RunCompletionPhase()
	}

	if e.Mouse != nil {
		if err := e.Mouse.Tick(ctx); err != nil {
			e.log.Warn().Err(err).Msg("mousecatcher tick failed")
		}
	}

	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// pollDevices runs every device's cheap per-tick Poll, and its
// comparatively expensive UpdateHardwareStatus every PollPeriod ticks.
func (e *Engine) pollDevices(ctx context.Context) {
	for _, d := range e.Devices.All() {
		if err := d.Poll(ctx); err != nil {
			e.log.Warn().Err(err).Str("device", d.Name()).Msg("device poll failed")
		}

		period := d.PollPeriod()
		if period <= 0 {
			continue
		}

		e.mu.Lock()
		e.pollCounts[d.Name()]++
		due := e.pollCounts[d.Name()] >= period
		if due {
			e.pollCounts[d.Name()] = 0
		}
		e.mu.Unlock()

		if due {
			if err := d.UpdateHardwareStatus(ctx); err != nil {
				e.log.Warn().Err(err).Str("device", d.Name()).Msg("device hardware status update failed")
			}
		}
	}
}
