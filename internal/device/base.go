// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package device holds the shared bookkeeping every family dispatcher
// (video, graphics, crosspoint) embeds: status, action table, poll
// period and a circuit-breaker-wrapped dispatch helper. The family
// packages under internal/device/{video,graphics,crosspoint} hold the
// actual protocol-facing logic and satisfy model.Device.
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/broadcastauto/tarantula/internal/model"
)

// Base provides the status/action-table/poll-period bookkeeping common
// to every device family, plus a circuit breaker around dispatch so a
// flapping device trips before the plugin supervisor's crash-credit
// bookkeeping sees repeated failures.
type Base struct {
	name       string
	family     model.DeviceFamily
	actions    *model.ActionTable
	pollPeriod int
	configPath string

	mu     sync.RWMutex
	status model.DeviceStatus

	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBase constructs the embeddable base for a concrete device.
func NewBase(name string, family model.DeviceFamily, actions []model.Action, pollPeriod int, configPath string) *Base {
	b := &Base{
		name:       name,
		family:     family,
		actions:    model.NewActionTable(actions),
		pollPeriod: pollPeriod,
		configPath: configPath,
		status:     model.StatusStarting,
	}
	b.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name + "-dispatch",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return b
}

func (b *Base) Name() string                 { return b.name }
func (b *Base) Family() model.DeviceFamily   { return b.family }
func (b *Base) Actions() *model.ActionTable  { return b.actions }
func (b *Base) PollPeriod() int              { return b.pollPeriod }
func (b *Base) ConfigPath() string           { return b.configPath }

func (b *Base) Status() model.DeviceStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// SetStatus transitions the device's supervised lifecycle state.
func (b *Base) SetStatus(s model.DeviceStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}

// Dispatch runs fn (the family's actual protocol call) through the
// circuit breaker. A tripped breaker surfaces as an error to the
// channel runner without the device itself transitioning to crashed —
// per spec, only hardware-level failures observed in poll do that.
func (b *Base) Dispatch(fn func() error) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if err != nil {
		return fmt.Errorf("dispatch on %s: %w", b.name, err)
	}
	return nil
}

// MarkCrashed is called by the family implementation's poll/status
// refresh when it observes a hardware error or lost connection.
func (b *Base) MarkCrashed(ctx context.Context, cause error) {
	b.SetStatus(model.StatusCrashed)
	_ = ctx
	_ = cause
}
