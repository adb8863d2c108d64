// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package model

import "context"

// DeviceStatus is the plugin supervisor's lifecycle state for a device
// (or, reused unmodified, any other supervised plugin).
type DeviceStatus int

const (
	StatusStarting DeviceStatus = iota
	StatusWaiting
	StatusReady
	StatusFailed
	StatusCrashed
	StatusUnload
)

func (s DeviceStatus) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusWaiting:
		return "waiting"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	case StatusCrashed:
		return "crashed"
	case StatusUnload:
		return "unload"
	default:
		return "unknown"
	}
}

// Device is the uniform interface every family dispatcher (video,
// graphics, crosspoint) implements. The engine never type-switches on a
// concrete device type outside the family packages; channelrunner and
// plugin only see this interface plus Family() for routing.
type Device interface {
	// Name is the registry key the device was configured under.
	Name() string
	// Family reports which action set and status contract applies.
	Family() DeviceFamily
	// Status reports the current supervised lifecycle state.
	Status() DeviceStatus
	// Actions exposes the device's fixed, family-specific action table.
	Actions() *ActionTable

	// Poll runs once per engine tick; devices use it to drive their own
	// non-blocking network state machine forward.
	Poll(ctx context.Context) error
	// UpdateHardwareStatus runs every PollPeriod ticks and performs the
	// (comparatively expensive) handshake/status refresh.
	UpdateHardwareStatus(ctx context.Context) error
	// PollPeriod is the tick interval between UpdateHardwareStatus calls.
	PollPeriod() int

	// RunEvent dispatches a playlist row's (action, extras) pair to
	// protocol-level commands. A returned error is caught by the
	// channel runner; it does not itself flip Status to crashed — only
	// a hardware-level failure observed in Poll/UpdateHardwareStatus does.
	RunEvent(ctx context.Context, e *Event) error

	// ConfigPath is the saved plugin configuration file the supervisor
	// re-instantiates the device from on reload.
	ConfigPath() string
}

// Processor expands one high-level event into a tree of concrete
// device-targeted events at add time. Processors are pure with respect
// to the playlist: they never call Store.Add directly.
type Processor interface {
	Name() string
	// Handle populates result's Type/Device/Trigger/Duration and zero
	// or more ChildEvents from input. input.Action is always -1 here
	// (processors are never dispatched as actions themselves).
	Handle(ctx context.Context, input *PendingEvent, result *PendingEvent) error
}

// PreProcessor runs immediately before an event is dispatched; it may
// mutate the event's Extras in place, and in the case of
// manual-hold-release, side-effect the timeline itself.
type PreProcessor func(ctx context.Context, e *Event, channel string) error
