// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package plugin implements the Plugin Supervisor: a tick-driven
// lifecycle (Starting -> Ready/Waiting -> Crashed -> reload backoff ->
// Unload) for devices and any other pluggable component that exposes a
// status and a config path. This is deliberately not built on suture —
// suture restarts a crashed goroutine unconditionally, where this
// algorithm needs a bounded number of crash credits, a configured
// cooldown sequence, and an explicit terminal Unload state. The
// process-level suture tree in internal/supervisor supervises the
// engine's own goroutines; this package supervises playout devices.
package plugin

import (
	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/model"
)

// ReloadFunc re-instantiates a plugin from its saved configuration
// path, returning the replacement to install in the registry.
type ReloadFunc func(configPath string) (model.Device, error)

// entry tracks one supervised device's backoff state.
type entry struct {
	device      model.Device
	family      model.DeviceFamily
	configPath  string
	reload      ReloadFunc
	credits     int
	maxCredits  int
	cooldown    int
	cooldownSeq []int
	cooldownIdx int
	stabilise   int
	unloaded    bool // supervisor-forced terminal state, independent of device.Status()
	lastStatus  model.DeviceStatus
}

// Supervisor tracks every registered plugin's reload backoff state and
// advances it once per tick.
type Supervisor struct {
	cooldownSeq []int
	maxCredits  int
	stabilise   int

	entries map[string]*entry
}

// New creates a supervisor. cooldownSeq is the sequence of cooldown
// values (in ticks) consumed one per crash, clamped to its last value
// once exhausted. stabilise is the stabilisation window (in ticks)
// before credits are restored to maxCredits.
func New(cooldownSeq []int, maxCredits, stabilise int) *Supervisor {
	return &Supervisor{
		cooldownSeq: append([]int(nil), cooldownSeq...),
		maxCredits:  maxCredits,
		stabilise:   stabilise,
		entries:     make(map[string]*entry),
	}
}

// Register begins supervising d. reload is used to re-instantiate it
// after a successful cooldown expiry. lastStatus starts Ready, so a
// device already crashed when registered counts as a crash transition
// on its first tick and consumes a credit, rather than being silently
// ignored.
func (s *Supervisor) Register(d model.Device, reload ReloadFunc) {
	s.entries[d.Name()] = &entry{
		device:      d,
		family:      d.Family(),
		configPath:  d.ConfigPath(),
		reload:      reload,
		credits:     s.maxCredits,
		maxCredits:  s.maxCredits,
		cooldownSeq: s.cooldownSeq,
		stabilise:   s.stabilise,
		lastStatus:  model.StatusReady,
	}
}

// Unregister drops a plugin from supervision without touching its
// lifecycle state, used when a device is deliberately removed from config.
func (s *Supervisor) Unregister(name string) {
	delete(s.entries, name)
}

// Device returns the currently-installed device for name, reflecting
// any reload that has happened since Register.
func (s *Supervisor) Device(name string) (model.Device, bool) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.device, true
}

func (s *Supervisor) nextCooldown(idx int) int {
	if idx >= len(s.cooldownSeq) {
		idx = len(s.cooldownSeq) - 1
	}
	if idx < 0 {
		return 0
	}
	return s.cooldownSeq[idx]
}

// Tick advances every supervised plugin's backoff state by one tick,
// per the spec's three-step algorithm. It must run under the engine
// mutex since it may reinstantiate devices and mutate the registry.
func (s *Supervisor) Tick() {
	for name, e := range s.entries {
		s.tickEntry(name, e)
	}
	s.sweepUnloaded()
}

// tickEntry advances the cooldown/stabilisation countdown (unconditionally,
// every tick) and then checks for a crash transition. The crash check is
// edge-triggered on device.Status() rather than polled as a level: credit
// consumption fires only when the device transitions into Failed/Crashed
// from a non-crashed lastStatus, not on every tick the status happens to
// still read crashed. This lets a device crash again mid-stabilisation
// (consuming a fresh credit, per the reload-then-recrash scenario) while
// never charging the same ongoing crash more than once.
func (s *Supervisor) tickEntry(name string, e *entry) {
	log := logging.WithComponent("plugin").With().Str("plugin", name).Logger()

	switch {
	case e.cooldown > 0:
		e.cooldown--
		if e.cooldown == 0 {
			if e.reload != nil {
				replacement, err := e.reload(e.configPath)
				if err != nil {
					log.Error().Err(err).Msg("plugin reload failed")
				} else {
					e.device = replacement
				}
			}
			e.cooldown = -e.stabilise
			log.Info().Msg("plugin reloaded, entering stabilisation window")
		}
	case e.cooldown < 0:
		e.cooldown++
		if e.cooldown == 0 {
			e.credits = e.maxCredits
			log.Info().Msg("plugin stable, reload credits restored")
		}
	}

	if e.unloaded {
		return
	}

	status := e.device.Status()
	crashedNow := status == model.StatusFailed || status == model.StatusCrashed
	wasCrashed := e.lastStatus == model.StatusFailed || e.lastStatus == model.StatusCrashed
	e.lastStatus = status

	if !crashedNow || wasCrashed {
		return
	}

	if e.credits > 0 {
		e.credits--
		e.cooldown = s.nextCooldown(e.cooldownIdx)
		e.cooldownIdx++
		log.Warn().Int("credits_remaining", e.credits).Int("cooldown", e.cooldown).Msg("plugin crashed, entering cooldown")
	} else {
		e.unloaded = true
		log.Error().Msg("plugin out of reload credits, forcing unload")
	}
}

// StatusOf reports whether a supervised plugin has been forced into
// the terminal Unload state.
func (s *Supervisor) StatusOf(name string) (unloaded bool, ok bool) {
	e, ok := s.entries[name]
	if !ok {
		return false, false
	}
	return e.unloaded, true
}

// sweepUnloaded lazily removes plugins whose status has settled to
// Unload with no cooldown outstanding, per the spec's lazy-unload rule.
func (s *Supervisor) sweepUnloaded() {
	for name, e := range s.entries {
		if e.unloaded && e.cooldown == 0 {
			delete(s.entries, name)
		}
	}
}
