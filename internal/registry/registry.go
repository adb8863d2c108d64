// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package registry holds the engine's name-keyed global lookup tables:
// devices, processors and pre-processors. Channels reference devices by
// name only; devices never reference channels back, so there is no
// cyclic ownership to manage here.
package registry

import (
	"sync"

	"github.com/broadcastauto/tarantula/internal/model"
)

// Devices is the name -> Device registry, mutated only under the
// engine mutex by callers.
type Devices struct {
	mu    sync.RWMutex
	byName map[string]model.Device
}

func NewDevices() *Devices {
	return &Devices{byName: make(map[string]model.Device)}
}

func (r *Devices) Put(d model.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[d.Name()] = d
}

func (r *Devices) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

func (r *Devices) Get(name string) (model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return nil, model.ErrDeviceNotFound
	}
	return d, nil
}

// All returns every registered device, unordered.
func (r *Devices) All() []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Device, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}

// Processors is the name -> Processor registry.
type Processors struct {
	mu     sync.RWMutex
	byName map[string]model.Processor
}

func NewProcessors() *Processors {
	return &Processors{byName: make(map[string]model.Processor)}
}

func (r *Processors) Put(p model.Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[p.Name()] = p
}

func (r *Processors) Get(name string) (model.Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	if !ok {
		return nil, model.ErrProcessorNotFound
	}
	return p, nil
}

// Names returns every registered processor's name, unordered.
func (r *Processors) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}

// PreProcessors is the name -> pre-processor function registry; it is
// deliberately keyed by string rather than by pointer, per the design
// note that cyclic references must not creep into this table.
type PreProcessors struct {
	mu     sync.RWMutex
	byName map[string]model.PreProcessor
}

func NewPreProcessors() *PreProcessors {
	return &PreProcessors{byName: make(map[string]model.PreProcessor)}
}

func (r *PreProcessors) Put(name string, fn model.PreProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = fn
}

func (r *PreProcessors) Get(name string) (model.PreProcessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byName[name]
	return fn, ok
}
