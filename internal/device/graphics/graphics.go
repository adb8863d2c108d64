// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package graphics implements the Graphics (CG) device family:
// add/update/play/remove against named host layers.
package graphics

import (
	"context"
	"fmt"
	"sync"

	"github.com/broadcastauto/tarantula/internal/device"
	"github.com/broadcastauto/tarantula/internal/model"
)

const (
	ActionAdd = iota
	ActionUpdate
	ActionPlay
	ActionRemove
)

var actionTable = []model.Action{
	{ID: ActionAdd, Name: "add", Description: "add a graphic to a host layer", Params: map[string]string{"graphicname": "string", "hostlayer": "string"}},
	{ID: ActionUpdate, Name: "update", Description: "update a host layer's data map", Params: map[string]string{"hostlayer": "string"}},
	{ID: ActionPlay, Name: "play", Description: "advance a host layer's play step", Params: map[string]string{"hostlayer": "string"}},
	{ID: ActionRemove, Name: "remove", Description: "remove a host layer", Params: map[string]string{"hostlayer": "string"}},
}

// reservedKeys are extra-data keys stripped from the data map before
// it reaches the template/protocol layer because they are interpreted
// structurally by this dispatcher instead.
var reservedKeys = map[string]bool{
	"graphicname": true,
	"hostlayer":   true,
	"layer":       true,
}

// LayerState is what a single host layer currently shows.
type LayerState struct {
	Graphic  string
	PlayStep int
	Data     map[string]string
}

// Transport is the protocol-facing contract a concrete CG driver
// implements.
type Transport interface {
	Add(ctx context.Context, hostLayer, graphic string, data map[string]string) error
	Update(ctx context.Context, hostLayer string, data map[string]string) error
	Play(ctx context.Context, hostLayer string) error
	Remove(ctx context.Context, hostLayer string) error
	Handshake(ctx context.Context) error
}

// Device is a character-generator device.
type Device struct {
	*device.Base
	transport Transport

	mu     sync.Mutex
	layers map[string]*LayerState
}

// New constructs a graphics Device.
func New(name string, transport Transport, pollPeriod int, configPath string) *Device {
	return &Device{
		Base:      device.NewBase(name, model.FamilyGraphics, actionTable, pollPeriod, configPath),
		transport: transport,
		layers:    make(map[string]*LayerState),
	}
}

func (d *Device) Poll(ctx context.Context) error { return nil }

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

// LayerState returns a copy of a host layer's state, used by tests and
// the HTTP adapter's status snapshot.
func (d *Device) LayerState(hostLayer string) (LayerState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[hostLayer]
	if !ok {
		return LayerState{}, false
	}
	return *l, true
}

func stripReserved(extras map[string]string) map[string]string {
	data := make(map[string]string, len(extras))
	for k, v := range extras {
		if !reservedKeys[k] {
			data[k] = v
		}
	}
	return data
}

func (d *Device) RunEvent(ctx context.Context, e *model.Event) error {
	hostLayer := e.Extras["hostlayer"]
	data := stripReserved(e.Extras)

	switch e.Action {
	case ActionAdd:
		graphic := e.Extras["graphicname"]
		return d.Dispatch(func() error {
			if err := d.transport.Add(ctx, hostLayer, graphic, data); err != nil {
				return err
			}
			d.mu.Lock()
			d.layers[hostLayer] = &LayerState{Graphic: graphic, PlayStep: 0, Data: data}
			d.mu.Unlock()
			return nil
		})
	case ActionUpdate:
		return d.Dispatch(func() error {
			if err := d.transport.Update(ctx, hostLayer, data); err != nil {
				return err
			}
			d.mu.Lock()
			if l, ok := d.layers[hostLayer]; ok {
				l.Data = data
			}
			d.mu.Unlock()
			return nil
		})
	case ActionPlay:
		return d.Dispatch(func() error {
			if err := d.transport.Play(ctx, hostLayer); err != nil {
				return err
			}
			d.mu.Lock()
			if l, ok := d.layers[hostLayer]; ok {
				l.PlayStep++
			}
			d.mu.Unlock()
			return nil
		})
	case ActionRemove:
		return d.Dispatch(func() error {
			if err := d.transport.Remove(ctx, hostLayer); err != nil {
				return err
			}
			d.mu.Lock()
			delete(d.layers, hostLayer)
			d.mu.Unlock()
			return nil
		})
	default:
		return fmt.Errorf("graphics device %s: unknown action %d", d.Name(), e.Action)
	}
}

var _ model.Device = (*Device)(nil)
