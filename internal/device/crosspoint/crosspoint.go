// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package crosspoint implements the Crosspoint (router) device family:
// a single switch action between named wire inputs and outputs.
package crosspoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/broadcastauto/tarantula/internal/device"
	"github.com/broadcastauto/tarantula/internal/model"
)

const ActionSwitch = 0

var actionTable = []model.Action{
	{ID: ActionSwitch, Name: "switch", Description: "route an input to an output", Params: map[string]string{"input": "string", "output": "string"}},
}

// Port identifies a physical video+audio port pair on the router.
type Port struct {
	Video int
	Audio int
}

// Transport is the protocol-facing contract a concrete router driver
// implements (e.g. a serial protocol to a specific router), supplied
// by the caller since concrete device protocols are out of scope here.
type Transport interface {
	Switch(ctx context.Context, outputPort, inputPort Port) error
	Handshake(ctx context.Context) error
}

// Device is a video/audio router.
type Device struct {
	*device.Base
	transport Transport

	inputs  map[string]Port
	outputs map[string]Port

	mu      sync.Mutex
	current map[string]string // output name -> input name
}

// New constructs a crosspoint Device. inputs/outputs map wire
// identifiers to the router's integer port numbers.
func New(name string, transport Transport, inputs, outputs map[string]Port, pollPeriod int, configPath string) *Device {
	return &Device{
		Base:      device.NewBase(name, model.FamilyCrosspoint, actionTable, pollPeriod, configPath),
		transport: transport,
		inputs:    inputs,
		outputs:   outputs,
		current:   make(map[string]string),
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

// CurrentInput reports which input is currently routed to output.
func (d *Device) CurrentInput(output string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	in, ok := d.current[output]
	return in, ok
}

func (d *Device) RunEvent(ctx context.Context, e *model.Event) error {
	if e.Action != ActionSwitch {
		return fmt.Errorf("crosspoint device %s: unknown action %d", d.Name(), e.Action)
	}
	inputName := e.Extras["input"]
	outputName := e.Extras["output"]

	inPort, ok := d.inputs[inputName]
	if !ok {
		return fmt.Errorf("crosspoint device %s: unknown input %q", d.Name(), inputName)
	}
	outPort, ok := d.outputs[outputName]
	if !ok {
		return fmt.Errorf("crosspoint device %s: unknown output %q", d.Name(), outputName)
	}

	return d.Dispatch(func() error {
		if err := d.transport.Switch(ctx, outPort, inPort); err != nil {
			return err
		}
		d.mu.Lock()
		d.current[outputName] = inputName
		d.mu.Unlock()
		return nil
	})
}

var _ model.Device = (*Device)(nil)
