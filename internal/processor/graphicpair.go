// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package processor implements the Event Processors: high-level event
// shapes that expand into one or more concrete device-targeted child
// events at add time. Processors never touch the playlist store
// directly; mousecatcher.Core.processEvent writes whatever a
// processor returns.
package processor

import (
	"context"
	"fmt"

	"github.com/broadcastauto/tarantula/internal/device/graphics"
	"github.com/broadcastauto/tarantula/internal/model"
)

// GraphicPair expands {graphicname, hostlayer, duration-seconds} into
// an add at trigger and a remove at trigger+duration on a single
// configured graphics device.
type GraphicPair struct {
	ProcessorName string
	Device        string
}

func NewGraphicPair(name, device string) *GraphicPair {
	return &GraphicPair{ProcessorName: name, Device: device}
}

func (p *GraphicPair) Name() string { return p.ProcessorName }

func (p *GraphicPair) Handle(ctx context.Context, input *model.PendingEvent, result *model.PendingEvent) error {
	graphicName := input.Extras["graphicname"]
	hostLayer := input.Extras["hostlayer"]
	if graphicName == "" || hostLayer == "" {
		return fmt.Errorf("graphic-pair: graphicname and hostlayer are required")
	}
	if input.DurationSeconds <= 0 {
		return fmt.Errorf("graphic-pair: duration-seconds must be positive")
	}

	result.Type = model.EventFixed
	result.Device = p.Device
	result.DeviceFamily = model.FamilyProcessorPlaceholder
	result.TriggerUnix = input.TriggerUnix
	result.DurationSeconds = input.DurationSeconds
	result.Description = "graphic pair: " + graphicName
	result.Action = -1 // placeholder parent; only children dispatch

	result.ChildEvents = []*model.PendingEvent{
		{
			Type:            model.EventChild,
			Device:          p.Device,
			DeviceFamily:    model.FamilyGraphics,
			Action:          graphics.ActionAdd,
			DurationSeconds: 0,
			Description:     "add " + graphicName + " on " + hostLayer,
			Extras: map[string]string{
				"graphicname": graphicName,
				"hostlayer":   hostLayer,
			},
		},
		{
			Type:            model.EventChild,
			Device:          p.Device,
			DeviceFamily:    model.FamilyGraphics,
			Action:          graphics.ActionRemove,
			TriggerUnix:     input.TriggerUnix + int64(input.DurationSeconds),
			DurationSeconds: 0,
			Description:     "remove " + graphicName + " on " + hostLayer,
			Extras: map[string]string{
				"hostlayer": hostLayer,
			},
		},
	}
	return nil
}
