// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package processor

import (
	"context"
	"fmt"

	"github.com/broadcastauto/tarantula/internal/device/video"
	"github.com/broadcastauto/tarantula/internal/model"
)

// LiveShowConfig configures a live-show wrapper's VT-clock countdown
// device, read from the processor's own plugin configuration rather
// than the channel (the channel's router is a separate concern, used
// only by the manual-hold-release pre-processor at release time).
type LiveShowConfig struct {
	VTDevice string
	VTFile   string
}

// LiveShow is like Show, but instead of playing a file directly it
// establishes a manual hold carrying switch-channel in its extras,
// plays a VT-clock countdown on the configured VT device, and leaves
// release to the manual-hold-release pre-processor (invoked externally
// via Channel.ManualTrigger, not by the ordinary due-event scan).
type LiveShow struct {
	ProcessorName string
	SwitchChannel string // input name the manual-hold-release switches the router to
	VT            LiveShowConfig
}

func NewLiveShow(name, switchChannel string, vt LiveShowConfig) *LiveShow {
	return &LiveShow{ProcessorName: name, SwitchChannel: switchChannel, VT: vt}
}

func (p *LiveShow) Name() string { return p.ProcessorName }

func (p *LiveShow) Handle(ctx context.Context, input *model.PendingEvent, result *model.PendingEvent) error {
	if input.DurationSeconds <= 0 {
		return fmt.Errorf("live-show: duration-frames must be positive")
	}

	// The hold itself IS the returned event, not a wrapped child: a
	// manual event's trigger must stay an absolute unix-seconds value
	// and its type must stay Manual for get-active-hold to recognize
	// it, and both would be overwritten if this were nested as a child
	// of some other placeholder parent (a child's trigger is always
	// reinterpreted as its parent's id). Only the VT countdown plays as
	// a genuine child, parented to whatever id the hold is assigned.
	result.Type = model.EventManual
	result.Device = p.VT.VTDevice
	result.DeviceFamily = model.FamilyCrosspoint
	result.Action = -1
	result.TriggerUnix = input.TriggerUnix
	result.DurationSeconds = input.DurationSeconds
	result.Description = "live show hold"
	result.PreProcessor = "manual-hold-release"
	result.Extras = map[string]string{
		"switchchannel": p.SwitchChannel,
	}

	result.ChildEvents = []*model.PendingEvent{
		{
			Type:            model.EventChild,
			Device:          p.VT.VTDevice,
			DeviceFamily:    model.FamilyVideo,
			Action:          video.ActionPlay,
			TriggerUnix:     input.TriggerUnix,
			DurationSeconds: input.DurationSeconds,
			Description:     "VT clock countdown: " + p.VT.VTFile,
			Extras:          map[string]string{"filename": p.VT.VTFile},
		},
	}
	return nil
}
