// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package processor

import (
	"context"
	"fmt"

	"github.com/broadcastauto/tarantula/internal/device/graphics"
	"github.com/broadcastauto/tarantula/internal/device/video"
	"github.com/broadcastauto/tarantula/internal/model"
)

// NowNextConfig configures a show wrapper's repeating now/next graphic
// overlay, layered over the video child for shows whose length crosses
// ThresholdSeconds.
type NowNextConfig struct {
	ThresholdSeconds float64
	PeriodSeconds    float64
	Device           string
	HostLayer        string
	Graphic          string
}

// Show wraps a single file play with a leading continuity fill and, for
// long-form content, a repeating now/next overlay.
type Show struct {
	ProcessorName string
	VideoDevice   string
	Filler        *Filler // may be nil: then no leading continuity-fill child is emitted
	FillSeconds   float64
	NowNext       NowNextConfig // zero value disables the overlay
	FrameRate     float64
}

func NewShow(name, videoDevice string, frameRate float64) *Show {
	return &Show{ProcessorName: name, VideoDevice: videoDevice, FrameRate: frameRate}
}

func (p *Show) Name() string { return p.ProcessorName }

func (p *Show) Handle(ctx context.Context, input *model.PendingEvent, result *model.PendingEvent) error {
	filename := input.Extras["filename"]
	if filename == "" {
		return fmt.Errorf("show: filename is required")
	}
	if input.DurationSeconds <= 0 {
		return fmt.Errorf("show: duration-frames must be positive")
	}

	result.Type = model.EventFixed
	result.Device = p.ProcessorName
	result.DeviceFamily = model.FamilyProcessorPlaceholder
	result.TriggerUnix = input.TriggerUnix
	result.DurationSeconds = input.DurationSeconds
	result.Description = "show: " + filename
	result.Action = -1

	playStart := input.TriggerUnix
	if p.FillSeconds > 0 && p.Filler != nil {
		result.ChildEvents = append(result.ChildEvents, p.Filler.continuityFillEvent(input.TriggerUnix, p.FillSeconds))
		playStart += int64(p.FillSeconds)
	}

	result.ChildEvents = append(result.ChildEvents, &model.PendingEvent{
		Type:            model.EventChild,
		Device:          p.VideoDevice,
		DeviceFamily:    model.FamilyVideo,
		Action:          video.ActionPlay,
		TriggerUnix:     playStart,
		DurationSeconds: input.DurationSeconds - p.FillSeconds,
		Description:     "play " + filename,
		Extras:          map[string]string{"filename": filename},
	})

	if p.NowNext.ThresholdSeconds > 0 && input.DurationSeconds >= p.NowNext.ThresholdSeconds && p.NowNext.PeriodSeconds > 0 {
		for t := playStart; t < input.TriggerUnix+int64(input.DurationSeconds); t += int64(p.NowNext.PeriodSeconds) {
			result.ChildEvents = append(result.ChildEvents, &model.PendingEvent{
				Type:            model.EventChild,
				Device:          p.NowNext.Device,
				DeviceFamily:    model.FamilyGraphics,
				Action:          graphics.ActionUpdate,
				TriggerUnix:     t,
				DurationSeconds: 0,
				Description:     "now/next refresh",
				PreProcessor:    "populate-now-next",
				Extras: map[string]string{
					"hostlayer": p.NowNext.HostLayer,
					"graphicname": p.NowNext.Graphic,
				},
			})
		}
	}

	return nil
}
