// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package xmlwire

import (
	"encoding/xml"
	"fmt"

	"github.com/broadcastauto/tarantula/internal/model"
)

// wireEvent is the XML shape of a mutation request's event payload.
type wireEvent struct {
	XMLName      xml.Name        `xml:"Event"`
	Type         string          `xml:"Type"`
	Device       string          `xml:"Device"`
	Trigger      int64           `xml:"Trigger"`
	Duration     float64         `xml:"Duration"`
	Description  string          `xml:"Description,omitempty"`
	PreProcessor string          `xml:"PreProcessor,omitempty"`
	Extras       []wireExtra     `xml:"Extra"`
	Children     []wireEvent     `xml:"Children>Event"`
}

type wireExtra struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// wireCommand is the root element of one line of the wire protocol.
type wireCommand struct {
	XMLName      xml.Name  `xml:"Command"`
	ActionType   string    `xml:"ActionType"`
	Channel      string    `xml:"Channel"`
	EventID      int       `xml:"EventID"`
	UpdateStart  int64     `xml:"UpdateStart"`
	UpdateLength int64     `xml:"UpdateLength"`
	UpdateDevice string    `xml:"UpdateDevice"`
	Event        wireEvent `xml:"Event"`
}

// parseAction decodes one line of the wire protocol into an
// EventAction. ActionType selects the Kind; unknown values and
// malformed XML are reported as a protocol error (400).
func parseAction(line string) (*model.EventAction, error) {
	var cmd wireCommand
	if err := xml.Unmarshal([]byte(line), &cmd); err != nil {
		return nil, fmt.Errorf("BAD COMMAND: %w", err)
	}

	kind, err := actionKindFor(cmd.ActionType)
	if err != nil {
		return nil, err
	}

	action := &model.EventAction{
		Kind:         kind,
		Channel:      cmd.Channel,
		EventID:      cmd.EventID,
		UpdateStart:  cmd.UpdateStart,
		UpdateLength: cmd.UpdateLength,
		UpdateDevice: cmd.UpdateDevice,
	}

	switch kind {
	case model.ActionAdd, model.ActionEdit:
		if cmd.Event.Device == "" {
			return nil, fmt.Errorf("BAD DATA: event requires a device")
		}
		action.Event = toPendingEvent(cmd.Event)
	case model.ActionRemove:
		if cmd.EventID == 0 {
			return nil, fmt.Errorf("BAD DATA: remove requires an event id")
		}
	}

	return action, nil
}

func actionKindFor(s string) (model.ActionKind, error) {
	switch s {
	case "Add":
		return model.ActionAdd, nil
	case "Remove":
		return model.ActionRemove, nil
	case "Edit":
		return model.ActionEdit, nil
	case "UpdatePlaylist":
		return model.ActionUpdatePlaylist, nil
	case "UpdateDevices":
		return model.ActionUpdateDevices, nil
	case "UpdateActions":
		return model.ActionUpdateActions, nil
	case "UpdateProcessors":
		return model.ActionUpdateProcessors, nil
	case "UpdateFiles":
		return model.ActionUpdateFiles, nil
	case "":
		return 0, fmt.Errorf("NO ACTION")
	default:
		return 0, fmt.Errorf("BAD ACTION: %s", s)
	}
}

func toPendingEvent(w wireEvent) *model.PendingEvent {
	p := &model.PendingEvent{
		Device:          w.Device,
		TriggerUnix:     w.Trigger,
		DurationSeconds: w.Duration,
		Description:     w.Description,
		PreProcessor:    w.PreProcessor,
		Extras:          make(map[string]string, len(w.Extras)),
	}
	switch w.Type {
	case "manual":
		p.Type = model.EventManual
	case "child":
		p.Type = model.EventChild
	default:
		p.Type = model.EventFixed
	}
	for _, e := range w.Extras {
		p.Extras[e.Key] = e.Value
	}
	for _, c := range w.Children {
		p.ChildEvents = append(p.ChildEvents, toPendingEvent(c))
	}
	return p
}
