// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package httpapi

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/broadcastauto/tarantula/internal/model"
)

// wireEvent is the XML shape POST /add expects as its request body: a
// single self-contained Event document, the same event shape xmlwire
// embeds inside its Command envelope.
type wireEvent struct {
	XMLName      xml.Name    `xml:"Event"`
	Type         string      `xml:"Type"`
	Device       string      `xml:"Device"`
	Trigger      int64       `xml:"Trigger"`
	Duration     float64     `xml:"Duration"`
	Description  string      `xml:"Description,omitempty"`
	PreProcessor string      `xml:"PreProcessor,omitempty"`
	Extras       []wireExtra `xml:"Extra"`
	Children     []wireEvent `xml:"Children>Event"`
}

type wireExtra struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// decodeEventXML parses an /add request body into a PendingEvent.
func decodeEventXML(body []byte) (*model.PendingEvent, error) {
	var w wireEvent
	if err := xml.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("bad event xml: %w", err)
	}
	if w.Device == "" {
		return nil, fmt.Errorf("event requires a device")
	}
	return toPendingEvent(w), nil
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

// dayStartFromPath resolves the "/" or "/<yyyymmdd>" schedule path into
// the unix-seconds start of that day (local time); an empty path
// segment means "today", relative to now.
func dayStartFromPath(pathDate string, now time.Time) (int64, error) {
	if pathDate == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix(), nil
	}
	if len(pathDate) != 8 {
		return 0, fmt.Errorf("date must be YYYYMMDD")
	}
	year, err := strconv.Atoi(pathDate[0:4])
	if err != nil {
		return 0, fmt.Errorf("date must be YYYYMMDD")
	}
	month, err := strconv.Atoi(pathDate[4:6])
	if err != nil || month < 1 || month > 12 {
		return 0, fmt.Errorf("date must be YYYYMMDD")
	}
	day, err := strconv.Atoi(pathDate[6:8])
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("date must be YYYYMMDD")
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()).Unix(), nil
}
