// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package xmlwire

import (
	"encoding/xml"

	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/scanner"
)

type xmlEventRow struct {
	ID           int    `xml:"ID"`
	Type         string `xml:"Type"`
	Device       string `xml:"Device"`
	Trigger      int64  `xml:"Trigger"`
	Duration     int    `xml:"Duration"`
	Parent       int    `xml:"Parent"`
	Description  string `xml:"Description"`
}

type xmlPlaylist struct {
	XMLName xml.Name      `xml:"Playlist"`
	Events  []xmlEventRow `xml:"Event"`
}

// renderPlaylistXML serializes a snapshot of playlist rows. Duration
// crosses back over the frames->seconds wire boundary here, the mirror
// of toPlaylistRow's seconds->frames conversion on ingress.
func renderPlaylistXML(events []*model.Event, frameRate float64) string {
	doc := xmlPlaylist{}
	for _, e := range events {
		doc.Events = append(doc.Events, xmlEventRow{
			ID: e.ID, Type: e.Type.String(), Device: e.Device,
			Trigger: e.Trigger, Duration: durationSeconds(e.Duration, frameRate), Parent: e.Parent,
			Description: e.Description,
		})
	}
	return marshalOrErrDoc(doc)
}

// durationSeconds converts a stored frame count back to whole wire
// seconds; a zero/unset frame rate leaves Duration at its frame value
// rather than dividing by zero.
func durationSeconds(frames int, frameRate float64) int {
	if frameRate <= 0 {
		return frames
	}
	return int(float64(frames) / frameRate)
}

type xmlDeviceRow struct {
	Name   string `xml:"Name"`
	Family string `xml:"Family"`
	Status string `xml:"Status"`
}

type xmlDevices struct {
	XMLName xml.Name       `xml:"Devices"`
	Devices []xmlDeviceRow `xml:"Device"`
}

func renderDevicesXML(devices []model.Device) string {
	doc := xmlDevices{}
	for _, d := range devices {
		doc.Devices = append(doc.Devices, xmlDeviceRow{
			Name: d.Name(), Family: d.Family().String(), Status: d.Status().String(),
		})
	}
	return marshalOrErrDoc(doc)
}

type xmlActionRow struct {
	ID          int    `xml:"ID"`
	Name        string `xml:"Name"`
	Description string `xml:"Description"`
}

type xmlDeviceActions struct {
	Device  string         `xml:"device,attr"`
	Actions []xmlActionRow `xml:"Action"`
}

type xmlActions struct {
	XMLName xml.Name           `xml:"Actions"`
	Devices []xmlDeviceActions `xml:"Device"`
}

func renderActionsXML(tables map[string]*model.ActionTable) string {
	doc := xmlActions{}
	for name, t := range tables {
		row := xmlDeviceActions{Device: name}
		for _, a := range t.All() {
			row.Actions = append(row.Actions, xmlActionRow{ID: a.ID, Name: a.Name, Description: a.Description})
		}
		doc.Devices = append(doc.Devices, row)
	}
	return marshalOrErrDoc(doc)
}

type xmlProcessors struct {
	XMLName xml.Name `xml:"Processors"`
	Names   []string `xml:"Name"`
}

func renderProcessorsXML(names []string) string {
	return marshalOrErrDoc(xmlProcessors{Names: names})
}

type xmlFileRow struct {
	Name           string `xml:"Name"`
	DurationFrames int64  `xml:"DurationFrames"`
	SizeBytes      int64  `xml:"SizeBytes"`
	Gone           bool   `xml:"Gone"`
}

type xmlFiles struct {
	XMLName xml.Name     `xml:"Files"`
	Device  string       `xml:"device,attr"`
	Files   []xmlFileRow `xml:"File"`
}

func renderFilesXML(device string, records []*scanner.Record) string {
	doc := xmlFiles{Device: device}
	for _, r := range records {
		doc.Files = append(doc.Files, xmlFileRow{
			Name: r.Filename, DurationFrames: r.DurationFr, SizeBytes: r.Size, Gone: r.Gone,
		})
	}
	return marshalOrErrDoc(doc)
}

func marshalOrErrDoc(v any) string {
	out, err := xml.Marshal(v)
	if err != nil {
		return "500 " + err.Error()
	}
	return string(out)
}
