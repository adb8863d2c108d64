// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package httpapi

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/broadcastauto/tarantula/internal/scanner"
)

var scheduleTemplate = template.Must(template.New("schedule").Funcs(template.FuncMap{
	"clock": func(unix int64) string { return time.Unix(unix, 0).Format("15:04:05") },
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title>Tarantula schedule</title>
<link rel="stylesheet" type="text/css" href="/tarantula.css" />
</head>
<body>
<h1>Schedule for {{.Day}}</h1>
<table class="playlist">
<tr><th>Time</th><th>Device</th><th>Description</th><th>Duration</th></tr>
{{range .Events}}<tr><td>{{clock .Trigger}}</td><td>{{.Device}}</td><td>{{.Description}}</td><td>{{.Duration}}</td></tr>
{{end}}</table>

<h2>Devices</h2>
<ul class="devices">
{{range .Devices}}<li>{{.Name}} ({{.Family}}): {{.Status}} — <a href="/files/{{.Name}}">files</a></li>
{{end}}</ul>

<h2>Processors</h2>
<ul class="processors">
{{range .Processors}}<li>{{.}}</li>
{{end}}</ul>

<p class="filecount">{{.FileCount}} files known to the scanner.</p>
</body>
</html>
`))

type scheduleEventRow struct {
	Trigger     int64
	Device      string
	Description string
	Duration    int
}

type scheduleDeviceRow struct {
	Name   string
	Family string
	Status string
}

type scheduleView struct {
	Day        string
	Events     []scheduleEventRow
	Devices    []scheduleDeviceRow
	Processors []string
	FileCount  int
}

func renderSchedulePage(w io.Writer, p *pendingPage) error {
	view := scheduleView{
		Day:       time.Unix(p.dayStart, 0).Format("2006-01-02"),
		FileCount: len(p.files),
	}
	for _, e := range p.playlist {
		view.Events = append(view.Events, scheduleEventRow{
			Trigger: e.Trigger, Device: e.Device, Description: e.Description,
			Duration: durationSeconds(e.Duration, p.frameRate),
		})
	}
	for _, d := range p.devices {
		view.Devices = append(view.Devices, scheduleDeviceRow{
			Name: d.Name(), Family: d.Family().String(), Status: d.Status().String(),
		})
	}
	sort.Slice(view.Devices, func(i, j int) bool { return view.Devices[i].Name < view.Devices[j].Name })
	view.Processors = append([]string(nil), p.processors...)
	sort.Strings(view.Processors)

	return scheduleTemplate.Execute(w, view)
}

// durationSeconds converts a stored frame count back to whole wire
// seconds for display; a zero/unset frame rate leaves Duration at its
// frame value rather than dividing by zero.
func durationSeconds(frames int, frameRate float64) int {
	if frameRate <= 0 {
		return frames
	}
	return int(float64(frames) / frameRate)
}

func renderFilesText(device string, records []*scanner.Record) string {
	out := fmt.Sprintf("files for %s:\n", device)
	for _, r := range records {
		status := "present"
		if r.Gone {
			status = "gone"
		}
		out += fmt.Sprintf("%s\t%d frames\t%d bytes\t%s\n", r.Filename, r.DurationFr, r.Size, status)
	}
	return out
}

const scheduleCSS = `
body { font-family: sans-serif; margin: 2em; background: #111; color: #eee; }
h1, h2 { color: #5fd; }
table.playlist { border-collapse: collapse; width: 100%; }
table.playlist th, table.playlist td { border: 1px solid #444; padding: 0.25em 0.5em; text-align: left; }
ul.devices li, ul.processors li { list-style: none; }
a { color: #5af; }
`
