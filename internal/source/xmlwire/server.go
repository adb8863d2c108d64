// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package xmlwire implements the raw line-delimited XML/TCP event
// source adapter (port 9815 by convention): one self-contained XML
// document per line, a status-line reply for mutation actions and a
// full XML snapshot reply for Update* actions.
package xmlwire

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/mousecatcher"
	"github.com/broadcastauto/tarantula/internal/scanner"
)

const welcomeMessage = "Welcome to Tarantula.\r\n"

// pending is one in-flight action this adapter is waiting on the core
// to complete, tied to the connection that submitted it.
type pending struct {
	action *model.EventAction
	conn   *connection
}

// Adapter is the XML/TCP source: it accepts connections on its own
// goroutines (reads never block the tick) and exposes newly-parsed
// actions to the engine only through Tick.
type Adapter struct {
	AdapterName string

	listener net.Listener

	mu      sync.Mutex
	conns   map[*connection]struct{}
	pending []*pending
	inbox   []*model.EventAction

	log zerolog.Logger
}

// Listen opens the TCP listener and starts accepting connections in
// the background. Tick must still be called every engine tick to
// surface parsed actions and deliver completed replies.
func Listen(name, addr string) (*Adapter, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("xmlwire: listen %s: %w", addr, err)
	}
	a := &Adapter{
		AdapterName: name,
		listener:    ln,
		conns:       make(map[*connection]struct{}),
		log:         logging.WithComponent("xmlwire"),
	}
	go a.acceptLoop()
	return a, nil
}

func (a *Adapter) Name() string { return a.AdapterName }

// Close stops accepting new connections; existing connections drain
// naturally as their goroutines observe the closed listener/sockets.
func (a *Adapter) Close() error { return a.listener.Close() }

func (a *Adapter) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return
		}
		c := &connection{id: uuid.NewString(), conn: conn, adapter: a}
		a.mu.Lock()
		a.conns[c] = struct{}{}
		a.mu.Unlock()
		go c.run()
	}
}

// submit is called by a connection's read goroutine with a freshly
// parsed action; it is queued for the next Tick to hand to the core.
func (a *Adapter) submit(action *model.EventAction, c *connection) {
	a.mu.Lock()
	a.inbox = append(a.inbox, action)
	a.pending = append(a.pending, &pending{action: action, conn: c})
	a.mu.Unlock()
}

func (a *Adapter) forget(c *connection) {
	a.mu.Lock()
	delete(a.conns, c)
	a.mu.Unlock()
}

// Tick hands any newly parsed actions to queue, and delivers replies
// for actions the core has since completed.
func (a *Adapter) Tick(ctx context.Context, queue *mousecatcher.Queue) error {
	a.mu.Lock()
	toSubmit := a.inbox
	a.inbox = nil
	a.mu.Unlock()

	for _, action := range toSubmit {
		queue.Push(action)
	}

	a.mu.Lock()
	var stillPending []*pending
	done := make([]*pending, 0)
	for _, p := range a.pending {
		if p.action.Done {
			done = append(done, p)
		} else {
			stillPending = append(stillPending, p)
		}
	}
	a.pending = stillPending
	a.mu.Unlock()

	for _, p := range done {
		p.conn.reply(p.action)
	}
	return nil
}

// ReportPlaylist writes a snapshot XML document to whichever
// connection's correlation token this response targets.
func (a *Adapter) ReportPlaylist(ctx context.Context, correlation any, events []*model.Event, frameRate float64) {
	a.reportTo(correlation, renderPlaylistXML(events, frameRate))
}

func (a *Adapter) ReportDevices(ctx context.Context, correlation any, devices []model.Device) {
	a.reportTo(correlation, renderDevicesXML(devices))
}

func (a *Adapter) ReportActions(ctx context.Context, correlation any, tables map[string]*model.ActionTable) {
	a.reportTo(correlation, renderActionsXML(tables))
}

func (a *Adapter) ReportProcessors(ctx context.Context, correlation any, names []string) {
	a.reportTo(correlation, renderProcessorsXML(names))
}

func (a *Adapter) ReportFiles(ctx context.Context, correlation any, device string, records []*scanner.Record) {
	a.reportTo(correlation, renderFilesXML(device, records))
}

func (a *Adapter) reportTo(correlation any, body string) {
	connID, ok := correlation.(string)
	if !ok {
		return
	}
	a.mu.Lock()
	var target *connection
	for c := range a.conns {
		if c.id == connID {
			target = c
			break
		}
	}
	a.mu.Unlock()
	if target != nil {
		target.writeLine(body)
	}
}

// connection is one client socket: a line-oriented parser feeding the
// adapter's submit, and a writer used both for status replies and
// snapshot bodies.
type connection struct {
	id      string
	conn    net.Conn
	adapter *Adapter
	mu      sync.Mutex
}

func (c *connection) run() {
	defer c.conn.Close()
	defer c.adapter.forget(c)

	c.writeLine(strings.TrimRight(welcomeMessage, "\r\n"))

	lines := bufio.NewScanner(c.conn)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		action, err := parseAction(line)
		if err != nil {
			c.writeLine(fmt.Sprintf("400 %s", err.Error()))
			continue
		}
		action.Origin = c.adapter
		action.Correlation = c.id
		c.adapter.submit(action, c)
	}
}

func (c *connection) reply(action *model.EventAction) {
	switch action.Kind {
	case model.ActionUpdatePlaylist, model.ActionUpdateDevices, model.ActionUpdateActions,
		model.ActionUpdateProcessors, model.ActionUpdateFiles:
		// Report* already wrote the snapshot body via reportTo.
		return
	}
	if action.ReturnMessage == "" {
		c.writeLine("200 SUCCESS")
	} else {
		c.writeLine(fmt.Sprintf("500 %s", action.ReturnMessage))
	}
}

func (c *connection) writeLine(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.conn, "%s\r\n", s)
}

var (
	_ model.Source             = (*Adapter)(nil)
	_ mousecatcher.SourceAdapter = (*Adapter)(nil)
	_ mousecatcher.Reporter      = (*Adapter)(nil)
)
