// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package httpapi implements the HTTP event source adapter: a browser
// control surface for one channel (schedule page, add/remove, file
// listing) built as a chi router. Like xmlwire, it never blocks the
// engine tick: handlers enqueue EventActions and wait on their own
// goroutine for the core to complete them, while Tick only drains the
// inbox and promotes finished fan-outs/mutations.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/middleware"
	"github.com/broadcastauto/tarantula/internal/model"
	"github.com/broadcastauto/tarantula/internal/mousecatcher"
	"github.com/broadcastauto/tarantula/internal/scanner"
)

// requestTimeout bounds how long a handler waits for the engine to
// complete its fan-out before giving up; the engine itself completes
// actions within a tick or two, so this is purely a client-facing cap.
const requestTimeout = 5 * time.Second

// Adapter is the HTTP event source: one instance serves one channel's
// schedule page and mutation endpoints.
type Adapter struct {
	AdapterName string
	Channel     string

	srv *http.Server

	mu      sync.Mutex
	inbox   []*model.EventAction
	waiting []*mutationWait
	pages   map[string]*pendingPage

	log zerolog.Logger
}

// mutationWait lets a handler block on a plain Add/Remove/Edit action
// (which carries no Reporter callback) until the core's Tick marks it
// Done, mirroring xmlwire's connection-reply polling.
type mutationWait struct {
	action *model.EventAction
	done   chan struct{}
}

// pendingPage tracks one schedule-page (or single-snapshot) fan-out:
// each Update* action shares this token and decrements remaining as
// its Report* callback lands, closing ready once none are left.
type pendingPage struct {
	mu        sync.Mutex
	remaining int
	closed    bool
	ready     chan struct{}

	dayStart   int64
	frameRate  float64
	playlist   []*model.Event
	devices    []model.Device
	actions    map[string]*model.ActionTable
	processors []string
	files      []*scanner.Record
}

// New builds the HTTP adapter bound to addr, serving channel's schedule.
func New(name, channel, addr string) *Adapter {
	a := &Adapter{
		AdapterName: name,
		Channel:     channel,
		pages:       make(map[string]*pendingPage),
		log:         logging.WithComponent("httpapi"),
	}
	a.srv = &http.Server{Addr: addr, Handler: a.routes()}
	return a
}

func (a *Adapter) Name() string { return a.AdapterName }

// String implements fmt.Stringer so the supervisor tree can label this
// service in logs.
func (a *Adapter) String() string { return "httpapi:" + a.AdapterName }

// Serve runs the HTTP server as a suture.Service: it blocks until ctx
// is cancelled, then shuts down gracefully.
func (a *Adapter) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (a *Adapter) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiAdapt(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(chiAdapt(middleware.PrometheusMetrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", a.handleSchedule)
	r.Get("/{date}", a.handleSchedule)
	r.Post("/add", a.handleAdd)
	r.Get("/remove/{id}", a.handleRemove)
	r.Get("/files/{device}", a.handleFiles)
	r.Get("/tarantula.css", a.handleCSS)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// chiAdapt converts this repo's func(http.HandlerFunc) http.HandlerFunc
// middleware into chi's func(http.Handler) http.Handler, mirroring the
// adapter the teacher's chi router uses for the same purpose.
func chiAdapt(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

func (a *Adapter) enqueue(action *model.EventAction) {
	action.Origin = a
	a.mu.Lock()
	a.inbox = append(a.inbox, action)
	a.mu.Unlock()
}

// enqueueMutation submits a plain Add/Remove/Edit action and returns a
// channel that closes once Tick observes it complete.
func (a *Adapter) enqueueMutation(action *model.EventAction) <-chan struct{} {
	action.Origin = a
	w := &mutationWait{action: action, done: make(chan struct{})}
	a.mu.Lock()
	a.inbox = append(a.inbox, action)
	a.waiting = append(a.waiting, w)
	a.mu.Unlock()
	return w.done
}

// Tick hands any newly enqueued actions to queue, then signals any
// mutation waiters whose action the core has since completed.
func (a *Adapter) Tick(ctx context.Context, queue *mousecatcher.Queue) error {
	a.mu.Lock()
	toSubmit := a.inbox
	a.inbox = nil
	var remaining []*mutationWait
	var done []*mutationWait
	for _, w := range a.waiting {
		if w.action.Done {
			done = append(done, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	a.waiting = remaining
	a.mu.Unlock()

	for _, action := range toSubmit {
		queue.Push(action)
	}
	for _, w := range done {
		close(w.done)
	}
	return nil
}

func (a *Adapter) newPage(fanouts int, dayStart int64) (string, *pendingPage) {
	token := uuid.NewString()
	p := &pendingPage{remaining: fanouts, ready: make(chan struct{}), dayStart: dayStart}
	a.mu.Lock()
	a.pages[token] = p
	a.mu.Unlock()
	return token, p
}

func (a *Adapter) forgetPage(token string) {
	a.mu.Lock()
	delete(a.pages, token)
	a.mu.Unlock()
}

func (a *Adapter) page(token string) (*pendingPage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pages[token]
	return p, ok
}

// complete applies one fan-out's result and, once every fan-out for
// this token has landed, closes ready so the waiting handler can
// render the response. Safe to call from inside the engine mutex.
func (p *pendingPage) complete(set func(*pendingPage)) {
	p.mu.Lock()
	set(p)
	p.remaining--
	done := p.remaining <= 0 && !p.closed
	if done {
		p.closed = true
	}
	p.mu.Unlock()
	if done {
		close(p.ready)
	}
}

func (a *Adapter) ReportPlaylist(ctx context.Context, correlation any, events []*model.Event, frameRate float64) {
	a.withPage(correlation, func(p *pendingPage) { p.playlist = events; p.frameRate = frameRate })
}

func (a *Adapter) ReportDevices(ctx context.Context, correlation any, devices []model.Device) {
	a.withPage(correlation, func(p *pendingPage) { p.devices = devices })
}

func (a *Adapter) ReportActions(ctx context.Context, correlation any, tables map[string]*model.ActionTable) {
	a.withPage(correlation, func(p *pendingPage) { p.actions = tables })
}

func (a *Adapter) ReportProcessors(ctx context.Context, correlation any, names []string) {
	a.withPage(correlation, func(p *pendingPage) { p.processors = names })
}

func (a *Adapter) ReportFiles(ctx context.Context, correlation any, device string, records []*scanner.Record) {
	a.withPage(correlation, func(p *pendingPage) { p.files = records })
}

func (a *Adapter) withPage(correlation any, set func(*pendingPage)) {
	token, ok := correlation.(string)
	if !ok {
		return
	}
	p, ok := a.page(token)
	if !ok {
		return
	}
	p.complete(set)
}

func (a *Adapter) handleAdd(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "400 BAD DATA", http.StatusBadRequest)
		return
	}
	event, err := decodeEventXML(body)
	if err != nil {
		http.Error(w, "400 BAD DATA: "+err.Error(), http.StatusBadRequest)
		return
	}

	action := &model.EventAction{Kind: model.ActionAdd, Channel: a.Channel, Event: event}
	a.awaitMutation(w, r, action)
}

func (a *Adapter) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "400 BAD DATA: invalid id", http.StatusBadRequest)
		return
	}

	action := &model.EventAction{Kind: model.ActionRemove, Channel: a.Channel, EventID: id}
	a.awaitMutation(w, r, action)
}

func (a *Adapter) awaitMutation(w http.ResponseWriter, r *http.Request, action *model.EventAction) {
	done := a.enqueueMutation(action)

	select {
	case <-done:
	case <-r.Context().Done():
		return
	case <-time.After(requestTimeout):
		http.Error(w, "504 TIMEOUT", http.StatusGatewayTimeout)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	if action.ReturnMessage == "" {
		w.Write([]byte("200 SUCCESS"))
	} else {
		http.Error(w, "500 "+action.ReturnMessage, http.StatusInternalServerError)
	}
}

func (a *Adapter) handleFiles(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	token, page := a.newPage(1, 0)
	defer a.forgetPage(token)

	a.enqueue(&model.EventAction{
		Kind: model.ActionUpdateFiles, Channel: a.Channel,
		UpdateDevice: device, Correlation: token,
	})

	select {
	case <-page.ready:
	case <-r.Context().Done():
		return
	case <-time.After(requestTimeout):
		http.Error(w, "504 TIMEOUT", http.StatusGatewayTimeout)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(renderFilesText(device, page.files)))
}

func (a *Adapter) handleSchedule(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	dayStart, err := dayStartFromPath(date, time.Now())
	if err != nil {
		http.Error(w, "400 BAD DATA: "+err.Error(), http.StatusBadRequest)
		return
	}

	const daySeconds = 86400
	token, page := a.newPage(5, dayStart)
	defer a.forgetPage(token)

	a.enqueue(&model.EventAction{Kind: model.ActionUpdatePlaylist, Channel: a.Channel, UpdateStart: dayStart, UpdateLength: daySeconds, Correlation: token})
	a.enqueue(&model.EventAction{Kind: model.ActionUpdateDevices, Channel: a.Channel, Correlation: token})
	a.enqueue(&model.EventAction{Kind: model.ActionUpdateActions, Channel: a.Channel, Correlation: token})
	a.enqueue(&model.EventAction{Kind: model.ActionUpdateProcessors, Channel: a.Channel, Correlation: token})
	a.enqueue(&model.EventAction{Kind: model.ActionUpdateFiles, Channel: a.Channel, Correlation: token})

	select {
	case <-page.ready:
	case <-r.Context().Done():
		return
	case <-time.After(requestTimeout):
		http.Error(w, "schedule snapshot timed out", http.StatusGatewayTimeout)
		return
	}

	w.Header().Set("Content-Type", "application/xhtml+xml")
	if err := renderSchedulePage(w, page); err != nil {
		a.log.Error().Err(err).Msg("render schedule page")
	}
}

func (a *Adapter) handleCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write([]byte(scheduleCSS))
}

var (
	_ model.Source               = (*Adapter)(nil)
	_ mousecatcher.SourceAdapter = (*Adapter)(nil)
	_ mousecatcher.Reporter      = (*Adapter)(nil)
)
