// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package processor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/broadcastauto/tarantula/internal/device/graphics"
	"github.com/broadcastauto/tarantula/internal/device/video"
	"github.com/broadcastauto/tarantula/internal/model"
)

// ScoreBracket weights candidates whose time-since-last-play falls in
// [MinSeconds, MaxSeconds).
type ScoreBracket struct {
	MinSeconds float64
	MaxSeconds float64
	Weight     float64
}

// FillSlot is one step of the filler's configured device/type walk.
// PathPrefix identifies which scanned catalogue files belong to this
// slot when BuildCandidates rebuilds the candidate list.
type FillSlot struct {
	Type         string
	Device       string
	DeviceFamily model.DeviceFamily
	PathPrefix   string
}

// Candidate is one row of the filler's persistent catalogue.
type Candidate struct {
	ID           string
	Filename     string
	Device       string
	DeviceFamily model.DeviceFamily
	Type         string
	DurationSecs float64
	StaticWeight float64
}

// Filler implements the Schedule Filler: walks a configured list of
// (type, device) slots, picking the lowest-scoring eligible candidate
// for each until the requested duration is exhausted, then pads any
// remainder with a continuity graphic. Its catalogue and play-history
// are persisted in their own Badger database so play history survives
// a restart; the (comparatively expensive) catalogue reload runs
// periodically outside the tick (fillerRefreshLoop in cmd/tarantulad)
// so the per-event scoring query itself — run synchronously at add
// time — stays cheap.
type Filler struct {
	ProcessorName         string
	Slots                 []FillSlot
	Brackets              []ScoreBracket
	FileWeightScale       float64
	ResidualFromLastSlot  bool
	PaddingDevice         string
	PaddingHostLayer      string
	PaddingGraphic        string

	db *badger.DB

	mu         sync.Mutex
	candidates []Candidate
	history    map[string]int64 // file id -> last played unix
}

// OpenFiller creates or reopens a filler's persistent catalogue/history store.
func OpenFiller(dir, name string) (*Filler, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open filler catalogue %s: %w", name, err)
	}
	f := &Filler{
		ProcessorName: name,
		db:            db,
		history:       make(map[string]int64),
	}
	if err := f.loadHistory(); err != nil {
		db.Close()
		return nil, err
	}
	if err := f.loadCatalogue(); err != nil {
		db.Close()
		return nil, err
	}
	return f, nil
}

func (f *Filler) Close() error { return f.db.Close() }

func (f *Filler) Name() string { return f.ProcessorName }

const (
	keyPrefixHistory   = "hist:"
	keyPrefixCandidate = "cand:"
)

func (f *Filler) loadHistory() error {
	return f.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefixHistory)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			err := it.Item().Value(func(val []byte) error {
				var ts int64
				if err := json.Unmarshal(val, &ts); err != nil {
					return err
				}
				f.history[id] = ts
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// loadCatalogue restores the in-memory candidate cache from the
// persisted cand: rows, the symmetric counterpart of loadHistory: a
// freshly-reopened filler must not start with an empty catalogue just
// because the first periodic refresh hasn't run yet.
func (f *Filler) loadCatalogue() error {
	var candidates []Candidate
	err := f.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefixCandidate)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var c Candidate
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			})
			if err != nil {
				return err
			}
			candidates = append(candidates, c)
		}
		return nil
	})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.candidates = candidates
	f.mu.Unlock()
	return nil
}

// ReplaceCatalogue overwrites the in-memory candidate cache and
// persists it, dropping any previously-persisted candidate absent from
// the new set. Intended to be called from a periodic refresh loop
// (catalogue refresh is the expensive operation the spec calls out as
// needing to run off the tick thread, scanning the media library is not
// something Handle's synchronous scoring should ever do), not from Handle.
func (f *Filler) ReplaceCatalogue(candidates []Candidate) error {
	f.mu.Lock()
	f.candidates = append([]Candidate(nil), candidates...)
	f.mu.Unlock()

	keep := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		keep[c.ID] = true
	}

	return f.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		prefix := []byte(keyPrefixCandidate)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().KeyCopy(nil)[len(prefix):])
			if !keep[id] {
				stale = append(stale, []byte(keyPrefixCandidate+id))
			}
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, c := range candidates {
			val, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(keyPrefixCandidate+c.ID), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// CatalogueFile is one media file a catalogue source reports; a
// minimal shape so Filler doesn't need to import the scanner package
// to build candidates from it.
type CatalogueFile struct {
	Filename       string
	DurationFrames int64
	Gone           bool
}

// BuildCandidates turns a scanned file listing into this filler's
// candidate catalogue by matching each slot's PathPrefix against the
// file's name; a file under no configured slot's prefix is skipped,
// and a file matching more than one slot is assigned to the first
// match in Slots order. The result is meant to be passed to
// ReplaceCatalogue by a periodic refresh loop, never by Handle.
func (f *Filler) BuildCandidates(files []CatalogueFile, frameRate float64) []Candidate {
	var out []Candidate
	for _, file := range files {
		if file.Gone {
			continue
		}
		for _, slot := range f.Slots {
			if slot.PathPrefix == "" || !strings.HasPrefix(file.Filename, slot.PathPrefix) {
				continue
			}
			durationSecs := float64(file.DurationFrames)
			if frameRate > 0 {
				durationSecs = float64(file.DurationFrames) / frameRate
			}
			out = append(out, Candidate{
				ID:           file.Filename,
				Filename:     file.Filename,
				Device:       slot.Device,
				DeviceFamily: slot.DeviceFamily,
				Type:         slot.Type,
				DurationSecs: durationSecs,
				StaticWeight: 1,
			})
			break
		}
	}
	return out
}

func (f *Filler) recordPlay(id string, at int64) {
	f.mu.Lock()
	f.history[id] = at
	f.mu.Unlock()
	_ = f.db.Update(func(txn *badger.Txn) error {
		val, err := json.Marshal(at)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyPrefixHistory+id), val)
	})
}

// score implements the bracketed time-since-play formula: lower wins.
// A candidate never played is treated as played an effectively
// infinite time ago.
func (f *Filler) score(c Candidate, now int64, lastPlayed int64, neverPlayed bool) float64 {
	timeSince := float64(now - lastPlayed)
	if neverPlayed {
		timeSince = 1e12
	}
	var total float64
	for _, b := range f.Brackets {
		if timeSince >= b.MinSeconds && timeSince < b.MaxSeconds {
			total += b.Weight * timeSince
		}
	}
	total += c.StaticWeight * f.FileWeightScale
	return total
}

// pickBest returns the lowest-scoring eligible candidate for a slot, or
// ok=false if none fits within remaining seconds.
func (f *Filler) pickBest(slot FillSlot, remaining float64, now int64, blacklist map[string]bool) (Candidate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var best []Candidate
	var bestScore float64
	haveBest := false
	for _, c := range f.candidates {
		if c.Device != slot.Device || c.Type != slot.Type {
			continue
		}
		if c.DurationSecs > remaining || c.DurationSecs <= 0 {
			continue
		}
		if blacklist[c.ID] {
			continue
		}
		last, played := f.history[c.ID]
		s := f.score(c, now, last, !played)
		switch {
		case !haveBest || s < bestScore:
			best = []Candidate{c}
			bestScore = s
			haveBest = true
		case s == bestScore:
			best = append(best, c)
		}
	}
	if !haveBest {
		return Candidate{}, false
	}
	return best[rand.IntN(len(best))], true
}

// Handle expands a fill request into a sequence of play children
// spanning the requested duration, walking Slots in order and padding
// any remainder with a continuity graphic.
func (f *Filler) Handle(ctx context.Context, input *model.PendingEvent, result *model.PendingEvent) error {
	remaining := input.DurationSeconds
	if remaining <= 0 {
		return fmt.Errorf("filler: duration-seconds must be positive")
	}

	result.Type = model.EventFixed
	result.Device = f.ProcessorName
	result.DeviceFamily = model.FamilyProcessorPlaceholder
	result.TriggerUnix = input.TriggerUnix
	result.DurationSeconds = input.DurationSeconds
	result.Description = "schedule filler"
	result.Action = -1

	blacklist := map[string]bool{}
	if raw, ok := input.Extras["blacklist"]; ok {
		for _, id := range splitCSV(raw) {
			blacklist[id] = true
		}
	}

	now := time.Now().Unix()
	cursor := input.TriggerUnix
	lastSlot := FillSlot{}

	for _, slot := range f.Slots {
		lastSlot = slot
		for remaining > 0 {
			c, ok := f.pickBest(slot, remaining, now, blacklist)
			if !ok {
				break
			}
			result.ChildEvents = append(result.ChildEvents, f.playChildEvent(c, cursor, slot))
			blacklist[c.ID] = true
			f.recordPlay(c.ID, now)
			cursor += int64(c.DurationSecs)
			remaining -= c.DurationSecs
		}
	}

	if f.ResidualFromLastSlot && remaining > 0 && lastSlot.Device != "" {
		for remaining > 0 {
			c, ok := f.pickBest(lastSlot, remaining, now, blacklist)
			if !ok {
				break
			}
			result.ChildEvents = append(result.ChildEvents, f.playChildEvent(c, cursor, lastSlot))
			blacklist[c.ID] = true
			f.recordPlay(c.ID, now)
			cursor += int64(c.DurationSecs)
			remaining -= c.DurationSecs
		}
	}

	if remaining > 0.5 {
		result.ChildEvents = append(result.ChildEvents, f.continuityFillEvent(cursor, remaining))
	}

	return nil
}

func (f *Filler) playChildEvent(c Candidate, trigger int64, slot FillSlot) *model.PendingEvent {
	action := video.ActionPlay
	if slot.DeviceFamily == model.FamilyGraphics {
		action = graphics.ActionPlay
	}
	return &model.PendingEvent{
		Type:            model.EventChild,
		Device:          c.Device,
		DeviceFamily:    slot.DeviceFamily,
		Action:          action,
		TriggerUnix:     trigger,
		DurationSeconds: c.DurationSecs,
		Description:     "filler: " + c.Filename,
		Extras:          map[string]string{"filename": c.Filename},
	}
}

// continuityFillEvent builds a padding graphic child covering duration
// seconds starting at trigger, used both by the filler's own remainder
// padding and by the show wrapper's leading continuity fill.
func (f *Filler) continuityFillEvent(trigger int64, duration float64) *model.PendingEvent {
	return &model.PendingEvent{
		Type:            model.EventChild,
		Device:          f.PaddingDevice,
		DeviceFamily:    model.FamilyGraphics,
		Action:          graphics.ActionAdd,
		TriggerUnix:     trigger,
		DurationSeconds: duration,
		Description:     "continuity fill",
		Extras: map[string]string{
			"hostlayer":   f.PaddingHostLayer,
			"graphicname": f.PaddingGraphic,
		},
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
