// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package playlist implements the persistent, per-channel event
// timeline described by the Playlist Store component: add/query/
// process/remove/shunt over rows with parent/child relationships, an
// extra-data map, and a processed flag, backed by an embedded Badger
// key-value store so a crash loses nothing newer than the last write.
package playlist

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/logging"
	"github.com/broadcastauto/tarantula/internal/model"
)

const (
	keyPrefixEvent = "evt:"
	keyNextID      = "meta:nextid"
	// shuntFudge is the adjacency margin added while growing the shunt
	// region, matching the source's fixed 5 second fudge factor.
	shuntFudge = 5
)

// Store is one channel's playlist, backed by its own Badger database.
type Store struct {
	db      *badger.DB
	channel string
	nextID  atomic.Int64
	mu      sync.Mutex // serializes id allocation and multi-key writes
	log     zerolog.Logger
}

// Open creates or reopens the playlist store for a channel at dir.
func Open(dir, channel string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open playlist db for %s: %w", channel, err)
	}
	s := &Store{
		db:      db,
		channel: channel,
		log:     logging.WithComponent("playlist").With().Str("channel", channel).Logger(),
	}
	if err := s.loadNextID(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) loadNextID() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyNextID))
		if err == badger.ErrKeyNotFound {
			s.nextID.Store(1)
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var n int64
			if err := json.Unmarshal(val, &n); err != nil {
				return err
			}
			s.nextID.Store(n)
			return nil
		})
	})
}

func eventKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%012d", keyPrefixEvent, id))
}

func (s *Store) putEvent(txn *badger.Txn, e *model.Event) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return txn.Set(eventKey(e.ID), buf)
}

func (s *Store) getEvent(txn *badger.Txn, id int) (*model.Event, error) {
	item, err := txn.Get(eventKey(id))
	if err != nil {
		return nil, err
	}
	var e model.Event
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Add allocates the next id, stamps LastUpdate, and persists the row.
func (s *Store) Add(e *model.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int(s.nextID.Load())
	s.nextID.Store(int64(id) + 1)
	e.ID = id
	e.LastUpdate = time.Now().Unix()
	if e.Processed == 0 && e.Extras == nil {
		e.Extras = map[string]string{}
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := s.putEvent(txn, e); err != nil {
			return err
		}
		buf, err := json.Marshal(s.nextID.Load())
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyNextID), buf)
	})
	if err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	return id, nil
}

// all returns every non-deleted event in the store, unordered.
func (s *Store) all() ([]*model.Event, error) {
	var out []*model.Event
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefixEvent)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e model.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			out = append(out, &e)
		}
		return nil
	})
	return out, err
}

// GetEvents returns rows of the given type whose trigger equals the
// argument exactly and whose Processed == pending.
func (s *Store) GetEvents(t model.EventType, trigger int64) ([]*model.Event, error) {
	rows, err := s.all()
	if err != nil {
		return nil, err
	}
	var out []*model.Event
	for _, e := range rows {
		if e.Type == t && e.Trigger == trigger && e.Processed == model.ProcessedPending {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetChildren returns pending children of parentID ordered by ascending trigger.
func (s *Store) GetChildren(parentID int) ([]*model.Event, error) {
	rows, err := s.all()
	if err != nil {
		return nil, err
	}
	var out []*model.Event
	for _, e := range rows {
		if e.Parent == parentID && e.Processed == model.ProcessedPending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger < out[j].Trigger })
	return out, nil
}

// GetEventDetails returns the event with the given id, if Processed >= 0.
func (s *Store) GetEventDetails(id int) (*model.Event, error) {
	var e *model.Event
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := s.getEvent(txn, id)
		if err != nil {
			return err
		}
		e = found
		return nil
	})
	if err == badger.ErrKeyNotFound || (err == nil && e.Processed < model.ProcessedPending) {
		return nil, model.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ParentID returns the parent id of id, mirroring the original store's
// direct getParentEventID query. It reads the full row via GetEventDetails.
func (s *Store) ParentID(id int) (int, error) {
	e, err := s.GetEventDetails(id)
	if err != nil {
		return 0, err
	}
	return e.Parent, nil
}

// GetEventList returns top-level events with triggers in [start,
// start+length), ordered by trigger then id ascending.
func (s *Store) GetEventList(start, length int64) ([]*model.Event, error) {
	rows, err := s.all()
	if err != nil {
		return nil, err
	}
	end := start + length
	var out []*model.Event
	for _, e := range rows {
		if e.Parent != 0 {
			continue
		}
		if e.Trigger >= start && e.Trigger < end {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trigger != out[j].Trigger {
			return out[i].Trigger < out[j].Trigger
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetActiveHold returns the id of the latest manual event with trigger
// <= byTime and Processed == pending, or 0 if none.
func (s *Store) GetActiveHold(byTime int64) (int, error) {
	rows, err := s.all()
	if err != nil {
		return 0, err
	}
	best := 0
	var bestTrigger int64 = -1
	for _, e := range rows {
		if e.Type != model.EventManual || e.Processed != model.ProcessedPending {
			continue
		}
		if e.Trigger <= byTime && e.Trigger > bestTrigger {
			bestTrigger = e.Trigger
			best = e.ID
		}
	}
	return best, nil
}

// Process idempotently marks id processed and bumps LastUpdate.
func (s *Store) Process(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		e, err := s.getEvent(txn, id)
		if err != nil {
			return err
		}
		e.Processed = model.ProcessedDone
		e.LastUpdate = time.Now().Unix()
		return s.putEvent(txn, e)
	})
}

// Remove recursively marks id and all its descendants deleted, removing
// each row's extras along the way. Children are resolved before the
// parent row is touched.
func (s *Store) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	children, err := s.childIDsIncludingProcessed(id)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, cid := range children {
			if err := s.markDeleted(txn, cid); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return s.markDeleted(txn, id)
	})
}

func (s *Store) markDeleted(txn *badger.Txn, id int) error {
	e, err := s.getEvent(txn, id)
	if err != nil {
		return err
	}
	e.Processed = model.ProcessedDeleted
	e.Extras = nil
	e.LastUpdate = time.Now().Unix()
	return s.putEvent(txn, e)
}

// childIDsIncludingProcessed walks the parent chain regardless of
// Processed state, since remove() must cascade even to already-done rows.
func (s *Store) childIDsIncludingProcessed(root int) ([]int, error) {
	rows, err := s.all()
	if err != nil {
		return nil, err
	}
	byParent := make(map[int][]int)
	for _, e := range rows {
		byParent[e.Parent] = append(byParent[e.Parent], e.ID)
	}
	var out []int
	var walk func(id int)
	walk = func(id int) {
		for _, c := range byParent[id] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

// Shunt moves every root event whose trigger lies in the greedily-grown
// shunt region forward by delta seconds. frameRate converts each root's
// stored frame Duration to seconds when growing the region, matching
// GetExecuting's conversion.
func (s *Store) Shunt(start, delta int64, frameRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.all()
	if err != nil {
		return err
	}

	margin := delta
	if margin < 0 {
		margin = 0
	}
	upper := start + margin + shuntFudge

	type root struct {
		e *model.Event
	}
	var roots []root
	for _, e := range rows {
		if e.Parent == 0 {
			roots = append(roots, root{e})
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].e.Trigger < roots[j].e.Trigger })

	grown := true
	for grown {
		grown = false
		for _, r := range roots {
			if r.e.Trigger < start || r.e.Trigger >= upper {
				continue
			}
			candidate := r.e.Trigger + durationSeconds(r.e.Duration, frameRate) + margin + shuntFudge
			if candidate > upper {
				upper = candidate
				grown = true
			}
		}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, r := range roots {
			if r.e.Trigger < start || r.e.Trigger >= upper {
				continue
			}
			r.e.Trigger += delta
			r.e.LastUpdate = time.Now().Unix()
			if err := s.putEvent(txn, r.e); err != nil {
				return err
			}
		}
		return nil
	})
}

// durationSeconds converts a stored frame count to whole seconds; a
// zero/unset frame rate leaves it unconverted rather than dividing by zero.
func durationSeconds(frames int, frameRate float64) int64 {
	if frameRate <= 0 {
		return int64(frames)
	}
	return int64(float64(frames) / frameRate)
}

// GetExecuting returns top-level events that have been processed and
// whose end time (trigger plus duration in seconds) is at or before now,
// ordered by trigger.
func (s *Store) GetExecuting(now int64, framesPerSecond float64) ([]*model.Event, error) {
	rows, err := s.all()
	if err != nil {
		return nil, err
	}
	var out []*model.Event
	for _, e := range rows {
		if e.Parent != 0 || e.Processed != model.ProcessedDone {
			continue
		}
		end := e.Trigger + durationSeconds(e.Duration, framesPerSecond)
		if end <= now {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger < out[j].Trigger })
	return out, nil
}

// GetNext returns the earliest top-level pending root with trigger > now,
// or nil if there isn't one.
func (s *Store) GetNext(now int64) (*model.Event, error) {
	rows, err := s.all()
	if err != nil {
		return nil, err
	}
	var best *model.Event
	for _, e := range rows {
		if e.Parent != 0 || e.Processed != model.ProcessedPending {
			continue
		}
		if e.Trigger > now && (best == nil || e.Trigger < best.Trigger) {
			best = e
		}
	}
	return best, nil
}

// snapshotRow is the portable, on-disk shape written by Snapshot and
// read back by Restore; it is independent of Badger's own on-disk
// format so a snapshot file can be copied between hosts.
type snapshotRow struct {
	Event *model.Event `json:"event"`
}

// Snapshot atomically writes the in-memory store to path for
// crash-recovery warm start, ignoring deleted rows.
func (s *Store) Snapshot(path string) error {
	rows, err := s.all()
	if err != nil {
		return err
	}
	out := make([]snapshotRow, 0, len(rows))
	for _, e := range rows {
		if e.Processed == model.ProcessedDeleted {
			continue
		}
		out = append(out, snapshotRow{Event: e})
	}
	buf, err := json.Marshal(out)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	s.log.Info().Int("rows", len(out)).Str("path", path).Msg("playlist snapshot written")
	return nil
}

// Restore rehydrates the store from a snapshot file written by
// Snapshot, used on cold start. A missing file is not an error (first
// run, nothing to restore).
func (s *Store) Restore(path string) error {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var rows []snapshotRow
	if err := json.Unmarshal(buf, &rows); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := int64(0)
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, r := range rows {
			if err := s.putEvent(txn, r.Event); err != nil {
				return err
			}
			if int64(r.Event.ID) > maxID {
				maxID = int64(r.Event.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if maxID+1 > s.nextID.Load() {
		s.nextID.Store(maxID + 1)
	}
	s.log.Info().Int("rows", len(rows)).Str("path", path).Msg("playlist restored from snapshot")
	return nil
}
