// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

// Package scanner crawls a media directory and maintains a persistent
// duration database: new files get probed, known files are revisited
// on a rolling schedule, and missing files are flagged without being
// forgotten, mirroring the original media-library crawler's
// changed/missing reconciliation.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/broadcastauto/tarantula/internal/cache"
	"github.com/broadcastauto/tarantula/internal/logging"
)

const keyPrefixFile = "file:"

// Record is one file's catalogue entry: probed duration/size plus the
// changed/missing bookkeeping the reconciliation pass needs.
type Record struct {
	Filename   string `json:"filename"`
	DurationFr int64  `json:"duration_frames"`
	Size       int64  `json:"size"`
	LastUpdate int64  `json:"last_update"`
	Gone       bool   `json:"gone"`
	Changed    bool   `json:"changed"`
}

// Prober probes a media file and returns its duration in frames at the
// caller's frame rate. The concrete implementation shells out to
// ffprobe; it is supplied by the caller so this package stays testable
// without a real media toolchain on PATH.
type Prober interface {
	Probe(ctx context.Context, path string, frameRate float64) (durationFrames int64, size int64, err error)
}

// Scanner crawls a root directory and keeps an embedded Badger catalogue
// of every file found, with a timestamp-ordered rescan schedule for
// files already known so a large library doesn't get fully re-probed
// every pass.
type Scanner struct {
	db        *badger.DB
	root      string
	frameRate float64
	prober    Prober
	rescan    time.Duration

	mu       sync.Mutex
	schedule *cache.MinHeap[struct{}]

	log zerolog.Logger
}

// Open creates or reopens the scanner's catalogue database at dir.
// rescan is how long a known file is left alone before it is probed
// again (picking up re-encodes in place without a filesystem watch).
func Open(dir, root string, frameRate float64, prober Prober, rescan time.Duration) (*Scanner, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open scanner db: %w", err)
	}
	s := &Scanner{
		db:        db,
		root:      root,
		frameRate: frameRate,
		prober:    prober,
		rescan:    rescan,
		schedule:  cache.NewMinHeap[struct{}](0),
		log:       logging.WithComponent("scanner").With().Str("root", root).Logger(),
	}
	if err := s.primeSchedule(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Scanner) Close() error { return s.db.Close() }

func fileKey(name string) []byte { return []byte(keyPrefixFile + name) }

func (s *Scanner) getRecord(txn *badger.Txn, name string) (*Record, error) {
	item, err := txn.Get(fileKey(name))
	if err != nil {
		return nil, err
	}
	var r Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Scanner) putRecord(txn *badger.Txn, r *Record) error {
	buf, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return txn.Set(fileKey(r.Filename), buf)
}

// All returns every catalogue entry, known-present and missing alike.
func (s *Scanner) All() ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefixFile)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				return err
			}
			out = append(out, &r)
		}
		return nil
	})
	return out, err
}

// primeSchedule pushes every known, present file onto the rescan
// schedule keyed on lastupdate+rescan so a freshly-opened catalogue
// doesn't immediately re-probe everything it already knows about.
func (s *Scanner) primeSchedule() error {
	rows, err := s.All()
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.Gone {
			continue
		}
		due := time.Unix(r.LastUpdate, 0).Add(s.rescan)
		s.schedule.Push(r.Filename, struct{}{}, due)
	}
	return nil
}

// Get returns the catalogue entry for filename, if known.
func (s *Scanner) Get(filename string) (*Record, bool) {
	var rec *Record
	_ = s.db.View(func(txn *badger.Txn) error {
		r, err := s.getRecord(txn, filename)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, rec != nil
}

// Missing returns every file the catalogue knows about but did not see
// on the last walk.
func (s *Scanner) Missing() ([]string, error) {
	rows, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		if r.Gone {
			out = append(out, r.Filename)
		}
	}
	return out, nil
}

// Changed returns every file whose last probe produced a different
// duration or size than previously recorded.
func (s *Scanner) Changed() ([]string, error) {
	rows, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		if r.Changed {
			out = append(out, r.Filename)
		}
	}
	return out, nil
}

// Walk performs one full directory pass: every file under root is
// marked present, new or previously gone files are probed immediately,
// a known file is re-probed when its size has changed or it is due per
// the rescan schedule and is otherwise left alone, and anything
// previously known but not seen this pass is flagged gone rather than
// deleted, matching the original catalogue's missing-list semantics.
func (s *Scanner) Walk(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		seen[rel] = true
		return s.processFile(ctx, rel, path)
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", s.root, err)
	}
	return s.reconcileMissing(seen)
}

func (s *Scanner) processFile(ctx context.Context, rel, abspath string) error {
	fi, err := os.Stat(abspath)
	if err != nil {
		return err
	}

	existing, known := s.Get(rel)
	now := time.Now()

	switch {
	case !known:
		return s.probeAndStore(ctx, rel, abspath, fi.Size(), false)
	case existing.Gone:
		return s.probeAndStore(ctx, rel, abspath, fi.Size(), false)
	case existing.Size != fi.Size():
		return s.probeAndStore(ctx, rel, abspath, fi.Size(), true)
	case s.dueForRescan(rel, now):
		return s.probeAndStore(ctx, rel, abspath, fi.Size(), true)
	default:
		return s.markPresent(rel)
	}
}

func (s *Scanner) dueForRescan(rel string, now time.Time) bool {
	e := s.schedule.Get(rel)
	return e == nil || !e.Timestamp.After(now)
}

func (s *Scanner) probeAndStore(ctx context.Context, rel, abspath string, size int64, wasKnown bool) error {
	durationFrames, probedSize, err := s.prober.Probe(ctx, abspath, s.frameRate)
	if err != nil {
		s.log.Warn().Err(err).Str("file", rel).Msg("probe failed")
		return s.markPresent(rel)
	}

	changed := false
	err = s.db.Update(func(txn *badger.Txn) error {
		prev, prevErr := s.getRecord(txn, rel)
		if prevErr != nil && prevErr != badger.ErrKeyNotFound {
			return prevErr
		}
		if prevErr == nil && wasKnown {
			changed = prev.DurationFr != durationFrames || prev.Size != probedSize
		}
		r := &Record{
			Filename:   rel,
			DurationFr: durationFrames,
			Size:       probedSize,
			LastUpdate: time.Now().Unix(),
			Gone:       false,
			Changed:    changed,
		}
		return s.putRecord(txn, r)
	})
	if err != nil {
		return err
	}
	s.schedule.Push(rel, struct{}{}, time.Now().Add(s.rescan))
	if changed {
		s.log.Info().Str("file", rel).Msg("probed file duration changed")
	}
	_ = size
	return nil
}

func (s *Scanner) markPresent(rel string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		r, err := s.getRecord(txn, rel)
		if err != nil {
			return err
		}
		if !r.Gone {
			return nil
		}
		r.Gone = false
		r.LastUpdate = time.Now().Unix()
		return s.putRecord(txn, r)
	})
}

func (s *Scanner) reconcileMissing(seen map[string]bool) error {
	rows, err := s.All()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, r := range rows {
			if r.Gone || seen[r.Filename] {
				continue
			}
			r.Gone = true
			r.LastUpdate = time.Now().Unix()
			if err := s.putRecord(txn, r); err != nil {
				return err
			}
			s.log.Warn().Str("file", r.Filename).Msg("file missing from last scan")
		}
		return nil
	})
}

// ClearChanged resets the changed flag after a caller has consumed the
// change notification.
func (s *Scanner) ClearChanged(filename string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		r, err := s.getRecord(txn, filename)
		if err != nil {
			return err
		}
		r.Changed = false
		return s.putRecord(txn, r)
	})
}
