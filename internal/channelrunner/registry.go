// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package channelrunner

import (
	"sync"

	"github.com/broadcastauto/tarantula/internal/model"
)

// Channels is the name -> Channel registry. It lives alongside Channel
// itself, rather than in internal/registry, so that internal/registry
// never needs to import this package back.
type Channels struct {
	mu     sync.RWMutex
	byName map[string]*Channel
}

func NewChannels() *Channels {
	return &Channels{byName: make(map[string]*Channel)}
}

func (r *Channels) Put(c *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[c.Name] = c
}

func (r *Channels) Get(name string) (*Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, model.ErrChannelNotFound
	}
	return c, nil
}

// All returns every registered channel, unordered.
func (r *Channels) All() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Channel, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out
}
