// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package services

import "context"

// Closer matches *xmlwire.Adapter's Close method. Accepting the
// narrow interface rather than the concrete type avoids an import of
// internal/source/xmlwire here, keeping this package free to wrap any
// accept-loop-on-its-own-goroutines component.
type Closer interface {
	Name() string
	Close() error
}

// XMLWireService adapts an already-listening adapter (one that accepts
// connections on its own goroutines from the moment it's constructed)
// to suture.Service: Serve only has to block until shutdown and then
// close the listener.
type XMLWireService struct {
	adapter Closer
}

// NewXMLWireService wraps an already-listening adapter.
func NewXMLWireService(adapter Closer) *XMLWireService {
	return &XMLWireService{adapter: adapter}
}

// Serve implements suture.Service.
func (s *XMLWireService) Serve(ctx context.Context) error {
	<-ctx.Done()
	return s.adapter.Close()
}

// String implements fmt.Stringer for suture's log messages.
func (s *XMLWireService) String() string {
	return "xmlwire:" + s.adapter.Name()
}
