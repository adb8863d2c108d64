// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package model

// Action is an immutable entry in a device's action table. Action sets
// are fixed per family; a device chooses its family at construction and
// exposes only that family's actions.
type Action struct {
	ID          int
	Name        string
	Description string
	Params      map[string]string // parameter name -> type name
	// Metadata carries processor-supplied annotations about an action
	// definition itself (e.g. marking an action a no-op under dry-run)
	// distinct from the per-event Extras map on Event.
	Metadata map[string]string
}

func (a Action) Int() int { return a.ID }

// ActionTable is an ordered, id-indexed view over a device's actions.
type ActionTable struct {
	ordered []Action
	byID    map[int]Action
}

// NewActionTable builds a lookup table preserving declaration order.
func NewActionTable(actions []Action) *ActionTable {
	t := &ActionTable{
		ordered: append([]Action(nil), actions...),
		byID:    make(map[int]Action, len(actions)),
	}
	for _, a := range actions {
		t.byID[a.ID] = a
	}
	return t
}

// Lookup returns the action with the given id, and whether it exists.
func (t *ActionTable) Lookup(id int) (Action, bool) {
	a, ok := t.byID[id]
	return a, ok
}

// All returns the actions in declaration order.
func (t *ActionTable) All() []Action {
	return append([]Action(nil), t.ordered...)
}
