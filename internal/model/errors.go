// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package model

import "errors"

// Sentinel errors shared across package boundaries, checked with
// errors.Is/errors.As per the error-handling design: components return
// these rather than raising exceptions for expected failure modes.
var (
	ErrChannelNotFound   = errors.New("channel not found")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrProcessorNotFound = errors.New("processor not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrOrphanEvent       = errors.New("non-root event has no parent")
	ErrDegenerateConfig  = errors.New("degenerate configuration")
)
