// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdlist

// State is the lifecycle state of a List.
//
//	Uninitialized -> Initialize -> Closed
//	Closed        -> Reset      -> Recording
//	Recording     -> Close      -> Closed
//	any           -> Destroy    -> Destroyed
type State uint8

const (
	StateUninitialized State = iota
	StateClosed
	StateRecording
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateClosed:
		return "closed"
	case StateRecording:
		return "recording"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
