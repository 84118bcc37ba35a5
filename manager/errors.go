// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package manager

import (
	"errors"
	"fmt"
)

// Scheduler errors.
var (
	// ErrNilManager is returned when a nil manager is passed where one is
	// required.
	ErrNilManager = errors.New("manager: nil manager")

	// ErrCycleDetected is returned by Init when the dependency graph has a
	// cycle. The computed order is empty.
	ErrCycleDetected = errors.New("manager: dependency cycle detected")

	// ErrMissingDependency is returned by Init when an edge names a manager
	// that was never registered.
	ErrMissingDependency = errors.New("manager: dependency not registered")

	// ErrAlreadyInitialized is returned by a second Init without Clear.
	ErrAlreadyInitialized = errors.New("manager: scheduler already initialized")
)

// NodeError reports a failed hook on a named manager.
type NodeError struct {
	Manager string
	Op      string // "initialize" or "release"
	Err     error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("manager: %s %q: %v", e.Op, e.Manager, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// FatalError marks a startup failure the engine must not continue past.
// The outer loop translates it into process termination.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
