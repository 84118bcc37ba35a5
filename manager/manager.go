// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package manager orders engine subsystems by their declared dependencies
// and drives their lifecycle.
//
// A [Scheduler] holds a directed graph over [Manager] units. Init computes a
// topological order, parents before dependents, and initializes every unit
// in that order. Per frame, begin hooks run in the same order and end hooks
// in the reverse order; Shutdown releases in reverse as well, so a unit is
// always released before the units it depends on.
package manager

// Manager is a schedulable engine subsystem.
type Manager interface {
	// Name identifies the manager in logs and errors.
	Name() string

	// Initialize acquires the manager's resources. It runs after every
	// manager this one depends on.
	Initialize() error

	// Release frees the manager's resources. It runs before the managers
	// this one depends on are released.
	Release() error

	// OnFrameBegin runs at the start of every frame with the elapsed time
	// in seconds.
	OnFrameBegin(dt float64)

	// OnFrameEnd runs at the end of every frame.
	OnFrameEnd()
}

// FrameErrorer is implemented by managers whose frame hooks can fail.
// When present, the scheduler calls these instead of the plain hooks and
// logs and counts failures without interrupting the frame.
type FrameErrorer interface {
	OnFrameBeginErr(dt float64) error
	OnFrameEndErr() error
}

// Base is an embeddable no-op Manager. Embed it and override what you need.
type Base struct {
	ManagerName string
}

func (b Base) Name() string       { return b.ManagerName }
func (Base) Initialize() error    { return nil }
func (Base) Release() error       { return nil }
func (Base) OnFrameBegin(float64) {}
func (Base) OnFrameEnd()          {}
