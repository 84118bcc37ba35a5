// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cmdlist pairs a native command list with a fence-aware allocator
// pool.
//
// A List follows the native reset/record/close loop:
//
//	l := &cmdlist.List{}
//	l.Initialize(cmdlist.Desc{Device: dev, ListType: gpucore.ListTypeDirect, MaxCount: 3})
//	for each frame {
//	    l.Reset(cmdlist.ResetDesc{Fence: fence, WaitValue: frameValue})
//	    record into l.Native()
//	    l.Close()
//	    submit l.Native(), signal fence to frameValue
//	    l.Update()
//	}
//	l.Destroy()
//
// The fence expectation supplied to Reset is attached to the allocator that
// backs the recording, so the pool will not recycle it before the GPU has
// consumed the list.
package cmdlist

import (
	"fmt"
	"time"

	"github.com/gogpu/engine/gpucore"
	"github.com/gogpu/engine/internal/cmdalloc"
)

// Desc configures a List.
type Desc struct {
	// Name labels the list and its pool in logs and metrics.
	Name string

	// Device creates the native list and allocators.
	Device gpucore.Device

	// ListType selects the category of work recorded.
	ListType gpucore.ListType

	// InitialCount allocators are created up front; values below 1 are
	// raised to 1 because the list needs an allocator to be created against.
	InitialCount int

	// MaxCount caps the allocator pool. Values below InitialCount are
	// raised to InitialCount.
	MaxCount int

	// BlockMaxTime bounds fence waits; zero selects the default.
	BlockMaxTime time.Duration

	// Metrics is shared by every pool of an engine; nil disables it.
	Metrics *cmdalloc.Metrics
}

// ResetDesc parameterizes a Reset.
type ResetDesc struct {
	// PipelineState is the optional initial pipeline state.
	PipelineState gpucore.PipelineState

	// Fence and WaitValue mark when the recording started by this Reset is
	// consumed by the GPU. A nil Fence leaves the allocator unfenced.
	Fence     gpucore.Fence
	WaitValue uint64
}

// List owns one native command list and one allocator pool.
//
// List is NOT safe for concurrent use. It is driven from the frame-driver
// goroutine.
type List struct {
	name     string
	listType gpucore.ListType
	pool     cmdalloc.Pool
	native   gpucore.NativeList
	current  *cmdalloc.Allocator
	state    State
}

// Initialize creates the pool and the native list. The list is closed
// once so that every later Reset starts from the closed state.
func (l *List) Initialize(desc Desc) error {
	if l.state != StateUninitialized {
		return fmt.Errorf("%w: initialize in state %s", ErrInvalidState, l.state)
	}
	if desc.Device == nil {
		return ErrNilDevice
	}
	if desc.InitialCount < 1 {
		desc.InitialCount = 1
	}
	if desc.MaxCount < desc.InitialCount {
		desc.MaxCount = desc.InitialCount
	}
	if desc.Name == "" {
		desc.Name = desc.ListType.String()
	}

	err := l.pool.Initialize(desc.Device, cmdalloc.Config{
		Name:         desc.Name,
		ListType:     desc.ListType,
		InitialCount: desc.InitialCount,
		MaxCount:     desc.MaxCount,
		BlockMaxTime: desc.BlockMaxTime,
		Metrics:      desc.Metrics,
	})
	if err != nil {
		return fmt.Errorf("cmdlist: %s: create pool: %w", desc.Name, err)
	}

	alloc := l.pool.TryAcquire()
	if alloc == nil {
		_ = l.pool.DestroyAllForce()
		return fmt.Errorf("%w: %s: fresh pool returned none", ErrNoAllocator, desc.Name)
	}

	native, err := desc.Device.CreateCommandList(desc.ListType, alloc.Native(), nil)
	if err != nil {
		_ = l.pool.DestroyAllForce()
		return fmt.Errorf("cmdlist: %s: create native list: %w", desc.Name, err)
	}
	if native == nil {
		_ = l.pool.DestroyAllForce()
		return fmt.Errorf("%w: %s: device returned nil", ErrNilList, desc.Name)
	}
	if err := native.Close(); err != nil {
		native.Release()
		_ = l.pool.DestroyAllForce()
		return fmt.Errorf("cmdlist: %s: initial close: %w", desc.Name, err)
	}

	l.name = desc.Name
	l.listType = desc.ListType
	l.native = native
	l.current = alloc
	l.state = StateClosed

	slogger().Info("cmdlist: initialized",
		"list", l.name,
		"list_type", l.listType.String(),
		"allocators", l.pool.Len(),
		"max", l.pool.Config().MaxCount)
	return nil
}

// Name returns the list label.
func (l *List) Name() string { return l.name }

// ListType returns the category of work recorded.
func (l *List) ListType() gpucore.ListType { return l.listType }

// State returns the current lifecycle state.
func (l *List) State() State { return l.state }

// Native returns the backend list to record into between Reset and Close.
func (l *List) Native() gpucore.NativeList { return l.native }

// Allocator returns the allocator backing the current or last recording.
func (l *List) Allocator() *cmdalloc.Allocator { return l.current }

// Pool exposes the allocator pool for inspection.
func (l *List) Pool() *cmdalloc.Pool { return &l.pool }

// Reset acquires a free allocator (growing or blocking if needed), resets
// it and begins a new recording.
//
// Any failure to obtain or reset an allocator is returned; the caller
// should abort the frame. Failing to attach the fence only degrades
// recycling and is logged.
func (l *List) Reset(desc ResetDesc) error {
	if l.state != StateClosed {
		return fmt.Errorf("%w: reset in state %s", ErrInvalidState, l.state)
	}

	alloc := l.pool.TryAcquire()
	if alloc == nil {
		var err error
		alloc, err = l.pool.AcquireOrCreate()
		if err != nil {
			slogger().Error("cmdlist: acquire allocator failed", "list", l.name, "err", err)
			return fmt.Errorf("cmdlist: %s: acquire allocator: %w", l.name, err)
		}
	}
	if alloc == nil || alloc.Handle() == 0 {
		return fmt.Errorf("%w: %s", ErrNoAllocator, l.name)
	}

	if err := alloc.Reset(); err != nil {
		return fmt.Errorf("cmdlist: %s: reset allocator %d: %w", l.name, alloc.ID(), err)
	}
	if err := l.native.Reset(alloc.Native(), desc.PipelineState); err != nil {
		return fmt.Errorf("cmdlist: %s: reset native list: %w", l.name, err)
	}
	l.current = alloc
	l.state = StateRecording

	if desc.Fence != nil {
		if err := alloc.AttachFence(desc.Fence, desc.WaitValue); err != nil {
			slogger().Warn("cmdlist: attach fence failed, recycling degraded",
				"list", l.name,
				"allocator", alloc.ID(),
				"wait_value", desc.WaitValue,
				"err", err)
		}
	}
	return nil
}

// Close ends the recording so the native list can be submitted.
func (l *List) Close() error {
	if l.native == nil {
		return ErrNilList
	}
	if l.state != StateRecording {
		return fmt.Errorf("%w: close in state %s", ErrInvalidState, l.state)
	}
	if err := l.native.Close(); err != nil {
		return fmt.Errorf("cmdlist: %s: close: %w", l.name, err)
	}
	l.state = StateClosed
	return nil
}

// DropFence forgets the fence value attached by the last Reset. Call it
// when the submission meant to signal value failed, so the allocator is
// not waited on for work the GPU never received.
func (l *List) DropFence(value uint64) {
	if l.current != nil {
		l.current.DetachFence(value)
	}
}

// Update runs the pool's per-frame maintenance. Call it once per frame
// whether or not the list recorded anything.
func (l *List) Update() {
	l.pool.UpdateAllocators()
}

// Destroy drains the pool, waiting for in-flight allocators, and releases
// the native list. It is safe to call more than once.
func (l *List) Destroy() error {
	if l.state == StateDestroyed {
		return nil
	}
	err := l.pool.DestroyAllForce()
	if l.native != nil {
		l.native.Release()
		l.native = nil
	}
	l.current = nil
	l.state = StateDestroyed

	if err != nil {
		slogger().Error("cmdlist: destroy left allocators behind", "list", l.name, "err", err)
		return fmt.Errorf("cmdlist: %s: destroy: %w", l.name, err)
	}
	slogger().Debug("cmdlist: destroyed", "list", l.name)
	return nil
}
