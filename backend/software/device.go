// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/engine/gpucore"
)

// Command is one recorded operation.
type Command struct {
	Label string
}

// Allocator is the software command allocator. It owns the commands
// recorded through the list currently bound to it.
type Allocator struct {
	mu        sync.Mutex
	handle    uintptr
	listType  gpucore.ListType
	commands  []Command
	recording bool
	resets    int
	released  bool
}

// Reset implements gpucore.NativeAllocator.
func (a *Allocator) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return ErrReleased
	}
	if a.recording {
		return fmt.Errorf("%w: allocator %d", ErrRecording, a.handle)
	}
	a.commands = a.commands[:0]
	a.resets++
	return nil
}

// Release implements gpucore.NativeAllocator.
func (a *Allocator) Release() {
	a.mu.Lock()
	a.released = true
	a.commands = nil
	a.mu.Unlock()
}

// Handle implements gpucore.NativeAllocator.
func (a *Allocator) Handle() uintptr { return a.handle }

// Resets returns how many times the allocator was reset.
func (a *Allocator) Resets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets
}

// Commands returns a copy of the recorded commands.
func (a *Allocator) Commands() []Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Command(nil), a.commands...)
}

// List is the software command list.
type List struct {
	mu        sync.Mutex
	listType  gpucore.ListType
	alloc     *Allocator
	pso       gpucore.PipelineState
	recording bool
	released  bool
}

// Reset implements gpucore.NativeList.
func (l *List) Reset(na gpucore.NativeAllocator, pso gpucore.PipelineState) error {
	alloc, ok := na.(*Allocator)
	if !ok || alloc == nil {
		return fmt.Errorf("%w: allocator %T", ErrForeignObject, na)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	if l.recording {
		return ErrRecording
	}
	if alloc.listType != l.listType {
		return fmt.Errorf("%w: list %s, allocator %s", ErrListTypeMismatch, l.listType, alloc.listType)
	}
	return l.begin(alloc, pso)
}

// begin binds the list to alloc and starts recording. l.mu is held.
func (l *List) begin(alloc *Allocator, pso gpucore.PipelineState) error {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()
	if alloc.released {
		return ErrReleased
	}
	if alloc.recording {
		return fmt.Errorf("%w: allocator %d backs another list", ErrRecording, alloc.handle)
	}
	alloc.recording = true
	l.alloc = alloc
	l.pso = pso
	l.recording = true
	return nil
}

// Close implements gpucore.NativeList.
func (l *List) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	if !l.recording {
		return ErrNotRecording
	}
	l.alloc.mu.Lock()
	l.alloc.recording = false
	l.alloc.mu.Unlock()
	l.recording = false
	return nil
}

// Release implements gpucore.NativeList.
func (l *List) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recording && l.alloc != nil {
		l.alloc.mu.Lock()
		l.alloc.recording = false
		l.alloc.mu.Unlock()
	}
	l.recording = false
	l.released = true
}

// InsertMarker implements gpucore.Marker.
func (l *List) InsertMarker(label string) {
	_ = l.Record(Command{Label: label})
}

// Record appends a command to the bound allocator.
func (l *List) Record(cmd Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.recording {
		return ErrNotRecording
	}
	l.alloc.mu.Lock()
	l.alloc.commands = append(l.alloc.commands, cmd)
	l.alloc.mu.Unlock()
	return nil
}

// Recording reports whether the list is open for recording.
func (l *List) Recording() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recording
}

// PipelineState returns the pipeline state set by the last Reset.
func (l *List) PipelineState() gpucore.PipelineState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pso
}

// Allocator returns the allocator the list is bound to.
func (l *List) Allocator() *Allocator {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alloc
}

// Device is the software gpucore.Device.
type Device struct {
	handles    atomic.Uint64
	allocators atomic.Int64
	lists      atomic.Int64
}

// NewDevice returns a ready device.
func NewDevice() *Device { return &Device{} }

// CreateCommandAllocator implements gpucore.Device.
func (d *Device) CreateCommandAllocator(t gpucore.ListType) (gpucore.NativeAllocator, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("software: invalid list type %v", t)
	}
	d.allocators.Add(1)
	return &Allocator{handle: uintptr(d.handles.Add(1)), listType: t}, nil
}

// CreateCommandList implements gpucore.Device. The list starts recording.
func (d *Device) CreateCommandList(t gpucore.ListType, na gpucore.NativeAllocator, pso gpucore.PipelineState) (gpucore.NativeList, error) {
	alloc, ok := na.(*Allocator)
	if !ok || alloc == nil {
		return nil, fmt.Errorf("%w: allocator %T", ErrForeignObject, na)
	}
	if alloc.listType != t {
		return nil, fmt.Errorf("%w: list %s, allocator %s", ErrListTypeMismatch, t, alloc.listType)
	}
	l := &List{listType: t}
	l.mu.Lock()
	err := l.begin(alloc, pso)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	d.lists.Add(1)
	return l, nil
}

// AllocatorsCreated returns how many allocators the device created.
func (d *Device) AllocatorsCreated() int { return int(d.allocators.Load()) }

// ListsCreated returns how many lists the device created.
func (d *Device) ListsCreated() int { return int(d.lists.Load()) }
