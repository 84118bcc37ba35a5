// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/engine/gpucore"
)

// Allocator owns one command encoder and the command buffer it produced
// last. The buffer stays alive until the allocator is reset, which the
// pool only does once the GPU has finished with it.
type Allocator struct {
	device   *Device
	handle   uintptr
	listType gpucore.ListType
	enc      encoder

	buffer    hal.CommandBuffer
	hasBuffer bool
	recording bool
	released  bool
}

// Reset implements gpucore.NativeAllocator.
func (a *Allocator) Reset() error {
	if a.released {
		return ErrReleased
	}
	if a.recording {
		return fmt.Errorf("%w: allocator %d", ErrRecording, a.handle)
	}
	a.freeBuffer()
	return nil
}

func (a *Allocator) freeBuffer() {
	if a.hasBuffer {
		a.device.dev.FreeCommandBuffer(a.buffer)
		a.buffer = nil
		a.hasBuffer = false
	}
}

// Release implements gpucore.NativeAllocator.
func (a *Allocator) Release() {
	if a.released {
		return
	}
	if a.recording {
		a.enc.DiscardEncoding()
		a.recording = false
	}
	a.freeBuffer()
	a.released = true
}

// Handle implements gpucore.NativeAllocator.
func (a *Allocator) Handle() uintptr {
	if a.released {
		return 0
	}
	return a.handle
}

// List records into the encoder of the allocator it was last reset with.
type List struct {
	label     string
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
	switch {
	case l.released || alloc.released:
		return ErrReleased
	case l.recording:
		return fmt.Errorf("%w: list %s", ErrRecording, l.label)
	case alloc.recording:
		return fmt.Errorf("%w: allocator %d backs another list", ErrRecording, alloc.handle)
	case alloc.listType != l.listType:
		return fmt.Errorf("%w: list %s, allocator %s", ErrListTypeMismatch, l.listType, alloc.listType)
	}
	if err := alloc.enc.BeginEncoding(l.label); err != nil {
		return fmt.Errorf("native: begin encoding %s: %w", l.label, err)
	}
	alloc.recording = true
	l.alloc = alloc
	l.pso = pso
	l.recording = true
	return nil
}

// Close implements gpucore.NativeList. The produced command buffer is
// kept by the allocator until its next Reset.
func (l *List) Close() error {
	if l.released {
		return ErrReleased
	}
	if !l.recording {
		return ErrNotRecording
	}
	buf, err := l.alloc.enc.EndEncoding()
	l.alloc.recording = false
	l.recording = false
	if err != nil {
		return fmt.Errorf("native: end encoding %s: %w", l.label, err)
	}
	l.alloc.freeBuffer()
	l.alloc.buffer = buf
	l.alloc.hasBuffer = true
	return nil
}

// Release implements gpucore.NativeList.
func (l *List) Release() {
	if l.recording && l.alloc != nil {
		l.alloc.enc.DiscardEncoding()
		l.alloc.recording = false
	}
	l.recording = false
	l.released = true
}

// PipelineState returns the pipeline state set by the last Reset.
func (l *List) PipelineState() gpucore.PipelineState { return l.pso }

// Recording reports whether the list is open.
func (l *List) Recording() bool { return l.recording }

// buffer returns the command buffer of the last recording.
func (l *List) buffer() (hal.CommandBuffer, error) {
	if l.released {
		return nil, ErrReleased
	}
	if l.recording {
		return nil, fmt.Errorf("%w: list %s must be closed before submit", ErrRecording, l.label)
	}
	if l.alloc == nil || !l.alloc.hasBuffer {
		return nil, fmt.Errorf("native: list %s has no command buffer", l.label)
	}
	return l.alloc.buffer, nil
}
