// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/engine/gpucore"
)

// Fence is a timeline fence over a hal.Fence. HAL fences only answer
// "has value v been reached", so the fence remembers the values submitted
// on it and polls them in order.
type Fence struct {
	mu        sync.Mutex
	device    *Device
	fence     hal.Fence
	pending   []uint64
	completed uint64
}

// CompletedValue implements gpucore.Fence.
func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) > 0 {
		ok, err := f.device.dev.Wait(f.fence, f.pending[0], 0)
		if err != nil || !ok {
			break
		}
		f.complete(f.pending[0])
	}
	return f.completed
}

// Wait implements gpucore.Fence.
func (f *Fence) Wait(value uint64, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	if f.completed >= value {
		f.mu.Unlock()
		return true, nil
	}
	f.mu.Unlock()

	ok, err := f.device.dev.Wait(f.fence, value, timeout)
	if err != nil {
		return false, fmt.Errorf("native: wait for fence value %d: %w", value, err)
	}
	if ok {
		f.mu.Lock()
		f.complete(value)
		f.mu.Unlock()
	}
	return ok, nil
}

// complete records value as reached. f.mu is held.
func (f *Fence) complete(value uint64) {
	if value > f.completed {
		f.completed = value
	}
	i := 0
	for i < len(f.pending) && f.pending[i] <= value {
		i++
	}
	f.pending = f.pending[i:]
}

func (f *Fence) submitted(value uint64) {
	f.mu.Lock()
	f.pending = append(f.pending, value)
	f.mu.Unlock()
}

// Queue implements gpucore.Queue on the device's HAL queue.
type Queue struct {
	device *Device
}

// CreateFence implements gpucore.Queue.
func (q *Queue) CreateFence() (gpucore.Fence, error) {
	hf, err := q.device.dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	return &Fence{device: q.device, fence: hf}, nil
}

// DestroyFence implements gpucore.Queue.
func (q *Queue) DestroyFence(f gpucore.Fence) {
	if nf, ok := f.(*Fence); ok && nf.fence != nil {
		q.device.dev.DestroyFence(nf.fence)
		nf.fence = nil
	}
}

// Submit implements gpucore.Queue. Every list must be closed; the fence
// is signaled to value once the buffers have executed.
func (q *Queue) Submit(lists []gpucore.NativeList, fence gpucore.Fence, value uint64) error {
	var nf *Fence
	if fence != nil {
		var ok bool
		if nf, ok = fence.(*Fence); !ok || nf == nil {
			return fmt.Errorf("%w: fence %T", ErrForeignObject, fence)
		}
	}
	buffers := make([]hal.CommandBuffer, 0, len(lists))
	for i, nl := range lists {
		l, ok := nl.(*List)
		if !ok || l == nil {
			return fmt.Errorf("%w: list %d is %T", ErrForeignObject, i, nl)
		}
		buf, err := l.buffer()
		if err != nil {
			return err
		}
		buffers = append(buffers, buf)
	}
	if nf == nil {
		if err := q.device.q.Submit(buffers, nil, 0); err != nil {
			return fmt.Errorf("native: submit: %w", err)
		}
		return nil
	}
	if err := q.device.q.Submit(buffers, nf.fence, value); err != nil {
		return fmt.Errorf("native: submit value %d: %w", value, err)
	}
	nf.submitted(value)
	return nil
}
