// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdalloc

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/engine/gpucore"
)

// allocatorIDs hands out process-unique allocator identities for logs.
var allocatorIDs atomic.Uint64

// attachTicks orders fence attachments across all allocators so the pool
// can find the oldest submission.
var attachTicks atomic.Uint64

// Allocator is a reusable command allocator gated by a fence.
//
// An allocator is free when no fence is attached or when the attached
// fence has reached the recorded wait value. It must not be reset or
// destroyed while busy.
//
// Allocator is NOT safe for concurrent use. Callers serialize access,
// normally by confining a pool to the frame-driver goroutine.
type Allocator struct {
	id       uint64
	listType gpucore.ListType
	timeout  time.Duration
	native   gpucore.NativeAllocator

	fence     gpucore.Fence
	waitValue uint64
	attachSeq uint64

	initialized bool
}

// Initialize creates the native allocator on device. A non-positive
// waitTimeout selects gpucore.DefaultWaitTimeout.
func (a *Allocator) Initialize(device gpucore.Device, t gpucore.ListType, waitTimeout time.Duration) error {
	if a.initialized {
		return ErrAlreadyInitialized
	}
	if device == nil {
		return ErrNilDevice
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidListType, t)
	}
	if waitTimeout <= 0 {
		waitTimeout = gpucore.DefaultWaitTimeout
	}

	native, err := device.CreateCommandAllocator(t)
	if err != nil {
		return fmt.Errorf("cmdalloc: create %s allocator: %w", t, err)
	}
	if native == nil {
		return fmt.Errorf("cmdalloc: create %s allocator: device returned nil", t)
	}

	if a.id == 0 {
		a.id = allocatorIDs.Add(1)
	}
	a.listType = t
	a.timeout = waitTimeout
	a.native = native
	a.fence = nil
	a.waitValue = 0
	a.initialized = true

	slogger().Debug("cmdalloc: allocator created",
		"allocator", a.id,
		"list_type", t.String(),
		"handle", native.Handle())
	return nil
}

// ID returns the allocator identity used in diagnostics.
func (a *Allocator) ID() uint64 { return a.id }

// ListType returns the command list type the allocator services.
func (a *Allocator) ListType() gpucore.ListType { return a.listType }

// Native returns the backend allocator, or nil once destroyed.
func (a *Allocator) Native() gpucore.NativeAllocator { return a.native }

// Initialized reports whether the allocator holds a live native object.
func (a *Allocator) Initialized() bool { return a.initialized }

// Handle returns the native handle, zero if there is none.
func (a *Allocator) Handle() uintptr {
	if a.native == nil {
		return 0
	}
	return a.native.Handle()
}

// WaitValue returns the fence value of the last attached submission.
func (a *Allocator) WaitValue() uint64 { return a.waitValue }

// Fenced reports whether a fence expectation is still recorded.
func (a *Allocator) Fenced() bool { return a.fence != nil }

// AttachFence records the fence value that marks this allocator free again.
// It refuses to overwrite a pending expectation.
func (a *Allocator) AttachFence(fence gpucore.Fence, waitValue uint64) error {
	if !a.initialized {
		return ErrNotInitialized
	}
	if fence == nil {
		return ErrNilFence
	}
	if !a.IsFree() {
		slogger().Error("cmdalloc: attach fence on busy allocator",
			"allocator", a.id,
			"pending", a.waitValue,
			"requested", waitValue)
		return fmt.Errorf("%w: allocator %d still waits for %d", ErrBusy, a.id, a.waitValue)
	}
	a.fence = fence
	a.waitValue = waitValue
	a.attachSeq = attachTicks.Add(1)
	return nil
}

// DetachFence drops the expectation for waitValue when the submission that
// would have signaled it never reached the queue. Other values are kept.
// It reports whether an expectation was dropped.
func (a *Allocator) DetachFence(waitValue uint64) bool {
	if a.fence == nil || a.waitValue != waitValue {
		return false
	}
	a.fence = nil
	a.waitValue = 0
	slogger().Debug("cmdalloc: fence expectation dropped",
		"allocator", a.id,
		"wait_value", waitValue)
	return true
}

// IsFree reports, without blocking, whether the GPU is done with the
// allocator's last submission.
func (a *Allocator) IsFree() bool {
	if a.fence == nil {
		return true
	}
	return a.fence.CompletedValue() >= a.waitValue
}

// release drops a completed fence expectation. It reports whether the
// allocator is free.
func (a *Allocator) release() bool {
	if a.fence == nil {
		return true
	}
	if a.fence.CompletedValue() < a.waitValue {
		return false
	}
	a.fence = nil
	return true
}

// Reset discards recorded commands. It fails while the allocator is busy.
func (a *Allocator) Reset() error {
	if !a.initialized {
		return ErrNotInitialized
	}
	if !a.IsFree() {
		slogger().Error("cmdalloc: reset of busy allocator",
			"allocator", a.id,
			"wait_value", a.waitValue,
			"completed", a.fence.CompletedValue())
		return fmt.Errorf("%w: allocator %d", ErrBusy, a.id)
	}
	if err := a.native.Reset(); err != nil {
		return fmt.Errorf("cmdalloc: reset allocator %d: %w", a.id, err)
	}
	return nil
}

// ForceWait blocks until the allocator is free or its wait timeout
// elapses. A timeout returns ErrWaitTimeout.
func (a *Allocator) ForceWait() error {
	if a.IsFree() {
		return nil
	}

	start := time.Now()
	ok, err := a.fence.Wait(a.waitValue, a.timeout)
	if err != nil {
		return fmt.Errorf("cmdalloc: wait allocator %d for %d: %w", a.id, a.waitValue, err)
	}
	if !ok || !a.IsFree() {
		slogger().Error("cmdalloc: fence wait timed out",
			"allocator", a.id,
			"wait_value", a.waitValue,
			"completed", a.fence.CompletedValue(),
			"timeout", a.timeout)
		return fmt.Errorf("%w: allocator %d waiting for %d after %v", ErrWaitTimeout, a.id, a.waitValue, a.timeout)
	}

	slogger().Debug("cmdalloc: waited for allocator",
		"allocator", a.id,
		"wait_value", a.waitValue,
		"elapsed", time.Since(start))
	return nil
}

// ForceReset waits for the allocator and resets it.
func (a *Allocator) ForceReset() error {
	if err := a.ForceWait(); err != nil {
		return err
	}
	return a.Reset()
}

// Destroy releases the native allocator. It refuses to destroy a busy
// allocator; destroying twice is a no-op.
func (a *Allocator) Destroy() error {
	if !a.initialized {
		return nil
	}
	if !a.IsFree() {
		return fmt.Errorf("%w: cannot destroy allocator %d", ErrBusy, a.id)
	}
	a.fence = nil
	a.waitValue = 0
	a.native.Release()
	a.native = nil
	a.initialized = false

	slogger().Debug("cmdalloc: allocator destroyed", "allocator", a.id)
	return nil
}

// ForceDestroy waits for outstanding GPU work and then destroys.
func (a *Allocator) ForceDestroy() error {
	if !a.initialized {
		return nil
	}
	if err := a.ForceWait(); err != nil {
		return err
	}
	return a.Destroy()
}
