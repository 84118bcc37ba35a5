// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdalloc

import (
	"errors"
	"sync"
	"time"

	"github.com/gogpu/engine/gpucore"
)

// =============================================================================
// Mock Types for Testing
// =============================================================================

// mockFence is a manually signaled fence.
type mockFence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
	waits     int
}

func newMockFence() *mockFence {
	f := &mockFence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *mockFence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *mockFence) Signal(v uint64) {
	f.mu.Lock()
	if v > f.completed {
		f.completed = v
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *mockFence) Wait(v uint64, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
	for f.completed < v {
		if !time.Now().Before(deadline) {
			return false, nil
		}
		f.cond.Wait()
	}
	return true, nil
}

func (f *mockFence) waitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waits
}

// mockAllocator is a test double for gpucore.NativeAllocator.
type mockAllocator struct {
	handle   uintptr
	resets   int
	released bool
	resetErr error
}

func (a *mockAllocator) Reset() error {
	if a.resetErr != nil {
		return a.resetErr
	}
	a.resets++
	return nil
}

func (a *mockAllocator) Release()        { a.released = true }
func (a *mockAllocator) Handle() uintptr { return a.handle }

// mockDevice is a test double for gpucore.Device.
type mockDevice struct {
	created    []*mockAllocator
	failAfter  int // fail allocator creation once this many exist; 0 = never
	lastListTy gpucore.ListType
}

var errCreateFailed = errors.New("mock: create failed")

func (d *mockDevice) CreateCommandAllocator(t gpucore.ListType) (gpucore.NativeAllocator, error) {
	if d.failAfter > 0 && len(d.created) >= d.failAfter {
		return nil, errCreateFailed
	}
	d.lastListTy = t
	a := &mockAllocator{handle: uintptr(len(d.created) + 1)}
	d.created = append(d.created, a)
	return a, nil
}

//nolint:nilnil // Mock: lists are not used by allocator tests.
func (d *mockDevice) CreateCommandList(gpucore.ListType, gpucore.NativeAllocator, gpucore.PipelineState) (gpucore.NativeList, error) {
	return nil, nil
}
