// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Fence is a CPU fence. Its completed value only moves forward.
type Fence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
	clock     clock.Clock
}

// NewFence returns a fence using the wall clock for timeouts.
func NewFence() *Fence { return NewFenceWithClock(clock.New()) }

// NewFenceWithClock returns a fence whose Wait timeouts are measured on clk.
func NewFenceWithClock(clk clock.Clock) *Fence {
	f := &Fence{clock: clk}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// CompletedValue implements gpucore.Fence.
func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Signal raises the completed value to v. Lower values are ignored.
func (f *Fence) Signal(v uint64) {
	f.mu.Lock()
	if v > f.completed {
		f.completed = v
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

// Wait implements gpucore.Fence.
func (f *Fence) Wait(v uint64, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	if f.completed >= v {
		f.mu.Unlock()
		return true, nil
	}
	f.mu.Unlock()

	expired := false
	timer := f.clock.AfterFunc(timeout, func() {
		f.mu.Lock()
		expired = true
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for f.completed < v {
		if expired {
			return false, nil
		}
		f.cond.Wait()
	}
	return true, nil
}
