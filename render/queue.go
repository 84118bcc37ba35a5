// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"time"

	"github.com/gogpu/engine/cmdlist"
	"github.com/gogpu/engine/gpucore"
)

// Queue is the engine's submission queue. It owns one timeline fence and
// assigns every submission the next value on that timeline.
//
// Queue is NOT safe for concurrent use.
type Queue struct {
	backend   gpucore.Queue
	fence     gpucore.Fence
	submitted uint64
}

// NewQueue wraps a backend queue and creates its timeline fence.
func NewQueue(backend gpucore.Queue) (*Queue, error) {
	if backend == nil {
		return nil, ErrNilQueue
	}
	fence, err := backend.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("render: create timeline fence: %w", err)
	}
	return &Queue{backend: backend, fence: fence}, nil
}

// Fence returns the timeline fence.
func (q *Queue) Fence() gpucore.Fence { return q.fence }

// NextValue returns the value the next Submit will signal.
func (q *Queue) NextValue() uint64 { return q.submitted + 1 }

// Submitted returns the value of the last submission.
func (q *Queue) Submitted() uint64 { return q.submitted }

// Completed returns the value the GPU has reached.
func (q *Queue) Completed() uint64 {
	if q.fence == nil {
		return q.submitted
	}
	return q.fence.CompletedValue()
}

// Submit submits closed lists and signals the next timeline value. An
// empty submission still advances the timeline so that fence expectations
// attached for this value are met.
func (q *Queue) Submit(lists ...*cmdlist.List) (uint64, error) {
	if q.fence == nil {
		return 0, ErrNotInitialized
	}
	natives := make([]gpucore.NativeList, 0, len(lists))
	for _, l := range lists {
		natives = append(natives, l.Native())
	}
	value := q.submitted + 1
	if err := q.backend.Submit(natives, q.fence, value); err != nil {
		return 0, fmt.Errorf("render: submit value %d: %w", value, err)
	}
	q.submitted = value
	return value, nil
}

// WaitFor blocks until the timeline reaches value or timeout elapses.
func (q *Queue) WaitFor(value uint64, timeout time.Duration) error {
	if q.fence == nil || q.fence.CompletedValue() >= value {
		return nil
	}
	ok, err := q.fence.Wait(value, timeout)
	if err != nil {
		return fmt.Errorf("render: wait for %d: %w", value, err)
	}
	if !ok {
		return fmt.Errorf("%w: value %d after %v (completed %d)", ErrGPUTimeout, value, timeout, q.fence.CompletedValue())
	}
	return nil
}

// WaitIdle blocks until every submission has completed.
func (q *Queue) WaitIdle(timeout time.Duration) error {
	return q.WaitFor(q.submitted, timeout)
}

// Destroy releases the timeline fence. It is safe to call more than once.
func (q *Queue) Destroy() {
	if q.fence == nil {
		return
	}
	q.backend.DestroyFence(q.fence)
	q.fence = nil
}
