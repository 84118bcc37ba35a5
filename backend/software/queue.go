// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gogpu/engine/gpucore"
)

// queueDepth is the number of submissions buffered before Submit blocks.
const queueDepth = 64

type submission struct {
	commands int
	fence    *Fence
	value    uint64
}

// Queue executes submissions in order on a worker goroutine, playing the
// part of the GPU.
type Queue struct {
	clock   clock.Clock
	latency time.Duration

	mu     sync.Mutex
	closed bool
	work   chan submission
	wg     sync.WaitGroup

	submitted atomic.Int64
	executed  atomic.Int64
	commands  atomic.Int64
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLatency delays completion of every submission by d.
func WithLatency(d time.Duration) QueueOption {
	return func(q *Queue) { q.latency = d }
}

// WithClock sets the clock used for latency and fence timeouts.
func WithClock(clk clock.Clock) QueueOption {
	return func(q *Queue) { q.clock = clk }
}

// NewQueue starts a queue worker. Call Close to stop it.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		clock: clock.New(),
		work:  make(chan submission, queueDepth),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for s := range q.work {
		if q.latency > 0 {
			q.clock.Sleep(q.latency)
		}
		q.commands.Add(int64(s.commands))
		q.executed.Add(1)
		if s.fence != nil {
			s.fence.Signal(s.value)
		}
	}
}

// CreateFence implements gpucore.Queue.
func (q *Queue) CreateFence() (gpucore.Fence, error) {
	return NewFenceWithClock(q.clock), nil
}

// DestroyFence implements gpucore.Queue. Software fences need no cleanup.
func (q *Queue) DestroyFence(gpucore.Fence) {}

// Submit implements gpucore.Queue. Every list must be closed.
func (q *Queue) Submit(lists []gpucore.NativeList, fence gpucore.Fence, value uint64) error {
	s := submission{value: value}
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok {
			return fmt.Errorf("%w: fence %T", ErrForeignObject, fence)
		}
		s.fence = f
	}
	for i, nl := range lists {
		l, ok := nl.(*List)
		if !ok || l == nil {
			return fmt.Errorf("%w: list %d is %T", ErrForeignObject, i, nl)
		}
		l.mu.Lock()
		recording, released, alloc := l.recording, l.released, l.alloc
		l.mu.Unlock()
		if released {
			return fmt.Errorf("%w: list %d", ErrReleased, i)
		}
		if recording {
			return fmt.Errorf("%w: list %d must be closed before submit", ErrRecording, i)
		}
		if alloc != nil {
			s.commands += len(alloc.Commands())
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.submitted.Add(1)
	q.work <- s
	return nil
}

// Close drains pending submissions, signaling their fences, and stops
// the worker. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.work)
	q.mu.Unlock()
	q.wg.Wait()
}

// Submitted returns the number of accepted submissions.
func (q *Queue) Submitted() int64 { return q.submitted.Load() }

// Executed returns the number of completed submissions.
func (q *Queue) Executed() int64 { return q.executed.Load() }

// CommandsExecuted returns the total number of commands executed.
func (q *Queue) CommandsExecuted() int64 { return q.commands.Load() }
