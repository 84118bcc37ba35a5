// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the render manager: the engine subsystem that
// owns the submission queue and the per-type command lists.
//
// # Key Principle
//
// There is no process-wide render queue. A [Queue] is constructed by the
// host, handed to exactly one [Manager], and torn down by that manager's
// Release. Teardown order is therefore the scheduler's reverse
// initialization order rather than static destruction order.
//
// # Frame Protocol
//
// Every frame the manager:
//
//  1. throttles so that at most FramesInFlight submissions are pending
//  2. resets the direct list against the frame's fence value
//  3. lets dependents record into any list type through [Manager.Record]
//  4. closes every list recorded this frame and submits them together
//  5. runs per-frame pool maintenance on every list
//
// The fence value attached at reset is the value the submission in step 4
// signals, so an allocator is only recycled after the GPU has consumed the
// commands recorded into it.
//
// # Usage
//
//	q, _ := render.NewQueue(backendQueue)
//	rm := render.New(device, q, render.DefaultConfig())
//	sched.Register(rm)
//	sched.AddDependency(rm, window)
package render
