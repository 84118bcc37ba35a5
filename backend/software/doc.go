// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements the gpucore contracts on the CPU.
//
// It is the reference backend: fences are plain counters guarded by a
// condition variable, command lists record labeled commands into their
// allocator, and a [Queue] executes submissions on a worker goroutine after
// a configurable latency. The render manager runs unchanged on top of it,
// which makes it suitable for headless runs and for tests of the
// allocator recycling logic.
//
// The backend enforces the same rules a real driver would: a list cannot
// be reset while recording, an allocator cannot back two recordings at
// once, and a list must be closed before submission.
package software
