// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdalloc

import "errors"

// Allocator and pool errors.
var (
	// ErrNilDevice is returned when initializing without a device.
	ErrNilDevice = errors.New("cmdalloc: device is nil")

	// ErrNilFence is returned when attaching a nil fence.
	ErrNilFence = errors.New("cmdalloc: fence is nil")

	// ErrInvalidListType is returned for an unknown command list type.
	ErrInvalidListType = errors.New("cmdalloc: invalid command list type")

	// ErrNotInitialized is returned when an allocator or pool is used
	// before Initialize or after Destroy.
	ErrNotInitialized = errors.New("cmdalloc: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("cmdalloc: already initialized")

	// ErrBusy is returned when an operation requires a free allocator but
	// the GPU still references it.
	ErrBusy = errors.New("cmdalloc: allocator is in flight")

	// ErrWaitTimeout is returned when a fence wait exceeds its bound.
	// Callers treat it as a GPU hang or device loss.
	ErrWaitTimeout = errors.New("cmdalloc: fence wait timed out")

	// ErrInvalidConfig is returned for inconsistent pool counts.
	ErrInvalidConfig = errors.New("cmdalloc: invalid pool configuration")

	// ErrExhausted is returned when the pool cannot produce an allocator.
	ErrExhausted = errors.New("cmdalloc: pool exhausted")
)
