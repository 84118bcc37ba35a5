// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdlist

import "errors"

// Command list errors.
var (
	// ErrNilDevice is returned when initializing without a device.
	ErrNilDevice = errors.New("cmdlist: device is nil")

	// ErrInvalidState is returned when an operation is not valid in the
	// list's current state (for example Close while already closed).
	ErrInvalidState = errors.New("cmdlist: invalid state for operation")

	// ErrNoAllocator is returned when neither the free scan nor growth
	// produced a usable allocator.
	ErrNoAllocator = errors.New("cmdlist: no usable command allocator")

	// ErrNilList is returned when the native list is missing.
	ErrNilList = errors.New("cmdlist: native command list is nil")
)
