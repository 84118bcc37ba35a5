// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "errors"

// Render manager errors.
var (
	// ErrNilDevice is returned when the manager has no device.
	ErrNilDevice = errors.New("render: device is nil")

	// ErrNilQueue is returned when the manager has no queue.
	ErrNilQueue = errors.New("render: queue is nil")

	// ErrNotInitialized is returned before Initialize or after Release.
	ErrNotInitialized = errors.New("render: manager not initialized")

	// ErrNoFrame is returned when recording outside an open frame.
	ErrNoFrame = errors.New("render: no frame in progress")

	// ErrUnknownListType is returned when recording into a list type that
	// has no configured pool.
	ErrUnknownListType = errors.New("render: no command list for type")

	// ErrGPUTimeout is returned when the GPU does not catch up in time.
	ErrGPUTimeout = errors.New("render: timed out waiting for GPU")
)
