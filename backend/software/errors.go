// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import "errors"

// Software backend errors.
var (
	// ErrForeignObject is returned when an object from another backend is
	// passed in.
	ErrForeignObject = errors.New("software: object does not belong to this backend")

	// ErrListTypeMismatch is returned when a list and allocator service
	// different list types.
	ErrListTypeMismatch = errors.New("software: list type mismatch")

	// ErrRecording is returned when resetting a list that is still
	// recording, or an allocator that backs an open recording.
	ErrRecording = errors.New("software: recording in progress")

	// ErrNotRecording is returned when closing or recording into a list
	// that is closed.
	ErrNotRecording = errors.New("software: list is not recording")

	// ErrReleased is returned when using a released object.
	ErrReleased = errors.New("software: object released")

	// ErrQueueClosed is returned when submitting to a stopped queue.
	ErrQueueClosed = errors.New("software: queue closed")
)
