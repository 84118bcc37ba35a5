// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Native backend errors.
var (
	// ErrNilDevice is returned when a HAL device or queue is missing.
	ErrNilDevice = errors.New("native: hal device is nil")

	// ErrBackendUnavailable is returned when the requested HAL backend is
	// not compiled in or cannot start.
	ErrBackendUnavailable = errors.New("native: backend not available")

	// ErrNoAdapter is returned when the instance exposes no adapter.
	ErrNoAdapter = errors.New("native: no GPU adapter found")

	// ErrNoHAL is returned by FromProvider when the provider does not
	// expose HAL objects.
	ErrNoHAL = errors.New("native: provider does not expose HAL types")

	// ErrForeignObject is returned when an object from another backend is
	// passed in.
	ErrForeignObject = errors.New("native: object from another backend")

	// ErrListTypeMismatch is returned when list and allocator types differ.
	ErrListTypeMismatch = errors.New("native: list type mismatch")

	// ErrRecording is returned when an operation needs a closed list or
	// an idle allocator.
	ErrRecording = errors.New("native: still recording")

	// ErrNotRecording is returned by Close on a closed list.
	ErrNotRecording = errors.New("native: not recording")

	// ErrReleased is returned for use after Release.
	ErrReleased = errors.New("native: object released")
)
