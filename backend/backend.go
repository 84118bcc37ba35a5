// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/engine/gpucore"
)

// Backend names.
const (
	Software = "software"
	Noop     = "noop"
	Vulkan   = "vulkan"
)

// ErrBackendNotAvailable is returned when a requested backend is not
// registered or failed to open.
var ErrBackendNotAvailable = errors.New("backend: not available")

// Backend is an opened device and queue.
type Backend struct {
	Name   string
	Device gpucore.Device
	Queue  gpucore.Queue

	// Release frees the device; nil when there is nothing to free.
	Release func()
}

// Close releases the backend. It is safe to call more than once.
func (b *Backend) Close() {
	if b.Release != nil {
		b.Release()
		b.Release = nil
	}
}
