// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend is the registry of device backends.
//
// A backend provides a gpucore.Device and gpucore.Queue pair on which the
// engine's command lists execute. Backends register themselves from
// init() functions, so importing a backend package makes it selectable:
//
//	import (
//		_ "github.com/gogpu/engine/backend/native"
//		_ "github.com/gogpu/engine/backend/software"
//	)
//
// # Backend Selection
//
// Use Open with a name, or with "" for the best available backend:
//
//	b, err := backend.Open("software")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
// # Available Backends
//
// - "software": CPU queue playing the GPU (always available)
// - "noop": gogpu/wgpu noop HAL, for tests and dry runs
// - "vulkan": gogpu/wgpu Vulkan HAL
package backend
