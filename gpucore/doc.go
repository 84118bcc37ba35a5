// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the device-facing contracts consumed by the engine's
// command submission core.
//
// The core never talks to a graphics API directly. It consumes four small
// interfaces that every backend implements:
//
//   - [Device] creates command allocators and command lists
//   - [NativeAllocator] owns the memory that recorded commands live in
//   - [NativeList] is the recording surface bound to one allocator at a time
//   - [Fence] exposes a monotonically increasing completed value
//
// # Architecture
//
//	               +-----------------+
//	               |     cmdlist     |
//	               |  (List, Pool)   |
//	               +--------+--------+
//	                        |
//	                   gpucore API
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| backend/native  |          | backend/software|
//	|  (hal.Device)   |          |  (CPU fences)   |
//	+-----------------+          +-----------------+
//
// A backend is free to map these concepts onto whatever its API offers. The
// HAL backend maps an allocator to a hal.CommandEncoder and a list to an
// encoding session; the software backend simulates both on the CPU.
package gpucore
