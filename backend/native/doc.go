// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native adapts the gogpu/wgpu HAL to the engine's gpucore
// contracts.
//
// The mapping is:
//
//	gpucore.NativeAllocator  one hal.CommandEncoder plus the command buffer
//	                         it last produced; Reset frees that buffer
//	gpucore.NativeList       Reset calls BeginEncoding on the allocator's
//	                         encoder, Close calls EndEncoding
//	gpucore.Fence            a hal.Fence plus the values submitted on it
//	gpucore.Queue            hal.Queue.Submit with the fence and value
//
// A Device is opened on a HAL backend with Open or OpenNoop, or shares a
// host's device with FromProvider.
package native
