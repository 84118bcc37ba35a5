// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import (
	"fmt"
	"strings"
	"time"
)

// ListType is the category of GPU work a command list records.
// Each category is serviced by its own allocator pool.
type ListType uint8

const (
	// ListTypeDirect records graphics work (and anything else).
	ListTypeDirect ListType = iota

	// ListTypeCompute records compute dispatches and copies.
	ListTypeCompute

	// ListTypeCopy records transfer operations only.
	ListTypeCopy

	listTypeCount
)

// ListTypes returns every known list type in declaration order.
func ListTypes() []ListType {
	return []ListType{ListTypeDirect, ListTypeCompute, ListTypeCopy}
}

// String returns the lowercase name of the list type.
func (t ListType) String() string {
	switch t {
	case ListTypeDirect:
		return "direct"
	case ListTypeCompute:
		return "compute"
	case ListTypeCopy:
		return "copy"
	default:
		return fmt.Sprintf("ListType(%d)", uint8(t))
	}
}

// Valid reports whether t is a known list type.
func (t ListType) Valid() bool { return t < listTypeCount }

// ParseListType parses a list type name. "graphics" is accepted as an alias
// for "direct".
func ParseListType(s string) (ListType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "graphics":
		return ListTypeDirect, nil
	case "compute":
		return ListTypeCompute, nil
	case "copy":
		return ListTypeCopy, nil
	}
	return 0, fmt.Errorf("gpucore: unknown list type %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler so list types can be
// used directly in configuration files.
func (t *ListType) UnmarshalText(text []byte) error {
	v, err := ParseListType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t ListType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PipelineState is an opaque pipeline-state object handed to a list reset.
// Backends type-assert it to their own pipeline type; nil means "none".
type PipelineState any

// Fence is a GPU/CPU synchronization primitive with a monotonically
// increasing completed value.
type Fence interface {
	// CompletedValue returns the highest value the GPU has signaled.
	// It never blocks.
	CompletedValue() uint64

	// Wait blocks until the completed value reaches value or timeout
	// elapses. It returns false on timeout.
	Wait(value uint64, timeout time.Duration) (bool, error)
}

// NativeAllocator is the backend object that owns recorded command memory.
type NativeAllocator interface {
	// Reset discards all commands recorded into the allocator. Callers must
	// guarantee that the GPU no longer references them.
	Reset() error

	// Release frees the backend object.
	Release()

	// Handle returns a backend handle for diagnostics; zero means invalid.
	Handle() uintptr
}

// NativeList is the backend recording surface.
type NativeList interface {
	// Reset starts a new recording into alloc, optionally with an initial
	// pipeline state.
	Reset(alloc NativeAllocator, pso PipelineState) error

	// Close ends recording so the list can be submitted.
	Close() error

	// Release frees the backend object.
	Release()
}

// Device creates the backend objects used by the command submission core.
type Device interface {
	// CreateCommandAllocator creates an allocator servicing lists of type t.
	CreateCommandAllocator(t ListType) (NativeAllocator, error)

	// CreateCommandList creates a list of type t bound to alloc. The list is
	// returned in the recording state and must be closed once before the
	// first Reset.
	CreateCommandList(t ListType, alloc NativeAllocator, pso PipelineState) (NativeList, error)
}

// DefaultWaitTimeout bounds every blocking fence wait unless configured.
const DefaultWaitTimeout = 5 * time.Second

// Queue executes closed command lists and signals fences once the GPU has
// consumed them.
type Queue interface {
	// CreateFence creates a fence whose completed value starts at zero.
	CreateFence() (Fence, error)

	// DestroyFence releases a fence created by CreateFence.
	DestroyFence(f Fence)

	// Submit enqueues closed lists and signals fence to value when the GPU
	// has finished them. A nil fence submits without signaling.
	Submit(lists []NativeList, fence Fence, value uint64) error
}

// Marker is implemented by lists that can record a labeled debug marker.
// Recorders use it opportunistically.
type Marker interface {
	InsertMarker(label string)
}
