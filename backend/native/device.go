// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/engine/gpucore"
)

// halDevice is the part of hal.Device the adapter uses.
type halDevice interface {
	CreateFence() (hal.Fence, error)
	DestroyFence(hal.Fence)
	Wait(fence hal.Fence, value uint64, timeout time.Duration) (bool, error)
	FreeCommandBuffer(hal.CommandBuffer)
}

// halQueue is the part of hal.Queue the adapter uses.
type halQueue interface {
	Submit(buffers []hal.CommandBuffer, fence hal.Fence, value uint64) error
}

// encoder is the part of hal.CommandEncoder the adapter uses.
type encoder interface {
	BeginEncoding(label string) error
	EndEncoding() (hal.CommandBuffer, error)
	DiscardEncoding()
}

// Device implements gpucore.Device on a HAL device. It is safe for
// concurrent use; the objects it creates are not.
type Device struct {
	hal   hal.Device // nil in tests that inject halDevice directly
	queue hal.Queue
	dev   halDevice
	q     halQueue

	newEncoder func(label string) (encoder, error)

	instance hal.Instance // set when the Device opened the HAL device itself
	handles  atomic.Uint64
	lists    atomic.Int64
}

// Wrap adapts an existing HAL device and queue. The caller keeps
// ownership of both.
func Wrap(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := newDevice(device, queue, func(label string) (encoder, error) {
		return device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	})
	d.hal = device
	d.queue = queue
	return d, nil
}

func newDevice(dev halDevice, q halQueue, newEncoder func(string) (encoder, error)) *Device {
	return &Device{dev: dev, q: q, newEncoder: newEncoder}
}

// FromProvider shares a host's device. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := any(provider).(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return Wrap(device, queue)
}

// Open creates an instance on backend and opens the first discrete or
// integrated adapter, falling back to the first adapter.
func Open(backend gputypes.Backend) (*Device, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	return openInstance(instance)
}

// OpenNoop opens a device on the noop HAL backend. Work submitted to it
// completes immediately.
func OpenNoop() (*Device, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("native: create noop instance: %w", err)
	}
	return openInstance(instance)
}

// OpenByName opens "noop" or "vulkan".
func OpenByName(name string) (*Device, error) {
	switch strings.ToLower(name) {
	case "noop":
		return OpenNoop()
	case "vulkan":
		return Open(gputypes.BackendVulkan)
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendUnavailable, name)
	}
}

func openInstance(instance hal.Instance) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}
	d, err := Wrap(openDev.Device, openDev.Queue)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	return d, nil
}

// HalDevice returns the HAL device, so a Device can itself serve as a
// provider for other gogpu libraries.
func (d *Device) HalDevice() any { return d.hal }

// HalQueue returns the HAL queue.
func (d *Device) HalQueue() any { return d.queue }

// Queue returns a gpucore.Queue submitting to the device's queue.
func (d *Device) Queue() *Queue { return &Queue{device: d} }

// CreateCommandAllocator implements gpucore.Device.
func (d *Device) CreateCommandAllocator(t gpucore.ListType) (gpucore.NativeAllocator, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("native: invalid list type %v", t)
	}
	handle := uintptr(d.handles.Add(1))
	enc, err := d.newEncoder(fmt.Sprintf("%s-allocator-%d", t, handle))
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	return &Allocator{device: d, handle: handle, listType: t, enc: enc}, nil
}

// CreateCommandList implements gpucore.Device. The list starts recording
// into alloc.
func (d *Device) CreateCommandList(t gpucore.ListType, alloc gpucore.NativeAllocator, pso gpucore.PipelineState) (gpucore.NativeList, error) {
	l := &List{listType: t, label: fmt.Sprintf("%s-list-%d", t, d.lists.Add(1))}
	if err := l.Reset(alloc, pso); err != nil {
		return nil, err
	}
	return l, nil
}

// Destroy releases the HAL device and instance if the Device opened them.
// Shared devices are left to their owner.
func (d *Device) Destroy() {
	if d.instance == nil {
		return
	}
	d.hal.Destroy()
	d.instance.Destroy()
	d.instance = nil
}
