// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/engine/gpucore"
	"github.com/gogpu/engine/render"
)

// mockFence stands in for a hal.Fence; the mock HAL signals it on submit
// unless held.
type mockFence struct {
	value uint64
}

// Destroy implements hal.Resource.
func (f *mockFence) Destroy() {}

// NativeHandle implements hal.NativeHandle.
func (f *mockFence) NativeHandle() uintptr { return 0 }

// mockHAL implements halDevice and halQueue.
type mockHAL struct {
	mu        sync.Mutex
	hold      bool
	fences    []*mockFence
	destroyed int
	freed     int
	submits   int
	buffers   int
	waitErr   error
}

func (m *mockHAL) CreateFence() (hal.Fence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &mockFence{}
	m.fences = append(m.fences, f)
	return f, nil
}

func (m *mockHAL) DestroyFence(hal.Fence) {
	m.mu.Lock()
	m.destroyed++
	m.mu.Unlock()
}

func (m *mockHAL) Wait(f hal.Fence, value uint64, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waitErr != nil {
		return false, m.waitErr
	}
	return f.(*mockFence).value >= value, nil
}

func (m *mockHAL) FreeCommandBuffer(hal.CommandBuffer) {
	m.mu.Lock()
	m.freed++
	m.mu.Unlock()
}

func (m *mockHAL) Submit(buffers []hal.CommandBuffer, f hal.Fence, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits++
	m.buffers += len(buffers)
	if mf, ok := f.(*mockFence); ok && !m.hold {
		mf.value = value
	}
	return nil
}

func (m *mockHAL) signal(value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fences {
		f.value = value
	}
}

type mockEncoder struct {
	begins   int
	ends     int
	discards int
	beginErr error
}

func (e *mockEncoder) BeginEncoding(string) error {
	if e.beginErr != nil {
		return e.beginErr
	}
	e.begins++
	return nil
}

func (e *mockEncoder) EndEncoding() (hal.CommandBuffer, error) {
	e.ends++
	return nil, nil
}

func (e *mockEncoder) DiscardEncoding() { e.discards++ }

func newMockDevice() (*Device, *mockHAL, *[]*mockEncoder) {
	m := &mockHAL{}
	encoders := &[]*mockEncoder{}
	d := newDevice(m, m, func(string) (encoder, error) {
		e := &mockEncoder{}
		*encoders = append(*encoders, e)
		return e, nil
	})
	return d, m, encoders
}

func TestWrapRejectsNil(t *testing.T) {
	if _, err := Wrap(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("Wrap(nil, nil) = %v, want ErrNilDevice", err)
	}
}

func TestOpenByNameUnknown(t *testing.T) {
	if _, err := OpenByName("glide"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("OpenByName = %v, want ErrBackendUnavailable", err)
	}
}

func TestFromProviderWithoutHAL(t *testing.T) {
	if _, err := FromProvider(nil); !errors.Is(err, ErrNoHAL) {
		t.Errorf("FromProvider(nil) = %v, want ErrNoHAL", err)
	}
}

func TestListEncodesIntoAllocator(t *testing.T) {
	d, m, encoders := newMockDevice()

	na, err := d.CreateCommandAllocator(gpucore.ListTypeDirect)
	if err != nil {
		t.Fatal(err)
	}
	if na.Handle() == 0 {
		t.Error("allocator handle is zero")
	}
	nl, err := d.CreateCommandList(gpucore.ListTypeDirect, na, "pso")
	if err != nil {
		t.Fatal(err)
	}
	enc := (*encoders)[0]
	if enc.begins != 1 {
		t.Errorf("begins = %d, want 1 (list starts recording)", enc.begins)
	}
	if err := na.Reset(); !errors.Is(err, ErrRecording) {
		t.Errorf("Reset while recording = %v, want ErrRecording", err)
	}
	if err := nl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := nl.Close(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("second Close = %v, want ErrNotRecording", err)
	}

	// Reset frees the buffer of the previous recording.
	if err := na.Reset(); err != nil {
		t.Fatal(err)
	}
	if m.freed != 1 {
		t.Errorf("freed = %d, want 1", m.freed)
	}
	if err := nl.Reset(na, nil); err != nil {
		t.Fatal(err)
	}
	if enc.begins != 2 {
		t.Errorf("begins = %d, want 2", enc.begins)
	}

	nl.Release()
	if enc.discards != 1 {
		t.Errorf("discards = %d, want 1 (released while recording)", enc.discards)
	}
	na.Release()
	if na.Handle() != 0 {
		t.Error("released allocator still has a handle")
	}
}

func TestListRejectsForeignAndMismatched(t *testing.T) {
	d, _, _ := newMockDevice()

	copyAlloc, err := d.CreateCommandAllocator(gpucore.ListTypeCopy)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateCommandList(gpucore.ListTypeDirect, copyAlloc, nil); !errors.Is(err, ErrListTypeMismatch) {
		t.Errorf("mismatch = %v, want ErrListTypeMismatch", err)
	}
	if _, err := d.CreateCommandList(gpucore.ListTypeDirect, nil, nil); !errors.Is(err, ErrForeignObject) {
		t.Errorf("nil allocator = %v, want ErrForeignObject", err)
	}
	if _, err := d.CreateCommandAllocator(gpucore.ListType(42)); err == nil {
		t.Error("invalid list type accepted")
	}
}

func TestBeginEncodingFailure(t *testing.T) {
	m := &mockHAL{}
	boom := errors.New("device lost")
	d := newDevice(m, m, func(string) (encoder, error) {
		return &mockEncoder{beginErr: boom}, nil
	})
	na, err := d.CreateCommandAllocator(gpucore.ListTypeDirect)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateCommandList(gpucore.ListTypeDirect, na, nil); !errors.Is(err, boom) {
		t.Errorf("CreateCommandList = %v, want wrapped begin error", err)
	}
}

func TestQueueSubmitTracksFence(t *testing.T) {
	d, m, _ := newMockDevice()
	m.hold = true
	q := d.Queue()

	fence, err := q.CreateFence()
	if err != nil {
		t.Fatal(err)
	}
	na, _ := d.CreateCommandAllocator(gpucore.ListTypeDirect)
	nl, err := d.CreateCommandList(gpucore.ListTypeDirect, na, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := q.Submit([]gpucore.NativeList{nl}, fence, 1); !errors.Is(err, ErrRecording) {
		t.Fatalf("submit while recording = %v, want ErrRecording", err)
	}
	if err := nl.Close(); err != nil {
		t.Fatal(err)
	}
	for v := uint64(1); v <= 3; v++ {
		if err := q.Submit([]gpucore.NativeList{nl}, fence, v); err != nil {
			t.Fatal(err)
		}
	}
	if got := fence.CompletedValue(); got != 0 {
		t.Errorf("CompletedValue = %d, want 0 while held", got)
	}

	m.signal(2)
	if got := fence.CompletedValue(); got != 2 {
		t.Errorf("CompletedValue = %d, want 2", got)
	}
	ok, err := fence.Wait(3, 0)
	if err != nil || ok {
		t.Errorf("Wait(3) = %v, %v; want false, nil", ok, err)
	}
	m.signal(3)
	ok, err = fence.Wait(3, time.Second)
	if err != nil || !ok {
		t.Errorf("Wait(3) = %v, %v; want true, nil", ok, err)
	}
	if got := fence.CompletedValue(); got != 3 {
		t.Errorf("CompletedValue = %d, want 3", got)
	}

	q.DestroyFence(fence)
	q.DestroyFence(fence)
	if m.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", m.destroyed)
	}
}

func TestFenceWaitError(t *testing.T) {
	d, m, _ := newMockDevice()
	fence, _ := d.Queue().CreateFence()
	m.waitErr = errors.New("lost")
	if _, err := fence.Wait(1, time.Millisecond); !errors.Is(err, m.waitErr) {
		t.Errorf("Wait = %v, want wrapped device error", err)
	}
	if fence.CompletedValue() != 0 {
		t.Error("CompletedValue advanced on error")
	}
}

type foreignFence struct{}

func (foreignFence) CompletedValue() uint64                  { return 0 }
func (foreignFence) Wait(uint64, time.Duration) (bool, error) { return true, nil }

func TestQueueRejectsForeignFence(t *testing.T) {
	d, m, _ := newMockDevice()
	if err := d.Queue().Submit(nil, foreignFence{}, 1); !errors.Is(err, ErrForeignObject) {
		t.Errorf("Submit(foreign fence) = %v, want ErrForeignObject", err)
	}
	if err := d.Queue().Submit(nil, nil, 0); err != nil {
		t.Errorf("Submit(nil fence) = %v, want nil", err)
	}
	if m.submits != 1 {
		t.Errorf("submits = %d, want 1", m.submits)
	}
}

func TestRenderManagerOnNativeDevice(t *testing.T) {
	d, m, _ := newMockDevice()
	q, err := render.NewQueue(d.Queue())
	if err != nil {
		t.Fatal(err)
	}
	r := render.New(d, q, render.DefaultConfig())
	if err := r.Initialize(); err != nil {
		t.Fatal(err)
	}

	const frames = 6
	for i := 0; i < frames; i++ {
		if err := r.OnFrameBeginErr(0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if err := r.OnFrameEndErr(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if m.submits != frames {
		t.Errorf("submits = %d, want %d", m.submits, frames)
	}
	if m.buffers != frames {
		t.Errorf("buffers = %d, want one direct buffer per frame", m.buffers)
	}
	if m.destroyed != 1 {
		t.Errorf("fences destroyed = %d, want 1", m.destroyed)
	}
}
