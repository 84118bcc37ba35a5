// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdlist

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/engine/backend/software"
	"github.com/gogpu/engine/gpucore"
	"github.com/gogpu/engine/internal/cmdalloc"
)

func newTestList(t *testing.T, initial, maxCount int) (*List, *software.Device) {
	t.Helper()
	dev := software.NewDevice()
	l := &List{}
	err := l.Initialize(Desc{
		Name:         "test",
		Device:       dev,
		ListType:     gpucore.ListTypeDirect,
		InitialCount: initial,
		MaxCount:     maxCount,
		BlockMaxTime: time.Second,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Destroy() })
	return l, dev
}

func TestListInitializeStartsClosed(t *testing.T) {
	l, dev := newTestList(t, 2, 4)

	if l.State() != StateClosed {
		t.Errorf("State = %s, want closed", l.State())
	}
	if l.Native() == nil {
		t.Fatal("expected a native list")
	}
	if l.Native().(*software.List).Recording() {
		t.Error("native list must be closed after Initialize")
	}
	if dev.AllocatorsCreated() != 2 || dev.ListsCreated() != 1 {
		t.Errorf("device created %d allocators and %d lists, want 2 and 1",
			dev.AllocatorsCreated(), dev.ListsCreated())
	}
	if err := l.Close(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Close on closed list err = %v, want ErrInvalidState", err)
	}
}

func TestListInitializeErrors(t *testing.T) {
	var l List
	if err := l.Initialize(Desc{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device err = %v, want ErrNilDevice", err)
	}
	if err := l.Initialize(Desc{Device: software.NewDevice(), ListType: 7}); !errors.Is(err, cmdalloc.ErrInvalidListType) {
		t.Errorf("bad list type err = %v, want ErrInvalidListType", err)
	}
	if l.State() != StateUninitialized {
		t.Errorf("State = %s, want uninitialized", l.State())
	}
	if err := l.Reset(ResetDesc{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reset before Initialize err = %v, want ErrInvalidState", err)
	}
}

func TestListInitializeNormalizesCounts(t *testing.T) {
	l, _ := newTestList(t, 0, 0)
	cfg := l.Pool().Config()
	if cfg.InitialCount != 1 || cfg.MaxCount != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", cfg.InitialCount, cfg.MaxCount)
	}
}

func TestListResetRecordCloseCycle(t *testing.T) {
	l, _ := newTestList(t, 1, 3)
	queue := software.NewQueue()
	defer queue.Close()
	fence, _ := queue.CreateFence()

	for frame := uint64(1); frame <= 10; frame++ {
		if err := l.Reset(ResetDesc{PipelineState: "opaque", Fence: fence, WaitValue: frame}); err != nil {
			t.Fatalf("frame %d: Reset failed: %v", frame, err)
		}
		if l.State() != StateRecording {
			t.Fatalf("frame %d: State = %s, want recording", frame, l.State())
		}
		native := l.Native().(*software.List)
		if native.PipelineState() != "opaque" {
			t.Errorf("frame %d: pipeline state not forwarded", frame)
		}
		if err := native.Record(software.Command{Label: "draw"}); err != nil {
			t.Fatalf("frame %d: Record failed: %v", frame, err)
		}
		if err := l.Reset(ResetDesc{}); !errors.Is(err, ErrInvalidState) {
			t.Errorf("frame %d: Reset while recording err = %v, want ErrInvalidState", frame, err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("frame %d: Close failed: %v", frame, err)
		}
		if err := queue.Submit([]gpucore.NativeList{l.Native()}, fence, frame); err != nil {
			t.Fatalf("frame %d: Submit failed: %v", frame, err)
		}
		l.Update()
		if l.Pool().Len() > 3 {
			t.Fatalf("frame %d: pool holds %d allocators, ceiling is 3", frame, l.Pool().Len())
		}
	}

	ok, err := fence.Wait(10, 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("final fence Wait = (%v, %v)", ok, err)
	}
	if got := queue.CommandsExecuted(); got != 10 {
		t.Errorf("CommandsExecuted = %d, want 10", got)
	}
}

func TestListResetAttachesFence(t *testing.T) {
	l, _ := newTestList(t, 2, 2)
	fence := software.NewFence()

	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 1}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	first := l.Allocator()
	if first.IsFree() || first.WaitValue() != 1 {
		t.Error("allocator must carry the fence expectation")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The first allocator is still in flight, so the second Reset must
	// use a different one.
	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 2}); err != nil {
		t.Fatalf("second Reset failed: %v", err)
	}
	if l.Allocator() == first {
		t.Error("Reset reused an allocator the GPU still references")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	fence.Signal(2)
}

func TestListDropFence(t *testing.T) {
	l, _ := newTestList(t, 1, 1)
	fence := software.NewFence()

	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 4}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	l.DropFence(4)
	if !l.Allocator().IsFree() {
		t.Fatal("allocator must be free once its unsubmitted value is dropped")
	}

	// With a single allocator, Reset would block if the value were kept.
	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 4}); err != nil {
		t.Fatalf("Reset after DropFence failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	fence.Signal(4)
}

func TestListResetBlocksAtCeiling(t *testing.T) {
	l, _ := newTestList(t, 1, 1)
	fence := software.NewFence()

	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 1}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		fence.Signal(1)
	}()

	start := time.Now()
	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 2}); err != nil {
		t.Fatalf("blocking Reset failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Reset at the ceiling should have blocked on the fence")
	}
	if l.Pool().Len() != 1 {
		t.Errorf("pool grew to %d, want 1", l.Pool().Len())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	fence.Signal(2)
}

func TestListResetTimeoutIsReported(t *testing.T) {
	dev := software.NewDevice()
	l := &List{}
	err := l.Initialize(Desc{Device: dev, InitialCount: 1, MaxCount: 1, BlockMaxTime: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	fence := software.NewFence()
	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 1}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := l.Reset(ResetDesc{}); !errors.Is(err, cmdalloc.ErrWaitTimeout) {
		t.Fatalf("Reset err = %v, want ErrWaitTimeout", err)
	}
	if l.State() != StateClosed {
		t.Errorf("State after failed Reset = %s, want closed", l.State())
	}

	fence.Signal(1)
	if err := l.Destroy(); err != nil {
		t.Errorf("Destroy failed: %v", err)
	}
}

// glitchFence reports completion for a fixed number of polls and then
// regresses, which makes the attach after a successful reset fail.
type glitchFence struct {
	polls     int
	goodPolls int
}

func (f *glitchFence) CompletedValue() uint64 {
	f.polls++
	if f.polls <= f.goodPolls {
		return 5
	}
	return 0
}

func (f *glitchFence) Wait(uint64, time.Duration) (bool, error) {
	f.goodPolls = 1 << 30
	return true, nil
}

func TestListAttachFailureIsNotFatal(t *testing.T) {
	l, _ := newTestList(t, 1, 1)
	glitch := &glitchFence{goodPolls: 1 << 30}

	if err := l.Reset(ResetDesc{Fence: glitch, WaitValue: 5}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Free for the acquire scan and the allocator reset, busy for the
	// attach that follows.
	glitch.polls, glitch.goodPolls = 0, 2
	if err := l.Reset(ResetDesc{Fence: software.NewFence(), WaitValue: 6}); err != nil {
		t.Fatalf("Reset with failing attach err = %v, want nil", err)
	}
	if l.State() != StateRecording {
		t.Errorf("State = %s, want recording", l.State())
	}
	if got := l.Allocator().WaitValue(); got != 5 {
		t.Errorf("WaitValue = %d, want the previous expectation 5", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	glitch.goodPolls = 1 << 30
}

func TestListDestroyIdempotent(t *testing.T) {
	dev := software.NewDevice()
	l := &List{}
	if err := l.Initialize(Desc{Device: dev, InitialCount: 2, MaxCount: 2}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	fence := software.NewFence()
	if err := l.Reset(ResetDesc{Fence: fence, WaitValue: 4}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	native := l.Native().(*software.List)
	alloc := native.Allocator()

	go func() {
		time.Sleep(10 * time.Millisecond)
		fence.Signal(4)
	}()

	if err := l.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if l.State() != StateDestroyed || l.Native() != nil {
		t.Error("list must be destroyed with no native object")
	}
	if err := alloc.Reset(); !errors.Is(err, software.ErrReleased) {
		t.Errorf("allocator Reset after Destroy err = %v, want ErrReleased", err)
	}
	if err := l.Destroy(); err != nil {
		t.Errorf("second Destroy err = %v, want nil", err)
	}
	if err := l.Reset(ResetDesc{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reset after Destroy err = %v, want ErrInvalidState", err)
	}
	if err := l.Close(); !errors.Is(err, ErrNilList) {
		t.Errorf("Close after Destroy err = %v, want ErrNilList", err)
	}
}
