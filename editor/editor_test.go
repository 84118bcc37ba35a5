// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package editor

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/engine/backend/software"
	"github.com/gogpu/engine/gpucore"
	"github.com/gogpu/engine/manager"
	"github.com/gogpu/engine/render"
)

type fakeRecorder struct {
	err    error
	labels []string
}

func (f *fakeRecorder) InsertMarker(label string) { f.labels = append(f.labels, label) }
func (f *fakeRecorder) Reset(gpucore.NativeAllocator, gpucore.PipelineState) error { return nil }
func (f *fakeRecorder) Close() error { return nil }
func (f *fakeRecorder) Release()     {}

func (f *fakeRecorder) Record(_ gpucore.ListType, fn func(gpucore.NativeList) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f)
}

func TestEditorDrawsPanels(t *testing.T) {
	rec := &fakeRecorder{}
	e := New(rec, Config{Panels: []string{"stats", "outliner"}})
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.OnFrameEndErr(); err != nil {
		t.Fatal(err)
	}
	want := []string{"editor:stats", "editor:outliner"}
	if len(rec.labels) != len(want) {
		t.Fatalf("labels = %v, want %v", rec.labels, want)
	}
	for i := range want {
		if rec.labels[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, rec.labels[i], want[i])
		}
	}
	if e.Drawn() != 1 {
		t.Errorf("Drawn = %d, want 1", e.Drawn())
	}
}

func TestEditorHiddenDrawsNothing(t *testing.T) {
	rec := &fakeRecorder{}
	e := New(rec, Config{Hidden: true})
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	_ = e.OnFrameEndErr()
	if len(rec.labels) != 0 || e.Drawn() != 0 {
		t.Errorf("hidden editor drew %v", rec.labels)
	}
	e.SetVisible(true)
	_ = e.OnFrameEndErr()
	if len(rec.labels) != 1 || rec.labels[0] != "editor:overlay" {
		t.Errorf("labels = %v, want default overlay", rec.labels)
	}
}

func TestEditorSkipsAbortedFrame(t *testing.T) {
	e := New(&fakeRecorder{err: render.ErrNoFrame}, Config{})
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.OnFrameEndErr(); err != nil {
		t.Errorf("OnFrameEndErr = %v, want nil on aborted frame", err)
	}
	if e.Skipped() != 1 || e.Drawn() != 0 {
		t.Errorf("Skipped = %d, Drawn = %d", e.Skipped(), e.Drawn())
	}
}

func TestEditorReportsRecordErrors(t *testing.T) {
	boom := errors.New("boom")
	e := New(&fakeRecorder{err: boom}, Config{})
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.OnFrameEndErr(); !errors.Is(err, boom) {
		t.Errorf("OnFrameEndErr = %v, want wrapped boom", err)
	}
}

func TestEditorRequiresRenderer(t *testing.T) {
	if err := New(nil, Config{}).Initialize(); !errors.Is(err, ErrNilRenderer) {
		t.Errorf("Initialize = %v, want ErrNilRenderer", err)
	}
}

func TestEditorInSchedulerWithRender(t *testing.T) {
	sq := software.NewQueue()
	defer sq.Close()
	q, err := render.NewQueue(sq)
	if err != nil {
		t.Fatal(err)
	}
	r := render.New(software.NewDevice(), q, render.DefaultConfig())
	e := New(r, Config{})

	s := manager.NewScheduler()
	s.Register(r)
	s.Register(e)
	if err := s.AddDependency(e, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	const frames = 5
	for i := 0; i < frames; i++ {
		s.UpdateLoopStart(1.0 / 60)
		s.UpdateLoopEnd()
	}
	if err := q.WaitIdle(time.Second); err != nil {
		t.Fatal(err)
	}
	if e.Drawn() != frames {
		t.Errorf("Drawn = %d, want %d", e.Drawn(), frames)
	}
	// frame_begin, editor:overlay, frame_end
	if got := sq.CommandsExecuted(); got != 3*frames {
		t.Errorf("CommandsExecuted = %d, want %d", got, 3*frames)
	}
	if n := s.FailureCount("render") + s.FailureCount("editor"); n != 0 {
		t.Errorf("hook failures = %d, want 0", n)
	}
	if err := s.Shutdown(); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
