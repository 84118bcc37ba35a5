// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package editor provides the editor manager, which draws the tool overlay
// on top of every rendered frame.
//
// The editor depends on the render manager. Frame-end hooks run in reverse
// dependency order, so the editor records its overlay while the frame's
// direct list is still open and before render submits it.
package editor

import (
	"errors"
	"fmt"

	"github.com/gogpu/engine/gpucore"
	"github.com/gogpu/engine/render"
)

// ErrNilRenderer is returned by Initialize without a render manager.
var ErrNilRenderer = errors.New("editor: render manager is nil")

// Recorder is the part of the render manager the editor draws through.
type Recorder interface {
	Record(t gpucore.ListType, fn func(gpucore.NativeList) error) error
}

var _ Recorder = (*render.Manager)(nil)

// Config configures the editor.
type Config struct {
	// Panels are drawn in order, one overlay marker each.
	Panels []string

	// Hidden starts the editor with the overlay switched off.
	Hidden bool
}

// Editor is the editor manager.
type Editor struct {
	rec     Recorder
	panels  []string
	visible bool

	drawn   uint64
	skipped uint64

	initialized bool
}

// New returns an editor drawing through rec.
func New(rec Recorder, cfg Config) *Editor {
	panels := cfg.Panels
	if len(panels) == 0 {
		panels = []string{"overlay"}
	}
	return &Editor{
		rec:     rec,
		panels:  append([]string(nil), panels...),
		visible: !cfg.Hidden,
	}
}

// Name implements manager.Manager.
func (e *Editor) Name() string { return "editor" }

// Initialize implements manager.Manager.
func (e *Editor) Initialize() error {
	if e.rec == nil {
		return ErrNilRenderer
	}
	e.initialized = true
	slogger().Info("editor: initialized", "panels", len(e.panels), "visible", e.visible)
	return nil
}

// Release implements manager.Manager.
func (e *Editor) Release() error {
	if e.initialized {
		slogger().Info("editor: released", "drawn", e.drawn, "skipped", e.skipped)
	}
	e.initialized = false
	return nil
}

// OnFrameBegin implements manager.Manager.
func (e *Editor) OnFrameBegin(float64) {}

// OnFrameEnd implements manager.Manager.
func (e *Editor) OnFrameEnd() {
	if err := e.OnFrameEndErr(); err != nil {
		slogger().Error("editor: overlay failed", "err", err)
	}
}

// OnFrameBeginErr implements manager.FrameErrorer.
func (e *Editor) OnFrameBeginErr(float64) error { return nil }

// OnFrameEndErr records the overlay into the frame's direct list. A frame
// that render aborted is skipped without error.
func (e *Editor) OnFrameEndErr() error {
	if !e.initialized || !e.visible {
		return nil
	}
	err := e.rec.Record(gpucore.ListTypeDirect, func(nl gpucore.NativeList) error {
		mk, ok := nl.(gpucore.Marker)
		if !ok {
			return nil
		}
		for _, p := range e.panels {
			mk.InsertMarker("editor:" + p)
		}
		return nil
	})
	if errors.Is(err, render.ErrNoFrame) {
		e.skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("editor: record overlay: %w", err)
	}
	e.drawn++
	return nil
}

// SetVisible switches the overlay on or off.
func (e *Editor) SetVisible(v bool) { e.visible = v }

// Visible reports whether the overlay is drawn.
func (e *Editor) Visible() bool { return e.visible }

// Drawn returns the number of frames that carried the overlay.
func (e *Editor) Drawn() uint64 { return e.drawn }

// Skipped returns the number of frames skipped because no frame was open.
func (e *Editor) Skipped() uint64 { return e.skipped }
