// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package platform

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrInvalidSize is returned for a non-positive window size.
var ErrInvalidSize = errors.New("platform: invalid window size")

// Config describes the window.
type Config struct {
	Title  string
	Width  int
	Height int

	// MaxFrames requests close after that many frames. Zero means no limit.
	MaxFrames uint64
}

// Window is the headless window manager. RequestClose and ShouldClose may
// be called from any goroutine; the frame hooks run on the loop goroutine.
type Window struct {
	cfg Config

	width  atomic.Int32
	height atomic.Int32

	frames  atomic.Uint64
	elapsed time.Duration
	closing atomic.Bool
	reason  atomic.Pointer[string]

	initialized bool
}

// New returns an uninitialized window.
func New(cfg Config) *Window {
	if cfg.Title == "" {
		cfg.Title = "gogpu engine"
	}
	return &Window{cfg: cfg}
}

// Name implements manager.Manager.
func (w *Window) Name() string { return "window" }

// Initialize implements manager.Manager.
func (w *Window) Initialize() error {
	if w.cfg.Width <= 0 || w.cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w.cfg.Width, w.cfg.Height)
	}
	w.width.Store(int32(w.cfg.Width))
	w.height.Store(int32(w.cfg.Height))
	w.frames.Store(0)
	w.elapsed = 0
	w.closing.Store(false)
	w.reason.Store(nil)
	w.initialized = true

	slogger().Info("platform: window opened",
		"title", w.cfg.Title,
		"width", w.cfg.Width,
		"height", w.cfg.Height,
		"max_frames", w.cfg.MaxFrames)
	return nil
}

// Release implements manager.Manager.
func (w *Window) Release() error {
	if !w.initialized {
		return nil
	}
	w.initialized = false
	slogger().Info("platform: window closed",
		"frames", w.frames.Load(),
		"elapsed", w.elapsed,
		"reason", w.CloseReason())
	return nil
}

// OnFrameBegin implements manager.Manager. It advances the frame counter
// and elapsed time, and requests close once the frame limit is reached.
func (w *Window) OnFrameBegin(dt float64) {
	n := w.frames.Add(1)
	w.elapsed += time.Duration(dt * float64(time.Second))
	if w.cfg.MaxFrames > 0 && n >= w.cfg.MaxFrames {
		w.RequestClose("frame limit")
	}
}

// OnFrameEnd implements manager.Manager.
func (w *Window) OnFrameEnd() {}

// RequestClose asks the main loop to stop after the current frame. Only
// the first reason is kept.
func (w *Window) RequestClose(reason string) {
	if w.closing.CompareAndSwap(false, true) {
		w.reason.Store(&reason)
		slogger().Debug("platform: close requested", "reason", reason)
	}
}

// ShouldClose reports whether close was requested.
func (w *Window) ShouldClose() bool { return w.closing.Load() }

// CloseReason returns the reason given to the first RequestClose, or "".
func (w *Window) CloseReason() string {
	if r := w.reason.Load(); r != nil {
		return *r
	}
	return ""
}

// Frames returns the number of frames begun.
func (w *Window) Frames() uint64 { return w.frames.Load() }

// Elapsed returns the simulated time summed from frame deltas.
func (w *Window) Elapsed() time.Duration { return w.elapsed }

// Title returns the window title.
func (w *Window) Title() string { return w.cfg.Title }

// Size returns the current size in pixels.
func (w *Window) Size() (width, height int) {
	return int(w.width.Load()), int(w.height.Load())
}

// Resize updates the size. Non-positive sizes, such as those reported while
// minimized, are ignored.
func (w *Window) Resize(width, height int) {
	if width < 1 || height < 1 {
		return
	}
	w.width.Store(int32(width))
	w.height.Store(int32(height))
}
