// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/engine/cmdlist"
	"github.com/gogpu/engine/editor"
	"github.com/gogpu/engine/internal/cmdalloc"
	"github.com/gogpu/engine/manager"
	"github.com/gogpu/engine/platform"
	"github.com/gogpu/engine/render"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for the engine and all its sub-packages.
// By default the engine produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by the engine:
//   - [slog.LevelDebug]: allocator growth and recycling, frame submissions
//   - [slog.LevelInfo]: lifecycle events (initialization order, releases)
//   - [slog.LevelWarn]: degraded operation (failed frame hooks, fence attach)
//   - [slog.LevelError]: fatal initialization failures, GPU timeouts
//
// Example:
//
//	engine.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	manager.SetLogger(l)
	cmdalloc.SetLogger(l)
	cmdlist.SetLogger(l)
	render.SetLogger(l)
	platform.SetLogger(l)
	editor.SetLogger(l)
}

// Logger returns the current engine logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
