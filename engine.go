// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/gogpu/engine/config"
	"github.com/gogpu/engine/editor"
	"github.com/gogpu/engine/internal/cmdalloc"
	"github.com/gogpu/engine/manager"
	"github.com/gogpu/engine/platform"
	"github.com/gogpu/engine/render"
)

// App is the application driven by the main loop.
type App interface {
	// OnUpdate runs once per fixed step with the step length in seconds,
	// between the frame-begin and frame-end hooks of the managers. A
	// returned error stops the loop.
	OnUpdate(e *Engine, dt float64) error
}

// AppFunc adapts a function to App.
type AppFunc func(e *Engine, dt float64) error

// OnUpdate implements App.
func (f AppFunc) OnUpdate(e *Engine, dt float64) error { return f(e, dt) }

// Stats summarizes a run.
type Stats struct {
	Frames       uint64
	Updates      uint64
	DroppedSteps uint64
}

// Engine wires the managers together and runs the main loop.
//
// Engine is NOT safe for concurrent use, except Stop.
type Engine struct {
	cfg   *config.Config
	app   App
	clock clock.Clock

	sched  *manager.Scheduler
	window *platform.Window
	render *render.Manager
	editor *editor.Editor

	closeBackend func()
	ran          bool

	stats        Stats
	frameSeconds prometheus.Histogram
	frames       prometheus.Counter
}

// New builds the managers described by cfg and declares their
// dependencies. Nothing is initialized until Run.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	device, queue := o.device, o.queue
	closeBackend := func() {}
	if device == nil || queue == nil {
		var err error
		device, queue, closeBackend, err = openBackend(cfg.Engine.Backend)
		if err != nil {
			return nil, err
		}
	}
	rq, err := render.NewQueue(queue)
	if err != nil {
		closeBackend()
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		app:          o.app,
		clock:        o.clock,
		closeBackend: closeBackend,
		sched:        manager.NewScheduler(manager.WithRegisterer(o.registerer)),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "engine",
			Name:      "frame_seconds",
			Help:      "Wall time between frame starts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "frames_total",
			Help:      "Frames run by the main loop.",
		}),
	}
	var metrics *cmdalloc.Metrics
	if o.registerer != nil {
		metrics = cmdalloc.NewMetrics(o.registerer)
		e.frameSeconds = register(o.registerer, e.frameSeconds)
		e.frames = register(o.registerer, e.frames)
	}

	e.window = platform.New(platform.Config{
		Title:     cfg.Engine.Title,
		Width:     cfg.Engine.Width,
		Height:    cfg.Engine.Height,
		MaxFrames: cfg.Engine.MaxFrames,
	})
	e.render = render.New(device, rq, renderConfig(cfg, metrics))

	e.sched.Register(e.window)
	e.sched.Register(e.render)
	if err := e.sched.AddDependency(e.render, e.window); err != nil {
		closeBackend()
		return nil, err
	}
	if cfg.Editor.Enabled {
		e.editor = editor.New(e.render, editor.Config{
			Panels: cfg.Editor.Panels,
			Hidden: cfg.Editor.Hidden,
		})
		e.sched.Register(e.editor)
		if err := e.sched.AddDependency(e.editor, e.render); err != nil {
			closeBackend()
			return nil, err
		}
	}
	return e, nil
}

// register registers c on reg, or returns the collector another engine
// already registered there.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		slogger().Warn("engine: metrics collector not registered", "err", err)
	}
	return c
}

func renderConfig(cfg *config.Config, metrics *cmdalloc.Metrics) render.Config {
	rc := render.Config{
		FramesInFlight: cfg.Engine.FramesInFlight,
		IdleTimeout:    cfg.Engine.IdleTimeout.D(),
		Metrics:        metrics,
	}
	for _, p := range cfg.Pools {
		rc.Pools = append(rc.Pools, render.PoolConfig{
			ListType:     p.ListType,
			InitialCount: p.InitialCount,
			MaxCount:     p.MaxCount,
			BlockMaxTime: p.BlockMaxTime.D(),
		})
	}
	return rc
}

// Scheduler returns the manager scheduler, so applications can register
// their own managers before Run.
func (e *Engine) Scheduler() *manager.Scheduler { return e.sched }

// Window returns the window manager.
func (e *Engine) Window() *platform.Window { return e.window }

// Render returns the render manager.
func (e *Engine) Render() *render.Manager { return e.render }

// Editor returns the editor manager, or nil when it is disabled.
func (e *Engine) Editor() *editor.Editor { return e.editor }

// Stats returns the loop counters.
func (e *Engine) Stats() Stats { return e.stats }

// Stop asks the loop to end after the current frame. It is safe to call
// from any goroutine.
func (e *Engine) Stop() { e.window.RequestClose("stop") }

// Run initializes every manager, runs frames until the window closes or
// ctx is canceled, then shuts everything down. Cancellation is a normal
// exit and returns nil.
//
// An initialization failure is returned as a *manager.FatalError after the
// managers that did initialize have been released.
func (e *Engine) Run(ctx context.Context) (err error) {
	if e.ran {
		return ErrAlreadyRan
	}
	e.ran = true
	defer e.closeBackend()

	if err := e.sched.Init(); err != nil {
		return multierr.Append(err, e.sched.Shutdown())
	}
	defer func() {
		if serr := e.sched.Shutdown(); serr != nil {
			err = multierr.Append(err, fmt.Errorf("engine: shutdown: %w", serr))
		}
	}()

	return e.loop(ctx)
}

// loop is the fixed-timestep main loop. Frames are paced by a ticker at
// the update rate; within a frame, updates run in fixed steps until the
// accumulated time is consumed, at most MaxSteps times.
func (e *Engine) loop(ctx context.Context) error {
	tick := e.cfg.Engine.TickInterval()
	step := tick.Seconds()
	maxSteps := e.cfg.Engine.MaxSteps

	ticker := e.clock.Ticker(tick)
	defer ticker.Stop()

	var accum time.Duration
	prev := e.clock.Now()

	slogger().Info("engine: main loop started", "tick", tick, "max_frames", e.cfg.Engine.MaxFrames)
	for !e.window.ShouldClose() {
		select {
		case <-ctx.Done():
			e.window.RequestClose("context canceled")
			continue
		case <-ticker.C:
		}

		now := e.clock.Now()
		frame := now.Sub(prev)
		prev = now
		accum += frame
		e.frameSeconds.Observe(frame.Seconds())

		e.sched.UpdateLoopStart(frame.Seconds())

		steps := 0
		var appErr error
		for accum >= tick && steps < maxSteps {
			if e.app != nil {
				if appErr = e.app.OnUpdate(e, step); appErr != nil {
					break
				}
			}
			accum -= tick
			steps++
			e.stats.Updates++
		}
		if steps == maxSteps && accum >= tick {
			dropped := uint64(accum / tick)
			e.stats.DroppedSteps += dropped
			slogger().Debug("engine: dropping late steps", "steps", dropped)
			accum %= tick
		}

		e.sched.UpdateLoopEnd()
		e.stats.Frames++
		e.frames.Inc()

		if appErr != nil {
			slogger().Error("engine: update failed", "frame", e.stats.Frames, "err", appErr)
			return fmt.Errorf("engine: update: %w", appErr)
		}
	}
	slogger().Info("engine: main loop stopped",
		"frames", e.stats.Frames,
		"updates", e.stats.Updates,
		"reason", e.window.CloseReason())
	return nil
}

// IsFatal reports whether err came from a failed initialization.
func IsFatal(err error) bool { return manager.IsFatal(err) }
