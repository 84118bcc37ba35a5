// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/engine/gpucore"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e, err := engine.New(cfg,
//	    engine.WithApp(game),
//	    engine.WithRegisterer(prometheus.DefaultRegisterer),
//	)
type Option func(*options)

type options struct {
	app        App
	clock      clock.Clock
	registerer prometheus.Registerer
	device     gpucore.Device
	queue      gpucore.Queue
}

func defaultOptions() options {
	return options{clock: clock.New()}
}

// WithApp sets the application driven by the main loop.
func WithApp(app App) Option {
	return func(o *options) { o.app = app }
}

// WithClock sets the clock the main loop paces and measures frames with.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clock = clk
		}
	}
}

// WithRegisterer registers the engine, scheduler and allocator pool
// metrics on reg. Without it no metrics are registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithBackend uses an already opened device and queue instead of the one
// named by engine.backend. The caller keeps ownership of both.
//
// Example:
//
//	dev, _ := native.FromProvider(app)
//	e, err := engine.New(cfg, engine.WithBackend(dev, dev.Queue()))
func WithBackend(device gpucore.Device, queue gpucore.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
	}
}
