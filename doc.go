// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package engine is the core of a real-time game engine built on gogpu.
//
// # Overview
//
// An Engine owns a set of subsystems (managers) arranged in a dependency
// graph and drives them through a fixed-timestep main loop:
//
//	window  ->  render  ->  editor
//
// The manager package orders them so that a manager is initialized after
// everything it depends on and released before it. The render manager
// records GPU work into command lists whose allocators are recycled only
// after the GPU has signaled the fence value of the frame that used them.
//
// # Quick Start
//
//	cfg, err := config.Load("engine.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e, err := engine.New(cfg, engine.WithApp(engine.AppFunc(update)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := e.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Backends
//
// engine.backend selects where command lists execute: "software" runs
// them on a CPU queue that plays the GPU, "noop" and "vulkan" go through
// the gogpu/wgpu HAL (backend/native).
//
// # Architecture
//
//   - manager: dependency graph, topological scheduler, frame hooks
//   - gpucore: device, queue, fence and list contracts
//   - internal/cmdalloc: fence-gated allocators and the bounded pool
//   - cmdlist: command list state machine over a pool
//   - render, platform, editor: the managers
//   - backend/software, backend/native: gpucore implementations
//   - config: TOML and YAML configuration
//
// # Logging
//
// The engine is silent by default. SetLogger installs a *slog.Logger for
// the engine and all of its subpackages.
package engine
