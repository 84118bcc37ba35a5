// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package platform provides the window manager of the engine.
//
// The Window is headless: it owns no OS surface. It tracks the frame
// counter, elapsed time and the close request that ends the main loop,
// and carries title and size for diagnostics. It has no dependencies and
// is the root of the manager graph, so it is initialized first and
// released last.
package platform
