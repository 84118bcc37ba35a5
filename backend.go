// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"fmt"

	"github.com/gogpu/engine/backend"
	"github.com/gogpu/engine/gpucore"

	// Registered backends.
	_ "github.com/gogpu/engine/backend/native"
	_ "github.com/gogpu/engine/backend/software"
)

// openBackend opens the device and queue named by engine.backend. The
// returned func releases them.
func openBackend(name string) (gpucore.Device, gpucore.Queue, func(), error) {
	b, err := backend.Open(name)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine: open backend: %w", err)
	}
	slogger().Info("engine: backend opened", "backend", b.Name)
	return b.Device, b.Queue, b.Close, nil
}
