// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "github.com/gogpu/engine/backend"

func init() {
	for _, name := range []string{backend.Noop, backend.Vulkan} {
		backend.Register(name, func() (*backend.Backend, error) {
			d, err := OpenByName(name)
			if err != nil {
				return nil, err
			}
			return &backend.Backend{Device: d, Queue: d.Queue(), Release: d.Destroy}, nil
		})
	}
}
