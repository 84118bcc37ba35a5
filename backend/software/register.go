// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import "github.com/gogpu/engine/backend"

func init() {
	backend.Register(backend.Software, func() (*backend.Backend, error) {
		q := NewQueue()
		return &backend.Backend{Device: NewDevice(), Queue: q, Release: q.Close}, nil
	})
}
