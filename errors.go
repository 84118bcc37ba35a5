// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import "errors"

var (
	// ErrNilConfig is returned by New without a configuration.
	ErrNilConfig = errors.New("engine: config is nil")

	// ErrAlreadyRan is returned by a second call to Run.
	ErrAlreadyRan = errors.New("engine: Run already called")
)
