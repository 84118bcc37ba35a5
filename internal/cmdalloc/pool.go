// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdalloc

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/gogpu/engine/gpucore"
)

// Config describes an allocator pool.
type Config struct {
	// Name labels the pool in logs and metrics. Defaults to the list type.
	Name string

	// ListType is the category of work the pool services.
	ListType gpucore.ListType

	// InitialCount allocators are created eagerly by Initialize.
	InitialCount int

	// MaxCount is the hard ceiling on allocators held by the pool.
	MaxCount int

	// BlockMaxTime bounds every fence wait. Zero selects
	// gpucore.DefaultWaitTimeout.
	BlockMaxTime time.Duration

	// Metrics receives pool statistics; nil disables collection.
	Metrics *Metrics
}

// Validate checks the pool counts.
func (c Config) Validate() error {
	if !c.ListType.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidListType, c.ListType)
	}
	if c.MaxCount < 1 {
		return fmt.Errorf("%w: max count %d < 1", ErrInvalidConfig, c.MaxCount)
	}
	if c.InitialCount < 0 || c.InitialCount > c.MaxCount {
		return fmt.Errorf("%w: initial count %d outside [0, %d]", ErrInvalidConfig, c.InitialCount, c.MaxCount)
	}
	if c.BlockMaxTime < 0 {
		return fmt.Errorf("%w: negative block time %v", ErrInvalidConfig, c.BlockMaxTime)
	}
	return nil
}

// Pool is a bounded, fence-aware collection of allocators.
//
// When no allocator is free the pool grows up to MaxCount; at the ceiling
// it blocks on the busy allocator whose submission is oldest (smallest
// wait value, then earliest attach). The ceiling is what bounds how far
// the CPU can run ahead of the GPU.
//
// Pool is NOT safe for concurrent use.
type Pool struct {
	device     gpucore.Device
	cfg        Config
	allocators []*Allocator

	initialized bool
}

// Initialize validates cfg and creates cfg.InitialCount allocators.
// If any allocator fails, the ones already created are destroyed.
func (p *Pool) Initialize(device gpucore.Device, cfg Config) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	if device == nil {
		return ErrNilDevice
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ListType.String()
	}
	if cfg.BlockMaxTime == 0 {
		cfg.BlockMaxTime = gpucore.DefaultWaitTimeout
	}

	p.device = device
	p.cfg = cfg
	p.allocators = make([]*Allocator, 0, cfg.MaxCount)

	for i := 0; i < cfg.InitialCount; i++ {
		if _, err := p.create(); err != nil {
			for _, a := range p.allocators {
				_ = a.Destroy()
			}
			p.allocators = nil
			return fmt.Errorf("cmdalloc: warm up pool %q (%d/%d): %w", cfg.Name, i, cfg.InitialCount, err)
		}
	}
	p.initialized = true

	slogger().Info("cmdalloc: pool initialized",
		"pool", cfg.Name,
		"list_type", cfg.ListType.String(),
		"initial", cfg.InitialCount,
		"max", cfg.MaxCount,
		"block_max_time", cfg.BlockMaxTime)
	p.UpdateAllocators()
	return nil
}

// Config returns the effective pool configuration.
func (p *Pool) Config() Config { return p.cfg }

// Len returns the number of allocators held by the pool.
func (p *Pool) Len() int { return len(p.allocators) }

// FreeCount returns how many allocators are currently free.
func (p *Pool) FreeCount() int {
	n := 0
	for _, a := range p.allocators {
		if a.IsFree() {
			n++
		}
	}
	return n
}

// Initialized reports whether the pool is live.
func (p *Pool) Initialized() bool { return p.initialized }

func (p *Pool) create() (*Allocator, error) {
	a := &Allocator{}
	if err := a.Initialize(p.device, p.cfg.ListType, p.cfg.BlockMaxTime); err != nil {
		return nil, err
	}
	p.allocators = append(p.allocators, a)
	p.cfg.Metrics.created(p.cfg.Name)
	return a, nil
}

// TryAcquire returns the first free allocator without blocking, or nil if
// every allocator is in flight.
func (p *Pool) TryAcquire() *Allocator {
	if !p.initialized {
		return nil
	}
	for _, a := range p.allocators {
		if a.IsFree() {
			return a
		}
	}
	return nil
}

// AcquireOrCreate grows the pool by one allocator while below MaxCount.
// At the ceiling it blocks on the oldest busy allocator and returns it once
// its fence completes. A wait timeout is returned as ErrWaitTimeout.
func (p *Pool) AcquireOrCreate() (*Allocator, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	if len(p.allocators) < p.cfg.MaxCount {
		a, err := p.create()
		if err != nil {
			return nil, fmt.Errorf("cmdalloc: grow pool %q: %w", p.cfg.Name, err)
		}
		slogger().Debug("cmdalloc: pool grew",
			"pool", p.cfg.Name,
			"size", len(p.allocators),
			"max", p.cfg.MaxCount)
		return a, nil
	}

	victim := p.oldest()
	if victim == nil {
		return nil, fmt.Errorf("%w: pool %q holds no allocators", ErrExhausted, p.cfg.Name)
	}
	if victim.IsFree() {
		return victim, nil
	}

	slogger().Debug("cmdalloc: pool at capacity, blocking",
		"pool", p.cfg.Name,
		"allocator", victim.ID(),
		"wait_value", victim.WaitValue())

	start := time.Now()
	err := victim.ForceWait()
	p.cfg.Metrics.waited(p.cfg.Name, time.Since(start).Seconds(), errors.Is(err, ErrWaitTimeout))
	if err != nil {
		return nil, err
	}
	return victim, nil
}

// oldest returns a free allocator if one exists, otherwise the busy one
// with the smallest wait value, ties broken by attach order.
func (p *Pool) oldest() *Allocator {
	var best *Allocator
	for _, a := range p.allocators {
		if a.IsFree() {
			return a
		}
		if best == nil ||
			a.waitValue < best.waitValue ||
			(a.waitValue == best.waitValue && a.attachSeq < best.attachSeq) {
			best = a
		}
	}
	return best
}

// UpdateAllocators drops completed fence expectations and refreshes the
// occupancy metrics. Call it once per frame.
func (p *Pool) UpdateAllocators() {
	if !p.initialized {
		return
	}
	free := 0
	for _, a := range p.allocators {
		if a.release() {
			free++
		}
	}
	p.cfg.Metrics.occupancy(p.cfg.Name, free, len(p.allocators)-free)
}

// DestroyAllForce waits for and destroys every allocator. Failures are
// aggregated; every allocator gets a destroy attempt. Calling it on a
// destroyed pool is a no-op.
func (p *Pool) DestroyAllForce() error {
	if !p.initialized {
		return nil
	}
	var errs error
	for _, a := range p.allocators {
		if err := a.ForceDestroy(); err != nil {
			slogger().Error("cmdalloc: destroy allocator failed",
				"pool", p.cfg.Name,
				"allocator", a.ID(),
				"err", err)
			errs = multierr.Append(errs, err)
		}
	}
	p.allocators = nil
	p.initialized = false
	p.cfg.Metrics.forget(p.cfg.Name)

	slogger().Info("cmdalloc: pool destroyed", "pool", p.cfg.Name, "failures", len(multierr.Errors(errs)))
	return errs
}
