// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/gogpu/engine/cmdlist"
	"github.com/gogpu/engine/gpucore"
	"github.com/gogpu/engine/internal/cmdalloc"
)

// PoolConfig sizes the allocator pool of one command list.
type PoolConfig struct {
	ListType     gpucore.ListType
	InitialCount int
	MaxCount     int
	BlockMaxTime time.Duration
}

// Config configures a Manager.
type Config struct {
	// FramesInFlight caps how many frames the CPU may run ahead of the GPU.
	FramesInFlight int

	// Pools lists one entry per command list the manager owns. The direct
	// list is always present; a missing entry gets DefaultPool.
	Pools []PoolConfig

	// IdleTimeout bounds the GPU drain in Release.
	IdleTimeout time.Duration

	// Metrics receives allocator pool statistics; nil disables them.
	Metrics *cmdalloc.Metrics
}

// DefaultPool returns the pool sizing used when none is configured.
func DefaultPool(t gpucore.ListType) PoolConfig {
	return PoolConfig{
		ListType:     t,
		InitialCount: 2,
		MaxCount:     4,
		BlockMaxTime: gpucore.DefaultWaitTimeout,
	}
}

// DefaultConfig returns a double-buffered configuration with a direct
// and a copy list.
func DefaultConfig() Config {
	return Config{
		FramesInFlight: 2,
		Pools:          []PoolConfig{DefaultPool(gpucore.ListTypeDirect), DefaultPool(gpucore.ListTypeCopy)},
		IdleTimeout:    gpucore.DefaultWaitTimeout,
	}
}

// Stats summarizes the manager's activity.
type Stats struct {
	Frames        uint64
	Submitted     uint64
	Completed     uint64
	AbortedFrames uint64
	Allocators    map[gpucore.ListType]int
}

// Manager is the render subsystem. It implements manager.Manager and
// manager.FrameErrorer.
type Manager struct {
	device gpucore.Device
	queue  *Queue
	cfg    Config

	order []gpucore.ListType
	lists map[gpucore.ListType]*cmdlist.List
	descs map[gpucore.ListType]cmdlist.Desc

	frameOpen  bool
	frameValue uint64
	recorded   []*cmdlist.List

	frames  uint64
	aborted uint64

	initialized bool
}

// New returns an uninitialized render manager. The manager takes
// ownership of queue and destroys it in Release.
func New(device gpucore.Device, queue *Queue, cfg Config) *Manager {
	if cfg.FramesInFlight < 1 {
		cfg.FramesInFlight = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = gpucore.DefaultWaitTimeout
	}
	return &Manager{device: device, queue: queue, cfg: cfg}
}

// Name implements manager.Manager.
func (m *Manager) Name() string { return "render" }

// Queue returns the submission queue.
func (m *Manager) Queue() *Queue { return m.queue }

// List returns the command list for t, or nil.
func (m *Manager) List(t gpucore.ListType) *cmdlist.List { return m.lists[t] }

// Initialize implements manager.Manager. It creates one command list per
// configured pool, always including the direct list.
func (m *Manager) Initialize() error {
	if m.device == nil {
		return ErrNilDevice
	}
	if m.queue == nil {
		return ErrNilQueue
	}

	pools := m.cfg.Pools
	hasDirect := false
	for _, p := range pools {
		if p.ListType == gpucore.ListTypeDirect {
			hasDirect = true
		}
	}
	if !hasDirect {
		pools = append([]PoolConfig{DefaultPool(gpucore.ListTypeDirect)}, pools...)
	}

	m.lists = make(map[gpucore.ListType]*cmdlist.List, len(pools))
	m.descs = make(map[gpucore.ListType]cmdlist.Desc, len(pools))
	m.order = m.order[:0]
	for _, p := range pools {
		if _, dup := m.lists[p.ListType]; dup {
			m.destroyLists()
			return fmt.Errorf("render: duplicate pool for %s lists", p.ListType)
		}
		desc := cmdlist.Desc{
			Name:         p.ListType.String(),
			Device:       m.device,
			ListType:     p.ListType,
			InitialCount: p.InitialCount,
			MaxCount:     p.MaxCount,
			BlockMaxTime: p.BlockMaxTime,
			Metrics:      m.cfg.Metrics,
		}
		l := &cmdlist.List{}
		if err := l.Initialize(desc); err != nil {
			m.destroyLists()
			return fmt.Errorf("render: %s list: %w", p.ListType, err)
		}
		m.lists[p.ListType] = l
		m.descs[p.ListType] = desc
		m.order = append(m.order, p.ListType)
	}
	m.initialized = true

	slogger().Info("render: initialized",
		"lists", len(m.order),
		"frames_in_flight", m.cfg.FramesInFlight)
	return nil
}

// OnFrameBeginErr throttles against the GPU and opens the frame by
// resetting the direct list. On error the frame stays closed and the
// matching end hook does nothing.
func (m *Manager) OnFrameBeginErr(float64) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if m.frameOpen {
		return errors.New("render: frame already open")
	}

	// Allow FramesInFlight pending submissions; the next one would exceed it.
	if pending := m.queue.Submitted(); pending >= uint64(m.cfg.FramesInFlight) {
		target := pending - uint64(m.cfg.FramesInFlight) + 1
		if err := m.queue.WaitFor(target, m.cfg.IdleTimeout); err != nil {
			m.aborted++
			return err
		}
	}

	m.frameValue = m.queue.NextValue()
	m.recorded = m.recorded[:0]
	m.frameOpen = true

	if err := m.open(gpucore.ListTypeDirect); err != nil {
		m.frameOpen = false
		m.aborted++
		return err
	}
	if mk, ok := m.lists[gpucore.ListTypeDirect].Native().(gpucore.Marker); ok {
		mk.InsertMarker("frame_begin")
	}
	return nil
}

// open resets the list for t against the current frame value unless it
// was already opened this frame.
func (m *Manager) open(t gpucore.ListType) error {
	l, ok := m.lists[t]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownListType, t)
	}
	for _, r := range m.recorded {
		if r == l {
			return nil
		}
	}
	if l.State() == cmdlist.StateRecording {
		// Left recording by a failed close in an earlier frame.
		var err error
		if l, err = m.recoverList(t); err != nil {
			return err
		}
	}
	err := l.Reset(cmdlist.ResetDesc{Fence: m.queue.Fence(), WaitValue: m.frameValue})
	if err != nil {
		return fmt.Errorf("render: open %s list: %w", t, err)
	}
	m.recorded = append(m.recorded, l)
	return nil
}

// recoverList brings a list whose close failed back to the closed state.
// It retries the close once and otherwise rebuilds the list, discarding
// whatever the aborted frame recorded.
func (m *Manager) recoverList(t gpucore.ListType) (*cmdlist.List, error) {
	l := m.lists[t]
	err := l.Close()
	if err == nil {
		slogger().Warn("render: recovered list after failed close", "list", t)
		return l, nil
	}
	slogger().Warn("render: rebuilding list after failed close", "list", t, "err", err)

	if derr := l.Destroy(); derr != nil {
		slogger().Error("render: destroy of broken list failed", "list", t, "err", derr)
	}
	nl := &cmdlist.List{}
	if err := nl.Initialize(m.descs[t]); err != nil {
		// The destroyed list stays in place and later Resets fail.
		return nil, fmt.Errorf("render: rebuild %s list: %w", t, err)
	}
	m.lists[t] = nl
	return nl, nil
}

// Record runs fn against the native list of type t for the current frame,
// resetting that list first if this is its first use in the frame.
func (m *Manager) Record(t gpucore.ListType, fn func(gpucore.NativeList) error) error {
	if !m.frameOpen {
		return ErrNoFrame
	}
	if err := m.open(t); err != nil {
		return err
	}
	return fn(m.lists[t].Native())
}

// OnFrameEndErr closes every list recorded this frame, submits them as one
// batch and runs pool maintenance on every list.
func (m *Manager) OnFrameEndErr() error {
	if !m.initialized {
		return ErrNotInitialized
	}
	defer m.update()
	if !m.frameOpen {
		return nil
	}
	m.frameOpen = false

	if mk, ok := m.lists[gpucore.ListTypeDirect].Native().(gpucore.Marker); ok {
		mk.InsertMarker("frame_end")
	}

	var errs error
	closed := make([]*cmdlist.List, 0, len(m.recorded))
	for _, l := range m.recorded {
		if err := l.Close(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		closed = append(closed, l)
	}

	// Submit even if a close failed so that the frame's fence value is
	// signaled and the allocators that carry it are recycled.
	value, err := m.queue.Submit(closed...)
	if err != nil {
		// The frame value was never signaled; allocators fenced on it
		// hold no GPU work and must not be waited on.
		for _, l := range m.recorded {
			l.DropFence(m.frameValue)
		}
		errs = multierr.Append(errs, err)
		m.aborted++
		return errs
	}
	if value != m.frameValue {
		slogger().Warn("render: frame value drifted", "expected", m.frameValue, "submitted", value)
	}
	m.frames++
	slogger().Debug("render: frame submitted", "value", value, "lists", len(closed))
	return errs
}

func (m *Manager) update() {
	for _, t := range m.order {
		m.lists[t].Update()
	}
}

// OnFrameBegin implements manager.Manager for callers that do not check
// frame errors.
func (m *Manager) OnFrameBegin(dt float64) {
	if err := m.OnFrameBeginErr(dt); err != nil {
		slogger().Error("render: frame begin failed", "err", err)
	}
}

// OnFrameEnd implements manager.Manager.
func (m *Manager) OnFrameEnd() {
	if err := m.OnFrameEndErr(); err != nil {
		slogger().Error("render: frame end failed", "err", err)
	}
}

// Release implements manager.Manager. It drains the GPU, destroys every
// list and the queue's fence. Failures are aggregated.
func (m *Manager) Release() error {
	if !m.initialized {
		return nil
	}
	var errs error
	if m.frameOpen {
		errs = multierr.Append(errs, m.OnFrameEndErr())
	}
	if err := m.queue.WaitIdle(m.cfg.IdleTimeout); err != nil {
		slogger().Error("render: GPU did not drain", "err", err)
		errs = multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, m.destroyLists())
	m.queue.Destroy()
	m.initialized = false

	slogger().Info("render: released", "frames", m.frames, "aborted", m.aborted)
	return errs
}

func (m *Manager) destroyLists() error {
	var errs error
	for _, t := range m.order {
		errs = multierr.Append(errs, m.lists[t].Destroy())
	}
	m.lists = nil
	m.descs = nil
	m.order = nil
	return errs
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Frames:        m.frames,
		AbortedFrames: m.aborted,
		Allocators:    make(map[gpucore.ListType]int, len(m.order)),
	}
	if m.queue != nil {
		s.Submitted = m.queue.Submitted()
		s.Completed = m.queue.Completed()
	}
	for _, t := range m.order {
		s.Allocators[t] = m.lists[t].Pool().Len()
	}
	return s
}
