// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package manager

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Hook names used in logs and metrics.
const (
	HookInitialize = "initialize"
	HookRelease    = "release"
	HookFrameBegin = "frame_begin"
	HookFrameEnd   = "frame_end"
)

// Scheduler orders managers by declared dependencies and drives their
// lifecycle hooks.
//
// Managers are compared by interface identity, so they must be comparable
// (pointers in practice). The resolved order is deterministic for a fixed
// registration and edge sequence: roots are visited in registration order
// and dependents in edge insertion order.
//
// Scheduler is NOT safe for concurrent use; it runs on the frame-driver
// goroutine.
type Scheduler struct {
	nodes      []Manager
	registered map[Manager]struct{}
	edges      map[Manager][]Manager // parent -> dependents

	order []Manager
	live  int // prefix of order whose Initialize succeeded

	initialized bool
	failures    map[string]int
	hookErrors  *prometheus.CounterVec
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRegisterer registers the hook failure counter on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Scheduler) {
		if reg == nil {
			return
		}
		if err := reg.Register(s.hookErrors); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					s.hookErrors = existing
				}
			}
		}
	}
}

// NewScheduler returns an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		registered: make(map[Manager]struct{}),
		edges:      make(map[Manager][]Manager),
		failures:   make(map[string]int),
		hookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "manager",
			Name:      "hook_failures_total",
			Help:      "Failed manager hooks, by manager and hook.",
		}, []string{"manager", "hook"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds m to the graph. Nil and already registered managers are
// ignored.
func (s *Scheduler) Register(m Manager) {
	if isNil(m) {
		slogger().Warn("manager: ignoring nil manager", "type", fmt.Sprintf("%T", m))
		return
	}
	if _, ok := s.registered[m]; ok {
		return
	}
	s.registered[m] = struct{}{}
	s.nodes = append(s.nodes, m)
	slogger().Debug("manager: registered", "manager", m.Name())
}

// isNil reports whether m is nil or wraps a nil pointer, such as a
// (*render.Manager)(nil) stored in the interface.
func isNil(m Manager) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// AddDependency declares that child depends on parent: parent initializes
// first. Both must be registered before Init. Duplicate edges are ignored.
func (s *Scheduler) AddDependency(child, parent Manager) error {
	if isNil(child) || isNil(parent) {
		return ErrNilManager
	}
	for _, c := range s.edges[parent] {
		if c == child {
			return nil
		}
	}
	s.edges[parent] = append(s.edges[parent], child)
	return nil
}

// Registered returns the managers in registration order.
func (s *Scheduler) Registered() []Manager {
	return append([]Manager(nil), s.nodes...)
}

// Order returns a copy of the resolved initialization order, empty before
// Init or after a failed sort.
func (s *Scheduler) Order() []Manager {
	return append([]Manager(nil), s.order...)
}

// dfsFrame is one entry of the explicit traversal stack.
type dfsFrame struct {
	node Manager
	next int
}

// sort computes the topological order with an iterative depth-first
// traversal. A node is appended to the post-order once all its dependents
// are done; the result is the reversed post-order.
func (s *Scheduler) sort() ([]Manager, error) {
	for parent, children := range s.edges {
		if _, ok := s.registered[parent]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingDependency, parent.Name())
		}
		for _, c := range children {
			if _, ok := s.registered[c]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrMissingDependency, c.Name())
			}
		}
	}

	visited := make(map[Manager]bool, len(s.nodes))
	onStack := make(map[Manager]bool, len(s.nodes))
	post := make([]Manager, 0, len(s.nodes))
	stack := make([]dfsFrame, 0, len(s.nodes))

	for _, root := range s.nodes {
		if visited[root] {
			continue
		}
		stack = append(stack, dfsFrame{node: root})
		onStack[root] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := s.edges[top.node]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				if onStack[child] {
					return nil, fmt.Errorf("%w: %q -> %q", ErrCycleDetected, top.node.Name(), child.Name())
				}
				if !visited[child] {
					stack = append(stack, dfsFrame{node: child})
					onStack[child] = true
				}
				continue
			}
			stack = stack[:len(stack)-1]
			onStack[top.node] = false
			visited[top.node] = true
			post = append(post, top.node)
		}
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post, nil
}

// Init resolves the order and initializes every manager in it. It stops at
// the first failing manager; managers already initialized stay
// initialized and are released by Shutdown. Every error returned is a
// *FatalError.
func (s *Scheduler) Init() error {
	if s.initialized {
		return &FatalError{Err: ErrAlreadyInitialized}
	}
	s.initialized = true

	order, err := s.sort()
	if err != nil {
		s.order = nil
		slogger().Error("manager: cannot resolve initialization order", "err", err)
		return &FatalError{Err: err}
	}
	s.order = order
	s.live = 0

	names := make([]string, len(order))
	for i, m := range order {
		names[i] = m.Name()
	}
	slogger().Info("manager: initialization order resolved", "order", names)

	for _, m := range order {
		start := time.Now()
		if err := m.Initialize(); err != nil {
			s.countFailure(m, HookInitialize)
			slogger().Error("manager: initialize failed", "manager", m.Name(), "err", err)
			return &FatalError{Err: &NodeError{Manager: m.Name(), Op: HookInitialize, Err: err}}
		}
		s.live++
		slogger().Info("manager: initialized", "manager", m.Name(), "elapsed", time.Since(start))
	}
	return nil
}

// UpdateLoopStart runs every begin hook in initialization order.
func (s *Scheduler) UpdateLoopStart(dt float64) {
	for _, m := range s.order[:s.live] {
		if fe, ok := m.(FrameErrorer); ok {
			if err := fe.OnFrameBeginErr(dt); err != nil {
				s.frameFailure(m, HookFrameBegin, err)
			}
			continue
		}
		m.OnFrameBegin(dt)
	}
}

// UpdateLoopEnd runs every end hook in reverse initialization order.
func (s *Scheduler) UpdateLoopEnd() {
	for i := s.live - 1; i >= 0; i-- {
		m := s.order[i]
		if fe, ok := m.(FrameErrorer); ok {
			if err := fe.OnFrameEndErr(); err != nil {
				s.frameFailure(m, HookFrameEnd, err)
			}
			continue
		}
		m.OnFrameEnd()
	}
}

// Shutdown releases every initialized manager in reverse order. Failures
// are logged and aggregated; every manager gets a release attempt.
func (s *Scheduler) Shutdown() error {
	var errs error
	for i := s.live - 1; i >= 0; i-- {
		m := s.order[i]
		if err := m.Release(); err != nil {
			s.countFailure(m, HookRelease)
			slogger().Error("manager: release failed", "manager", m.Name(), "err", err)
			errs = multierr.Append(errs, &NodeError{Manager: m.Name(), Op: HookRelease, Err: err})
			continue
		}
		slogger().Info("manager: released", "manager", m.Name())
	}
	s.live = 0
	return errs
}

// Clear drops every registration, edge and the cached order so a fresh
// Register/Init cycle can start. It does not release anything.
func (s *Scheduler) Clear() {
	if s.live > 0 {
		slogger().Warn("manager: clearing scheduler with live managers", "live", s.live)
	}
	s.nodes = nil
	s.registered = make(map[Manager]struct{})
	s.edges = make(map[Manager][]Manager)
	s.order = nil
	s.live = 0
	s.initialized = false
	s.failures = make(map[string]int)
}

// FailureCount returns the number of failed hooks recorded for the named
// manager since the last Clear.
func (s *Scheduler) FailureCount(name string) int {
	return s.failures[name]
}

func (s *Scheduler) frameFailure(m Manager, hook string, err error) {
	s.countFailure(m, hook)
	slogger().Warn("manager: frame hook failed", "manager", m.Name(), "hook", hook, "err", err)
}

func (s *Scheduler) countFailure(m Manager, hook string) {
	s.failures[m.Name()]++
	s.hookErrors.WithLabelValues(m.Name(), hook).Inc()
}
