// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cmdalloc

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors shared by every pool of an engine.
// Series are labeled by pool name. A nil *Metrics disables collection.
type Metrics struct {
	Allocators  *prometheus.GaugeVec
	Created     *prometheus.CounterVec
	Waits       *prometheus.CounterVec
	Timeouts    *prometheus.CounterVec
	WaitSeconds *prometheus.HistogramVec
}

// NewMetrics creates the pool collectors and registers them on reg.
// Collectors already registered on reg are reused.
// A nil reg leaves them unregistered, which tests use to read values
// without a global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Allocators: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "engine",
			Subsystem: "cmdalloc",
			Name:      "allocators",
			Help:      "Command allocators held by a pool, by state.",
		}, []string{"pool", "state"}),
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "cmdalloc",
			Name:      "allocators_created_total",
			Help:      "Command allocators created, including warm-up.",
		}, []string{"pool"}),
		Waits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "cmdalloc",
			Name:      "blocking_waits_total",
			Help:      "Times a pool at capacity blocked on a busy allocator.",
		}, []string{"pool"}),
		Timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Subsystem: "cmdalloc",
			Name:      "wait_timeouts_total",
			Help:      "Fence waits that exceeded the block time.",
		}, []string{"pool"}),
		WaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "engine",
			Subsystem: "cmdalloc",
			Name:      "wait_seconds",
			Help:      "Time spent blocked on allocator fences.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"pool"}),
	}
	if reg != nil {
		m.Allocators = register(reg, m.Allocators)
		m.Created = register(reg, m.Created)
		m.Waits = register(reg, m.Waits)
		m.Timeouts = register(reg, m.Timeouts)
		m.WaitSeconds = register(reg, m.WaitSeconds)
	}
	return m
}

// register registers c on reg. If an identical collector is already
// registered, for example by another engine sharing reg, that one is
// returned instead so both engines feed the same series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		slogger().Warn("cmdalloc: metrics collector not registered", "err", err)
	}
	return c
}

func (m *Metrics) created(pool string) {
	if m == nil {
		return
	}
	m.Created.WithLabelValues(pool).Inc()
}

func (m *Metrics) waited(pool string, seconds float64, timedOut bool) {
	if m == nil {
		return
	}
	m.Waits.WithLabelValues(pool).Inc()
	m.WaitSeconds.WithLabelValues(pool).Observe(seconds)
	if timedOut {
		m.Timeouts.WithLabelValues(pool).Inc()
	}
}

func (m *Metrics) occupancy(pool string, free, busy int) {
	if m == nil {
		return
	}
	m.Allocators.WithLabelValues(pool, "free").Set(float64(free))
	m.Allocators.WithLabelValues(pool, "busy").Set(float64(busy))
}

func (m *Metrics) forget(pool string) {
	if m == nil {
		return
	}
	m.Allocators.DeleteLabelValues(pool, "free")
	m.Allocators.DeleteLabelValues(pool, "busy")
}
