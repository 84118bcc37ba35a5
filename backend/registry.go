// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Factory opens a backend.
type Factory func() (*Backend, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for selection when no name is given. Noop is never
	// picked implicitly.
	priority = []string{Vulkan, Software}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens the named backend. An empty name opens the first backend in
// priority order that opens successfully.
func Open(name string) (*Backend, error) {
	if name == "" {
		return openDefault()
	}
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	b, err := f()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	b.Name = name
	return b, nil
}

func openDefault() (*Backend, error) {
	var errs []error
	for _, name := range priority {
		if !IsRegistered(name) {
			continue
		}
		b, err := Open(name)
		if err == nil {
			return b, nil
		}
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errs[len(errs)-1]
	}
	return nil, ErrBackendNotAvailable
}
