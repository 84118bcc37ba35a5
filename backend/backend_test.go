// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"testing"
)

func withFactory(t *testing.T, name string, f Factory) {
	t.Helper()
	registryMu.RLock()
	prev, had := factories[name]
	registryMu.RUnlock()
	Register(name, f)
	t.Cleanup(func() {
		if had {
			Register(name, prev)
			return
		}
		Unregister(name)
	})
}

func TestRegisterAndOpen(t *testing.T) {
	closed := 0
	withFactory(t, "test", func() (*Backend, error) {
		return &Backend{Release: func() { closed++ }}, nil
	})

	if !IsRegistered("test") {
		t.Fatal("IsRegistered(test) = false")
	}
	b, err := Open("test")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b.Name != "test" {
		t.Errorf("Name = %q, want test", b.Name)
	}
	b.Close()
	b.Close()
	if closed != 1 {
		t.Errorf("Release ran %d times, want 1", closed)
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open("glide"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(glide) = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpenFactoryError(t *testing.T) {
	boom := errors.New("no adapter")
	withFactory(t, "broken", func() (*Backend, error) { return nil, boom })

	_, err := Open("broken")
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, boom) {
		t.Errorf("Open(broken) = %v, want both sentinel and cause", err)
	}
}

func TestOpenDefaultFallsBack(t *testing.T) {
	withFactory(t, Vulkan, func() (*Backend, error) { return nil, errors.New("no vulkan") })
	withFactory(t, Software, func() (*Backend, error) { return &Backend{}, nil })

	b, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if b.Name != Software {
		t.Errorf("default backend = %q, want %q", b.Name, Software)
	}
}

func TestAvailableSorted(t *testing.T) {
	withFactory(t, "zz", func() (*Backend, error) { return &Backend{}, nil })
	withFactory(t, "aa", func() (*Backend, error) { return &Backend{}, nil })

	names := Available()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Available() = %v, not sorted", names)
		}
	}
}
