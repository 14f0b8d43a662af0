// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a backend instance.
type Factory func() Backend

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[ID]Factory)
)

// Register registers a backend factory under id.
// This is typically called from init() functions in backend packages.
// If a backend with the same id is already registered, it will be replaced.
func Register(id ID, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[id] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(id ID) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, id)
}

// Available returns the registered backend ids, sorted.
func Available() []ID {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]ID, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsRegistered checks if a backend with the given id is registered.
func IsRegistered(id ID) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[id]
	return ok
}

// New returns a new instance of the backend registered under id.
func New(id ID) (Backend, error) {
	registryMu.RLock()
	factory, ok := factories[id]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, id)
	}
	b := factory()
	if b == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrNotRegistered, id)
	}
	return b, nil
}

// Registered returns the catalog entries that have a registered backend,
// preserving catalog order.
func Registered(c Catalog) Catalog {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var out Catalog
	for _, d := range c {
		if _, ok := factories[d.ID]; ok {
			out = append(out, d)
		}
	}
	return out
}
