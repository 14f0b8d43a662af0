// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"

	"github.com/gogpu/g3d/caps"
)

// ID identifies a backend.
type ID string

// Backend identifiers.
const (
	WebGPU ID = "webgpu"
	Vulkan ID = "vulkan"
)

// Descriptor is a static catalog entry describing a backend's priority and
// feature requirements.
type Descriptor struct {
	ID       ID
	Priority int

	// Required features must all be enabled on the device.
	Required caps.FeatureSet

	// Optional features are used when present.
	Optional caps.FeatureSet
}

// String returns "id(priority)".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%d)", d.ID, d.Priority)
}

// Catalog is an ordered list of descriptors. Order is significant: when two
// descriptors share the highest priority, the earlier one is selected.
type Catalog []Descriptor

// DefaultCatalog returns the built-in catalog: WebGPU-class at priority 10
// requiring compute, then Vulkan-class at priority 5 with no requirements.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			ID:       WebGPU,
			Priority: 10,
			Required: caps.NewFeatureSet(caps.FeatureCompute),
			Optional: caps.NewFeatureSet(caps.FeatureTimestampQuery, caps.FeatureTextureCompressionBC),
		},
		{
			ID:       Vulkan,
			Priority: 5,
			Required: caps.NewFeatureSet(),
			Optional: caps.NewFeatureSet(caps.FeatureCompute, caps.FeatureRayTracing, caps.FeatureShaderF16),
		},
	}
}

// Lookup returns the descriptor with the given id.
func (c Catalog) Lookup(id ID) (Descriptor, bool) {
	for _, d := range c {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// WithPriorities returns a copy of c with priorities replaced for the ids in
// overrides. Order is preserved.
func (c Catalog) WithPriorities(overrides map[ID]int) Catalog {
	out := make(Catalog, len(c))
	for i, d := range c {
		if p, ok := overrides[d.ID]; ok {
			d.Priority = p
		}
		out[i] = d
	}
	return out
}

// Only returns the descriptors whose id is in ids, preserving order.
func (c Catalog) Only(ids ...ID) Catalog {
	var out Catalog
	for _, d := range c {
		for _, id := range ids {
			if d.ID == id {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Validate reports empty or duplicate ids.
func (c Catalog) Validate() error {
	seen := make(map[ID]bool, len(c))
	for i, d := range c {
		if d.ID == "" {
			return fmt.Errorf("backend: catalog entry %d has no id", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("backend: catalog lists %q twice", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}
