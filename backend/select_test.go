// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gogpu/g3d/caps"
)

func reportWith(features map[caps.FeatureName]bool) *caps.Report {
	return caps.NewReport(caps.Info{Features: features})
}

func TestSelectFallsBackToVulkanWithoutCompute(t *testing.T) {
	report := reportWith(map[caps.FeatureName]bool{caps.FeatureCompute: false})

	sel := Select(DefaultCatalog(), report)
	if sel.Denied() {
		t.Fatalf("Select denied: %v", sel.Reasons)
	}
	if sel.Descriptor.ID != Vulkan {
		t.Errorf("selected %s, want vulkan", sel.Descriptor.ID)
	}
	if got := sel.Missing[WebGPU]; !slices.Equal(got, []caps.FeatureName{caps.FeatureCompute}) {
		t.Errorf("Missing[webgpu] = %v", got)
	}
}

func TestSelectPrefersHigherPriority(t *testing.T) {
	report := reportWith(map[caps.FeatureName]bool{
		caps.FeatureCompute:        true,
		caps.FeatureTimestampQuery: true,
	})
	sel := Select(DefaultCatalog(), report)
	if sel.Denied() || sel.Descriptor.ID != WebGPU {
		t.Fatalf("Select = %v, want webgpu", sel)
	}
	if !slices.Equal(sel.OptionalEnabled, []caps.FeatureName{caps.FeatureTimestampQuery}) {
		t.Errorf("OptionalEnabled = %v", sel.OptionalEnabled)
	}
}

func TestSelectTieGoesToFirstDeclared(t *testing.T) {
	report := reportWith(nil)
	a := Descriptor{ID: "a", Priority: 7}
	b := Descriptor{ID: "b", Priority: 7}
	low := Descriptor{ID: "low", Priority: 1}

	if got := Select(Catalog{a, b, low}, report).Descriptor.ID; got != "a" {
		t.Errorf("Select([a b low]) = %s, want a", got)
	}
	if got := Select(Catalog{low, b, a}, report).Descriptor.ID; got != "b" {
		t.Errorf("Select([low b a]) = %s, want b", got)
	}
}

func TestSelectDenied(t *testing.T) {
	c := Catalog{
		{ID: "rt", Priority: 3, Required: caps.NewFeatureSet(caps.FeatureRayTracing, caps.FeatureCompute)},
		{ID: "f16", Priority: 2, Required: caps.NewFeatureSet(caps.FeatureShaderF16)},
	}
	sel := Select(c, reportWith(map[caps.FeatureName]bool{caps.FeatureCompute: true}))
	if !sel.Denied() {
		t.Fatalf("Select = %v, want denied", sel)
	}
	want := []string{
		"rt: missing required feature RAY_TRACING",
		"f16: missing required feature SHADER_F16",
	}
	if !slices.Equal(sel.Reasons, want) {
		t.Errorf("Reasons = %q, want %q", sel.Reasons, want)
	}
	if sel.Descriptor.ID != "" {
		t.Errorf("denied selection carries descriptor %v", sel.Descriptor)
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	sel := Select(nil, reportWith(nil))
	if !sel.Denied() || len(sel.Reasons) != 1 {
		t.Errorf("Select(nil) = %v", sel)
	}
}

func TestSelectNilReport(t *testing.T) {
	sel := Select(DefaultCatalog(), nil)
	if sel.Denied() || sel.Descriptor.ID != Vulkan {
		t.Errorf("Select with nil report = %v, want vulkan", sel)
	}
}

// TestSelectProperty checks Select against a brute-force reference on
// random catalogs and reports.
func TestSelectProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	features := caps.KnownFeatures

	randomSet := func() caps.FeatureSet {
		s := caps.NewFeatureSet()
		for _, f := range features {
			if rng.IntN(4) == 0 {
				s[f] = struct{}{}
			}
		}
		return s
	}

	for iter := range 2000 {
		n := rng.IntN(6)
		c := make(Catalog, n)
		for i := range c {
			c[i] = Descriptor{
				ID:       ID(rune('a' + i)),
				Priority: rng.IntN(4),
				Required: randomSet(),
			}
		}
		flags := make(map[caps.FeatureName]bool)
		for _, f := range features {
			flags[f] = rng.IntN(2) == 0
		}
		report := reportWith(flags)

		// Reference: first descriptor with the maximum priority among qualifiers.
		wantIdx := -1
		for i, d := range c {
			if !d.Required.SubsetOf(report.Enabled()) {
				continue
			}
			if wantIdx < 0 || d.Priority > c[wantIdx].Priority {
				wantIdx = i
			}
		}

		sel := Select(c, report)
		if wantIdx < 0 {
			if !sel.Denied() {
				t.Fatalf("iter %d: Select = %v, want denied", iter, sel)
			}
			if len(sel.Missing) != len(c) {
				t.Fatalf("iter %d: Missing has %d entries, want %d", iter, len(sel.Missing), len(c))
			}
			continue
		}
		if sel.Denied() || sel.Descriptor.ID != c[wantIdx].ID {
			t.Fatalf("iter %d: Select = %v, want %s", iter, sel, c[wantIdx])
		}
	}
}
