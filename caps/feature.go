// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package caps

import (
	"fmt"
	"slices"
	"strings"
)

// FeatureName names a boolean device capability used during negotiation.
type FeatureName string

// Known feature flags.
const (
	FeatureCompute               FeatureName = "COMPUTE"
	FeatureRayTracing            FeatureName = "RAY_TRACING"
	FeatureTimestampQuery        FeatureName = "TIMESTAMP_QUERY"
	FeatureShaderF16             FeatureName = "SHADER_F16"
	FeatureTextureCompressionBC  FeatureName = "TEXTURE_COMPRESSION_BC"
	FeatureDepthClipControl      FeatureName = "DEPTH_CLIP_CONTROL"
	FeatureIndirectFirstInstance FeatureName = "INDIRECT_FIRST_INSTANCE"
)

// KnownFeatures lists every feature flag the detectors report, in a stable order.
var KnownFeatures = []FeatureName{
	FeatureCompute,
	FeatureRayTracing,
	FeatureTimestampQuery,
	FeatureShaderF16,
	FeatureTextureCompressionBC,
	FeatureDepthClipControl,
	FeatureIndirectFirstInstance,
}

// ParseFeature normalises a user-supplied feature name ("ray-tracing",
// "Ray_Tracing") and checks it against [KnownFeatures].
func ParseFeature(s string) (FeatureName, error) {
	name := FeatureName(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if slices.Contains(KnownFeatures, name) {
		return name, nil
	}
	return "", fmt.Errorf("caps: unknown feature %q", s)
}

// FeatureSet is an unordered set of feature names.
// The zero value is an empty, read-only set; use NewFeatureSet to build one.
type FeatureSet map[FeatureName]struct{}

// NewFeatureSet returns a set holding the given names.
func NewFeatureSet(names ...FeatureName) FeatureSet {
	s := make(FeatureSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether f is in the set.
func (s FeatureSet) Has(f FeatureName) bool {
	_, ok := s[f]
	return ok
}

// Len returns the number of features in the set.
func (s FeatureSet) Len() int { return len(s) }

// SubsetOf reports whether every feature of s is also in other.
func (s FeatureSet) SubsetOf(other FeatureSet) bool {
	for f := range s {
		if !other.Has(f) {
			return false
		}
	}
	return true
}

// Missing returns the features of s absent from other, sorted.
func (s FeatureSet) Missing(other FeatureSet) []FeatureName {
	var out []FeatureName
	for f := range s {
		if !other.Has(f) {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Sorted returns the set members in lexical order.
func (s FeatureSet) Sorted() []FeatureName {
	out := make([]FeatureName, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy of the set.
func (s FeatureSet) Clone() FeatureSet {
	out := make(FeatureSet, len(s))
	for f := range s {
		out[f] = struct{}{}
	}
	return out
}

// String renders the set as "{A,B}".
func (s FeatureSet) String() string {
	names := s.Sorted()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
