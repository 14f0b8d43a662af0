// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package caps

import (
	"slices"
	"strings"
	"testing"
)

func TestNewReportFillsUnknown(t *testing.T) {
	r := NewReport(Info{})
	for name, got := range map[string]string{
		"DeviceID":      r.DeviceID(),
		"Vendor":        r.Vendor(),
		"AdapterName":   r.AdapterName(),
		"DriverVersion": r.DriverVersion(),
		"OSBuild":       r.OSBuild(),
	} {
		if got != Unknown {
			t.Errorf("%s = %q, want %q", name, got, Unknown)
		}
	}
	if len(r.Features()) != 0 {
		t.Errorf("Features() = %v, want empty", r.Features())
	}
	if r.Limitations() != nil {
		t.Errorf("Limitations() = %v, want nil", r.Limitations())
	}
}

func TestReportIsImmutable(t *testing.T) {
	features := map[FeatureName]bool{FeatureCompute: true}
	limits := []string{"one"}
	r := NewReport(Info{DeviceID: "dev", Features: features, Limitations: limits})

	// Mutating the inputs must not leak into the report.
	features[FeatureCompute] = false
	limits[0] = "changed"
	if !r.IsEnabled(FeatureCompute) {
		t.Error("report changed when input map was mutated")
	}
	if r.Limitations()[0] != "one" {
		t.Error("report changed when input slice was mutated")
	}

	// Mutating the outputs must not leak either.
	r.Features()[FeatureRayTracing] = true
	if r.IsEnabled(FeatureRayTracing) {
		t.Error("report changed when Features() result was mutated")
	}
	got := r.Limitations()
	got[0] = "changed"
	if r.Limitations()[0] != "one" {
		t.Error("report changed when Limitations() result was mutated")
	}
}

func TestNilReport(t *testing.T) {
	var r *Report
	if r.DeviceID() != Unknown || r.Vendor() != Unknown {
		t.Error("nil report should report unknown identification")
	}
	if r.IsEnabled(FeatureCompute) {
		t.Error("nil report should have no features")
	}
	if r.Enabled().Len() != 0 {
		t.Error("nil report Enabled() should be empty")
	}
}

func TestReportEnabled(t *testing.T) {
	r := NewReport(Info{Features: map[FeatureName]bool{
		FeatureCompute:    true,
		FeatureRayTracing: false,
		FeatureShaderF16:  true,
	}})
	got := r.Enabled().Sorted()
	want := []FeatureName{FeatureCompute, FeatureShaderF16}
	if !slices.Equal(got, want) {
		t.Errorf("Enabled() = %v, want %v", got, want)
	}
}

func TestReportWithDisabled(t *testing.T) {
	r := NewReport(Info{Features: map[FeatureName]bool{FeatureCompute: true}})
	d := r.WithDisabled(FeatureCompute, FeatureRayTracing)

	if !r.IsEnabled(FeatureCompute) {
		t.Error("WithDisabled modified the original report")
	}
	if d.IsEnabled(FeatureCompute) {
		t.Error("COMPUTE should be disabled")
	}
	if len(d.Limitations()) != 1 || !strings.Contains(d.Limitations()[0], "COMPUTE") {
		t.Errorf("Limitations() = %v, want one entry naming COMPUTE", d.Limitations())
	}
}

func TestMerge(t *testing.T) {
	hal := NewReport(Info{
		AdapterName: "GeForce RTX 4070",
		Vendor:      "NVIDIA",
		Features:    map[FeatureName]bool{FeatureCompute: true, FeatureRayTracing: false},
		Limitations: []string{"shared"},
	})
	probe := NewReport(Info{
		DeviceID:      "vulkan:10de:2786",
		VendorID:      0x10DE,
		ProductID:     0x2786,
		DriverVersion: "550.54.14.0",
		Features:      map[FeatureName]bool{FeatureRayTracing: true},
		Limitations:   []string{"shared", "probe"},
	})

	m := Merge(hal, nil, probe)
	if m.AdapterName() != "GeForce RTX 4070" {
		t.Errorf("AdapterName() = %q", m.AdapterName())
	}
	if m.DeviceID() != "vulkan:10de:2786" {
		t.Errorf("DeviceID() = %q", m.DeviceID())
	}
	if m.DriverVersion() != "550.54.14.0" {
		t.Errorf("DriverVersion() = %q", m.DriverVersion())
	}
	if m.VendorID() != 0x10DE || m.ProductID() != 0x2786 {
		t.Errorf("ids = %#x/%#x", m.VendorID(), m.ProductID())
	}
	if !m.IsEnabled(FeatureRayTracing) || !m.IsEnabled(FeatureCompute) {
		t.Errorf("Enabled() = %v, want COMPUTE and RAY_TRACING", m.Enabled())
	}
	if !slices.Equal(m.Limitations(), []string{"shared", "probe"}) {
		t.Errorf("Limitations() = %v", m.Limitations())
	}
}

func TestParseFeature(t *testing.T) {
	tests := []struct {
		in      string
		want    FeatureName
		wantErr bool
	}{
		{"COMPUTE", FeatureCompute, false},
		{"ray-tracing", FeatureRayTracing, false},
		{" Shader_F16 ", FeatureShaderF16, false},
		{"teleport", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFeature(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFeature(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFeature(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFeatureSet(t *testing.T) {
	required := NewFeatureSet(FeatureCompute, FeatureRayTracing)
	enabled := NewFeatureSet(FeatureCompute)

	if required.SubsetOf(enabled) {
		t.Error("required should not be a subset of enabled")
	}
	if !NewFeatureSet().SubsetOf(enabled) {
		t.Error("empty set is a subset of every set")
	}
	if got := required.Missing(enabled); !slices.Equal(got, []FeatureName{FeatureRayTracing}) {
		t.Errorf("Missing() = %v", got)
	}
	if got := required.String(); got != "{COMPUTE,RAY_TRACING}" {
		t.Errorf("String() = %q", got)
	}
}
