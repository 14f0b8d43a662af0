// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package caps

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/native"
)

// HALDetector enumerates adapters through a gogpu/wgpu HAL backend and
// reports the one a backend would pick.
//
// HAL adapters expose a name and a device type but no extension list, so
// the feature map is derived conservatively from the device type. Features
// that need a driver query (ray tracing, f16 shaders) are reported off with
// a limitation; combine with a driver-level probe through [Chain] to fill them.
type HALDetector struct {
	provider native.Provider
	label    string
}

// NewHALDetector returns a detector over the given HAL provider.
// label names the HAL backend in limitations ("vulkan", "noop").
func NewHALDetector(provider native.Provider, label string) *HALDetector {
	return &HALDetector{provider: provider, label: label}
}

// NewVulkanDetector returns a HAL detector over the Vulkan backend, or a
// detector reporting the backend as unavailable.
func NewVulkanDetector() Detector {
	p, ok := native.Vulkan()
	if !ok {
		return StaticDetector{Report: UnknownReport("vulkan HAL backend not available")}
	}
	return NewHALDetector(p, "vulkan")
}

// Detect implements Detector.
func (d *HALDetector) Detect() (r *Report) {
	defer func() {
		if p := recover(); p != nil {
			r = UnknownReport(fmt.Sprintf("%s: adapter enumeration panicked: %v", d.label, p))
		}
	}()

	if d.provider == nil {
		return UnknownReport(d.label + ": no HAL provider")
	}

	instance, err := d.provider.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return UnknownReport(fmt.Sprintf("%s: create instance: %v", d.label, err))
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	selected := native.SelectAdapter(adapters)
	if selected == nil {
		return UnknownReport(d.label + ": no GPU adapters found")
	}

	return reportFromAdapter(selected, len(adapters), d.label)
}

func reportFromAdapter(a *hal.ExposedAdapter, count int, label string) *Report {
	name := strings.TrimSpace(a.Info.Name)
	vendor, vendorID := native.GuessVendor(name)
	hardware := native.IsHardware(a)
	mobile := runtime.GOOS == "android" || runtime.GOOS == "ios"

	info := Info{
		DeviceID:    deviceID(label, vendorID, name),
		Vendor:      vendor,
		VendorID:    vendorID,
		AdapterName: name,
		OSBuild:     OSBuild(),
		Features: map[FeatureName]bool{
			// Compute is part of the WebGPU and Vulkan baselines.
			FeatureCompute:               true,
			FeatureTimestampQuery:        hardware,
			FeatureTextureCompressionBC:  hardware && !mobile,
			FeatureDepthClipControl:      hardware,
			FeatureIndirectFirstInstance: hardware,
			FeatureRayTracing:            false,
			FeatureShaderF16:             false,
		},
	}

	if !hardware {
		info.Limitations = append(info.Limitations, fmt.Sprintf("%s: software or unknown adapter type", label))
	}
	if count > 1 {
		info.Limitations = append(info.Limitations, fmt.Sprintf("%s: %d adapters present, reporting %q", label, count, name))
	}
	info.Limitations = append(info.Limitations,
		fmt.Sprintf("%s: %s and %s not queryable through HAL", label, FeatureRayTracing, FeatureShaderF16))

	return NewReport(info)
}

func deviceID(label string, vendorID uint32, name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("%s:%04x:%s", label, vendorID, strings.ToLower(name))
}
