// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build vulkan

package vkprobe

import (
	"fmt"
	"slices"

	vk "github.com/darkace1998/golang-vulkan-api"

	"github.com/gogpu/g3d/caps"
)

// Device extensions that map onto feature flags.
const (
	extRayTracing      = "VK_KHR_ray_tracing_pipeline"
	extShaderF16       = "VK_KHR_shader_float16_int8"
	extDepthClipCtrl   = "VK_EXT_depth_clip_control"
	physicalDiscrete   = 2
	physicalIntegrated = 1
)

// Detector probes the first usable Vulkan physical device.
type Detector struct {
	preferred string
}

// New returns a Vulkan probe. preferred is a case-insensitive substring of
// the device name to prefer; empty selects automatically.
func New(preferred string) caps.Detector {
	return &Detector{preferred: preferred}
}

// Available reports whether the probe was compiled in.
func Available() bool { return true }

// Detect implements caps.Detector.
func (d *Detector) Detect() *caps.Report {
	instance, err := vk.CreateInstance(&vk.InstanceCreateInfo{
		ApplicationInfo: &vk.ApplicationInfo{
			ApplicationName:    "g3d",
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			EngineName:         "g3d",
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			APIVersion:         vk.Version13,
		},
	})
	if err != nil {
		return caps.UnknownReport(fmt.Sprintf("vkprobe: create instance: %v", err))
	}
	defer vk.DestroyInstance(instance)

	devices, err := vk.EnumeratePhysicalDevices(instance)
	if err != nil || len(devices) == 0 {
		return caps.UnknownReport("vkprobe: no Vulkan physical devices")
	}

	best := -1
	bestScore := -1
	for i, pd := range devices {
		props := vk.GetPhysicalDeviceProperties(pd)
		score := 0
		switch int(props.DeviceType) {
		case physicalDiscrete:
			score = 2
		case physicalIntegrated:
			score = 1
		}
		if d.preferred != "" && containsFold(props.DeviceName, d.preferred) {
			score += 10
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	pd := devices[best]
	props := vk.GetPhysicalDeviceProperties(pd)

	hasGraphics, hasCompute := false, false
	for _, qf := range vk.GetPhysicalDeviceQueueFamilyProperties(pd) {
		if qf.QueueFlags&vk.QueueGraphicsBit != 0 {
			hasGraphics = true
		}
		if qf.QueueFlags&vk.QueueComputeBit != 0 {
			hasCompute = true
		}
	}

	var extensions []string
	if exts, err := vk.EnumerateDeviceExtensionProperties(pd, ""); err == nil {
		for _, ext := range exts {
			extensions = append(extensions, ext.ExtensionName)
		}
	}

	info := caps.Info{
		DeviceID:      fmt.Sprintf("vulkan:%04x:%04x", props.VendorID, props.DeviceID),
		VendorID:      props.VendorID,
		ProductID:     props.DeviceID,
		AdapterName:   props.DeviceName,
		DriverVersion: driverVersion(props.VendorID, props.DriverVersion),
		OSBuild:       caps.OSBuild(),
		Features: map[caps.FeatureName]bool{
			caps.FeatureCompute:          hasCompute,
			caps.FeatureRayTracing:       slices.Contains(extensions, extRayTracing),
			caps.FeatureShaderF16:        slices.Contains(extensions, extShaderF16),
			caps.FeatureDepthClipControl: slices.Contains(extensions, extDepthClipCtrl),
		},
	}
	if !hasGraphics {
		info.Limitations = append(info.Limitations, "vkprobe: no graphics queue family")
	}

	slogger().Debug("vkprobe: device probed",
		"name", props.DeviceName,
		"vendor_id", fmt.Sprintf("0x%04X", props.VendorID),
		"device_id", fmt.Sprintf("0x%04X", props.DeviceID),
		"extensions", len(extensions),
	)

	return caps.NewReport(info)
}

// driverVersion decodes the vendor-specific packing of VkPhysicalDeviceProperties.driverVersion.
func driverVersion(vendorID, v uint32) string {
	if vendorID == 0x10DE {
		return fmt.Sprintf("%d.%d.%d.%d", (v>>22)&0x3FF, (v>>14)&0xFF, (v>>6)&0xFF, v&0x3F)
	}
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3FF, v&0xFFF)
}
