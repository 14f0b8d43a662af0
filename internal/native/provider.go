// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native wraps the gogpu/wgpu HAL entry points shared by the
// capability detector and the concrete backends.
package native

import (
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Registers the Vulkan HAL backend with hal.GetBackend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Provider creates HAL instances. hal.GetBackend results and the noop API
// both satisfy it.
type Provider interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Vulkan returns the registered Vulkan HAL backend.
func Vulkan() (Provider, bool) {
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, false
	}
	return b, true
}

// Noop returns a HAL provider whose devices accept every call and render
// nothing. Used for headless runs and tests.
func Noop() Provider {
	return &noop.API{}
}

// SelectAdapter prefers a discrete GPU, then an integrated one, then
// whatever the instance exposed first. Returns nil for an empty list.
func SelectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return &adapters[i]
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// IsHardware reports whether the adapter is a real GPU.
func IsHardware(a *hal.ExposedAdapter) bool {
	if a == nil {
		return false
	}
	return a.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
		a.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU
}

// PCI vendor ids for the vendors we can recognise from an adapter name.
const (
	VendorAMD       uint32 = 0x1002
	VendorApple     uint32 = 0x106B
	VendorARM       uint32 = 0x13B5
	VendorIntel     uint32 = 0x8086
	VendorNVIDIA    uint32 = 0x10DE
	VendorQualcomm  uint32 = 0x5143
	VendorImgTec    uint32 = 0x1010
	VendorMicrosoft uint32 = 0x1414
)

var vendorNames = []struct {
	needle string
	name   string
	id     uint32
}{
	{"nvidia", "NVIDIA", VendorNVIDIA},
	{"geforce", "NVIDIA", VendorNVIDIA},
	{"quadro", "NVIDIA", VendorNVIDIA},
	{"radeon", "AMD", VendorAMD},
	{"amd", "AMD", VendorAMD},
	{"intel", "Intel", VendorIntel},
	{"apple", "Apple", VendorApple},
	{"mali", "ARM", VendorARM},
	{"adreno", "Qualcomm", VendorQualcomm},
	{"powervr", "Imagination", VendorImgTec},
	{"llvmpipe", "Mesa", 0},
	{"swiftshader", "Google", 0},
	{"microsoft basic", "Microsoft", VendorMicrosoft},
}

// GuessVendor maps an adapter name to a vendor name and PCI id.
// Unknown names return ("", 0).
func GuessVendor(adapterName string) (string, uint32) {
	lower := strings.ToLower(adapterName)
	for _, v := range vendorNames {
		if strings.Contains(lower, v.needle) {
			return v.name, v.id
		}
	}
	return "", 0
}
