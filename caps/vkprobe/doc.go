// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vkprobe reads physical-device properties straight from the Vulkan
// loader: PCI ids, driver version, queue families and device extensions.
//
// The probe needs cgo and a Vulkan loader, so it is only compiled with the
// "vulkan" build tag. Without the tag, [New] returns a detector that reports
// the probe as unavailable.
package vkprobe
