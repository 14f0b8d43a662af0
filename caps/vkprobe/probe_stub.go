// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !vulkan

package vkprobe

import "github.com/gogpu/g3d/caps"

// New returns a detector that reports the Vulkan probe as not compiled in.
func New(string) caps.Detector {
	return caps.StaticDetector{Report: caps.UnknownReport("vkprobe: built without the vulkan tag")}
}

// Available reports whether the probe was compiled in.
func Available() bool { return false }
