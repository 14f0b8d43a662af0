// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "errors"

// Render errors. Callers match them with errors.Is; returned errors wrap one
// of these with the failing operation and its arguments.
var (
	// ErrConfig is returned for invalid sizes, offsets, or arguments.
	ErrConfig = errors.New("render: invalid configuration")

	// ErrInvalidBuffer is returned when a buffer handle is destroyed, zero,
	// or of the wrong usage class for the call.
	ErrInvalidBuffer = errors.New("render: invalid buffer")

	// ErrInvalidHandle is returned for nil or released pipelines and framebuffers.
	ErrInvalidHandle = errors.New("render: invalid handle")

	// ErrIllegalState is returned when calls arrive out of order.
	ErrIllegalState = errors.New("render: illegal state")

	// ErrSwapchain is returned for acquire/present protocol violations.
	ErrSwapchain = errors.New("render: swapchain error")

	// ErrSwapchainOutOfDate is returned by AcquireNextImage after the
	// surface changed size and the swapchain has not been recreated.
	ErrSwapchainOutOfDate = errors.New("render: swapchain out of date, recreation required")

	// ErrDisposed is returned by a second Dispose and by calls on a disposed device.
	ErrDisposed = errors.New("render: device already disposed")

	// ErrDeviceLost is returned by frame operations after the device was lost.
	ErrDeviceLost = errors.New("render: device lost")
)
