// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"context"
	"errors"

	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/render"
)

// Common backend errors.
var (
	// ErrNotRegistered is returned by New for an unknown backend id.
	ErrNotRegistered = errors.New("backend: not registered")

	// ErrUnavailable is returned when a backend's native API is missing on
	// this host.
	ErrUnavailable = errors.New("backend: native API not available")
)

// Backend is one concrete GPU API behind the negotiation contract.
//
// Implementations are chosen at construction time through the registry;
// there is one per native API family (WebGPU-class, Vulkan-class).
type Backend interface {
	// Descriptor returns the catalog entry for this backend.
	Descriptor() Descriptor

	// Detect reports the capabilities of the device this backend would use.
	// It must not block beyond local driver queries and never returns nil.
	Detect() *caps.Report

	// Initialize acquires a device, queue, and swapchain for surface.
	// Resources acquired before ctx is done or a step fails are released
	// before Initialize returns.
	Initialize(ctx context.Context, surface render.Surface) (*render.Device, error)

	// Recover builds a replacement for a lost device with the same
	// configuration. The lost device has already been disposed.
	Recover(ctx context.Context, lost *render.Device, surface render.Surface) (*render.Device, error)
}
