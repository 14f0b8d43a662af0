// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package g3d draws 3D scenes on a GPU backend chosen at runtime.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/g3d"
//	    _ "github.com/gogpu/g3d/backend/vulkan"
//	    _ "github.com/gogpu/g3d/backend/webgpu"
//	)
//
//	r, err := g3d.NewRenderer(ctx, g3d.Surface{Width: 1280, Height: 720})
//	if err != nil {
//	    return err
//	}
//	defer r.Dispose()
//
//	cam := g3d.PerspectiveCamera{Eye: g3d.V3(0, 2, 5), Aspect: 16.0 / 9}
//	for running {
//	    if err := r.Render(scene, cam); err != nil {
//	        return err
//	    }
//	}
//
// # Negotiation
//
// NewRenderer detects device capabilities, selects the highest-priority
// backend whose required features are present, and initializes it within
// an initialization budget (see WithInitBudget). A denied negotiation
// returns *negotiate.DeniedError listing every missing feature.
//
// # Device Loss
//
// When the platform reports device loss call Renderer.DeviceLost. The
// renderer disposes the lost device and reinitializes once. A second loss
// before a frame succeeds is fatal.
//
// # Telemetry
//
// Negotiation and device-loss outcomes are reported as telemetry events.
// By default they are written to the package logger; WithSink delivers them
// elsewhere with bounded retry. See package telemetry.
//
// # Packages
//
//   - caps: capability detection and reports
//   - backend: backend catalog, selection, and registry
//   - render: devices, buffers, pipelines, render passes, swapchain
//   - negotiate: backend negotiation and device-loss recovery
//   - telemetry: event construction and delivery
package g3d

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
