// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vulkan provides the Vulkan-class backend. It opens devices through
// the gogpu/wgpu Vulkan HAL and compiles material shaders to SPIR-V with naga.
//
// Importing the package registers the backend:
//
//	import _ "github.com/gogpu/g3d/backend/vulkan"
package vulkan

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/caps/vkprobe"
	"github.com/gogpu/g3d/internal/native"
	"github.com/gogpu/g3d/render"
)

func init() {
	backend.Register(backend.Vulkan, func() backend.Backend {
		return New()
	})
}

// Option configures a Backend.
type Option func(*Backend)

// WithProvider replaces the Vulkan HAL with p, e.g. native.Noop() for
// headless runs.
func WithProvider(p native.Provider) Option {
	return func(b *Backend) { b.provider = p }
}

// WithDetector replaces capability detection.
func WithDetector(d caps.Detector) Option {
	return func(b *Backend) { b.detector = d }
}

// WithDescriptor replaces the catalog entry reported by Descriptor.
func WithDescriptor(d backend.Descriptor) Option {
	return func(b *Backend) { b.desc = d }
}

// WithSwapchainImages sets the swapchain ring size.
func WithSwapchainImages(n int) Option {
	return func(b *Backend) { b.images = n }
}

// Backend is the Vulkan-class backend.
type Backend struct {
	desc     backend.Descriptor
	provider native.Provider
	detector caps.Detector
	images   int

	mu     sync.Mutex
	report *caps.Report
}

// New returns a Vulkan-class backend. Without options it uses the Vulkan HAL
// and the default catalog entry.
func New(opts ...Option) *Backend {
	desc, _ := backend.DefaultCatalog().Lookup(backend.Vulkan)
	b := &Backend{desc: desc}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Descriptor implements backend.Backend.
func (b *Backend) Descriptor() backend.Descriptor { return b.desc }

// Detect implements backend.Backend. The HAL adapter report is merged with
// the physical-device probe when the binary is built with the vulkan tag.
func (b *Backend) Detect() *caps.Report {
	d := b.detector
	if d == nil {
		p, err := b.hal()
		if err != nil {
			d = caps.StaticDetector{Report: caps.UnknownReport(err.Error())}
		} else {
			d = caps.Chain(caps.NewHALDetector(p, "vulkan"), vkprobe.New(""))
		}
	}
	r := caps.SafeDetect(d)
	b.mu.Lock()
	b.report = r
	b.mu.Unlock()
	return r
}

// Initialize implements backend.Backend.
func (b *Backend) Initialize(ctx context.Context, surface render.Surface) (*render.Device, error) {
	p, err := b.hal()
	if err != nil {
		return nil, err
	}
	return render.Open(ctx, render.OpenConfig{
		Backend:         string(backend.Vulkan),
		Provider:        p,
		Surface:         surface,
		ShaderFormat:    native.ShaderFormatSPIRV,
		Capabilities:    b.lastReport(),
		SwapchainImages: b.images,
	})
}

// Recover implements backend.Backend by opening a fresh device with the
// same surface. A zero surface reuses the lost device's surface.
func (b *Backend) Recover(ctx context.Context, lost *render.Device, surface render.Surface) (*render.Device, error) {
	if surface.Width == 0 && surface.Height == 0 && lost != nil {
		surface = lost.Surface()
	}
	d, err := b.Initialize(ctx, surface)
	if err != nil {
		return nil, fmt.Errorf("vulkan: recover: %w", err)
	}
	return d, nil
}

func (b *Backend) hal() (native.Provider, error) {
	if b.provider != nil {
		return b.provider, nil
	}
	p, ok := native.Vulkan()
	if !ok {
		return nil, fmt.Errorf("vulkan: %w", backend.ErrUnavailable)
	}
	return p, nil
}

func (b *Backend) lastReport() *caps.Report {
	b.mu.Lock()
	r := b.report
	b.mu.Unlock()
	if r == nil {
		r = b.Detect()
	}
	return r
}
