// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package webgpu provides the WebGPU-class backend. Materials are consumed
// as WGSL. The backend either opens its own device through gogpu/wgpu or
// adopts the device of a host application that implements
// gpucontext.DeviceProvider and exposes HAL handles.
//
// Importing the package registers the backend:
//
//	import _ "github.com/gogpu/g3d/backend/webgpu"
package webgpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/internal/native"
	"github.com/gogpu/g3d/render"
)

// ErrHostNotHAL is returned when a host provider does not expose HAL handles.
var ErrHostNotHAL = errors.New("webgpu: host provider does not expose HAL types")

func init() {
	backend.Register(backend.WebGPU, func() backend.Backend {
		return New()
	})
}

// halProvider is implemented by hosts that share their HAL device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Option configures a Backend.
type Option func(*Backend)

// WithProvider opens devices through p instead of the default HAL.
func WithProvider(p native.Provider) Option {
	return func(b *Backend) { b.provider = p }
}

// WithHost makes the backend adopt the host's device instead of opening one.
// The host keeps ownership: Dispose never destroys its device.
func WithHost(host gpucontext.DeviceProvider) Option {
	return func(b *Backend) { b.host = host }
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

// Backend is the WebGPU-class backend.
type Backend struct {
	desc     backend.Descriptor
	provider native.Provider
	host     gpucontext.DeviceProvider
	detector caps.Detector
	images   int

	mu     sync.Mutex
	report *caps.Report
}

// New returns a WebGPU-class backend with the default catalog entry.
func New(opts ...Option) *Backend {
	desc, _ := backend.DefaultCatalog().Lookup(backend.WebGPU)
	b := &Backend{desc: desc}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Descriptor implements backend.Backend.
func (b *Backend) Descriptor() backend.Descriptor { return b.desc }

// Detect implements backend.Backend.
func (b *Backend) Detect() *caps.Report {
	d := b.detector
	if d == nil {
		d = b.defaultDetector()
	}
	r := caps.SafeDetect(d)
	b.mu.Lock()
	b.report = r
	b.mu.Unlock()
	return r
}

func (b *Backend) defaultDetector() caps.Detector {
	if b.host != nil {
		// A host device is already open; its adapter cannot be re-enumerated.
		return caps.StaticDetector{Report: caps.NewReport(caps.Info{
			DeviceID:    "webgpu:host",
			AdapterName: "host-shared device",
			OSBuild:     caps.OSBuild(),
			Features:    map[caps.FeatureName]bool{caps.FeatureCompute: true},
			Limitations: []string{"webgpu: device supplied by host application"},
		})}
	}
	p, err := b.hal()
	if err != nil {
		return caps.StaticDetector{Report: caps.UnknownReport(err.Error())}
	}
	return caps.NewHALDetector(p, "webgpu")
}

// Initialize implements backend.Backend.
func (b *Backend) Initialize(ctx context.Context, surface render.Surface) (*render.Device, error) {
	cfg := render.OpenConfig{
		Backend:         string(backend.WebGPU),
		Surface:         surface,
		ShaderFormat:    native.ShaderFormatWGSL,
		Capabilities:    b.lastReport(),
		SwapchainImages: b.images,
	}
	if b.host != nil {
		return b.adopt(ctx, cfg)
	}
	p, err := b.hal()
	if err != nil {
		return nil, err
	}
	cfg.Provider = p
	return render.Open(ctx, cfg)
}

func (b *Backend) adopt(ctx context.Context, cfg render.OpenConfig) (*render.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hp, ok := b.host.(halProvider)
	if !ok {
		return nil, ErrHostNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrHostNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrHostNotHAL)
	}
	if cfg.Surface.Format == gputypes.TextureFormatUndefined {
		if f := b.host.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			cfg.Surface.Format = f
		}
	}
	return render.Adopt(device, queue, cfg)
}

// Recover implements backend.Backend. With a host device the host is
// expected to have replaced its device already; the new one is adopted.
func (b *Backend) Recover(ctx context.Context, lost *render.Device, surface render.Surface) (*render.Device, error) {
	if surface.Width == 0 && surface.Height == 0 && lost != nil {
		surface = lost.Surface()
	}
	d, err := b.Initialize(ctx, surface)
	if err != nil {
		return nil, fmt.Errorf("webgpu: recover: %w", err)
	}
	return d, nil
}

func (b *Backend) hal() (native.Provider, error) {
	if b.provider != nil {
		return b.provider, nil
	}
	// gogpu/wgpu implements WebGPU on top of the native HAL backends.
	p, ok := native.Vulkan()
	if !ok {
		return nil, fmt.Errorf("webgpu: %w", backend.ErrUnavailable)
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
