// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/internal/native"
)

// OpenConfig describes the device a backend wants.
type OpenConfig struct {
	// Backend names the backend for logs and errors.
	Backend string

	// Provider creates the HAL instance. Required by Open, ignored by Adopt.
	Provider native.Provider

	Surface Surface

	// ShaderFormat selects WGSL or SPIR-V pipelines.
	ShaderFormat native.ShaderFormat

	// Capabilities is the report the backend was selected against.
	Capabilities *caps.Report

	// SwapchainImages is the swapchain ring size; zero means DefaultSwapchainImages.
	SwapchainImages int

	// hooks observe Open steps and releases in tests.
	onStep    func(step string)
	onRelease func(step string)
}

// Device owns a GPU device and queue together with the buffer, swapchain,
// render-pass, and pipeline managers built on them. It is the handle a
// backend hands to the runtime.
//
// A Device is released exactly once by Dispose. Devices created by Adopt
// wrap a device owned by the host application; Dispose releases this
// package's resources on them but leaves the device itself alive.
type Device struct {
	backend  string
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool
	surface  Surface
	caps     *caps.Report

	buffers   *BufferManager
	swapchain *SwapchainManager
	passes    *RenderPassManager
	pipelines *PipelineCache

	disposed atomic.Bool
	lost     atomic.Bool
	mu       sync.Mutex
}

// releaser is a LIFO stack of cleanup steps for a partially built Device.
type releaser struct {
	steps []func()
}

func (r *releaser) push(f func()) { r.steps = append(r.steps, f) }

func (r *releaser) run() {
	for i := len(r.steps) - 1; i >= 0; i-- {
		r.steps[i]()
	}
	r.steps = nil
}

// Open creates an instance, picks an adapter, opens a device, and builds
// the swapchain. ctx is checked between steps; when it is done, or any step
// fails, every resource acquired so far is released in reverse order and
// the error is returned.
func Open(ctx context.Context, cfg OpenConfig) (_ *Device, err error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("open %s: %w: no HAL provider", cfg.Backend, ErrConfig)
	}
	if err := cfg.Surface.Validate(); err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Backend, err)
	}

	var rel releaser
	defer func() {
		if err != nil {
			rel.run()
		}
	}()

	step := func(name string) error {
		if cfg.onStep != nil {
			cfg.onStep(name)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("open %s: cancelled before %s: %w", cfg.Backend, name, err)
		}
		return nil
	}
	release := func(name string, f func()) {
		rel.push(func() {
			slogger().Debug("render: releasing partial device", "backend", cfg.Backend, "step", name)
			f()
			if cfg.onRelease != nil {
				cfg.onRelease(name)
			}
		})
	}

	if err := step("instance"); err != nil {
		return nil, err
	}
	instance, err := cfg.Provider.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("open %s: create instance: %w", cfg.Backend, err)
	}
	release("instance", instance.Destroy)

	if err := step("adapter"); err != nil {
		return nil, err
	}
	adapter := native.SelectAdapter(instance.EnumerateAdapters(nil))
	if adapter == nil {
		return nil, fmt.Errorf("open %s: no GPU adapters found", cfg.Backend)
	}

	if err := step("device"); err != nil {
		return nil, err
	}
	openDev, err := adapter.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("open %s: open device on %q: %w", cfg.Backend, adapter.Info.Name, err)
	}
	release("device", openDev.Device.Destroy)

	if err := step("swapchain"); err != nil {
		return nil, err
	}
	d, err := build(openDev.Device, openDev.Queue, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Backend, err)
	}
	release("swapchain", d.swapchain.Release)

	if err := step("ready"); err != nil {
		return nil, err
	}

	d.instance = instance
	d.owned = true
	slogger().Info("render: device opened", "backend", cfg.Backend, "adapter", adapter.Info.Name)
	return d, nil
}

// Adopt wraps a device and queue owned by the host application.
func Adopt(device hal.Device, queue hal.Queue, cfg OpenConfig) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("adopt %s: %w: nil device or queue", cfg.Backend, ErrInvalidHandle)
	}
	if err := cfg.Surface.Validate(); err != nil {
		return nil, fmt.Errorf("adopt %s: %w", cfg.Backend, err)
	}
	d, err := build(device, queue, cfg)
	if err != nil {
		return nil, fmt.Errorf("adopt %s: %w", cfg.Backend, err)
	}
	slogger().Info("render: device adopted", "backend", cfg.Backend)
	return d, nil
}

func build(device hal.Device, queue hal.Queue, cfg OpenConfig) (*Device, error) {
	sc, err := NewSwapchainManager(device, cfg.Surface, cfg.SwapchainImages)
	if err != nil {
		return nil, err
	}
	return &Device{
		backend:   cfg.Backend,
		device:    device,
		queue:     queue,
		surface:   cfg.Surface,
		caps:      cfg.Capabilities,
		buffers:   NewBufferManager(device, queue),
		swapchain: sc,
		passes:    NewRenderPassManager(newHALRecorder(device, queue)),
		pipelines: NewPipelineCache(device, cfg.ShaderFormat, sc.Format()),
	}, nil
}

// Backend returns the name of the backend that created the device.
func (d *Device) Backend() string { return d.backend }

// HAL returns the underlying device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// Owned reports whether Dispose destroys the underlying device.
func (d *Device) Owned() bool { return d.owned }

// Surface returns the surface the device was opened for, with the size of
// the most recent Resize.
func (d *Device) Surface() Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}

// Capabilities returns the capability report the device was opened against.
func (d *Device) Capabilities() *caps.Report { return d.caps }

// Buffers returns the buffer manager.
func (d *Device) Buffers() *BufferManager { return d.buffers }

// Swapchain returns the swapchain manager.
func (d *Device) Swapchain() *SwapchainManager { return d.swapchain }

// Passes returns the render pass manager.
func (d *Device) Passes() *RenderPassManager { return d.passes }

// Pipelines returns the pipeline cache.
func (d *Device) Pipelines() *PipelineCache { return d.pipelines }

// Resize forwards a new surface size to the swapchain.
func (d *Device) Resize(width, height int) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.swapchain.RecreateSwapchain(width, height); err != nil {
		return err
	}
	d.mu.Lock()
	d.surface.Width, d.surface.Height = width, height
	d.mu.Unlock()
	return nil
}

// MarkLost records that the platform reported the device as lost.
// Frame operations fail with ErrDeviceLost afterwards.
func (d *Device) MarkLost() {
	if !d.lost.Swap(true) {
		slogger().Warn("render: device lost", "backend", d.backend)
	}
}

// Lost reports whether the device was marked lost.
func (d *Device) Lost() bool { return d.lost.Load() }

// Disposed reports whether Dispose has run.
func (d *Device) Disposed() bool { return d.disposed.Load() }

// check returns ErrDeviceLost or ErrDisposed when the device is unusable.
// Loss wins, since a lost device is also disposed once the loss is handled.
func (d *Device) check() error {
	if d.lost.Load() {
		return ErrDeviceLost
	}
	if d.disposed.Load() {
		return ErrDisposed
	}
	return nil
}

// Ready returns nil if frames may be recorded on the device.
func (d *Device) Ready() error { return d.check() }

// Dispose releases every resource held by the device: an open pass is
// aborted, then pipelines, buffers, and swapchain images are destroyed, and
// finally the device and instance if this Device owns them. A second call
// returns ErrDisposed and releases nothing.
func (d *Device) Dispose() error {
	if d.disposed.Swap(true) {
		return ErrDisposed
	}
	d.passes.Abort()
	d.pipelines.Release()
	n := d.buffers.DestroyAll()
	d.swapchain.Release()
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	slogger().Debug("render: device disposed", "backend", d.backend, "buffers", n, "owned", d.owned)
	return nil
}
