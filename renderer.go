// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/negotiate"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/telemetry"
)

// ErrClosed is returned by Renderer methods after Dispose.
var ErrClosed = errors.New("g3d: renderer disposed")

// ownedDrainTimeout bounds how long Dispose waits for telemetry from an
// emitter the renderer created.
const ownedDrainTimeout = time.Second

type gpuGeometry struct {
	vertex  render.BufferHandle
	index   render.BufferHandle
	indexed bool
	size    int // index size in bytes
	count   int
}

// uniformKey is a draw position and uniform block within a frame.
type uniformKey struct {
	draw  int
	block int
}

// Renderer draws scenes on a negotiated backend.
//
// Geometry is uploaded on first use and cached per GeometryBuffer until
// ReleaseGeometry or a device change. Render, Resize, and DeviceLost may be
// called from different goroutines; frames and device-loss recovery never
// overlap.
type Renderer struct {
	n          *negotiate.Negotiator
	h          *negotiate.Handle
	emitter    *telemetry.Emitter
	ownEmitter bool
	clear      Color
	now        func() time.Time
	stats      *frameStats

	mu       sync.Mutex
	dev      *render.Device
	geometry map[*GeometryBuffer]*gpuGeometry
	uniforms map[uniformKey]render.BufferHandle
	closed   bool
}

// NewRenderer negotiates a backend for surface and returns a renderer
// bound to it. A denied negotiation returns *negotiate.DeniedError.
func NewRenderer(ctx context.Context, surface Surface, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		clear:    o.clear,
		now:      o.now,
		stats:    newFrameStats(o.window, o.minFPS),
		geometry: make(map[*GeometryBuffer]*gpuGeometry),
		uniforms: make(map[uniformKey]render.BufferHandle),
	}

	r.emitter = o.emitter
	if r.emitter == nil && !o.silent {
		sink := o.sink
		if sink == nil {
			sink = telemetry.LogSink{Level: slog.LevelInfo}
		}
		var eopts []telemetry.EmitterOption
		if o.archive != nil {
			eopts = append(eopts, telemetry.WithArchive(o.archive))
		}
		r.emitter = telemetry.NewEmitter(sink, eopts...)
		r.ownEmitter = true
	}

	var nopts []negotiate.Option
	if r.emitter != nil {
		nopts = append(nopts, negotiate.WithEmitter(r.emitter))
	}
	nopts = append(nopts, o.negotiate...)
	r.n = negotiate.New(nopts...)

	h, err := r.n.Negotiate(ctx, surface)
	if err != nil {
		r.closeEmitter()
		return nil, err
	}
	r.h = h
	slogger().Info("g3d: renderer ready", "backend", h.Descriptor().ID,
		"width", surface.Width, "height", surface.Height)
	return r, nil
}

// Backend returns the negotiated backend.
func (r *Renderer) Backend() backend.Descriptor { return r.h.Descriptor() }

// Device returns the current device. It changes after device-loss recovery.
func (r *Renderer) Device() *render.Device { return r.h.Device() }

// Capabilities returns the capability report of the current device.
func (r *Renderer) Capabilities() *caps.Report { return r.h.Device().Capabilities() }

// Stats returns frame timing over the recent window.
func (r *Renderer) Stats() FrameStats { return r.stats.snapshot() }

// Emitter returns the telemetry emitter events are sent through, or nil
// when telemetry is disabled.
func (r *Renderer) Emitter() *telemetry.Emitter { return r.emitter }

// Render draws one frame of scene seen through camera and presents it.
//
// A failed frame is aborted and its swapchain image discarded; the next
// call starts clean. After device loss Render returns render.ErrDeviceLost
// until DeviceLost has run.
func (r *Renderer) Render(scene Scene, camera Camera) error {
	if r.isClosed() {
		return ErrClosed
	}
	err := r.h.Do(func(dev *render.Device) error {
		if err := dev.Ready(); err != nil {
			return err
		}
		r.bind(dev)
		return r.frame(dev, scene, camera)
	})
	if err != nil {
		return err
	}

	r.h.FrameSucceeded()
	st, degraded := r.stats.record(r.now())
	if degraded {
		slogger().Warn("g3d: frame rate below minimum", "avg_fps", st.AvgFPS, "min_fps", st.MinFPS)
		r.n.Emit(telemetry.EventPerformanceDegraded, string(r.h.Descriptor().ID), nil,
			&telemetry.Performance{AvgFPS: st.AvgFPS, MinFPS: st.MinFPS},
			[]string{fmt.Sprintf("average frame rate %.1f below %.1f", st.AvgFPS, r.stats.minFPS)})
	}
	return nil
}

// bind drops cached resources that belong to a previous device.
func (r *Renderer) bind(dev *render.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dev == dev {
		return
	}
	if r.dev != nil {
		slogger().Debug("g3d: device changed, dropping cached resources",
			"geometry", len(r.geometry), "uniforms", len(r.uniforms))
		r.stats.reset()
	}
	r.dev = dev
	clear(r.geometry)
	clear(r.uniforms)
}

func (r *Renderer) frame(dev *render.Device, scene Scene, camera Camera) (err error) {
	sc := dev.Swapchain()
	img, err := sc.AcquireNextImage()
	if errors.Is(err, render.ErrSwapchainOutOfDate) {
		s := dev.Surface()
		if err = sc.RecreateSwapchain(s.Width, s.Height); err != nil {
			return err
		}
		img, err = sc.AcquireNextImage()
	}
	if err != nil {
		return err
	}

	passes := dev.Passes()
	defer func() {
		if err == nil {
			return
		}
		passes.Abort()
		if derr := sc.Discard(img); derr != nil {
			slogger().Debug("g3d: discard image", "err", derr)
		}
	}()

	if err = passes.BeginRenderPass(r.clear, img.Framebuffer); err != nil {
		return err
	}

	viewProj := camera.Projection().Mul(camera.View())
	draw := 0
	for obj := range scene.Objects() {
		if err = r.draw(dev, draw, obj, viewProj); err != nil {
			return fmt.Errorf("draw %d: %w", draw, err)
		}
		draw++
	}

	if err = passes.EndRenderPass(); err != nil {
		return err
	}
	return sc.PresentImage(img)
}

func (r *Renderer) draw(dev *render.Device, idx int, obj Object, viewProj Mat4) error {
	if obj.Geometry == nil || obj.Material == nil {
		return fmt.Errorf("%w: object needs geometry and material", render.ErrConfig)
	}
	if err := obj.Geometry.Validate(obj.Material); err != nil {
		return err
	}
	p, err := dev.Pipelines().Get(*obj.Material)
	if err != nil {
		return err
	}
	g, err := r.upload(dev, obj.Geometry)
	if err != nil {
		return err
	}

	passes := dev.Passes()
	if err := passes.BindPipeline(p); err != nil {
		return err
	}
	if err := passes.BindVertexBuffer(g.vertex, 0); err != nil {
		return err
	}

	mvp := viewProj.Mul(obj.transform())
	for i, block := range obj.Material.Uniforms {
		buf, err := r.uniform(dev, uniformKey{draw: idx, block: i}, int(block.Size))
		if err != nil {
			return err
		}
		if i == 0 {
			data := mvp.AppendBytes(make([]byte, 0, int(block.Size)))
			data = append(data, obj.Params...)
			if len(data) > int(block.Size) {
				return fmt.Errorf("%w: %d bytes of params exceed uniform block of %d bytes",
					render.ErrConfig, len(obj.Params), block.Size)
			}
			if err := dev.Buffers().UpdateUniformBuffer(buf, data, 0); err != nil {
				return err
			}
		}
		if err := passes.BindUniformBuffer(buf, block.Group, block.Binding); err != nil {
			return err
		}
	}

	if g.indexed {
		if err := passes.BindIndexBuffer(g.index, g.size); err != nil {
			return err
		}
		return passes.DrawIndexed(g.count, 0, 1)
	}
	return passes.Draw(g.count, 1)
}

func (r *Renderer) upload(dev *render.Device, geo *GeometryBuffer) (*gpuGeometry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.geometry[geo]; ok {
		return g, nil
	}

	bufs := dev.Buffers()
	vb, err := bufs.CreateVertexBuffer(geo.Vertices)
	if err != nil {
		return nil, err
	}
	g := &gpuGeometry{vertex: vb, count: geo.VertexCount()}

	var ib render.BufferHandle
	switch {
	case len(geo.Indices16) > 0:
		ib, err = bufs.CreateIndexBuffer16(geo.Indices16)
	case len(geo.Indices) > 0:
		ib, err = bufs.CreateIndexBuffer(geo.Indices)
	}
	if err != nil {
		_ = bufs.DestroyBuffer(vb)
		return nil, err
	}
	if ib.Valid() {
		g.index, g.indexed = ib, true
		g.size, g.count = ib.IndexSize(), ib.IndexCount()
	}
	r.geometry[geo] = g
	return g, nil
}

func (r *Renderer) uniform(dev *render.Device, k uniformKey, size int) (render.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.uniforms[k]; ok && b.Valid() && b.Size() >= size {
		return b, nil
	} else if ok && b.Valid() {
		_ = dev.Buffers().DestroyBuffer(b)
	}
	b, err := dev.Buffers().CreateUniformBuffer(size)
	if err != nil {
		return render.BufferHandle{}, err
	}
	r.uniforms[k] = b
	return b, nil
}

// ReleaseGeometry frees the GPU copy of geo. The next frame that draws it
// uploads it again.
func (r *Renderer) ReleaseGeometry(geo *GeometryBuffer) {
	r.mu.Lock()
	g, ok := r.geometry[geo]
	delete(r.geometry, geo)
	dev := r.dev
	r.mu.Unlock()
	if !ok || dev == nil || dev.Disposed() {
		return
	}
	_ = dev.Buffers().DestroyBuffer(g.vertex)
	if g.indexed {
		_ = dev.Buffers().DestroyBuffer(g.index)
	}
}

// Resize recreates the swapchain for a new surface size.
func (r *Renderer) Resize(width, height int) error {
	if r.isClosed() {
		return ErrClosed
	}
	return r.h.Resize(width, height)
}

// DeviceLost reports a platform device-loss signal. One reinitialization
// is attempted per loss; a second loss before any frame succeeded, or a
// failed reinitialization, returns negotiate.ErrFatalDeviceLoss and the
// renderer is unusable afterwards. A cancelled ctx returns its error and
// leaves recovery to a later call.
func (r *Renderer) DeviceLost(ctx context.Context) error {
	if r.isClosed() {
		return ErrClosed
	}
	return r.h.DeviceLost(ctx)
}

// Dispose releases the device. Telemetry from an emitter the renderer
// created is given a short grace period to drain. A second call returns
// ErrClosed.
func (r *Renderer) Dispose() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	clear(r.geometry)
	clear(r.uniforms)
	r.dev = nil
	r.mu.Unlock()

	err := r.h.Dispose()
	r.closeEmitter()
	return err
}

func (r *Renderer) closeEmitter() {
	if !r.ownEmitter {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ownedDrainTimeout)
	defer cancel()
	if err := r.emitter.Wait(ctx); err != nil {
		slogger().Debug("g3d: telemetry still pending at dispose", "pending", len(r.emitter.PendingEvents()))
	}
	r.emitter.Shutdown()
}

func (r *Renderer) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
