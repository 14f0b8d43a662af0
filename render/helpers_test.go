// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/g3d/internal/native"
)

// createNoopDevice creates a noop HAL device for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

const testShader = `
struct Uniforms {
    mvp: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;

@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return u.mvp * vec4<f32>(position, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.0, 1.0);
}
`

func testMaterial() MaterialDescriptor {
	return MaterialDescriptor{
		Key:    "unlit",
		Source: testShader,
		Streams: []VertexStream{{
			Stride: 8,
			Attributes: []VertexAttribute{
				{Name: "position", Location: 0, Offset: 0, Format: gputypes.VertexFormatFloat32x2},
			},
		}},
		Uniforms:           []UniformBlock{{Group: 0, Binding: 0, Size: 64}},
		RequiredAttributes: []string{"position"},
		OptionalAttributes: []string{"normal"},
	}
}

var testSurface = Surface{Width: 64, Height: 48}

// fixture bundles the managers a frame needs on a noop device.
type fixture struct {
	device    hal.Device
	queue     hal.Queue
	buffers   *BufferManager
	swapchain *SwapchainManager
	pipelines *PipelineCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	device, queue := createNoopDevice(t)
	sc, err := NewSwapchainManager(device, testSurface, 0)
	if err != nil {
		t.Fatalf("NewSwapchainManager: %v", err)
	}
	f := &fixture{
		device:    device,
		queue:     queue,
		buffers:   NewBufferManager(device, queue),
		swapchain: sc,
		pipelines: NewPipelineCache(device, native.ShaderFormatWGSL, sc.Format()),
	}
	t.Cleanup(func() {
		f.pipelines.Release()
		f.buffers.DestroyAll()
		f.swapchain.Release()
	})
	return f
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := f.pipelines.Get(testMaterial())
	if err != nil {
		t.Fatalf("Get pipeline: %v", err)
	}
	return p
}

func (f *fixture) triangle(t *testing.T) (vertices, indices, uniforms BufferHandle) {
	t.Helper()
	var err error
	vertices, err = f.buffers.CreateVertexBuffer(make([]byte, 3*8))
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	indices, err = f.buffers.CreateIndexBuffer([]uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("CreateIndexBuffer: %v", err)
	}
	uniforms, err = f.buffers.CreateUniformBuffer(64)
	if err != nil {
		t.Fatalf("CreateUniformBuffer: %v", err)
	}
	return vertices, indices, uniforms
}

func (f *fixture) framebuffer(t *testing.T) (SwapchainImage, Framebuffer) {
	t.Helper()
	img, err := f.swapchain.AcquireNextImage()
	if err != nil {
		t.Fatalf("AcquireNextImage: %v", err)
	}
	return img, img.Framebuffer
}

// fakeRecorder logs the command stream it receives.
type fakeRecorder struct {
	calls    []string
	beginErr error
	endErr   error
}

func (r *fakeRecorder) log(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *fakeRecorder) Begin(clear Color, _ Framebuffer) error {
	if r.beginErr != nil {
		return r.beginErr
	}
	r.log("begin %.1f,%.1f,%.1f,%.1f", clear.R, clear.G, clear.B, clear.A)
	return nil
}

func (r *fakeRecorder) SetPipeline(p *Pipeline) { r.log("pipeline %s", p.Key()) }

func (r *fakeRecorder) SetVertexBuffer(slot uint32, buf BufferHandle) {
	r.log("vertex %d size=%d", slot, buf.Size())
}

func (r *fakeRecorder) SetIndexBuffer(buf BufferHandle, format gputypes.IndexFormat) {
	r.log("index count=%d size=%d", buf.IndexCount(), buf.IndexSize())
}

func (r *fakeRecorder) SetUniforms(_ *Pipeline, group uint32, bindings []UniformBinding) error {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = fmt.Sprint(b.Binding)
	}
	r.log("uniforms %d [%s]", group, strings.Join(parts, ","))
	return nil
}

func (r *fakeRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32) {
	r.log("drawIndexed %d %d %d", indexCount, instanceCount, firstIndex)
}

func (r *fakeRecorder) Draw(vertexCount, instanceCount uint32) {
	r.log("draw %d %d", vertexCount, instanceCount)
}

func (r *fakeRecorder) End() error {
	r.log("end")
	return r.endErr
}

func (r *fakeRecorder) Abort() { r.log("abort") }

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
