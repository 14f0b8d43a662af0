// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/native"
)

// Color is a linear RGBA clear color.
type Color struct {
	R, G, B, A float64
}

func (c Color) gpu() gputypes.Color {
	return gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Framebuffer is a color attachment a render pass draws into.
type Framebuffer struct {
	view   hal.TextureView
	width  int
	height int
}

// NewFramebuffer wraps a texture view of the given size.
func NewFramebuffer(view hal.TextureView, width, height int) Framebuffer {
	return Framebuffer{view: view, width: width, height: height}
}

// Valid reports whether the framebuffer has a view and a non-empty size.
func (f Framebuffer) Valid() bool {
	return f.view != nil && f.width > 0 && f.height > 0
}

// Size returns the framebuffer size in pixels.
func (f Framebuffer) Size() (width, height int) { return f.width, f.height }

// View returns the underlying texture view.
func (f Framebuffer) View() hal.TextureView { return f.view }

// VertexAttribute describes one attribute of a vertex stream.
type VertexAttribute struct {
	Name     string
	Location uint32
	Offset   uint64
	Format   gputypes.VertexFormat
}

// VertexStream describes the layout of one vertex buffer slot.
type VertexStream struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// UniformBlock describes one uniform buffer binding of a material.
type UniformBlock struct {
	Group   uint32
	Binding uint32
	Size    uint64
}

// MaterialDescriptor is supplied by the material layer. This package turns it
// into a pipeline but never generates shader source.
type MaterialDescriptor struct {
	// Key identifies the shader source and is the pipeline cache key.
	Key string

	// Source is WGSL; Vulkan-class devices compile it to SPIR-V.
	Source string

	// Entry points; default "vs_main" and "fs_main".
	VertexEntry   string
	FragmentEntry string

	// Streams are the vertex buffer layouts, indexed by slot.
	Streams []VertexStream

	Uniforms []UniformBlock

	// RequiredAttributes must be provided by Streams.
	// OptionalAttributes are used when present.
	RequiredAttributes []string
	OptionalAttributes []string

	// Blend enables premultiplied alpha blending.
	Blend bool
}

// Validate checks the descriptor for missing source, attributes, or
// duplicate uniform bindings.
func (m MaterialDescriptor) Validate() error {
	if m.Key == "" {
		return fmt.Errorf("%w: material has no key", ErrConfig)
	}
	if m.Source == "" {
		return fmt.Errorf("%w: material %q has no shader source", ErrConfig, m.Key)
	}
	if len(m.Streams) == 0 {
		return fmt.Errorf("%w: material %q has no vertex streams", ErrConfig, m.Key)
	}
	provided := make(map[string]bool)
	for _, s := range m.Streams {
		for _, a := range s.Attributes {
			provided[a.Name] = true
		}
	}
	for _, name := range m.RequiredAttributes {
		if !provided[name] {
			return fmt.Errorf("%w: material %q requires vertex attribute %q", ErrConfig, m.Key, name)
		}
	}
	seen := make(map[[2]uint32]bool, len(m.Uniforms))
	for _, u := range m.Uniforms {
		k := [2]uint32{u.Group, u.Binding}
		if seen[k] {
			return fmt.Errorf("%w: material %q binds (%d,%d) twice", ErrConfig, m.Key, u.Group, u.Binding)
		}
		seen[k] = true
		if u.Size < MinUniformBufferSize {
			return fmt.Errorf("%w: material %q uniform (%d,%d) size %d", ErrConfig, m.Key, u.Group, u.Binding, u.Size)
		}
	}
	return nil
}

// Pipeline is a compiled material: shader module, layouts, and render
// pipeline. Pipelines are owned by a PipelineCache.
type Pipeline struct {
	key      string
	shader   hal.ShaderModule
	groups   []hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
	uniforms []UniformBlock
	streams  int
	released bool
}

// Key returns the material key the pipeline was built from.
func (p *Pipeline) Key() string { return p.key }

// Valid reports whether the pipeline is usable.
func (p *Pipeline) Valid() bool {
	return p != nil && p.pipeline != nil && !p.released
}

// Streams returns the number of vertex buffer slots the pipeline expects.
func (p *Pipeline) Streams() int { return p.streams }

// Uniforms returns the uniform bindings the pipeline declares.
func (p *Pipeline) Uniforms() []UniformBlock { return slices.Clone(p.uniforms) }

// groupLayout returns the bind group layout for group, or nil.
func (p *Pipeline) groupLayout(group uint32) hal.BindGroupLayout {
	if int(group) >= len(p.groups) {
		return nil
	}
	return p.groups[group]
}

func (p *Pipeline) release(device hal.Device) {
	if p.released {
		return
	}
	p.released = true
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
	}
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
	}
	for _, g := range p.groups {
		if g != nil {
			device.DestroyBindGroupLayout(g)
		}
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
	}
}

// PipelineCache builds pipelines from material descriptors and reuses them
// by material key. Safe for concurrent use.
type PipelineCache struct {
	device hal.Device
	format native.ShaderFormat
	target gputypes.TextureFormat

	mu      sync.Mutex
	entries map[string]*Pipeline
}

// NewPipelineCache returns a cache compiling shaders in the given format for
// color targets of the given texture format.
func NewPipelineCache(device hal.Device, format native.ShaderFormat, target gputypes.TextureFormat) *PipelineCache {
	return &PipelineCache{
		device:  device,
		format:  format,
		target:  target,
		entries: make(map[string]*Pipeline),
	}
}

// Format returns the shader format the cache compiles to.
func (c *PipelineCache) Format() native.ShaderFormat { return c.format }

// Get returns the pipeline for m, building it on first use.
func (c *PipelineCache) Get(m MaterialDescriptor) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.entries[m.Key]; ok && p.Valid() {
		return p, nil
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p, err := c.build(m)
	if err != nil {
		return nil, err
	}
	c.entries[m.Key] = p
	slogger().Debug("render: pipeline built", "material", m.Key, "format", c.format.String())
	return p, nil
}

// Len returns the number of cached pipelines.
func (c *PipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Release destroys every cached pipeline.
func (c *PipelineCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.entries {
		p.release(c.device)
		delete(c.entries, k)
	}
}

func (c *PipelineCache) build(m MaterialDescriptor) (_ *Pipeline, err error) {
	p := &Pipeline{
		key:      m.Key,
		uniforms: slices.Clone(m.Uniforms),
		streams:  len(m.Streams),
	}
	defer func() {
		if err != nil {
			p.release(c.device)
		}
	}()

	p.shader, err = native.CreateShaderModule(c.device, m.Key, m.Source, c.format)
	if err != nil {
		return nil, fmt.Errorf("material %q: %w", m.Key, err)
	}

	p.groups, err = c.createGroupLayouts(m)
	if err != nil {
		return nil, fmt.Errorf("material %q: %w", m.Key, err)
	}

	p.layout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            m.Key + "_layout",
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		return nil, fmt.Errorf("material %q: create pipeline layout: %w", m.Key, err)
	}

	target := gputypes.ColorTargetState{
		Format:    c.target,
		WriteMask: gputypes.ColorWriteMaskAll,
	}
	if m.Blend {
		blend := gputypes.BlendStatePremultiplied()
		target.Blend = &blend
	}

	p.pipeline, err = c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  m.Key + "_pipeline",
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: orDefault(m.VertexEntry, "vs_main"),
			Buffers:    vertexLayouts(m.Streams),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: orDefault(m.FragmentEntry, "fs_main"),
			Targets:    []gputypes.ColorTargetState{target},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("material %q: create render pipeline: %w", m.Key, err)
	}
	return p, nil
}

// createGroupLayouts returns one layout per bind group index up to the
// highest group used. Unused indices get an empty layout.
func (c *PipelineCache) createGroupLayouts(m MaterialDescriptor) ([]hal.BindGroupLayout, error) {
	if len(m.Uniforms) == 0 {
		return nil, nil
	}
	byGroup := make(map[uint32][]UniformBlock)
	var maxGroup uint32
	for _, u := range m.Uniforms {
		byGroup[u.Group] = append(byGroup[u.Group], u)
		maxGroup = max(maxGroup, u.Group)
	}

	layouts := make([]hal.BindGroupLayout, 0, maxGroup+1)
	for g := uint32(0); g <= maxGroup; g++ {
		blocks := byGroup[g]
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].Binding < blocks[j].Binding })
		entries := make([]gputypes.BindGroupLayoutEntry, 0, len(blocks))
		for _, u := range blocks {
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    u.Binding,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			})
		}
		l, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", m.Key, g),
			Entries: entries,
		})
		if err != nil {
			for _, done := range layouts {
				c.device.DestroyBindGroupLayout(done)
			}
			return nil, fmt.Errorf("create bind group layout %d: %w", g, err)
		}
		layouts = append(layouts, l)
	}
	return layouts, nil
}

func vertexLayouts(streams []VertexStream) []gputypes.VertexBufferLayout {
	out := make([]gputypes.VertexBufferLayout, 0, len(streams))
	for _, s := range streams {
		attrs := make([]gputypes.VertexAttribute, 0, len(s.Attributes))
		for _, a := range s.Attributes {
			attrs = append(attrs, gputypes.VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		out = append(out, gputypes.VertexBufferLayout{
			ArrayStride: s.Stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
