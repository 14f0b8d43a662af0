// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
)

// PassState is the state of a RenderPassManager.
type PassState int

const (
	// PassInactive means no render pass is open.
	PassInactive PassState = iota
	// PassActive means a render pass is recording.
	PassActive
)

// String returns the string representation of PassState.
func (s PassState) String() string {
	switch s {
	case PassInactive:
		return "Inactive"
	case PassActive:
		return "Active"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// UniformBinding is one uniform buffer bound at (group, binding).
type UniformBinding struct {
	Group   uint32
	Binding uint32
	Buffer  BufferHandle
}

// Recorder receives the validated command stream of a render pass.
// The HAL recorder encodes it into a command buffer and submits it on End;
// tests substitute a recorder that logs the calls.
type Recorder interface {
	Begin(clear Color, target Framebuffer) error
	SetPipeline(p *Pipeline)
	SetVertexBuffer(slot uint32, buf BufferHandle)
	SetIndexBuffer(buf BufferHandle, format gputypes.IndexFormat)
	SetUniforms(p *Pipeline, group uint32, bindings []UniformBinding) error
	DrawIndexed(indexCount, instanceCount, firstIndex uint32)
	Draw(vertexCount, instanceCount uint32)
	End() error
	Abort()
}

// passState lives for exactly one BeginRenderPass/EndRenderPass pair.
type passState struct {
	clear       Color
	framebuffer Framebuffer
	pipeline    *Pipeline
	vertex      map[uint32]BufferHandle
	index       *BufferHandle
	indexFormat gputypes.IndexFormat
	uniforms    map[[2]uint32]BufferHandle
	dirtyGroups map[uint32]bool
}

// RenderPassManager validates and records one render pass at a time.
//
// State machine:
//
//	Inactive -> BeginRenderPass -> Active -> EndRenderPass -> Inactive
//
// Binds require Active and live buffers of the right usage class. Draws
// additionally require a bound pipeline and vertex buffer, plus an index
// buffer for indexed draws. Every violation returns an error without
// recording anything.
//
// A RenderPassManager belongs to one device and must be driven from one
// goroutine at a time; the mutex only guards State and Abort callers.
type RenderPassManager struct {
	mu    sync.Mutex
	rec   Recorder
	state PassState
	pass  *passState
}

// NewRenderPassManager returns a manager recording into rec.
func NewRenderPassManager(rec Recorder) *RenderPassManager {
	return &RenderPassManager{rec: rec}
}

// State returns the current pass state.
func (m *RenderPassManager) State() PassState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *RenderPassManager) requireActive(op string) error {
	if m.state != PassActive {
		return fmt.Errorf("%s: %w: no active render pass", op, ErrIllegalState)
	}
	return nil
}

// BeginRenderPass opens a pass that clears target to clear.
func (m *RenderPassManager) BeginRenderPass(clear Color, target Framebuffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == PassActive {
		return fmt.Errorf("begin render pass: %w: pass already active", ErrIllegalState)
	}
	if !target.Valid() {
		return fmt.Errorf("begin render pass: %w: framebuffer", ErrInvalidHandle)
	}
	if err := m.rec.Begin(clear, target); err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}
	m.state = PassActive
	m.pass = &passState{
		clear:       clear,
		framebuffer: target,
		vertex:      make(map[uint32]BufferHandle),
		uniforms:    make(map[[2]uint32]BufferHandle),
		dirtyGroups: make(map[uint32]bool),
	}
	return nil
}

// BindPipeline sets the pipeline for subsequent draws. Uniform groups bound
// earlier in the pass are re-applied against the new pipeline's layouts.
func (m *RenderPassManager) BindPipeline(p *Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActive("bind pipeline"); err != nil {
		return err
	}
	if !p.Valid() {
		return fmt.Errorf("bind pipeline: %w: pipeline", ErrInvalidHandle)
	}
	m.rec.SetPipeline(p)
	m.pass.pipeline = p
	for k := range m.pass.uniforms {
		m.pass.dirtyGroups[k[0]] = true
	}
	return nil
}

// BindVertexBuffer binds a vertex buffer to slot.
func (m *RenderPassManager) BindVertexBuffer(buf BufferHandle, slot uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActive("bind vertex buffer"); err != nil {
		return err
	}
	if err := buf.check(BufferUsageVertex); err != nil {
		return fmt.Errorf("bind vertex buffer slot %d: %w", slot, err)
	}
	m.rec.SetVertexBuffer(slot, buf)
	m.pass.vertex[slot] = buf
	return nil
}

// BindIndexBuffer binds an index buffer. indexSizeBytes must be 2 or 4 and
// match the element size the buffer was created with.
func (m *RenderPassManager) BindIndexBuffer(buf BufferHandle, indexSizeBytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActive("bind index buffer"); err != nil {
		return err
	}
	if err := buf.check(BufferUsageIndex); err != nil {
		return fmt.Errorf("bind index buffer: %w", err)
	}
	var format gputypes.IndexFormat
	switch indexSizeBytes {
	case 2:
		format = gputypes.IndexFormatUint16
	case 4:
		format = gputypes.IndexFormatUint32
	default:
		return fmt.Errorf("bind index buffer: %w: index size %d, want 2 or 4", ErrConfig, indexSizeBytes)
	}
	if indexSizeBytes != buf.IndexSize() {
		return fmt.Errorf("bind index buffer: %w: buffer holds %d-byte indices, bound as %d", ErrInvalidBuffer, buf.IndexSize(), indexSizeBytes)
	}
	m.rec.SetIndexBuffer(buf, format)
	m.pass.index = &buf
	m.pass.indexFormat = format
	return nil
}

// BindUniformBuffer binds a uniform buffer at (group, binding). The bind
// group is built lazily at the next draw.
func (m *RenderPassManager) BindUniformBuffer(buf BufferHandle, group, binding uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActive("bind uniform buffer"); err != nil {
		return err
	}
	if err := buf.check(BufferUsageUniform); err != nil {
		return fmt.Errorf("bind uniform buffer (%d,%d): %w", group, binding, err)
	}
	m.pass.uniforms[[2]uint32{group, binding}] = buf
	m.pass.dirtyGroups[group] = true
	return nil
}

// DrawIndexed draws indexCount indices starting at firstIndex.
func (m *RenderPassManager) DrawIndexed(indexCount, firstIndex, instanceCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireDrawable("draw indexed"); err != nil {
		return err
	}
	if m.pass.index == nil {
		return fmt.Errorf("draw indexed: %w: no index buffer bound", ErrIllegalState)
	}
	if !m.pass.index.Valid() {
		return fmt.Errorf("draw indexed: %w: index buffer destroyed while bound", ErrInvalidBuffer)
	}
	if indexCount <= 0 || firstIndex < 0 || instanceCount <= 0 {
		return fmt.Errorf("draw indexed: %w: indexCount=%d firstIndex=%d instanceCount=%d",
			ErrConfig, indexCount, firstIndex, instanceCount)
	}
	if err := checkCounts("draw indexed", indexCount, firstIndex, instanceCount); err != nil {
		return err
	}
	if n := m.pass.index.IndexCount(); indexCount > n || firstIndex > n-indexCount {
		return fmt.Errorf("draw indexed: %w: %d indices from %d exceed %d",
			ErrConfig, indexCount, firstIndex, n)
	}
	if err := m.flushUniforms(); err != nil {
		return fmt.Errorf("draw indexed: %w", err)
	}
	m.rec.DrawIndexed(uint32(indexCount), uint32(instanceCount), uint32(firstIndex))
	return nil
}

// Draw draws vertexCount vertices without an index buffer.
func (m *RenderPassManager) Draw(vertexCount, instanceCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireDrawable("draw"); err != nil {
		return err
	}
	if vertexCount <= 0 || instanceCount <= 0 {
		return fmt.Errorf("draw: %w: vertexCount=%d instanceCount=%d", ErrConfig, vertexCount, instanceCount)
	}
	if err := checkCounts("draw", vertexCount, instanceCount); err != nil {
		return err
	}
	if err := m.flushUniforms(); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	m.rec.Draw(uint32(vertexCount), uint32(instanceCount))
	return nil
}

// checkCounts rejects non-negative draw arguments the GPU cannot encode.
func checkCounts(op string, counts ...int) error {
	for _, c := range counts {
		if uint64(c) > math.MaxUint32 {
			return fmt.Errorf("%s: %w: count %d exceeds 32 bits", op, ErrConfig, c)
		}
	}
	return nil
}

func (m *RenderPassManager) requireDrawable(op string) error {
	if err := m.requireActive(op); err != nil {
		return err
	}
	if m.pass.pipeline == nil {
		return fmt.Errorf("%s: %w: no pipeline bound", op, ErrIllegalState)
	}
	if !m.pass.pipeline.Valid() {
		return fmt.Errorf("%s: %w: pipeline released while bound", op, ErrInvalidHandle)
	}
	if len(m.pass.vertex) == 0 {
		return fmt.Errorf("%s: %w: no vertex buffer bound", op, ErrIllegalState)
	}
	for slot, b := range m.pass.vertex {
		if !b.Valid() {
			return fmt.Errorf("%s: %w: vertex buffer in slot %d destroyed while bound", op, ErrInvalidBuffer, slot)
		}
	}
	return nil
}

// flushUniforms pushes every group changed since the last draw.
func (m *RenderPassManager) flushUniforms() error {
	if len(m.pass.dirtyGroups) == 0 {
		return nil
	}
	groups := make([]uint32, 0, len(m.pass.dirtyGroups))
	for g := range m.pass.dirtyGroups {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	for _, g := range groups {
		var bindings []UniformBinding
		for k, b := range m.pass.uniforms {
			if k[0] != g {
				continue
			}
			if !b.Valid() {
				return fmt.Errorf("%w: uniform buffer (%d,%d) destroyed while bound", ErrInvalidBuffer, k[0], k[1])
			}
			bindings = append(bindings, UniformBinding{Group: k[0], Binding: k[1], Buffer: b})
		}
		slices.SortFunc(bindings, func(a, b UniformBinding) int { return int(a.Binding) - int(b.Binding) })
		if err := m.rec.SetUniforms(m.pass.pipeline, g, bindings); err != nil {
			return err
		}
		delete(m.pass.dirtyGroups, g)
	}
	return nil
}

// EndRenderPass closes the active pass and hands the recording to the
// recorder for submission. The pass state is discarded even when submission
// fails.
func (m *RenderPassManager) EndRenderPass() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActive("end render pass"); err != nil {
		return err
	}
	m.state = PassInactive
	m.pass = nil
	if err := m.rec.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}
	return nil
}

// Abort discards an active pass without submitting it. No-op when inactive.
func (m *RenderPassManager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != PassActive {
		return
	}
	m.rec.Abort()
	m.state = PassInactive
	m.pass = nil
}
