// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// MinUniformBufferSize is the smallest uniform buffer accepted: one 4x4
// float32 matrix.
const MinUniformBufferSize = 64

// uniformOffsetAlignment is the alignment required for uniform updates.
const uniformOffsetAlignment = 16

// BufferUsage is the usage class of a buffer handle.
type BufferUsage uint8

const (
	// BufferUsageVertex marks a vertex stream.
	BufferUsageVertex BufferUsage = iota + 1
	// BufferUsageIndex marks triangle-list index data.
	BufferUsageIndex
	// BufferUsageUniform marks a uniform block.
	BufferUsageUniform
)

// String returns the string representation of BufferUsage.
func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "VERTEX"
	case BufferUsageIndex:
		return "INDEX"
	case BufferUsageUniform:
		return "UNIFORM"
	default:
		return fmt.Sprintf("Unknown(%d)", int(u))
	}
}

func (u BufferUsage) gpu() gputypes.BufferUsage {
	switch u {
	case BufferUsageVertex:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	case BufferUsageIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	}
}

// bufferState is shared by every copy of a BufferHandle.
type bufferState struct {
	id        uint64
	destroyed atomic.Bool
}

// BufferHandle refers to a GPU buffer created by a BufferManager.
//
// BufferHandle is a plain value and may be copied freely. All copies share
// one destroyed flag, so a buffer is released at most once no matter which
// copy is passed to DestroyBuffer.
type BufferHandle struct {
	buf   hal.Buffer
	size  int
	usage BufferUsage

	// Index buffers only.
	indexFormat gputypes.IndexFormat
	indexCount  int

	state *bufferState
}

// Size returns the buffer size in bytes as requested at creation.
func (h BufferHandle) Size() int { return h.size }

// Usage returns the usage class of the buffer.
func (h BufferHandle) Usage() BufferUsage { return h.usage }

// IndexCount returns the number of indices for index buffers, zero otherwise.
func (h BufferHandle) IndexCount() int { return h.indexCount }

// IndexSize returns the size of one index in bytes, zero for non-index buffers.
func (h BufferHandle) IndexSize() int {
	if h.usage != BufferUsageIndex {
		return 0
	}
	if h.indexFormat == gputypes.IndexFormatUint16 {
		return 2
	}
	return 4
}

// Valid reports whether the handle refers to a live buffer.
func (h BufferHandle) Valid() bool {
	return h.buf != nil && h.size > 0 && h.state != nil && !h.state.destroyed.Load()
}

// Destroyed reports whether the buffer has been destroyed.
func (h BufferHandle) Destroyed() bool {
	return h.state != nil && h.state.destroyed.Load()
}

// HAL returns the underlying buffer.
func (h BufferHandle) HAL() hal.Buffer { return h.buf }

func (h BufferHandle) check(want BufferUsage) error {
	if !h.Valid() {
		return fmt.Errorf("%w: handle is destroyed or empty", ErrInvalidBuffer)
	}
	if h.usage != want {
		return fmt.Errorf("%w: usage %s, want %s", ErrInvalidBuffer, h.usage, want)
	}
	return nil
}

// BufferManager creates, updates, and destroys vertex, index, and uniform
// buffers on one device. It tracks live buffers so they can all be released
// when the device goes away.
//
// BufferManager is safe for concurrent use.
type BufferManager struct {
	device hal.Device
	queue  hal.Queue

	mu     sync.Mutex
	live   map[uint64]BufferHandle
	nextID uint64
}

// NewBufferManager returns a manager allocating on device and uploading
// through queue.
func NewBufferManager(device hal.Device, queue hal.Queue) *BufferManager {
	return &BufferManager{
		device: device,
		queue:  queue,
		live:   make(map[uint64]BufferHandle),
	}
}

// CreateVertexBuffer uploads data into a new vertex buffer.
func (m *BufferManager) CreateVertexBuffer(data []byte) (BufferHandle, error) {
	if len(data) == 0 {
		return BufferHandle{}, fmt.Errorf("%w: vertex data is empty", ErrConfig)
	}
	h, err := m.create("g3d_vertex", BufferUsageVertex, len(data), align(len(data), 4))
	if err != nil {
		return BufferHandle{}, err
	}
	return m.fill(h, data)
}

// CreateIndexBuffer uploads 32-bit triangle-list indices. The index count
// must be a non-zero multiple of three.
func (m *BufferManager) CreateIndexBuffer(indices []uint32) (BufferHandle, error) {
	if err := checkTriangleList(len(indices)); err != nil {
		return BufferHandle{}, err
	}
	raw := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(raw[i*4:], v)
	}
	return m.createIndex(raw, len(indices), gputypes.IndexFormatUint32)
}

// CreateIndexBuffer16 is like CreateIndexBuffer for 16-bit indices.
func (m *BufferManager) CreateIndexBuffer16(indices []uint16) (BufferHandle, error) {
	if err := checkTriangleList(len(indices)); err != nil {
		return BufferHandle{}, err
	}
	raw := make([]byte, len(indices)*2)
	for i, v := range indices {
		binary.LittleEndian.PutUint16(raw[i*2:], v)
	}
	return m.createIndex(raw, len(indices), gputypes.IndexFormatUint16)
}

func checkTriangleList(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: index data is empty", ErrConfig)
	}
	if n%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a triangle list", ErrConfig, n)
	}
	return nil
}

func (m *BufferManager) createIndex(raw []byte, count int, format gputypes.IndexFormat) (BufferHandle, error) {
	h, err := m.create("g3d_index", BufferUsageIndex, len(raw), align(len(raw), 4))
	if err != nil {
		return BufferHandle{}, err
	}
	h.indexFormat = format
	h.indexCount = count
	m.mu.Lock()
	m.live[h.state.id] = h
	m.mu.Unlock()
	return m.fill(h, raw)
}

// fill writes the initial contents of a new buffer, releasing it if the
// upload fails.
func (m *BufferManager) fill(h BufferHandle, data []byte) (BufferHandle, error) {
	if err := m.queue.WriteBuffer(h.buf, 0, padTo(data, 4)); err != nil {
		_ = m.DestroyBuffer(h)
		return BufferHandle{}, fmt.Errorf("upload %s buffer: %w", h.usage, err)
	}
	return h, nil
}

// CreateUniformBuffer allocates a zeroed uniform buffer of size bytes.
// size must be at least MinUniformBufferSize.
func (m *BufferManager) CreateUniformBuffer(size int) (BufferHandle, error) {
	if size < MinUniformBufferSize {
		return BufferHandle{}, fmt.Errorf("%w: uniform buffer size %d, minimum %d", ErrConfig, size, MinUniformBufferSize)
	}
	return m.create("g3d_uniform", BufferUsageUniform, size, align(size, uniformOffsetAlignment))
}

// UpdateUniformBuffer writes data into h at offset. The offset must be
// 16-byte aligned and the write must fit inside the buffer.
func (m *BufferManager) UpdateUniformBuffer(h BufferHandle, data []byte, offset int) error {
	if err := h.check(BufferUsageUniform); err != nil {
		return fmt.Errorf("update uniform buffer: %w", err)
	}
	if offset < 0 || offset%uniformOffsetAlignment != 0 {
		return fmt.Errorf("%w: uniform offset %d is not %d-byte aligned", ErrConfig, offset, uniformOffsetAlignment)
	}
	if offset > h.size || len(data) > h.size-offset {
		return fmt.Errorf("%w: write of %d bytes at offset %d exceeds buffer size %d", ErrConfig, len(data), offset, h.size)
	}
	if len(data) == 0 {
		return nil
	}
	// Allocation is 16-byte aligned, so the 4-byte padded write always fits.
	if err := m.queue.WriteBuffer(h.buf, uint64(offset), padTo(data, 4)); err != nil {
		return fmt.Errorf("update uniform buffer: %w", err)
	}
	return nil
}

// DestroyBuffer releases the buffer behind h. Destroying a handle twice,
// through any copy, returns ErrInvalidBuffer and releases nothing.
func (m *BufferManager) DestroyBuffer(h BufferHandle) error {
	if h.state == nil || h.buf == nil {
		return fmt.Errorf("destroy buffer: %w: empty handle", ErrInvalidBuffer)
	}
	if !h.state.destroyed.CompareAndSwap(false, true) {
		return fmt.Errorf("destroy buffer: %w: already destroyed", ErrInvalidBuffer)
	}
	m.mu.Lock()
	delete(m.live, h.state.id)
	m.mu.Unlock()
	m.device.DestroyBuffer(h.buf)
	return nil
}

// DestroyAll releases every live buffer and returns how many were released.
func (m *BufferManager) DestroyAll() int {
	m.mu.Lock()
	handles := make([]BufferHandle, 0, len(m.live))
	for _, h := range m.live {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	n := 0
	for _, h := range handles {
		if m.DestroyBuffer(h) == nil {
			n++
		}
	}
	if n > 0 {
		slogger().Debug("render: released buffers", "count", n)
	}
	return n
}

// Live returns the number of buffers not yet destroyed.
func (m *BufferManager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

func (m *BufferManager) create(label string, usage BufferUsage, size, allocSize int) (BufferHandle, error) {
	buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(allocSize),
		Usage: usage.gpu(),
	})
	if err != nil {
		return BufferHandle{}, fmt.Errorf("create %s buffer (%d bytes): %w", usage, size, err)
	}

	m.mu.Lock()
	m.nextID++
	h := BufferHandle{
		buf:   buf,
		size:  size,
		usage: usage,
		state: &bufferState{id: m.nextID},
	}
	m.live[h.state.id] = h
	m.mu.Unlock()

	slogger().Debug("render: buffer created", "usage", usage.String(), "size", size)
	return h, nil
}

func align(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}

// padTo returns data extended with zeros to a multiple of to bytes.
func padTo(data []byte, to int) []byte {
	n := align(len(data), to)
	if n == len(data) {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}
