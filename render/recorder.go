// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const (
	// submitTimeout bounds the wait for a submitted pass to finish on the GPU.
	submitTimeout = 5 * time.Second

	submitPollInterval = 100 * time.Microsecond
)

var errGPUTimeout = errors.New("render: timed out waiting for GPU")

// halRecorder encodes a render pass into a HAL command buffer and submits
// it when the pass ends.
type halRecorder struct {
	device hal.Device
	queue  hal.Queue

	timeout time.Duration

	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	groups  []hal.BindGroup
}

func newHALRecorder(device hal.Device, queue hal.Queue) *halRecorder {
	return &halRecorder{device: device, queue: queue, timeout: submitTimeout}
}

func (r *halRecorder) Begin(clear Color, target Framebuffer) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "g3d_frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("g3d_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	r.encoder = encoder
	r.pass = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "g3d_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear.gpu(),
		}},
	})
	return nil
}

func (r *halRecorder) SetPipeline(p *Pipeline) {
	r.pass.SetPipeline(p.pipeline)
}

func (r *halRecorder) SetVertexBuffer(slot uint32, buf BufferHandle) {
	r.pass.SetVertexBuffer(slot, buf.buf, 0)
}

func (r *halRecorder) SetIndexBuffer(buf BufferHandle, format gputypes.IndexFormat) {
	r.pass.SetIndexBuffer(buf.buf, format, 0)
}

func (r *halRecorder) SetUniforms(p *Pipeline, group uint32, bindings []UniformBinding) error {
	layout := p.groupLayout(group)
	if layout == nil {
		return fmt.Errorf("%w: pipeline %q has no bind group %d", ErrConfig, p.key, group)
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(bindings))
	for _, b := range bindings {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: b.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: b.Buffer.buf.NativeHandle(),
				Offset: 0,
				Size:   uint64(b.Buffer.size),
			},
		})
	}
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s_group%d", p.key, group),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group %d: %w", group, err)
	}
	r.groups = append(r.groups, bg)
	r.pass.SetBindGroup(group, bg, nil)
	return nil
}

func (r *halRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32) {
	r.pass.DrawIndexed(indexCount, instanceCount, firstIndex, 0, 0)
}

func (r *halRecorder) Draw(vertexCount, instanceCount uint32) {
	r.pass.Draw(vertexCount, instanceCount, 0, 0)
}

// End finishes encoding, submits, and waits for the GPU with a bounded
// timeout. Per-pass bind groups are released afterwards.
func (r *halRecorder) End() error {
	defer r.reset()

	r.pass.End()
	cmdBuf, err := r.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	idx, err := r.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return r.waitSubmission(idx)
}

// waitSubmission polls the queue until submission idx has completed or
// the recorder timeout expires.
func (r *halRecorder) waitSubmission(idx uint64) error {
	deadline := time.Now().Add(r.timeout)
	for r.queue.PollCompleted() < idx {
		if !time.Now().Before(deadline) {
			return errGPUTimeout
		}
		time.Sleep(submitPollInterval)
	}
	return nil
}

func (r *halRecorder) Abort() {
	if r.pass != nil {
		r.pass.End()
	}
	if r.encoder != nil {
		r.encoder.DiscardEncoding()
	}
	r.reset()
}

func (r *halRecorder) reset() {
	for _, bg := range r.groups {
		r.device.DestroyBindGroup(bg)
	}
	r.groups = r.groups[:0]
	r.pass = nil
	r.encoder = nil
}
