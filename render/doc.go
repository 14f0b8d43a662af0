// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render owns the GPU resources of one backend device: buffers,
// swapchain images, pipelines, and the render pass recorded each frame.
//
// A [Device] is created by [Open], which acquires an instance, adapter, and
// device from a HAL provider, or by [Adopt], which wraps a device owned by a
// host application. The device carries four managers:
//
//   - [BufferManager]: vertex, index, and uniform buffers with
//     at-most-once destruction
//   - [SwapchainManager]: the Idle/Acquired acquire-present cycle
//   - [RenderPassManager]: the Inactive/Active bind and draw state machine
//   - [PipelineCache]: pipelines built from material descriptors
//
// # Frame
//
//	img, err := dev.Swapchain().AcquireNextImage()
//	passes := dev.Passes()
//	passes.BeginRenderPass(render.Color{A: 1}, img.Framebuffer)
//	passes.BindPipeline(pipeline)
//	passes.BindVertexBuffer(vertices, 0)
//	passes.BindIndexBuffer(indices, 4)
//	passes.DrawIndexed(indices.IndexCount(), 0, 1)
//	passes.EndRenderPass()
//	dev.Swapchain().PresentImage(img)
//
// Rendering errors are returned immediately and wrap one of the package
// sentinel errors. A Device must be driven from one goroutine at a time.
package render
