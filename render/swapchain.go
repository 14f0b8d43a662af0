// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultSwapchainImages is the number of images a swapchain rotates through.
const DefaultSwapchainImages = 3

// SwapchainState is the acquire/present state of a swapchain.
type SwapchainState int

const (
	// SwapchainIdle means no image is acquired.
	SwapchainIdle SwapchainState = iota
	// SwapchainAcquired means one image is acquired and not yet presented.
	SwapchainAcquired
)

// String returns the string representation of SwapchainState.
func (s SwapchainState) String() string {
	switch s {
	case SwapchainIdle:
		return "Idle"
	case SwapchainAcquired:
		return "Acquired"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// SwapchainImage is an image handed out by AcquireNextImage.
type SwapchainImage struct {
	Framebuffer Framebuffer
	Index       uint32
	Ready       bool
}

type swapImage struct {
	tex  hal.Texture
	view hal.TextureView
}

// SwapchainManager runs the acquire/present cycle over a fixed ring of
// render-attachment textures.
//
// Indices returned by AcquireNextImage increase by one per acquire and wrap
// at the uint32 range; the ring slot is the index modulo the image count.
// RecreateSwapchain resets the counter to zero.
type SwapchainManager struct {
	device hal.Device
	format gputypes.TextureFormat
	count  int

	mu      sync.Mutex
	state   SwapchainState
	next    uint32
	last    uint32
	images  []swapImage
	width   int
	height  int
	surface [2]int
}

// NewSwapchainManager creates count images sized to s. A count of zero uses
// DefaultSwapchainImages.
func NewSwapchainManager(device hal.Device, s Surface, count int) (*SwapchainManager, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = DefaultSwapchainImages
	}
	m := &SwapchainManager{
		device: device,
		format: s.format(),
		count:  count,
	}
	if err := m.createImages(s.Width, s.Height); err != nil {
		return nil, err
	}
	return m, nil
}

// State returns the current swapchain state.
func (m *SwapchainManager) State() SwapchainState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Size returns the current image size.
func (m *SwapchainManager) Size() (width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

// Format returns the image color format.
func (m *SwapchainManager) Format() gputypes.TextureFormat { return m.format }

// AcquireNextImage acquires the next image. Fails with ErrSwapchain when an
// image is already acquired and with ErrSwapchainOutOfDate when the surface
// was resized since the last recreation.
func (m *SwapchainManager) AcquireNextImage() (SwapchainImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != SwapchainIdle {
		return SwapchainImage{}, fmt.Errorf("%w: image %d acquired and not presented", ErrSwapchain, m.last)
	}
	if len(m.images) == 0 {
		return SwapchainImage{}, fmt.Errorf("%w: swapchain released", ErrSwapchain)
	}
	if m.surface != [2]int{m.width, m.height} {
		return SwapchainImage{}, fmt.Errorf("%w: %w", ErrSwapchain, ErrSwapchainOutOfDate)
	}

	idx := m.next
	m.next++
	m.last = idx
	m.state = SwapchainAcquired

	img := m.images[int(idx%uint32(len(m.images)))]
	return SwapchainImage{
		Framebuffer: NewFramebuffer(img.view, m.width, m.height),
		Index:       idx,
		Ready:       true,
	}, nil
}

// PresentImage presents img, which must be the last acquired image and ready.
func (m *SwapchainManager) PresentImage(img SwapchainImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != SwapchainAcquired {
		return fmt.Errorf("%w: present without acquire", ErrSwapchain)
	}
	if img.Index != m.last {
		return fmt.Errorf("%w: present image %d, last acquired %d", ErrSwapchain, img.Index, m.last)
	}
	if !img.Ready {
		return fmt.Errorf("%w: image %d not ready", ErrSwapchain, img.Index)
	}
	m.state = SwapchainIdle
	return nil
}

// Discard returns an acquired image without presenting it, for frames that
// failed after acquire.
func (m *SwapchainManager) Discard(img SwapchainImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != SwapchainAcquired || img.Index != m.last {
		return fmt.Errorf("%w: discard image %d not acquired", ErrSwapchain, img.Index)
	}
	m.state = SwapchainIdle
	return nil
}

// SurfaceResized records a new surface size reported by the windowing layer.
// Acquires fail with ErrSwapchainOutOfDate until RecreateSwapchain is called.
func (m *SwapchainManager) SurfaceResized(width, height int) {
	m.mu.Lock()
	m.surface = [2]int{width, height}
	m.mu.Unlock()
}

// RecreateSwapchain rebuilds the images at the new size, returns to Idle,
// and resets the index counter to zero. An image acquired before the call
// can no longer be presented.
func (m *SwapchainManager) RecreateSwapchain(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("recreate swapchain: %w: size %dx%d", ErrConfig, width, height)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.destroyImages()
	m.state = SwapchainIdle
	m.next = 0
	m.last = 0
	if err := m.createImagesLocked(width, height); err != nil {
		return fmt.Errorf("recreate swapchain: %w", err)
	}
	slogger().Debug("render: swapchain recreated", "width", width, "height", height, "images", m.count)
	return nil
}

// Release destroys the images. Subsequent acquires fail.
func (m *SwapchainManager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyImages()
	m.state = SwapchainIdle
}

func (m *SwapchainManager) createImages(width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createImagesLocked(width, height)
}

func (m *SwapchainManager) createImagesLocked(width, height int) error {
	images := make([]swapImage, 0, m.count)
	for i := range m.count {
		tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
			Label: fmt.Sprintf("g3d_swapchain_%d", i),
			Size: hal.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        m.format,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			m.images = images
			m.destroyImages()
			return fmt.Errorf("create swapchain image %d: %w", i, err)
		}
		view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label: fmt.Sprintf("g3d_swapchain_view_%d", i),
		})
		if err != nil {
			m.device.DestroyTexture(tex)
			m.images = images
			m.destroyImages()
			return fmt.Errorf("create swapchain view %d: %w", i, err)
		}
		images = append(images, swapImage{tex: tex, view: view})
	}
	m.images = images
	m.width, m.height = width, height
	m.surface = [2]int{width, height}
	return nil
}

// destroyImages releases all images. The caller must hold m.mu.
func (m *SwapchainManager) destroyImages() {
	for _, img := range m.images {
		m.device.DestroyTextureView(img.view)
		m.device.DestroyTexture(img.tex)
	}
	m.images = nil
}
