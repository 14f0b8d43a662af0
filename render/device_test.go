// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/internal/native"
)

func noopConfig() OpenConfig {
	return OpenConfig{
		Backend:      "test",
		Provider:     native.Noop(),
		Surface:      testSurface,
		ShaderFormat: native.ShaderFormatWGSL,
		Capabilities: caps.NewReport(caps.Info{DeviceID: "noop"}),
	}
}

func TestOpenDispose(t *testing.T) {
	d, err := Open(context.Background(), noopConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !d.Owned() || d.Backend() != "test" || d.Capabilities().DeviceID() != "noop" {
		t.Errorf("device = owned:%v backend:%q", d.Owned(), d.Backend())
	}
	if _, err := d.Buffers().CreateVertexBuffer(make([]byte, 24)); err != nil {
		t.Fatal(err)
	}
	if err := d.Ready(); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	if err := d.Dispose(); err != nil {
		t.Fatalf("first Dispose: %v", err)
	}
	if d.Buffers().Live() != 0 {
		t.Errorf("Live() after Dispose = %d", d.Buffers().Live())
	}
	if !errors.Is(d.Dispose(), ErrDisposed) {
		t.Error("second Dispose should return ErrDisposed")
	}
	if !errors.Is(d.Ready(), ErrDisposed) {
		t.Error("Ready after Dispose should return ErrDisposed")
	}
}

func TestOpenValidation(t *testing.T) {
	cfg := noopConfig()
	cfg.Provider = nil
	_, err := Open(context.Background(), cfg)
	wantErr(t, err, ErrConfig)

	cfg = noopConfig()
	cfg.Surface = Surface{Width: 10}
	_, err = Open(context.Background(), cfg)
	wantErr(t, err, ErrConfig)
}

func TestOpenCancelReleasesPartialResources(t *testing.T) {
	tests := []struct {
		cancelAt string
		released []string
	}{
		{"instance", nil},
		{"adapter", []string{"instance"}},
		{"device", []string{"instance"}},
		{"swapchain", []string{"device", "instance"}},
		{"ready", []string{"swapchain", "device", "instance"}},
	}
	for _, tt := range tests {
		t.Run(tt.cancelAt, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var released []string
			cfg := noopConfig()
			cfg.onStep = func(step string) {
				if step == tt.cancelAt {
					cancel()
				}
			}
			cfg.onRelease = func(step string) { released = append(released, step) }

			d, err := Open(ctx, cfg)
			if d != nil {
				t.Fatal("Open returned a device after cancellation")
			}
			wantErr(t, err, context.Canceled)
			if !slices.Equal(released, tt.released) {
				t.Errorf("released = %v, want %v", released, tt.released)
			}
		})
	}
}

func TestAdoptKeepsHostDevice(t *testing.T) {
	device, queue := createNoopDevice(t)
	d, err := Adopt(device, queue, noopConfig())
	if err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if d.Owned() {
		t.Error("adopted device must not be owned")
	}
	if _, err := d.Buffers().CreateUniformBuffer(64); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispose(); err != nil {
		t.Fatal(err)
	}

	// The host device is still usable after Dispose.
	bm := NewBufferManager(device, queue)
	h, err := bm.CreateUniformBuffer(64)
	if err != nil {
		t.Fatalf("host device unusable after Dispose: %v", err)
	}
	if err := bm.DestroyBuffer(h); err != nil {
		t.Fatal(err)
	}
}

func TestAdoptNil(t *testing.T) {
	_, err := Adopt(nil, nil, noopConfig())
	wantErr(t, err, ErrInvalidHandle)
}

func TestDeviceLost(t *testing.T) {
	d, err := Open(context.Background(), noopConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Dispose()

	d.MarkLost()
	d.MarkLost()
	if !d.Lost() {
		t.Fatal("Lost() = false after MarkLost")
	}
	wantErr(t, d.Ready(), ErrDeviceLost)
	wantErr(t, d.Resize(10, 10), ErrDeviceLost)
}

func TestDeviceResize(t *testing.T) {
	d, err := Open(context.Background(), noopConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Dispose()

	if err := d.Resize(320, 240); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if s := d.Surface(); s.Width != 320 || s.Height != 240 {
		t.Errorf("Surface() = %dx%d", s.Width, s.Height)
	}
	wantErr(t, d.Resize(0, 240), ErrConfig)
}

func TestDisposeAbortsActivePass(t *testing.T) {
	d, err := Open(context.Background(), noopConfig())
	if err != nil {
		t.Fatal(err)
	}
	img, err := d.Swapchain().AcquireNextImage()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Passes().BeginRenderPass(Color{}, img.Framebuffer); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispose(); err != nil {
		t.Fatal(err)
	}
	if d.Passes().State() != PassInactive {
		t.Error("Dispose should abort the active pass")
	}
}
