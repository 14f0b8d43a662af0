// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package negotiate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/telemetry"
)

// Handle owns an initialized backend device. Frames run through Do, which
// holds the same lock as device-loss recovery, so a reinitialization never
// overlaps a frame in progress.
type Handle struct {
	n       *Negotiator
	backend backend.Backend
	desc    backend.Descriptor
	budget  time.Duration

	mu       sync.Mutex
	surface  render.Surface
	dev      *render.Device
	streak   int // losses since the last successful frame
	fatal    bool
	disposed bool
}

// Descriptor returns the negotiated backend.
func (h *Handle) Descriptor() backend.Descriptor { return h.desc }

// Device returns the current device. It changes after a recovery.
func (h *Handle) Device() *render.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev
}

// Surface returns the surface the device renders to.
func (h *Handle) Surface() render.Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surface
}

// Fatal reports whether device loss made the handle unusable.
func (h *Handle) Fatal() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fatal
}

func (h *Handle) usable() error {
	switch {
	case h.disposed:
		return render.ErrDisposed
	case h.fatal:
		return ErrFatalDeviceLoss
	}
	return nil
}

// Do runs fn with the current device while holding the frame lock.
func (h *Handle) Do(fn func(*render.Device) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.usable(); err != nil {
		return err
	}
	return fn(h.dev)
}

// FrameSucceeded ends a device-loss streak. Call it after a frame was
// presented so the next loss gets its own recovery attempt.
func (h *Handle) FrameSucceeded() {
	h.mu.Lock()
	h.streak = 0
	h.mu.Unlock()
}

// Resize forwards a surface size change to the swapchain.
func (h *Handle) Resize(width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.usable(); err != nil {
		return err
	}
	if err := h.dev.Resize(width, height); err != nil {
		return err
	}
	h.surface.Width, h.surface.Height = width, height
	return nil
}

// DeviceLost handles a platform device-loss signal. It waits for any frame
// in progress, disposes the lost device, and makes exactly one
// reinitialization attempt with the same descriptor and surface. A failed
// attempt, or a loss before any frame succeeded on the recovered device,
// emits DEVICE_LOST and returns ErrFatalDeviceLoss.
//
// Cancellation of ctx is not a failed attempt: the lost device stays
// disposed, the context error is returned, and a later call with a live
// context reinitializes.
func (h *Handle) DeviceLost(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.usable(); err != nil {
		return err
	}

	lost := h.dev
	lost.MarkLost()
	if err := lost.Dispose(); err != nil {
		slogger().Debug("negotiate: dispose lost device", "err", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("negotiate: device loss recorded, reinitialization not attempted: %w", err)
	}
	h.streak++

	if h.streak > 1 {
		return h.fail(fmt.Sprintf("device lost %d times without a successful frame", h.streak), nil)
	}

	slogger().Info("negotiate: reinitializing after device loss", "backend", h.desc.ID)
	dev, elapsed, err := h.n.run(ctx, h.budget, func(ctx context.Context) (*render.Device, error) {
		return h.backend.Recover(ctx, lost, h.surface)
	})
	if err != nil {
		if ctx.Err() != nil {
			h.streak--
			return err
		}
		return h.fail("reinitialization failed: "+err.Error(), err)
	}

	h.dev = dev
	slogger().Info("negotiate: device recovered", "backend", h.desc.ID, "elapsed", elapsed)
	h.n.emit(telemetry.EventRecovered, string(h.desc.ID), dev.Capabilities(),
		&telemetry.Performance{InitMs: elapsed.Milliseconds()}, nil)
	return nil
}

// fail marks the handle fatal. Called with h.mu held.
func (h *Handle) fail(reason string, cause error) error {
	h.fatal = true
	slogger().Warn("negotiate: device loss is fatal", "backend", h.desc.ID, "reason", reason)
	h.n.emit(telemetry.EventDeviceLost, string(h.desc.ID), h.dev.Capabilities(), nil, []string{reason})
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrFatalDeviceLoss, cause)
	}
	return ErrFatalDeviceLoss
}

// Dispose releases the device. A second call returns render.ErrDisposed.
func (h *Handle) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return render.ErrDisposed
	}
	h.disposed = true
	if h.dev == nil || h.dev.Disposed() {
		return nil
	}
	return h.dev.Dispose()
}
