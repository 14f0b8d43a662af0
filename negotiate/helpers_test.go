// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package negotiate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/backend/vulkan"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/internal/native"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/telemetry"
)

var testSurface = render.Surface{Width: 64, Height: 48}

// fakeBackend opens real devices on the noop HAL and lets tests inject
// delays and failures.
type fakeBackend struct {
	desc   backend.Descriptor
	report *caps.Report
	inner  *vulkan.Backend

	initDelay  time.Duration
	ignoreCtx  bool
	initErr    error
	recoverErr error

	inits    atomic.Int32
	recovers atomic.Int32

	mu   sync.Mutex
	devs []*render.Device
}

func newFake(id backend.ID, features map[caps.FeatureName]bool) *fakeBackend {
	desc, _ := backend.DefaultCatalog().Lookup(id)
	return &fakeBackend{
		desc:   desc,
		report: caps.NewReport(caps.Info{DeviceID: "noop-0", VendorID: 0x10de, Features: features}),
		inner:  vulkan.New(vulkan.WithProvider(native.Noop())),
	}
}

func (b *fakeBackend) Descriptor() backend.Descriptor { return b.desc }
func (b *fakeBackend) Detect() *caps.Report           { return b.report }

func (b *fakeBackend) Initialize(ctx context.Context, s render.Surface) (*render.Device, error) {
	b.inits.Add(1)
	if b.initDelay > 0 {
		if b.ignoreCtx {
			time.Sleep(b.initDelay)
		} else {
			select {
			case <-time.After(b.initDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if b.initErr != nil {
		return nil, b.initErr
	}
	open := ctx
	if b.ignoreCtx {
		open = context.Background()
	}
	d, err := b.inner.Initialize(open, s)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.devs = append(b.devs, d)
	b.mu.Unlock()
	return d, nil
}

func (b *fakeBackend) Recover(ctx context.Context, lost *render.Device, s render.Surface) (*render.Device, error) {
	b.recovers.Add(1)
	if b.recoverErr != nil {
		return nil, b.recoverErr
	}
	return b.Initialize(ctx, s)
}

func (b *fakeBackend) devices() []*render.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*render.Device(nil), b.devs...)
}

// collector records every payload that reaches the sink.
type collector struct {
	mu       sync.Mutex
	payloads []telemetry.Payload
	emitter  *telemetry.Emitter
}

func newCollector(t *testing.T) *collector {
	t.Helper()
	c := &collector{}
	c.emitter = telemetry.NewEmitter(telemetry.SinkFunc(func(_ context.Context, p telemetry.Payload) error {
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.mu.Unlock()
		return nil
	}), telemetry.WithArchive(nil))
	t.Cleanup(c.emitter.Shutdown)
	return c
}

// events waits for in-flight deliveries and returns the delivered payloads.
func (c *collector) events(t *testing.T) []telemetry.Payload {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.emitter.Wait(ctx); err != nil {
		t.Fatalf("telemetry did not drain: %v", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]telemetry.Payload(nil), c.payloads...)
}

func (c *collector) ofType(t *testing.T, typ telemetry.EventType) []telemetry.Payload {
	t.Helper()
	var out []telemetry.Payload
	for _, p := range c.events(t) {
		if p.EventType == typ {
			out = append(out, p)
		}
	}
	return out
}

func bothBackends(webgpuFeatures map[caps.FeatureName]bool) (*fakeBackend, *fakeBackend) {
	return newFake(backend.WebGPU, webgpuFeatures), newFake(backend.Vulkan, webgpuFeatures)
}

func disposeHandle(t *testing.T, h *Handle) {
	t.Helper()
	t.Cleanup(func() { _ = h.Dispose() })
}
