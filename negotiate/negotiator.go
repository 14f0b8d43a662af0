// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package negotiate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/telemetry"
)

// DefaultInitBudget bounds backend initialization when no budget is given.
const DefaultInitBudget = 2 * time.Second

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithCatalog replaces backend.DefaultCatalog.
func WithCatalog(c backend.Catalog) Option {
	return func(n *Negotiator) { n.catalog = c }
}

// WithBackends supplies backend instances directly. Catalog entries without
// an instance are resolved through backend.New.
func WithBackends(bs ...backend.Backend) Option {
	return func(n *Negotiator) {
		for _, b := range bs {
			n.backends[b.Descriptor().ID] = b
		}
	}
}

// WithDetector replaces capability detection. By default the reports of
// every catalog backend are merged.
func WithDetector(d caps.Detector) Option {
	return func(n *Negotiator) { n.detector = d }
}

// WithDisabledFeatures forces features off in every detected report.
func WithDisabledFeatures(fs ...caps.FeatureName) Option {
	return func(n *Negotiator) { n.disabled = append(n.disabled, fs...) }
}

// WithInitBudget sets the budget used by Negotiate and device-loss recovery.
func WithInitBudget(d time.Duration) Option {
	return func(n *Negotiator) {
		if d > 0 {
			n.budget = d
		}
	}
}

// WithEmitter sends telemetry through e. Without it events are discarded.
func WithEmitter(e *telemetry.Emitter) Option {
	return func(n *Negotiator) { n.emitter = e }
}

// WithBuilder replaces the telemetry payload builder.
func WithBuilder(b *telemetry.Builder) Option {
	return func(n *Negotiator) {
		if b != nil {
			n.builder = b
		}
	}
}

// Negotiator selects and initializes backends. Safe for concurrent use.
type Negotiator struct {
	catalog  backend.Catalog
	backends map[backend.ID]backend.Backend
	detector caps.Detector
	disabled []caps.FeatureName
	budget   time.Duration
	emitter  *telemetry.Emitter
	builder  *telemetry.Builder
	now      func() time.Time

	mu     sync.Mutex
	report *caps.Report
}

// New creates a Negotiator.
func New(opts ...Option) *Negotiator {
	n := &Negotiator{
		catalog:  backend.DefaultCatalog(),
		backends: make(map[backend.ID]backend.Backend),
		budget:   DefaultInitBudget,
		builder:  telemetry.NewBuilder(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Catalog returns the catalog in use.
func (n *Negotiator) Catalog() backend.Catalog { return n.catalog }

// Budget returns the initialization budget.
func (n *Negotiator) Budget() time.Duration { return n.budget }

// Backend resolves the backend for id.
func (n *Negotiator) Backend(id backend.ID) (backend.Backend, error) {
	if b, ok := n.backends[id]; ok {
		return b, nil
	}
	return backend.New(id)
}

// Detect queries device capabilities. It never fails; missing information
// is reported as unknown.
func (n *Negotiator) Detect() *caps.Report {
	d := n.detector
	if d == nil {
		d = caps.DetectorFunc(n.detectBackends)
	}
	r := caps.SafeDetect(caps.WithDisabled(d, n.disabled...))
	n.mu.Lock()
	n.report = r
	n.mu.Unlock()
	return r
}

func (n *Negotiator) detectBackends() *caps.Report {
	var reports []*caps.Report
	for _, desc := range n.catalog {
		b, err := n.Backend(desc.ID)
		if err != nil {
			slogger().Debug("negotiate: backend not available for detection", "backend", desc.ID, "err", err)
			continue
		}
		reports = append(reports, caps.SafeDetect(caps.DetectorFunc(b.Detect)))
	}
	if len(reports) == 0 {
		return caps.UnknownReport("no registered backend could report capabilities")
	}
	return caps.Merge(reports...)
}

// lastReport returns the most recent detection, running one if needed.
func (n *Negotiator) lastReport() *caps.Report {
	n.mu.Lock()
	r := n.report
	n.mu.Unlock()
	if r == nil {
		r = n.Detect()
	}
	return r
}

// SelectBackend chooses a descriptor from c for report. A denial emits a
// DENIED event listing every missing required feature.
func (n *Negotiator) SelectBackend(c backend.Catalog, report *caps.Report) backend.Selection {
	sel := backend.Select(c, report)
	if sel.Denied() {
		slogger().Warn("negotiate: no backend qualifies", "reasons", sel.Reasons)
		n.emit(telemetry.EventDenied, "", report, nil, sel.Reasons)
		return sel
	}
	slogger().Info("negotiate: backend selected",
		"backend", sel.Descriptor.ID, "priority", sel.Descriptor.Priority, "optional", sel.OptionalEnabled)
	return sel
}

// InitializeBackend brings up the backend for desc within budget. On
// timeout a PERFORMANCE_DEGRADED event is emitted and ErrInitTimeout
// returned; a device that completes later is disposed. Success emits
// INITIALIZED with the elapsed time.
func (n *Negotiator) InitializeBackend(ctx context.Context, desc backend.Descriptor, surface render.Surface, budget time.Duration) (*Handle, error) {
	if budget <= 0 {
		budget = n.budget
	}
	b, err := n.Backend(desc.ID)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}

	dev, elapsed, err := n.run(ctx, budget, func(ctx context.Context) (*render.Device, error) {
		return b.Initialize(ctx, surface)
	})
	if err != nil {
		if errors.Is(err, ErrInitTimeout) {
			n.emit(telemetry.EventPerformanceDegraded, string(desc.ID), nil,
				&telemetry.Performance{InitMs: elapsed.Milliseconds()},
				[]string{fmt.Sprintf("initialization exceeded budget of %dms", budget.Milliseconds())})
		}
		return nil, err
	}

	slogger().Info("negotiate: backend initialized", "backend", desc.ID, "elapsed", elapsed)
	n.emit(telemetry.EventInitialized, string(desc.ID), dev.Capabilities(),
		&telemetry.Performance{InitMs: elapsed.Milliseconds()}, nil)

	return &Handle{
		n:       n,
		backend: b,
		desc:    desc,
		surface: surface,
		budget:  budget,
		dev:     dev,
	}, nil
}

// Negotiate runs detection, selection, and initialization. A denial returns
// a *DeniedError.
func (n *Negotiator) Negotiate(ctx context.Context, surface render.Surface) (*Handle, error) {
	report := n.Detect()
	sel := n.SelectBackend(n.catalog, report)
	if sel.Denied() {
		return nil, &DeniedError{Selection: sel}
	}
	return n.InitializeBackend(ctx, sel.Descriptor, surface, n.budget)
}

type initFunc func(ctx context.Context) (*render.Device, error)

type initResult struct {
	dev *render.Device
	err error
}

// run calls init under a budget deadline derived from ctx. Results that
// arrive after run returned are disposed in the background.
func (n *Negotiator) run(ctx context.Context, budget time.Duration, init initFunc) (*render.Device, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("negotiate: %w", err)
	}
	ictx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := n.now()
	done := make(chan initResult, 1)
	go func() {
		dev, err := init(ictx)
		done <- initResult{dev, err}
	}()

	select {
	case res := <-done:
		elapsed := n.now().Sub(start)
		if res.err != nil {
			if ctx.Err() == nil && errors.Is(ictx.Err(), context.DeadlineExceeded) {
				return nil, elapsed, fmt.Errorf("%w: %w", ErrInitTimeout, res.err)
			}
			return nil, elapsed, fmt.Errorf("negotiate: initialize: %w", res.err)
		}
		return res.dev, elapsed, nil
	case <-ictx.Done():
		elapsed := n.now().Sub(start)
		go reap(done)
		if err := ctx.Err(); err != nil {
			return nil, elapsed, fmt.Errorf("negotiate: %w", err)
		}
		return nil, elapsed, fmt.Errorf("%w after %v", ErrInitTimeout, budget)
	}
}

// reap disposes a device produced after its caller gave up.
func reap(done <-chan initResult) {
	res := <-done
	if res.dev == nil {
		return
	}
	if err := res.dev.Dispose(); err != nil {
		slogger().Warn("negotiate: dispose late device", "err", err)
		return
	}
	slogger().Debug("negotiate: late device disposed", "backend", res.dev.Backend())
}

func (n *Negotiator) emit(t telemetry.EventType, backendID string, report *caps.Report, perf *telemetry.Performance, limitations []string) {
	if n.emitter == nil {
		return
	}
	if report == nil {
		report = n.lastReport()
	}
	n.emitter.EnqueueAndTransmit(n.builder.BuildEvent(t, backendID, report, perf, limitations))
}

// Emit sends an event through the configured emitter. A nil report uses
// the most recent detection.
func (n *Negotiator) Emit(t telemetry.EventType, backendID string, report *caps.Report, perf *telemetry.Performance, limitations []string) {
	n.emit(t, backendID, report, perf, limitations)
}
