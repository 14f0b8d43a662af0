// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"time"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/negotiate"
	"github.com/gogpu/g3d/telemetry"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := g3d.NewRenderer(ctx, g3d.Surface{Width: 1280, Height: 720},
//	    g3d.WithInitBudget(time.Second),
//	    g3d.WithSink(httpSink),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	negotiate []negotiate.Option
	emitter   *telemetry.Emitter
	sink      telemetry.Sink
	silent    bool
	archive   *telemetry.Archive
	minFPS    float64
	window    int
	clear     Color
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		window: defaultStatsWindow,
		clear:  Color{A: 1},
		now:    time.Now,
	}
}

// WithInitBudget bounds backend initialization and device-loss recovery.
func WithInitBudget(d time.Duration) Option {
	return func(o *options) { o.negotiate = append(o.negotiate, negotiate.WithInitBudget(d)) }
}

// WithCatalog replaces the default backend catalog.
func WithCatalog(c backend.Catalog) Option {
	return func(o *options) { o.negotiate = append(o.negotiate, negotiate.WithCatalog(c)) }
}

// WithBackends supplies backend instances instead of the registry.
func WithBackends(bs ...backend.Backend) Option {
	return func(o *options) { o.negotiate = append(o.negotiate, negotiate.WithBackends(bs...)) }
}

// WithDetector replaces capability detection.
func WithDetector(d caps.Detector) Option {
	return func(o *options) { o.negotiate = append(o.negotiate, negotiate.WithDetector(d)) }
}

// WithDisabledFeatures forces features off before backend selection.
func WithDisabledFeatures(fs ...caps.FeatureName) Option {
	return func(o *options) { o.negotiate = append(o.negotiate, negotiate.WithDisabledFeatures(fs...)) }
}

// WithEmitter sends telemetry through e. The caller keeps ownership and
// shuts e down.
func WithEmitter(e *telemetry.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithSink delivers telemetry to s through an emitter owned by the
// renderer. Without WithSink or WithEmitter events go to the log.
func WithSink(s telemetry.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithoutTelemetry disables telemetry events.
func WithoutTelemetry() Option {
	return func(o *options) { o.silent = true }
}

// WithArchive records delivered and dropped events in a instead of the
// shared archive. Ignored with WithEmitter.
func WithArchive(a *telemetry.Archive) Option {
	return func(o *options) { o.archive = a }
}

// WithMinFPS sets the sustained frame rate below which a
// PERFORMANCE_DEGRADED event is emitted. Zero disables the check.
func WithMinFPS(fps float64) Option {
	return func(o *options) { o.minFPS = fps }
}

// WithStatsWindow sets how many frame intervals the FPS figures average.
func WithStatsWindow(frames int) Option {
	return func(o *options) {
		if frames > 0 {
			o.window = frames
		}
	}
}

// WithClearColor sets the color each frame starts from.
func WithClearColor(c Color) Option {
	return func(o *options) { o.clear = c }
}

// WithClock overrides the frame clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
