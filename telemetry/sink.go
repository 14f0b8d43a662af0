// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"log/slog"
)

// Sink delivers one payload. Implementations must honour ctx; the emitter
// abandons a Send once its attempt timeout expires.
type Sink interface {
	Send(ctx context.Context, p Payload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, p Payload) error

// Send calls f(ctx, p).
func (f SinkFunc) Send(ctx context.Context, p Payload) error { return f(ctx, p) }

// LogSink writes payloads to a structured logger. It never fails.
type LogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Send logs p at the sink's level.
func (s LogSink) Send(ctx context.Context, p Payload) error {
	l := s.Logger
	if l == nil {
		l = slogger()
	}
	attrs := []slog.Attr{
		slog.String("event_id", p.EventID),
		slog.String("event_type", string(p.EventType)),
		slog.String("session_id", p.SessionID),
		slog.Any("vendor_id", p.Device.VendorID),
		slog.Any("product_id", p.Device.ProductID),
		slog.String("driver", p.DriverVersion),
		slog.String("os", p.OSBuild),
	}
	if p.BackendID != "" {
		attrs = append(attrs, slog.String("backend", p.BackendID))
	}
	if p.Performance != nil {
		attrs = append(attrs,
			slog.Int64("init_ms", p.Performance.InitMs),
			slog.Float64("avg_fps", p.Performance.AvgFPS),
			slog.Float64("min_fps", p.Performance.MinFPS))
	}
	if len(p.Limitations) > 0 {
		attrs = append(attrs, slog.Any("limitations", p.Limitations))
	}
	l.LogAttrs(ctx, s.Level, "telemetry event", attrs...)
	return nil
}

// MultiSink delivers to every sink and fails if any of them fails.
type MultiSink []Sink

// Send forwards p to each sink in order and returns the first error.
func (m MultiSink) Send(ctx context.Context, p Payload) error {
	var first error
	for _, s := range m {
		if err := s.Send(ctx, p); err != nil && first == nil {
			first = err
		}
	}
	return first
}
