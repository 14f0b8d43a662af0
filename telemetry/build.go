// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/g3d/caps"
)

// MinCallStack is the minimum number of frames carried by a payload.
const MinCallStack = 3

// maxCallStack bounds the captured stack.
const maxCallStack = 16

const unknownFrame = "<unknown>"

// Builder assembles payloads. The zero value is not usable; use NewBuilder.
type Builder struct {
	salt  string
	now   func() time.Time
	newID func() string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithSalt sets the salt mixed into session ids. By default every Builder
// draws a random salt, so session ids are stable only within a process.
func WithSalt(salt string) BuilderOption {
	return func(b *Builder) { b.salt = salt }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDSource overrides the event id generator.
func WithIDSource(newID func() string) BuilderOption {
	return func(b *Builder) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		salt:  uuid.NewString(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildEvent creates a payload of type t from report. backendID may be empty
// when no backend was chosen; perf and limitations are optional. The call
// stack is captured from the caller of BuildEvent.
func (b *Builder) BuildEvent(t EventType, backendID string, report *caps.Report, perf *Performance, limitations []string) Payload {
	flags := make(map[string]bool)
	for name, on := range report.Features() {
		flags[string(name)] = on
	}
	var p *Performance
	if perf != nil {
		cp := *perf
		p = &cp
	}
	var lim []string
	if len(limitations) > 0 {
		lim = slices.Clone(limitations)
	}
	return Payload{
		EventID:   b.newID(),
		EventType: t,
		BackendID: backendID,
		Device: DeviceIdentity{
			VendorID:  report.VendorID(),
			ProductID: report.ProductID(),
		},
		DriverVersion: report.DriverVersion(),
		OSBuild:       report.OSBuild(),
		FeatureFlags:  flags,
		Performance:   p,
		SessionID:     b.SessionID(report.DeviceID()),
		CallStack:     callStack(3),
		Limitations:   lim,
		Timestamp:     b.now().UTC(),
	}
}

// SessionID returns the anonymised session id for deviceID.
func (b *Builder) SessionID(deviceID string) string {
	sum := sha256.Sum256([]byte(b.salt + deviceID))
	return hex.EncodeToString(sum[:16])
}

// callStack returns "function file:line" frames, skipping skip frames as
// counted by runtime.Callers, padded to MinCallStack.
func callStack(skip int) []string {
	pcs := make([]uintptr, maxCallStack)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, fmt.Sprintf("%s %s:%d", f.Function, filepath.Base(f.File), f.Line))
		}
		if !more {
			break
		}
	}
	for len(out) < MinCallStack {
		out = append(out, unknownFrame)
	}
	return out
}
