// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"fmt"
	"time"
)

// EventType classifies a telemetry event.
type EventType string

// Event types.
const (
	// EventInitialized is emitted after a backend initialized within budget.
	EventInitialized EventType = "INITIALIZED"
	// EventDenied is emitted when no backend meets the feature requirements.
	EventDenied EventType = "DENIED"
	// EventPerformanceDegraded is emitted on an init timeout or a sustained
	// frame rate below threshold.
	EventPerformanceDegraded EventType = "PERFORMANCE_DEGRADED"
	// EventDeviceLost is emitted when device loss could not be recovered.
	EventDeviceLost EventType = "DEVICE_LOST"
	// EventRecovered is emitted after a successful reinitialization.
	EventRecovered EventType = "RECOVERED"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventInitialized, EventDenied, EventPerformanceDegraded, EventDeviceLost, EventRecovered:
		return true
	}
	return false
}

// DeviceIdentity carries the PCI ids of the device.
type DeviceIdentity struct {
	VendorID  uint32 `json:"vendorId"`
	ProductID uint32 `json:"productId"`
}

// Performance carries timing figures attached to an event.
type Performance struct {
	InitMs int64   `json:"initMs"`
	AvgFPS float64 `json:"avgFps"`
	MinFPS float64 `json:"minFps"`
}

// Payload is the wire form of a telemetry event.
type Payload struct {
	EventID       string          `json:"eventId"`
	EventType     EventType       `json:"eventType"`
	BackendID     string          `json:"backendId,omitempty"`
	Device        DeviceIdentity  `json:"device"`
	DriverVersion string          `json:"driverVersion"`
	OSBuild       string          `json:"osBuild"`
	FeatureFlags  map[string]bool `json:"featureFlags"`
	Performance   *Performance    `json:"performance,omitempty"`
	SessionID     string          `json:"sessionId"`
	CallStack     []string        `json:"callStack"`
	Limitations   []string        `json:"limitations,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Validate checks the fields every payload must carry.
func (p Payload) Validate() error {
	switch {
	case p.EventID == "":
		return fmt.Errorf("%w: missing eventId", ErrInvalidPayload)
	case !p.EventType.Valid():
		return fmt.Errorf("%w: unknown eventType %q", ErrInvalidPayload, p.EventType)
	case p.SessionID == "":
		return fmt.Errorf("%w: missing sessionId", ErrInvalidPayload)
	case len(p.CallStack) < MinCallStack:
		return fmt.Errorf("%w: callStack has %d frames, want at least %d", ErrInvalidPayload, len(p.CallStack), MinCallStack)
	case p.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidPayload)
	}
	return nil
}

// Event is a queued payload with its delivery bookkeeping.
type Event struct {
	Payload    Payload
	Retries    int
	EnqueuedAt time.Time
}
