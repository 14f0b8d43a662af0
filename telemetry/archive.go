// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"sync"
	"time"
)

// DefaultArchiveCapacity is the capacity of the shared archive.
const DefaultArchiveCapacity = 256

// Outcome is the final state of an event.
type Outcome uint8

// Outcomes.
const (
	OutcomeDelivered Outcome = iota + 1
	OutcomeDropped
)

// String returns "DELIVERED" or "DROPPED".
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "DELIVERED"
	case OutcomeDropped:
		return "DROPPED"
	}
	return "UNKNOWN"
}

// Record is one archived event.
type Record struct {
	Payload  Payload
	Outcome  Outcome
	Attempts int
	At       time.Time
}

// Archive is a bounded FIFO of event records. When full, the oldest record
// is evicted. Safe for concurrent use.
type Archive struct {
	mu    sync.Mutex
	buf   []Record
	start int
	n     int
}

// NewArchive creates an archive holding at most capacity records.
// A capacity below 1 is treated as 1.
func NewArchive(capacity int) *Archive {
	if capacity < 1 {
		capacity = 1
	}
	return &Archive{buf: make([]Record, capacity)}
}

var (
	sharedOnce    sync.Once
	sharedArchive *Archive
)

// Shared returns the process-wide archive.
func Shared() *Archive {
	sharedOnce.Do(func() {
		sharedArchive = NewArchive(DefaultArchiveCapacity)
	})
	return sharedArchive
}

// Add appends r, evicting the oldest record when the archive is full.
func (a *Archive) Add(r Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := len(a.buf)
	if a.n < c {
		a.buf[(a.start+a.n)%c] = r
		a.n++
		return
	}
	a.buf[a.start] = r
	a.start = (a.start + 1) % c
}

// Snapshot returns the records oldest first.
func (a *Archive) Snapshot() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, a.n)
	for i := range a.n {
		out[i] = a.buf[(a.start+i)%len(a.buf)]
	}
	return out
}

// Len returns the number of records held.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

// Cap returns the archive capacity.
func (a *Archive) Cap() int { return len(a.buf) }

// Clear removes all records.
func (a *Archive) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.buf)
	a.start, a.n = 0, 0
}
