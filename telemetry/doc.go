// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry builds diagnostic events about backend negotiation and
// delivers them best-effort.
//
// A [Builder] turns a capability report into a [Payload] with a unique
// event id, an anonymised session id, and a short call stack. An [Emitter]
// queues payloads and transmits each on its own goroutine through a [Sink]:
// at most three attempts, each bounded by a 500ms timeout, with exponential
// backoff between attempts. Events that exhaust their attempts are logged
// and dropped. Nothing in this package reports errors back to the renderer.
//
// Delivered and dropped events are recorded in an [Archive], a bounded FIFO
// shared per process through [Shared] unless another one is injected.
package telemetry
