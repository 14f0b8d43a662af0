// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package caps describes what a GPU device can do.
//
// A [Detector] queries the host and produces an immutable [Report]: vendor,
// driver and OS identification plus a map of named feature flags and a list
// of human-readable limitations. Detection never fails; anything that cannot
// be determined is reported as [Unknown] or recorded as a limitation.
//
// Reports feed backend selection (see package backend) and are copied into
// telemetry payloads.
package caps
