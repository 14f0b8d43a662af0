// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package negotiate picks a GPU backend for the current device, brings it up
// within a time budget, and keeps it alive across device loss.
//
// A [Negotiator] combines capability detection, the pure selection in
// [backend.Select], and backend initialization, and reports each outcome as
// a telemetry event:
//
//	n := negotiate.New(negotiate.WithEmitter(emitter))
//	h, err := n.Negotiate(ctx, render.Surface{Width: 1280, Height: 720})
//	var denied *negotiate.DeniedError
//	if errors.As(err, &denied) {
//	    log.Println(denied.Selection.Reasons)
//	}
//
// The returned [Handle] serializes frames with device-loss handling. A lost
// device is reinitialized at most once per streak; losing it again before a
// frame succeeds is fatal and the caller must negotiate from scratch.
package negotiate
