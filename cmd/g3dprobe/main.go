// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command g3dprobe detects GPU capabilities, negotiates a backend, and
// reports the outcome as telemetry.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		newConsoleLogger(os.Stderr).Error().Err(err).Msg("g3dprobe")
		stop()
		os.Exit(1)
	}
}
