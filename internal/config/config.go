// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads g3d settings from a TOML or YAML file, G3D_*
// environment variables, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Telemetry configures event delivery.
type Telemetry struct {
	Enabled         bool
	Log             bool
	Endpoint        string
	Token           string
	SQLitePath      string
	ArchiveCapacity int
}

// Config holds every setting the renderer and the probe CLI read.
type Config struct {
	// Backend forces a backend id; empty means negotiate.
	Backend string
	// Priorities override catalog priorities by backend id.
	Priorities map[string]int
	// DisabledFeatures are forced off before selection.
	DisabledFeatures []string

	InitBudget      time.Duration
	Width           int
	Height          int
	SwapchainImages int

	// MinFPS is the sustained frame rate below which performance is
	// reported as degraded. Zero disables the check.
	MinFPS float64

	Telemetry Telemetry
	LogLevel  string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InitBudget:      2 * time.Second,
		Width:           1280,
		Height:          720,
		SwapchainImages: 3,
		MinFPS:          30,
		Telemetry: Telemetry{
			Enabled:         true,
			Log:             true,
			ArchiveCapacity: 256,
		},
		LogLevel: "info",
	}
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	var errs []error
	if c.InitBudget <= 0 {
		errs = append(errs, fmt.Errorf("%w: init budget %v must be positive", ErrInvalid, c.InitBudget))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: surface %dx%d", ErrInvalid, c.Width, c.Height))
	}
	if c.SwapchainImages < 1 {
		errs = append(errs, fmt.Errorf("%w: swapchain images %d", ErrInvalid, c.SwapchainImages))
	}
	if c.MinFPS < 0 {
		errs = append(errs, fmt.Errorf("%w: min fps %v", ErrInvalid, c.MinFPS))
	}
	if c.Telemetry.ArchiveCapacity < 1 {
		errs = append(errs, fmt.Errorf("%w: archive capacity %d", ErrInvalid, c.Telemetry.ArchiveCapacity))
	}
	if _, err := c.Features(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

// Features parses DisabledFeatures.
func (c Config) Features() ([]caps.FeatureName, error) {
	out := make([]caps.FeatureName, 0, len(c.DisabledFeatures))
	for _, s := range c.DisabledFeatures {
		f, err := caps.ParseFeature(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Catalog applies Backend and Priorities to c.
func (c Config) Catalog(base backend.Catalog) backend.Catalog {
	if len(c.Priorities) > 0 {
		overrides := make(map[backend.ID]int, len(c.Priorities))
		for id, p := range c.Priorities {
			overrides[backend.ID(strings.ToLower(id))] = p
		}
		base = base.WithPriorities(overrides)
	}
	if c.Backend != "" {
		base = base.Only(backend.ID(strings.ToLower(c.Backend)))
	}
	return base
}

// parsePriorities reads "webgpu=10,vulkan=5".
func parsePriorities(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("priority %q: want id=value", part)
		}
		p, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("priority %q: %w", part, err)
		}
		out[strings.TrimSpace(id)] = p
	}
	return out, nil
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
