// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// Flag names. File and environment values for a flag that was set on the
// command line are ignored.
const (
	FlagBackend         = "backend"
	FlagPriority        = "priority"
	FlagDisable         = "disable-feature"
	FlagInitBudget      = "init-budget"
	FlagWidth           = "width"
	FlagHeight          = "height"
	FlagSwapchainImages = "swapchain-images"
	FlagMinFPS          = "min-fps"
	FlagLogLevel        = "log-level"
	FlagTelemetry       = "telemetry"
	FlagTelemetryLog    = "telemetry-log"
	FlagEndpoint        = "telemetry-endpoint"
	FlagToken           = "telemetry-token"
	FlagSQLite          = "telemetry-db"
	FlagArchive         = "archive-capacity"
)

// BindFlags registers every setting on fs, writing into cfg. Call it with
// a Config holding the defaults, before parsing.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Backend, FlagBackend, cfg.Backend, "force a backend id (webgpu, vulkan)")
	fs.StringToIntVar(&cfg.Priorities, FlagPriority, cfg.Priorities, "override catalog priorities, e.g. vulkan=20")
	fs.StringSliceVar(&cfg.DisabledFeatures, FlagDisable, cfg.DisabledFeatures, "force a feature off before selection (repeatable)")
	fs.DurationVar(&cfg.InitBudget, FlagInitBudget, cfg.InitBudget, "backend initialization budget")
	fs.IntVar(&cfg.Width, FlagWidth, cfg.Width, "surface width")
	fs.IntVar(&cfg.Height, FlagHeight, cfg.Height, "surface height")
	fs.IntVar(&cfg.SwapchainImages, FlagSwapchainImages, cfg.SwapchainImages, "swapchain image count")
	fs.Float64Var(&cfg.MinFPS, FlagMinFPS, cfg.MinFPS, "sustained frame rate below which performance is degraded (0 disables)")
	fs.StringVar(&cfg.LogLevel, FlagLogLevel, cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Telemetry.Enabled, FlagTelemetry, cfg.Telemetry.Enabled, "emit telemetry events")
	fs.BoolVar(&cfg.Telemetry.Log, FlagTelemetryLog, cfg.Telemetry.Log, "write telemetry events to the log")
	fs.StringVar(&cfg.Telemetry.Endpoint, FlagEndpoint, cfg.Telemetry.Endpoint, "HTTP collector URL")
	fs.StringVar(&cfg.Telemetry.Token, FlagToken, cfg.Telemetry.Token, "bearer token for the collector")
	fs.StringVar(&cfg.Telemetry.SQLitePath, FlagSQLite, cfg.Telemetry.SQLitePath, "SQLite file receiving telemetry events")
	fs.IntVar(&cfg.Telemetry.ArchiveCapacity, FlagArchive, cfg.Telemetry.ArchiveCapacity, "telemetry archive capacity")
}

// Changed returns the names of flags set on the command line.
func Changed(fs *pflag.FlagSet) map[string]bool {
	changed := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	return changed
}

// Load layers the optional file at path and the environment over cfg,
// keeping flags in changed, and validates the result. An empty path skips
// the file.
func Load(cfg *Config, path string, changed map[string]bool) error {
	if path != "" {
		if err := ApplyFile(cfg, path, changed); err != nil {
			return err
		}
	}
	if err := ApplyEnv(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
