// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import "os"

// ApplyEnv applies G3D_* environment variables to cfg. Settings whose flag
// is in changed are kept.
func ApplyEnv(cfg *Config, changed map[string]bool) error {
	return applyEnv(cfg, changed, os.Getenv)
}

func applyEnv(cfg *Config, changed map[string]bool, getenv func(string) string) error {
	s := newSetter(changed)

	s.setString(FlagBackend, getenv("G3D_BACKEND"), &cfg.Backend)
	s.setString(FlagLogLevel, getenv("G3D_LOG_LEVEL"), &cfg.LogLevel)
	s.setList(FlagDisable, splitList(getenv("G3D_DISABLE_FEATURES")), &cfg.DisabledFeatures)
	if v := getenv("G3D_PRIORITIES"); v != "" && !changed[FlagPriority] {
		p, err := parsePriorities(v)
		if err != nil {
			return err
		}
		cfg.Priorities = p
	}
	if err := s.setDuration(FlagInitBudget, getenv("G3D_INIT_BUDGET"), &cfg.InitBudget); err != nil {
		return err
	}
	if err := s.setIntFromString(FlagWidth, getenv("G3D_WIDTH"), &cfg.Width); err != nil {
		return err
	}
	if err := s.setIntFromString(FlagHeight, getenv("G3D_HEIGHT"), &cfg.Height); err != nil {
		return err
	}
	if err := s.setIntFromString(FlagSwapchainImages, getenv("G3D_SWAPCHAIN_IMAGES"), &cfg.SwapchainImages); err != nil {
		return err
	}
	if err := s.setFloatFromString(FlagMinFPS, getenv("G3D_MIN_FPS"), &cfg.MinFPS); err != nil {
		return err
	}

	if err := s.setBoolFromString(FlagTelemetry, getenv("G3D_TELEMETRY"), &cfg.Telemetry.Enabled); err != nil {
		return err
	}
	if err := s.setBoolFromString(FlagTelemetryLog, getenv("G3D_TELEMETRY_LOG"), &cfg.Telemetry.Log); err != nil {
		return err
	}
	s.setString(FlagEndpoint, getenv("G3D_TELEMETRY_ENDPOINT"), &cfg.Telemetry.Endpoint)
	s.setString(FlagToken, getenv("G3D_TELEMETRY_TOKEN"), &cfg.Telemetry.Token)
	s.setString(FlagSQLite, getenv("G3D_TELEMETRY_DB"), &cfg.Telemetry.SQLitePath)
	return s.setIntFromString(FlagArchive, getenv("G3D_ARCHIVE_CAPACITY"), &cfg.Telemetry.ArchiveCapacity)
}
