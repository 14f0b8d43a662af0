// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with string durations and optional booleans.
type fileConfig struct {
	Backend          string         `toml:"backend" yaml:"backend"`
	Priorities       map[string]int `toml:"priorities" yaml:"priorities"`
	DisabledFeatures []string       `toml:"disabled_features" yaml:"disabled_features"`
	InitBudget       string         `toml:"init_budget" yaml:"init_budget"`
	Width            int            `toml:"width" yaml:"width"`
	Height           int            `toml:"height" yaml:"height"`
	SwapchainImages  int            `toml:"swapchain_images" yaml:"swapchain_images"`
	MinFPS           float64        `toml:"min_fps" yaml:"min_fps"`
	LogLevel         string         `toml:"log_level" yaml:"log_level"`
	Telemetry        fileTelemetry  `toml:"telemetry" yaml:"telemetry"`
}

type fileTelemetry struct {
	Enabled         *bool  `toml:"enabled" yaml:"enabled"`
	Log             *bool  `toml:"log" yaml:"log"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint"`
	Token           string `toml:"token" yaml:"token"`
	SQLitePath      string `toml:"sqlite_path" yaml:"sqlite_path"`
	ArchiveCapacity int    `toml:"archive_capacity" yaml:"archive_capacity"`
}

// loadFile reads a TOML or YAML file, chosen by extension.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(b, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		return fc, fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return fc, fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
	}
	return fc, nil
}

// DefaultPath returns ~/.g3d/config.toml, or "" without a home directory.
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".g3d", "config.toml")
	}
	return ""
}

// FileExists reports whether p names an existing file.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFile loads path into cfg. Settings whose flag is in changed are kept.
func ApplyFile(cfg *Config, path string, changed map[string]bool) error {
	fc, err := loadFile(path)
	if err != nil {
		return err
	}
	s := newSetter(changed)

	s.setString(FlagBackend, fc.Backend, &cfg.Backend)
	s.setString(FlagLogLevel, fc.LogLevel, &cfg.LogLevel)
	s.setList(FlagDisable, fc.DisabledFeatures, &cfg.DisabledFeatures)
	if len(fc.Priorities) > 0 && !changed[FlagPriority] {
		cfg.Priorities = fc.Priorities
	}
	if err := s.setDuration(FlagInitBudget, fc.InitBudget, &cfg.InitBudget); err != nil {
		return err
	}
	s.setInt(FlagWidth, fc.Width, &cfg.Width)
	s.setInt(FlagHeight, fc.Height, &cfg.Height)
	s.setInt(FlagSwapchainImages, fc.SwapchainImages, &cfg.SwapchainImages)
	s.setFloat(FlagMinFPS, fc.MinFPS, &cfg.MinFPS)

	t := fc.Telemetry
	s.setBool(FlagTelemetry, t.Enabled, &cfg.Telemetry.Enabled)
	s.setBool(FlagTelemetryLog, t.Log, &cfg.Telemetry.Log)
	s.setString(FlagEndpoint, t.Endpoint, &cfg.Telemetry.Endpoint)
	s.setString(FlagToken, t.Token, &cfg.Telemetry.Token)
	s.setString(FlagSQLite, t.SQLitePath, &cfg.Telemetry.SQLitePath)
	s.setInt(FlagArchive, t.ArchiveCapacity, &cfg.Telemetry.ArchiveCapacity)
	return nil
}
