// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const reloadDebounce = 100 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a backend negotiated, renegotiating when the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context(), interval, nil)
		},
	}
	cmd.Flags().DurationVar(&interval, "frame-interval", 16*time.Millisecond, "time between rendered frames")
	return cmd
}

// watch renders until ctx is done, renegotiating after every change to the
// config file. A config that fails to load keeps the current session.
// reloaded, when set, receives every successful renegotiation result.
func (a *app) watch(ctx context.Context, interval time.Duration, reloaded chan<- *sessionResult) error {
	if a.cfgPath == "" {
		return errors.New("watch: no config file; pass --config")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(a.cfgPath)); err != nil {
		return fmt.Errorf("watch %s: %w", a.cfgPath, err)
	}

	s, res, err := a.startSession(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if s == nil {
			return
		}
		if err := s.close(res); err != nil {
			a.log.Warn().Err(err).Msg("cleanup")
		}
	}()
	notify(reloaded, res)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var debounce <-chan time.Time
	name := filepath.Base(a.cfgPath)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := s.render(ctx, 1); err != nil {
				a.log.Warn().Err(err).Msg("frame failed")
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)

		case <-debounce:
			debounce = nil
			cfg, err := a.reload()
			if err != nil {
				a.log.Warn().Err(err).Msg("config reload failed, keeping current backend")
				continue
			}
			if err := s.close(res); err != nil {
				a.log.Warn().Err(err).Msg("cleanup")
			}
			s = nil
			a.cfg = cfg
			if err := a.setLogLevel(); err != nil {
				return err
			}
			s, res, err = a.startSession(ctx, cfg)
			if err != nil {
				return err
			}
			a.log.Info().Str("backend", res.Backend).Msg("renegotiated after config change")
			notify(reloaded, res)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn().Err(err).Msg("config watcher")
		}
	}
}

func notify(ch chan<- *sessionResult, res *sessionResult) {
	if ch == nil {
		return
	}
	cp := *res
	ch <- &cp
}
