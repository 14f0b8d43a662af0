// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/backend/vulkan"
	"github.com/gogpu/g3d/backend/webgpu"
	"github.com/gogpu/g3d/internal/config"
	"github.com/gogpu/g3d/internal/native"
	"github.com/gogpu/g3d/telemetry"
	"github.com/gogpu/g3d/telemetry/httpsink"
	"github.com/gogpu/g3d/telemetry/sqlitesink"
)

// drainTimeout bounds how long a command waits for telemetry delivery
// before exiting.
const drainTimeout = 5 * time.Second

var longHelp = strings.TrimSpace(`
g3dprobe inspects GPU backend negotiation on this host.

It detects device capabilities, selects a backend the way the renderer
does, initializes it within the configured budget, and reports telemetry
to the log, an HTTP collector, or a SQLite file.

Settings come from the config file, G3D_* environment variables, and
flags, in increasing precedence.
`)

var exampleUsage = strings.TrimSpace(`
  g3dprobe detect --json
  g3dprobe negotiate --frames 120 --telemetry-db events.db
  g3dprobe watch --config $HOME/.g3d/config.toml
  g3dprobe events --telemetry-db events.db --type DENIED
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the state shared by every subcommand.
type app struct {
	out io.Writer
	log zerolog.Logger

	// flagged holds defaults plus command-line values, before the file and
	// environment are applied; reloads start from it.
	flagged config.Config
	cfg     config.Config
	cfgPath string
	changed map[string]bool

	noop bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		out: out,
		log: newConsoleLogger(errOut),
		cfg: config.Default(),
	}

	root := &cobra.Command{
		Use:           "g3dprobe",
		Short:         "Inspect GPU backend negotiation",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.g3d/config.toml)")
	pf.BoolVar(&a.noop, "noop", false, "use the headless noop HAL instead of native drivers")
	config.BindFlags(pf, &a.cfg)

	root.AddCommand(
		newDetectCmd(a),
		newNegotiateCmd(a),
		newWatchCmd(a),
		newEventsCmd(a),
	)
	return root
}

// load layers the config file and environment over the parsed flags and
// installs the library logger.
func (a *app) load(cmd *cobra.Command) error {
	a.changed = config.Changed(cmd.Flags())
	a.flagged = a.cfg

	if a.cfgPath == "" {
		if p := config.DefaultPath(); config.FileExists(p) {
			a.cfgPath = p
		}
	} else if !config.FileExists(a.cfgPath) {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}
	if err := config.Load(&a.cfg, a.cfgPath, a.changed); err != nil {
		return err
	}
	return a.setLogLevel()
}

// reload rebuilds the configuration from the flags and the current file.
func (a *app) reload() (config.Config, error) {
	cfg := a.flagged
	if err := config.Load(&cfg, a.cfgPath, a.changed); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) setLogLevel() error {
	level, err := config.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = a.log.Level(zerologLevel(level))
	g3d.SetLogger(slog.New(newZerologHandler(a.log, level)))
	return nil
}

// backends builds the backend instances for cfg.
func (a *app) backends(cfg config.Config) []backend.Backend {
	vopts := []vulkan.Option{vulkan.WithSwapchainImages(cfg.SwapchainImages)}
	wopts := []webgpu.Option{webgpu.WithSwapchainImages(cfg.SwapchainImages)}
	if a.noop {
		vopts = append(vopts, vulkan.WithProvider(native.Noop()))
		wopts = append(wopts, webgpu.WithProvider(native.Noop()))
	}
	return []backend.Backend{vulkan.New(vopts...), webgpu.New(wopts...)}
}

// rendererOptions translates cfg into renderer options.
func (a *app) rendererOptions(cfg config.Config, e *telemetry.Emitter) ([]g3d.Option, error) {
	features, err := cfg.Features()
	if err != nil {
		return nil, err
	}
	opts := []g3d.Option{
		g3d.WithCatalog(cfg.Catalog(backend.DefaultCatalog())),
		g3d.WithBackends(a.backends(cfg)...),
		g3d.WithDisabledFeatures(features...),
		g3d.WithInitBudget(cfg.InitBudget),
		g3d.WithMinFPS(cfg.MinFPS),
	}
	if e == nil {
		return append(opts, g3d.WithoutTelemetry()), nil
	}
	return append(opts, g3d.WithEmitter(e)), nil
}

// pipeline is the telemetry delivery chain built from the config.
type pipeline struct {
	emitter *telemetry.Emitter
	archive *telemetry.Archive
	closers []io.Closer
}

// newPipeline builds an emitter delivering to every configured sink. It
// returns a nil emitter when telemetry is disabled.
func (a *app) newPipeline(cfg config.Config) (*pipeline, error) {
	p := &pipeline{}
	t := cfg.Telemetry
	if !t.Enabled {
		return p, nil
	}

	var sinks telemetry.MultiSink
	if t.Log {
		sinks = append(sinks, telemetry.LogSink{Level: slog.LevelInfo})
	}
	if t.Endpoint != "" {
		s, err := httpsink.New(t.Endpoint,
			httpsink.WithBearerToken(t.Token),
			httpsink.WithUserAgent("g3dprobe/"+getVersion()),
		)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if t.SQLitePath != "" {
		s, err := sqlitesink.Open(t.SQLitePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		p.closers = append(p.closers, s)
	}
	if len(sinks) == 0 {
		return p, nil
	}

	p.archive = telemetry.NewArchive(t.ArchiveCapacity)
	p.emitter = telemetry.NewEmitter(sinks, telemetry.WithArchive(p.archive))
	return p, nil
}

// close waits for in-flight events, then releases the sinks.
func (p *pipeline) close(log zerolog.Logger) error {
	if p.emitter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := p.emitter.Wait(ctx); err != nil {
			log.Warn().Int("pending", len(p.emitter.PendingEvents())).Msg("telemetry not drained")
		}
		p.emitter.Shutdown()
	}
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// delivered counts archived events by outcome.
func (p *pipeline) delivered() (ok, dropped int) {
	if p.archive == nil {
		return 0, 0
	}
	for _, r := range p.archive.Snapshot() {
		switch r.Outcome {
		case telemetry.OutcomeDelivered:
			ok++
		case telemetry.OutcomeDropped:
			dropped++
		}
	}
	return ok, dropped
}
