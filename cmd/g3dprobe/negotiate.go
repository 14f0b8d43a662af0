// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/internal/config"
	"github.com/gogpu/g3d/negotiate"
)

// sessionResult summarises one negotiation.
type sessionResult struct {
	Backend   string   `json:"backend,omitempty"`
	Priority  int      `json:"priority,omitempty"`
	Denied    []string `json:"denied,omitempty"`
	Frames    uint64   `json:"frames"`
	AvgFPS    float64  `json:"avgFps"`
	MinFPS    float64  `json:"minFps"`
	Delivered int      `json:"delivered"`
	Dropped   int      `json:"dropped"`
}

// session is a negotiated renderer plus its telemetry pipeline.
type session struct {
	a        *app
	pipeline *pipeline
	renderer *g3d.Renderer
	scene    *probeScene
	camera   g3d.PerspectiveCamera
}

// startSession negotiates a renderer for cfg. A denial is not an error:
// the returned session has no renderer and the result lists the reasons.
func (a *app) startSession(ctx context.Context, cfg config.Config) (*session, *sessionResult, error) {
	p, err := a.newPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := a.rendererOptions(cfg, p.emitter)
	if err != nil {
		_ = p.close(a.log)
		return nil, nil, err
	}

	s := &session{
		a:        a,
		pipeline: p,
		scene:    newProbeScene(),
		camera: g3d.PerspectiveCamera{
			Eye:    g3d.V3(0, 0, 3),
			Aspect: float64(cfg.Width) / float64(cfg.Height),
		},
	}
	res := &sessionResult{}

	r, err := g3d.NewRenderer(ctx, g3d.Surface{Width: cfg.Width, Height: cfg.Height}, opts...)
	var denied *negotiate.DeniedError
	switch {
	case errors.As(err, &denied):
		res.Denied = denied.Selection.Reasons
		a.log.Warn().Strs("reasons", res.Denied).Msg("no backend qualifies")
		return s, res, nil
	case err != nil:
		_ = p.close(a.log)
		return nil, nil, err
	}
	s.renderer = r
	res.Backend = string(r.Backend().ID)
	res.Priority = r.Backend().Priority
	a.log.Info().Str("backend", res.Backend).Int("width", cfg.Width).Int("height", cfg.Height).Msg("backend negotiated")
	return s, res, nil
}

// render draws frames frames, stopping early when ctx is done.
func (s *session) render(ctx context.Context, frames int) error {
	if s.renderer == nil {
		return nil
	}
	for range frames {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.renderer.Render(s.scene.step(), s.camera); err != nil {
			return err
		}
	}
	return nil
}

// close disposes the renderer, drains telemetry, and fills in res.
func (s *session) close(res *sessionResult) error {
	var errs []error
	if s.renderer != nil {
		st := s.renderer.Stats()
		res.Frames, res.AvgFPS, res.MinFPS = st.Frames, st.AvgFPS, st.MinFPS
		errs = append(errs, s.renderer.Dispose())
	}
	errs = append(errs, s.pipeline.close(s.a.log))
	res.Delivered, res.Dropped = s.pipeline.delivered()
	return errors.Join(errs...)
}

func newNegotiateCmd(a *app) *cobra.Command {
	var (
		frames int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Negotiate a backend, render test frames, and report telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, res, err := a.startSession(ctx, a.cfg)
			if err != nil {
				return err
			}
			renderErr := s.render(ctx, frames)
			if err := s.close(res); err != nil {
				a.log.Warn().Err(err).Msg("cleanup")
			}
			if renderErr != nil {
				return fmt.Errorf("render: %w", renderErr)
			}
			if err := printResult(a, res, asJSON); err != nil {
				return err
			}
			if len(res.Denied) > 0 {
				return negotiate.ErrDenied
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&frames, "frames", 60, "frames to render after negotiation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printResult(a *app, res *sessionResult, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(a.out).Encode(res)
	}
	w := a.out
	if len(res.Denied) > 0 {
		fmt.Fprintln(w, "backend:   denied")
		for _, r := range res.Denied {
			fmt.Fprintf(w, "  %s\n", r)
		}
	} else {
		fmt.Fprintf(w, "backend:   %s (priority %d)\n", res.Backend, res.Priority)
		fmt.Fprintf(w, "frames:    %d (avg %.1f fps, min %.1f fps)\n", res.Frames, res.AvgFPS, res.MinFPS)
	}
	fmt.Fprintf(w, "telemetry: %d delivered, %d dropped\n", res.Delivered, res.Dropped)
	return nil
}
