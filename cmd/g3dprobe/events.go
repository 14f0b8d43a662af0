// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/g3d/telemetry"
	"github.com/gogpu/g3d/telemetry/sqlitesink"
)

func newEventsCmd(a *app) *cobra.Command {
	var (
		eventType string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List telemetry events stored in the SQLite sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Telemetry.SQLitePath
			if path == "" {
				return errors.New("events: no database; pass --telemetry-db")
			}
			t := telemetry.EventType(strings.ToUpper(eventType))
			if t != "" && !t.Valid() {
				return fmt.Errorf("events: unknown event type %q", eventType)
			}

			db, err := sqlitesink.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			counts, err := db.Count(ctx)
			if err != nil {
				return err
			}
			events, err := db.Events(ctx, t, limit)
			if err != nil {
				return err
			}

			w := a.out
			types := make([]string, 0, len(counts))
			for k := range counts {
				types = append(types, string(k))
			}
			slices.Sort(types)
			for _, k := range types {
				fmt.Fprintf(w, "%-22s %d\n", k, counts[telemetry.EventType(k)])
			}
			for _, p := range events {
				fmt.Fprintf(w, "%s  %-22s %-7s %s", p.Timestamp.Format(time.RFC3339), p.EventType, orDash(p.BackendID), p.EventID)
				if len(p.Limitations) > 0 {
					fmt.Fprintf(w, "  %s", strings.Join(p.Limitations, "; "))
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "only list events of this type")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to list (0 for all)")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
