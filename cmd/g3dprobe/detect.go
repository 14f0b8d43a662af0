// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/caps"
	"github.com/gogpu/g3d/negotiate"
)

// detectReport is the JSON form of a capability report and the backend
// selection it leads to.
type detectReport struct {
	DeviceID      string          `json:"deviceId"`
	Vendor        string          `json:"vendor"`
	VendorID      uint32          `json:"vendorId"`
	ProductID     uint32          `json:"productId"`
	Adapter       string          `json:"adapter"`
	DriverVersion string          `json:"driverVersion"`
	OSBuild       string          `json:"osBuild"`
	Features      map[string]bool `json:"features"`
	Limitations   []string        `json:"limitations,omitempty"`
	Selected      string          `json:"selected,omitempty"`
	Denied        []string        `json:"denied,omitempty"`
}

func newDetectReport(r *caps.Report, sel backend.Selection) detectReport {
	out := detectReport{
		DeviceID:      r.DeviceID(),
		Vendor:        r.Vendor(),
		VendorID:      r.VendorID(),
		ProductID:     r.ProductID(),
		Adapter:       r.AdapterName(),
		DriverVersion: r.DriverVersion(),
		OSBuild:       r.OSBuild(),
		Features:      make(map[string]bool),
		Limitations:   r.Limitations(),
	}
	for f, on := range r.Features() {
		out.Features[string(f)] = on
	}
	if sel.Denied() {
		out.Denied = sel.Reasons
	} else {
		out.Selected = string(sel.Descriptor.ID)
	}
	return out
}

func newDetectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report device capabilities and the backend that would be selected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			features, err := a.cfg.Features()
			if err != nil {
				return err
			}
			n := negotiate.New(
				negotiate.WithCatalog(a.cfg.Catalog(backend.DefaultCatalog())),
				negotiate.WithBackends(a.backends(a.cfg)...),
				negotiate.WithDisabledFeatures(features...),
			)
			report := n.Detect()
			rep := newDetectReport(report, n.SelectBackend(n.Catalog(), report))
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return printDetect(a, rep)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printDetect(a *app, r detectReport) error {
	w := a.out
	fmt.Fprintf(w, "device:   %s (%s)\n", r.DeviceID, r.Adapter)
	fmt.Fprintf(w, "vendor:   %s [%04x:%04x]\n", r.Vendor, r.VendorID, r.ProductID)
	fmt.Fprintf(w, "driver:   %s\n", r.DriverVersion)
	fmt.Fprintf(w, "os:       %s\n", r.OSBuild)

	names := make([]string, 0, len(r.Features))
	for f := range r.Features {
		names = append(names, f)
	}
	slices.Sort(names)
	fmt.Fprintln(w, "features:")
	for _, f := range names {
		mark := "-"
		if r.Features[f] {
			mark = "+"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, f)
	}
	for _, l := range r.Limitations {
		fmt.Fprintf(w, "limitation: %s\n", l)
	}
	if r.Selected != "" {
		fmt.Fprintf(w, "selected: %s\n", r.Selected)
		return nil
	}
	fmt.Fprintln(w, "selected: none")
	for _, reason := range r.Denied {
		fmt.Fprintf(w, "  %s\n", reason)
	}
	return nil
}
