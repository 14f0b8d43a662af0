// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"

	"github.com/gogpu/g3d/caps"
)

// Selection is the outcome of Select: either a chosen descriptor or a
// denial listing why every descriptor was rejected.
type Selection struct {
	// Descriptor is the chosen backend. Zero when denied.
	Descriptor Descriptor

	// Missing maps each rejected backend to its missing required features.
	Missing map[ID][]caps.FeatureName

	// Reasons has one entry per missing feature of each rejected backend,
	// in catalog order.
	Reasons []string

	// OptionalEnabled lists the chosen backend's optional features that the
	// device supports.
	OptionalEnabled []caps.FeatureName

	selected bool
}

// Denied reports whether no descriptor qualified.
func (s Selection) Denied() bool { return !s.selected }

// String returns a one-line summary of the selection.
func (s Selection) String() string {
	if s.Denied() {
		return fmt.Sprintf("denied %v", s.Reasons)
	}
	return "selected " + s.Descriptor.String()
}

// Select chooses the highest-priority descriptor in c whose required
// features are all enabled in report. Among equal priorities the descriptor
// declared first in c wins. Select is pure: it performs no I/O and emits
// nothing.
func Select(c Catalog, report *caps.Report) Selection {
	enabled := report.Enabled()
	sel := Selection{Missing: make(map[ID][]caps.FeatureName)}

	for _, d := range c {
		if missing := d.Required.Missing(enabled); len(missing) > 0 {
			sel.Missing[d.ID] = missing
			for _, f := range missing {
				sel.Reasons = append(sel.Reasons, fmt.Sprintf("%s: missing required feature %s", d.ID, f))
			}
			continue
		}
		// Strictly greater keeps the earlier descriptor on ties.
		if !sel.selected || d.Priority > sel.Descriptor.Priority {
			sel.Descriptor = d
			sel.selected = true
		}
	}

	if len(c) == 0 {
		sel.Reasons = append(sel.Reasons, "backend catalog is empty")
	}
	if sel.selected {
		for _, f := range sel.Descriptor.Optional.Sorted() {
			if enabled.Has(f) {
				sel.OptionalEnabled = append(sel.OptionalEnabled, f)
			}
		}
	}
	return sel
}
