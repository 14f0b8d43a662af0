// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package caps

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Unknown is the placeholder for identification fields a detector could not fill.
const Unknown = "unknown"

// Info is the mutable input used to build a [Report].
type Info struct {
	DeviceID      string
	Vendor        string
	VendorID      uint32
	ProductID     uint32
	AdapterName   string
	DriverVersion string
	OSBuild       string
	Features      map[FeatureName]bool
	Limitations   []string
}

// Report is an immutable description of a device's capabilities.
//
// All accessors return copies, so a Report may be shared between goroutines
// and copied into telemetry without synchronisation. A nil *Report behaves
// like a report of an unknown device with no features.
type Report struct {
	info Info
}

// NewReport builds a Report from info. Empty identification fields become
// [Unknown]; the feature map and limitations are copied.
func NewReport(info Info) *Report {
	r := &Report{info: info}
	r.info.DeviceID = orUnknown(info.DeviceID)
	r.info.Vendor = orUnknown(info.Vendor)
	r.info.AdapterName = orUnknown(info.AdapterName)
	r.info.DriverVersion = orUnknown(info.DriverVersion)
	r.info.OSBuild = orUnknown(info.OSBuild)
	r.info.Features = make(map[FeatureName]bool, len(info.Features))
	maps.Copy(r.info.Features, info.Features)
	r.info.Limitations = slices.Clone(info.Limitations)
	return r
}

// UnknownReport returns a report with every field unknown and no features,
// carrying the given limitations.
func UnknownReport(limitations ...string) *Report {
	return NewReport(Info{OSBuild: OSBuild(), Limitations: limitations})
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// DeviceID returns the stable device identifier.
func (r *Report) DeviceID() string {
	if r == nil {
		return Unknown
	}
	return r.info.DeviceID
}

// Vendor returns the vendor name.
func (r *Report) Vendor() string {
	if r == nil {
		return Unknown
	}
	return r.info.Vendor
}

// VendorID returns the PCI vendor id, or 0 if unknown.
func (r *Report) VendorID() uint32 {
	if r == nil {
		return 0
	}
	return r.info.VendorID
}

// ProductID returns the PCI device id, or 0 if unknown.
func (r *Report) ProductID() uint32 {
	if r == nil {
		return 0
	}
	return r.info.ProductID
}

// AdapterName returns the human-readable adapter name.
func (r *Report) AdapterName() string {
	if r == nil {
		return Unknown
	}
	return r.info.AdapterName
}

// DriverVersion returns the driver version string.
func (r *Report) DriverVersion() string {
	if r == nil {
		return Unknown
	}
	return r.info.DriverVersion
}

// OSBuild returns the operating system build identifier.
func (r *Report) OSBuild() string {
	if r == nil {
		return Unknown
	}
	return r.info.OSBuild
}

// Features returns a copy of the feature flag map.
func (r *Report) Features() map[FeatureName]bool {
	if r == nil {
		return map[FeatureName]bool{}
	}
	out := make(map[FeatureName]bool, len(r.info.Features))
	maps.Copy(out, r.info.Features)
	return out
}

// IsEnabled reports whether feature f is present and enabled.
func (r *Report) IsEnabled(f FeatureName) bool {
	if r == nil {
		return false
	}
	return r.info.Features[f]
}

// Enabled returns the set of enabled features.
func (r *Report) Enabled() FeatureSet {
	s := NewFeatureSet()
	if r == nil {
		return s
	}
	for f, on := range r.info.Features {
		if on {
			s[f] = struct{}{}
		}
	}
	return s
}

// Limitations returns a copy of the limitation list.
func (r *Report) Limitations() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.info.Limitations)
}

// Info returns a deep copy of the report contents.
func (r *Report) Info() Info {
	if r == nil {
		return UnknownReport().info
	}
	info := r.info
	info.Features = r.Features()
	info.Limitations = r.Limitations()
	return info
}

// WithDisabled returns a new report with the given features forced off.
// Each forced feature that was enabled adds a limitation.
func (r *Report) WithDisabled(features ...FeatureName) *Report {
	info := r.Info()
	for _, f := range features {
		if info.Features[f] {
			info.Limitations = append(info.Limitations, fmt.Sprintf("%s disabled by configuration", f))
		}
		info.Features[f] = false
	}
	return NewReport(info)
}

// String returns a one-line summary of the report.
func (r *Report) String() string {
	return fmt.Sprintf("%s (%s, driver %s, %s) features=%s",
		r.AdapterName(), r.Vendor(), r.DriverVersion(), r.OSBuild(), r.Enabled())
}

// Merge combines reports from several detectors. Identification fields come
// from the first report that knows them; a feature is enabled when any report
// enables it; limitations are concatenated without duplicates.
func Merge(reports ...*Report) *Report {
	var info Info
	info.Features = make(map[FeatureName]bool)
	for _, r := range reports {
		if r == nil {
			continue
		}
		info.DeviceID = firstKnown(info.DeviceID, r.info.DeviceID)
		info.Vendor = firstKnown(info.Vendor, r.info.Vendor)
		info.AdapterName = firstKnown(info.AdapterName, r.info.AdapterName)
		info.DriverVersion = firstKnown(info.DriverVersion, r.info.DriverVersion)
		info.OSBuild = firstKnown(info.OSBuild, r.info.OSBuild)
		if info.VendorID == 0 {
			info.VendorID = r.info.VendorID
		}
		if info.ProductID == 0 {
			info.ProductID = r.info.ProductID
		}
		for f, on := range r.info.Features {
			info.Features[f] = info.Features[f] || on
		}
		for _, l := range r.info.Limitations {
			if !slices.Contains(info.Limitations, l) {
				info.Limitations = append(info.Limitations, l)
			}
		}
	}
	return NewReport(info)
}

func firstKnown(cur, next string) string {
	if cur != "" && cur != Unknown {
		return cur
	}
	return next
}
