// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package caps

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
)

// Detector queries the host for device capabilities.
//
// Detect must not block on I/O beyond local driver queries and must never
// return nil; fields it cannot determine are reported as [Unknown].
type Detector interface {
	Detect() *Report
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func() *Report

// Detect calls f.
func (f DetectorFunc) Detect() *Report { return f() }

// StaticDetector always returns the same report. Useful for tests and for
// replaying a report captured elsewhere.
type StaticDetector struct {
	Report *Report
}

// Detect returns the stored report, or an unknown report if none is set.
func (d StaticDetector) Detect() *Report {
	if d.Report == nil {
		return UnknownReport("no report configured")
	}
	return d.Report
}

// SafeDetect runs d and converts a nil result or a panic into an unknown
// report with an explanatory limitation.
func SafeDetect(d Detector) (r *Report) {
	if d == nil {
		return UnknownReport("no detector configured")
	}
	defer func() {
		if p := recover(); p != nil {
			r = UnknownReport(fmt.Sprintf("capability detection failed: %v", p))
		}
	}()
	r = d.Detect()
	if r == nil {
		r = UnknownReport("detector returned no report")
	}
	return r
}

// WithDisabled wraps d so that the given features are always reported off.
func WithDisabled(d Detector, features ...FeatureName) Detector {
	if len(features) == 0 {
		return d
	}
	return DetectorFunc(func() *Report {
		return SafeDetect(d).WithDisabled(features...)
	})
}

// Chain runs every detector and merges their reports with [Merge].
func Chain(detectors ...Detector) Detector {
	return DetectorFunc(func() *Report {
		reports := make([]*Report, 0, len(detectors))
		for _, d := range detectors {
			reports = append(reports, SafeDetect(d))
		}
		return Merge(reports...)
	})
}

var (
	osBuildOnce sync.Once
	osBuild     string
)

// OSBuild returns "GOOS/GOARCH" plus the kernel release where the host
// exposes one.
func OSBuild() string {
	osBuildOnce.Do(func() {
		osBuild = runtime.GOOS + "/" + runtime.GOARCH
		if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			if rel := strings.TrimSpace(string(b)); rel != "" {
				osBuild += " " + rel
			}
		}
	})
	return osBuild
}
