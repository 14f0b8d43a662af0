// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"math"
	"testing"
	"time"
)

func feed(s *frameStats, start time.Time, intervals ...time.Duration) (FrameStats, int) {
	var st FrameStats
	triggers := 0
	now := start
	for _, d := range intervals {
		now = now.Add(d)
		var trig bool
		st, trig = s.record(now)
		if trig {
			triggers++
		}
	}
	return st, triggers
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestFrameStatsAverage(t *testing.T) {
	s := newFrameStats(4, 0)
	st, _ := feed(s, time.Unix(0, 0), 0, 10*time.Millisecond, 10*time.Millisecond, 20*time.Millisecond, 40*time.Millisecond)
	if st.Frames != 5 {
		t.Errorf("Frames = %d, want 5", st.Frames)
	}
	// 4 intervals over 80ms.
	if math.Abs(st.AvgFPS-50) > 1e-9 {
		t.Errorf("AvgFPS = %v, want 50", st.AvgFPS)
	}
	if math.Abs(st.MinFPS-25) > 1e-9 {
		t.Errorf("MinFPS = %v, want 25", st.MinFPS)
	}
	if st.LastFrameTime != 40*time.Millisecond {
		t.Errorf("LastFrameTime = %v", st.LastFrameTime)
	}
}

func TestFrameStatsFirstFrame(t *testing.T) {
	s := newFrameStats(4, 30)
	st, trig := s.record(time.Unix(0, 0))
	if trig || st.AvgFPS != 0 || st.Frames != 1 {
		t.Errorf("first frame = %+v, trigger %v", st, trig)
	}
}

func TestFrameStatsDegradedOncePerEpisode(t *testing.T) {
	s := newFrameStats(4, 30)
	start := time.Unix(0, 0)

	// Window not yet full: no trigger even though slow.
	_, trig := feed(s, start, append([]time.Duration{0}, repeat(100*time.Millisecond, 3)...)...)
	if trig != 0 {
		t.Fatalf("triggered before the window filled")
	}

	st, trig := feed(s, start.Add(300*time.Millisecond), repeat(100*time.Millisecond, 10)...)
	if trig != 1 || !st.Degraded {
		t.Fatalf("slow frames: triggers=%d degraded=%v, want 1 and true", trig, st.Degraded)
	}

	// Recover, then degrade again.
	now := start.Add(1300 * time.Millisecond)
	st, trig = feed(s, now, repeat(10*time.Millisecond, 4)...)
	if trig != 0 || st.Degraded {
		t.Fatalf("fast frames: triggers=%d degraded=%v", trig, st.Degraded)
	}
	_, trig = feed(s, now.Add(40*time.Millisecond), repeat(100*time.Millisecond, 4)...)
	if trig != 1 {
		t.Errorf("second episode triggers = %d, want 1", trig)
	}
}

func TestFrameStatsDisabled(t *testing.T) {
	s := newFrameStats(2, 0)
	_, trig := feed(s, time.Unix(0, 0), repeat(time.Second, 10)...)
	if trig != 0 {
		t.Errorf("minimum 0 should never trigger, got %d", trig)
	}
}

func TestFrameStatsReset(t *testing.T) {
	s := newFrameStats(2, 30)
	feed(s, time.Unix(0, 0), repeat(time.Second, 5)...)
	s.reset()
	st := s.snapshot()
	if st.Frames != 5 || st.AvgFPS != 0 || st.Degraded {
		t.Errorf("after reset = %+v", st)
	}
}
