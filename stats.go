// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"sync"
	"time"
)

const defaultStatsWindow = 60

// FrameStats summarises recent frame timing.
type FrameStats struct {
	// Frames is the number of frames rendered successfully.
	Frames uint64

	// AvgFPS and MinFPS cover the last window of frame intervals.
	// Both are zero until two frames completed.
	AvgFPS float64
	MinFPS float64

	LastFrameTime time.Duration

	// Degraded is set while the average stays below the configured minimum.
	Degraded bool
}

// frameStats keeps a ring of frame intervals.
type frameStats struct {
	mu        sync.Mutex
	minFPS    float64
	intervals []time.Duration
	next      int
	filled    bool
	last      time.Time
	cur       FrameStats
}

func newFrameStats(window int, minFPS float64) *frameStats {
	return &frameStats{intervals: make([]time.Duration, window), minFPS: minFPS}
}

// record adds a frame completed at now. It returns true exactly when the
// window first drops below the minimum frame rate.
func (s *frameStats) record(now time.Time) (FrameStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.Frames++
	if s.last.IsZero() {
		s.last = now
		return s.cur, false
	}
	d := now.Sub(s.last)
	s.last = now
	s.cur.LastFrameTime = d

	s.intervals[s.next] = d
	s.next = (s.next + 1) % len(s.intervals)
	if s.next == 0 {
		s.filled = true
	}
	n := s.next
	if s.filled {
		n = len(s.intervals)
	}

	var sum, worst time.Duration
	for _, iv := range s.intervals[:n] {
		sum += iv
		worst = max(worst, iv)
	}
	if sum > 0 {
		s.cur.AvgFPS = float64(n) / sum.Seconds()
	}
	if worst > 0 {
		s.cur.MinFPS = 1 / worst.Seconds()
	}

	if s.minFPS <= 0 || !s.filled {
		return s.cur, false
	}
	below := s.cur.AvgFPS < s.minFPS
	trigger := below && !s.cur.Degraded
	s.cur.Degraded = below
	return s.cur, trigger
}

// reset clears timing after a device change; the frame count is kept.
func (s *frameStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.intervals)
	s.next, s.filled = 0, false
	s.last = time.Time{}
	s.cur = FrameStats{Frames: s.cur.Frames}
}

func (s *frameStats) snapshot() FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}
