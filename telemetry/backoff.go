// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"math/rand/v2"
	"time"
)

// backoff computes retry delays of base*2^n, capped at max. A non-zero
// jitter fraction spreads each delay by up to ±jitter.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
	cur    time.Duration
}

func newBackoff(base, max time.Duration, jitter float64) *backoff {
	return &backoff{base: base, max: max, jitter: jitter}
}

// Next returns the delay before the next retry and advances the schedule.
func (b *backoff) Next() time.Duration {
	if b.cur == 0 {
		b.cur = b.base
	} else {
		b.cur *= 2
		if b.max > 0 && b.cur > b.max {
			b.cur = b.max
		}
	}
	d := b.cur
	if b.jitter > 0 {
		spread := float64(d) * b.jitter
		d += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return d
}

func (b *backoff) Reset() { b.cur = 0 }
