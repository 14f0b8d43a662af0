// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"math"
	"testing"
)

func TestVec3Arithmetic(t *testing.T) {
	a, b := V3(1, 2, 3), V3(4, -5, 6)
	tests := []struct {
		name string
		got  Vec3
		want Vec3
	}{
		{"add", a.Add(b), V3(5, -3, 9)},
		{"sub", a.Sub(b), V3(-3, 7, -3)},
		{"mul", a.Mul(2), V3(2, 4, 6)},
		{"neg", a.Neg(), V3(-1, -2, -3)},
		{"lerp0", a.Lerp(b, 0), a},
		{"lerp1", a.Lerp(b, 1), b},
		{"lerp half", V3(0, 0, 0).Lerp(V3(2, 4, 6), 0.5), V3(1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Approx(tt.want, 1e-12) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestVec3DotCross(t *testing.T) {
	x, y, z := V3(1, 0, 0), V3(0, 1, 0), V3(0, 0, 1)
	if got := x.Cross(y); got != z {
		t.Errorf("x × y = %v, want %v", got, z)
	}
	if got := y.Cross(x); got != z.Neg() {
		t.Errorf("y × x = %v, want %v", got, z.Neg())
	}
	if got := V3(1, 2, 3).Dot(V3(4, 5, 6)); got != 32 {
		t.Errorf("dot = %v, want 32", got)
	}
	if got := x.Dot(y); got != 0 {
		t.Errorf("orthogonal dot = %v", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := V3(3, 0, 4).Normalize()
	if math.Abs(n.Length()-1) > 1e-12 {
		t.Errorf("length = %v, want 1", n.Length())
	}
	if !n.Approx(V3(0.6, 0, 0.8), 1e-12) {
		t.Errorf("Normalize = %v", n)
	}
	if got := (Vec3{}).Normalize(); !got.IsZero() {
		t.Errorf("zero Normalize = %v, want zero", got)
	}
}
