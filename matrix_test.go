// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"encoding/binary"
	"math"
	"testing"
)

const eps = 1e-9

func TestMat4Identity(t *testing.T) {
	m := Identity()
	if !m.IsIdentity() || m.IsZero() {
		t.Fatal("Identity() is not the identity")
	}
	p := V3(1, -2, 3)
	if got := m.TransformPoint(p); got != p {
		t.Errorf("I·p = %v, want %v", got, p)
	}
	if !(Mat4{}).IsZero() {
		t.Error("zero Mat4 should report IsZero")
	}
}

func TestMat4MulOrder(t *testing.T) {
	// Scale first, then translate.
	m := Translate(10, 0, 0).Mul(Scale(2, 2, 2))
	if got := m.TransformPoint(V3(1, 1, 1)); !got.Approx(V3(12, 2, 2), eps) {
		t.Errorf("T·S·p = %v, want (12,2,2)", got)
	}
	m = Scale(2, 2, 2).Mul(Translate(10, 0, 0))
	if got := m.TransformPoint(V3(1, 1, 1)); !got.Approx(V3(22, 2, 2), eps) {
		t.Errorf("S·T·p = %v, want (22,2,2)", got)
	}
	if got := Identity().Mul(RotateY(0.3)); got != RotateY(0.3) {
		t.Error("I·R != R")
	}
}

func TestMat4Rotate(t *testing.T) {
	got := RotateZ(math.Pi / 2).TransformPoint(V3(1, 0, 0))
	if !got.Approx(V3(0, 1, 0), eps) {
		t.Errorf("RotateZ(90°)·x = %v, want y", got)
	}
	got = RotateY(math.Pi / 2).TransformPoint(V3(0, 0, 1))
	if !got.Approx(V3(1, 0, 0), eps) {
		t.Errorf("RotateY(90°)·z = %v, want x", got)
	}
}

func TestMat4At(t *testing.T) {
	m := Translate(4, 5, 6)
	if m.At(0, 3) != 4 || m.At(1, 3) != 5 || m.At(2, 3) != 6 || m.At(3, 3) != 1 {
		t.Errorf("translation column = %v %v %v %v", m.At(0, 3), m.At(1, 3), m.At(2, 3), m.At(3, 3))
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(math.Pi/2, 1, 1, 10)
	if z := p.TransformPoint(V3(0, 0, -1)).Z; math.Abs(z) > eps {
		t.Errorf("near plane depth = %v, want 0", z)
	}
	if z := p.TransformPoint(V3(0, 0, -10)).Z; math.Abs(z-1) > eps {
		t.Errorf("far plane depth = %v, want 1", z)
	}
	// 90° fov: a point on the top edge of the near plane maps to y=1.
	if y := p.TransformPoint(V3(0, 1, -1)).Y; math.Abs(y-1) > eps {
		t.Errorf("top edge y = %v, want 1", y)
	}
}

func TestLookAt(t *testing.T) {
	v := LookAt(V3(0, 0, 5), V3(0, 0, 0), V3(0, 1, 0))
	if got := v.TransformPoint(V3(0, 0, 0)); !got.Approx(V3(0, 0, -5), eps) {
		t.Errorf("target in view space = %v, want (0,0,-5)", got)
	}
	if got := v.TransformPoint(V3(0, 0, 5)); !got.Approx(Vec3{}, eps) {
		t.Errorf("eye in view space = %v, want origin", got)
	}
	if got := v.TransformPoint(V3(1, 0, 0)); !got.Approx(V3(1, 0, -5), eps) {
		t.Errorf("+x in view space = %v, want (1,0,-5)", got)
	}
}

func TestMat4AppendBytes(t *testing.T) {
	m := Translate(1, 2, 3)
	b := m.AppendBytes([]byte{0xff})
	if len(b) != 1+Mat4Size {
		t.Fatalf("len = %d, want %d", len(b), 1+Mat4Size)
	}
	b = b[1:]
	for i, want := range m {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if float64(got) != want {
			t.Errorf("element %d = %v, want %v", i, got, want)
		}
	}
}
