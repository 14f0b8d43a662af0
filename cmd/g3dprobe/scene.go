// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/render"
)

const probeShader = `
struct Uniforms {
    mvp: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return u.mvp * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.9, 0.4, 0.1, 1.0);
}
`

// probeScene is one spinning triangle.
type probeScene struct {
	material *render.MaterialDescriptor
	geometry *g3d.GeometryBuffer
	angle    float64
}

func newProbeScene() *probeScene {
	stream := render.VertexStream{
		Stride: 12,
		Attributes: []render.VertexAttribute{
			{Name: "position", Location: 0, Format: gputypes.VertexFormatFloat32x3},
		},
	}
	var verts []byte
	for _, v := range [][3]float32{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}} {
		for _, f := range v {
			verts = binary.LittleEndian.AppendUint32(verts, math.Float32bits(f))
		}
	}
	return &probeScene{
		material: &render.MaterialDescriptor{
			Key:                "g3dprobe/unlit",
			Source:             probeShader,
			Streams:            []render.VertexStream{stream},
			Uniforms:           []render.UniformBlock{{Group: 0, Binding: 0, Size: 64}},
			RequiredAttributes: []string{"position"},
		},
		geometry: &g3d.GeometryBuffer{Layout: stream, Vertices: verts},
	}
}

// step advances the animation and returns the frame's scene.
func (s *probeScene) step() g3d.ObjectList {
	s.angle += math.Pi / 90
	return g3d.ObjectList{{
		Geometry:  s.geometry,
		Material:  s.material,
		Transform: g3d.RotateY(s.angle),
	}}
}
