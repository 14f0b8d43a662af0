// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3d

import (
	"fmt"
	"iter"
	"math"

	"github.com/gogpu/g3d/render"
)

// Surface is the window surface a renderer draws into.
type Surface = render.Surface

// Color is a linear RGBA color.
type Color = render.Color

// Scene is a read-only collection of drawable objects. The renderer
// traverses it once per frame and never modifies it.
type Scene interface {
	Objects() iter.Seq[Object]
}

// Camera supplies the view and projection matrices for a frame.
type Camera interface {
	View() Mat4
	Projection() Mat4
}

// Object pairs geometry with a material. A zero Transform is treated as
// the identity.
type Object struct {
	Geometry  *GeometryBuffer
	Material  *render.MaterialDescriptor
	Transform Mat4

	// Params are written after the model-view-projection matrix in the
	// material's first uniform block.
	Params []byte
}

func (o Object) transform() Mat4 {
	if o.Transform.IsZero() {
		return Identity()
	}
	return o.Transform
}

// ObjectList is a Scene over a fixed slice of objects.
type ObjectList []Object

// Objects yields the objects in order.
func (l ObjectList) Objects() iter.Seq[Object] {
	return func(yield func(Object) bool) {
		for _, o := range l {
			if !yield(o) {
				return
			}
		}
	}
}

// GeometryBuffer is vertex data for vertex slot 0 with optional index data.
// It is uploaded on first use and must not be modified afterwards; call
// Renderer.ReleaseGeometry before changing it.
type GeometryBuffer struct {
	Layout   render.VertexStream
	Vertices []byte

	// Indices or Indices16 select an indexed triangle-list draw.
	// When both are set Indices16 wins.
	Indices   []uint32
	Indices16 []uint16
}

// VertexCount returns the number of whole vertices in Vertices.
func (g *GeometryBuffer) VertexCount() int {
	if g.Layout.Stride == 0 {
		return 0
	}
	return len(g.Vertices) / int(g.Layout.Stride)
}

// Indexed reports whether the geometry carries index data.
func (g *GeometryBuffer) Indexed() bool {
	return len(g.Indices16) > 0 || len(g.Indices) > 0
}

// Validate checks the geometry against material m: the layout must match
// the material's first stream and provide its required attributes.
func (g *GeometryBuffer) Validate(m *render.MaterialDescriptor) error {
	if len(g.Vertices) == 0 {
		return fmt.Errorf("%w: geometry has no vertices", render.ErrConfig)
	}
	if g.Layout.Stride == 0 || len(g.Vertices)%int(g.Layout.Stride) != 0 {
		return fmt.Errorf("%w: %d vertex bytes do not fit stride %d", render.ErrConfig, len(g.Vertices), g.Layout.Stride)
	}
	if m == nil {
		return nil
	}
	if len(m.Streams) > 0 && m.Streams[0].Stride != g.Layout.Stride {
		return fmt.Errorf("%w: geometry stride %d, material %q expects %d",
			render.ErrConfig, g.Layout.Stride, m.Key, m.Streams[0].Stride)
	}
	have := make(map[string]bool, len(g.Layout.Attributes))
	for _, a := range g.Layout.Attributes {
		have[a.Name] = true
	}
	for _, name := range m.RequiredAttributes {
		if !have[name] {
			return fmt.Errorf("%w: geometry lacks attribute %q required by material %q", render.ErrConfig, name, m.Key)
		}
	}
	return nil
}

// PerspectiveCamera is a Camera looking from Eye at Target.
// Zero fields take defaults: Up +Y, FovY 60°, Aspect 1, Near 0.1, Far 100.
type PerspectiveCamera struct {
	Eye, Target, Up Vec3
	FovY            float64
	Aspect          float64
	Near, Far       float64
}

// View implements Camera.
func (c PerspectiveCamera) View() Mat4 {
	up := c.Up
	if up.IsZero() {
		up = V3(0, 1, 0)
	}
	return LookAt(c.Eye, c.Target, up)
}

// Projection implements Camera.
func (c PerspectiveCamera) Projection() Mat4 {
	fov, aspect, near, far := c.FovY, c.Aspect, c.Near, c.Far
	if fov == 0 {
		fov = math.Pi / 3
	}
	if aspect == 0 {
		aspect = 1
	}
	if near == 0 {
		near = 0.1
	}
	if far == 0 {
		far = 100
	}
	return Perspective(fov, aspect, near, far)
}
