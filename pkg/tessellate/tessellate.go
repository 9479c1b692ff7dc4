// Package tessellate turns geometry descriptions into indexed triangle
// meshes. Generate samples a parametric surface on a regular grid; Solids
// meshes static solid parts through a geometry kernel.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/surface"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidResolution is returned when a grid resolution is below 1.
var ErrInvalidResolution = errors.New("resolution must be at least 1")

// FiniteDifferenceStep is the parameter-space step used to estimate normals
// for surfaces without an analytic normal.
const FiniteDifferenceStep = 0.01

// degenerateLen is the cross product length below which a finite
// difference normal is considered undefined (e.g. at a pole).
const degenerateLen = 1e-12

// VertexCount returns the number of vertices Generate produces for an
// n×m grid. The seam row and column are duplicated so that texture
// coordinates run the full [0,1] range.
func VertexCount(n, m int) int {
	return (n + 1) * (m + 1)
}

// TriangleCount returns the number of triangles Generate produces for an
// n×m grid.
func TriangleCount(n, m int) int {
	return 2 * n * m
}

// Generate samples s on an (n+1)×(m+1) grid over [0,1]² and connects the
// samples into 2·n·m counter-clockwise triangles. Vertex (i, j) sits at
// u = i/n, v = j/m and has index i·(m+1)+j.
//
// The normal comes from the surface's analytic evaluator when it has one
// and from a symmetric finite difference otherwise. Texture coordinates
// come from the surface or default to (u, v). Generate is a pure function:
// identical inputs give identical meshes.
func Generate(s surface.Positioner, n, m int) (*kernel.Mesh, error) {
	if n < 1 || m < 1 {
		return nil, fmt.Errorf("tessellate: %w, got %dx%d", ErrInvalidResolution, n, m)
	}

	normal := normalFunc(s)
	texcoord := texcoordFunc(s)

	vertices := make([]kernel.Vertex, 0, VertexCount(n, m))
	for i := 0; i <= n; i++ {
		u := float64(i) / float64(n)
		for j := 0; j <= m; j++ {
			v := float64(j) / float64(m)
			vertices = append(vertices, kernel.Vertex{
				Position: vec3(s.Position(u, v)),
				Normal:   vec3(normal(u, v)),
				TexCoord: vec2(texcoord(u, v)),
			})
		}
	}

	stride := uint32(m + 1)
	indices := make([]uint32, 0, 3*TriangleCount(n, m))
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			c := a + 1
			d := b + 1
			indices = append(indices, a, b, c, b, d, c)
		}
	}

	return &kernel.Mesh{Vertices: vertices, Indices: indices}, nil
}

func normalFunc(s surface.Positioner) func(u, v float64) v3.Vec {
	if n, ok := s.(surface.Normaler); ok {
		return n.Normal
	}
	return func(u, v float64) v3.Vec {
		return EstimateNormal(s, u, v)
	}
}

func texcoordFunc(s surface.Positioner) func(u, v float64) v2.Vec {
	if t, ok := s.(surface.Texturer); ok {
		return t.TexCoord
	}
	return func(u, v float64) v2.Vec {
		return v2.Vec{X: u, Y: v}
	}
}

// EstimateNormal approximates the unit normal of s at (u, v) as
// normalize(∂P/∂u × ∂P/∂v) using symmetric differences with
// FiniteDifferenceStep. Where the derivative vanishes (a collapsed pole)
// the estimate is retried one step into the interior of v; if that is
// still degenerate the result is +Y.
func EstimateNormal(s surface.Positioner, u, v float64) v3.Vec {
	if n, ok := crossNormal(s, u, v); ok {
		return n
	}
	nudged := v + FiniteDifferenceStep
	if v > 0.5 {
		nudged = v - FiniteDifferenceStep
	}
	if n, ok := crossNormal(s, u, nudged); ok {
		return n
	}
	return v3.Vec{Y: 1}
}

func crossNormal(s surface.Positioner, u, v float64) (v3.Vec, bool) {
	const h = FiniteDifferenceStep
	du := s.Position(u+h, v).Sub(s.Position(u-h, v))
	dv := s.Position(u, v+h).Sub(s.Position(u, v-h))
	c := du.Cross(dv)
	l := c.Length()
	if l < degenerateLen {
		return v3.Vec{}, false
	}
	return c.MulScalar(1 / l), true
}

func vec3(v v3.Vec) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func vec2(v v2.Vec) mgl32.Vec2 {
	return mgl32.Vec2{float32(v.X), float32(v.Y)}
}
