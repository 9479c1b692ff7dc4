// Package surface defines parametric surfaces: continuous shapes given by
// a function of two parameters (u, v) in [0,1]×[0,1].
//
// A surface is described by up to three evaluators. Position is mandatory;
// Normal and TexCoord are optional capabilities discovered by type
// assertion, so a surface that can only report positions still tessellates
// (normals are then estimated by finite differences).
package surface

import (
	"errors"
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrUnknownSurface is returned by New for an unrecognized surface kind.
var ErrUnknownSurface = errors.New("unknown surface kind")

// Positioner evaluates a point on the surface.
type Positioner interface {
	Position(u, v float64) v3.Vec
}

// Normaler evaluates the outward unit normal at (u, v).
type Normaler interface {
	Normal(u, v float64) v3.Vec
}

// Texturer evaluates the texture coordinate at (u, v).
type Texturer interface {
	TexCoord(u, v float64) v2.Vec
}

// Surface is a fully analytic parametric surface.
type Surface interface {
	Positioner
	Normaler
	Texturer
}

// Compile-time checks.
var (
	_ Surface    = Sphere{}
	_ Surface    = Torus{}
	_ Positioner = PositionFunc(nil)
)

// Sphere is a sphere of the given radius centered on the origin.
// u sweeps the azimuth over [0, 2π), v the polar angle over [0, π];
// both poles collapse to a single point.
type Sphere struct {
	Radius float64
}

// Position implements Positioner.
func (s Sphere) Position(u, v float64) v3.Vec {
	return s.Normal(u, v).MulScalar(s.Radius)
}

// Normal implements Normaler.
func (s Sphere) Normal(u, v float64) v3.Vec {
	phi := 2 * math.Pi * u
	theta := math.Pi * v
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return v3.Vec{X: st * cp, Y: ct, Z: st * sp}
}

// TexCoord implements Texturer.
func (s Sphere) TexCoord(u, v float64) v2.Vec {
	return v2.Vec{X: u, Y: v}
}

// Torus is a ring torus lying in the XZ plane around the origin.
// u goes around the ring, v around the tube; both span [0, 2π).
type Torus struct {
	MajorRadius float64 // center of the tube to the center of the torus
	MinorRadius float64 // radius of the tube
}

// Position implements Positioner.
func (t Torus) Position(u, v float64) v3.Vec {
	sp, cp := math.Sincos(2 * math.Pi * u)
	st, ct := math.Sincos(2 * math.Pi * v)
	w := t.MajorRadius + t.MinorRadius*ct
	return v3.Vec{X: w * cp, Y: t.MinorRadius * st, Z: -w * sp}
}

// Normal implements Normaler.
func (t Torus) Normal(u, v float64) v3.Vec {
	sp, cp := math.Sincos(2 * math.Pi * u)
	st, ct := math.Sincos(2 * math.Pi * v)
	return v3.Vec{X: ct * cp, Y: st, Z: -ct * sp}
}

// TexCoord implements Texturer.
func (t Torus) TexCoord(u, v float64) v2.Vec {
	return v2.Vec{X: u, Y: v}
}

// PositionFunc adapts a bare position function into a Positioner.
type PositionFunc func(u, v float64) v3.Vec

// Position implements Positioner.
func (f PositionFunc) Position(u, v float64) v3.Vec {
	return f(u, v)
}

// New builds a surface by kind name. Torus uses both radii; sphere uses
// only the major radius.
func New(kind string, major, minor float64) (Surface, error) {
	switch kind {
	case "torus":
		if major <= 0 || minor <= 0 {
			return nil, fmt.Errorf("surface: torus radii must be positive, got %g and %g", major, minor)
		}
		return Torus{MajorRadius: major, MinorRadius: minor}, nil
	case "sphere":
		if major <= 0 {
			return nil, fmt.Errorf("surface: sphere radius must be positive, got %g", major)
		}
		return Sphere{Radius: major}, nil
	}
	return nil, fmt.Errorf("surface: %w %q", ErrUnknownSurface, kind)
}
