package tessellate

import (
	"fmt"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// ShapeKind enumerates the primitive solids a Part can be built from.
type ShapeKind int

const (
	ShapeBox    ShapeKind = iota // Size is the full extent along each axis
	ShapeSphere                  // Size[0] is the radius
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Shape is one primitive of a static part, positioned in part space.
type Shape struct {
	Kind   ShapeKind
	Size   mgl32.Vec3
	Offset mgl32.Vec3
}

// Part is a static scene object: the union of its shapes, scaled, then
// rotated (Euler degrees), then translated.
type Part struct {
	Name        string
	Shapes      []Shape
	Scale       mgl32.Vec3 // zero means unscaled
	Rotation    mgl32.Vec3
	Translation mgl32.Vec3
}

// Solids produces one triangle mesh per part using the provided geometry
// kernel. Parts with no shapes are skipped.
func Solids(k kernel.Kernel, parts []Part) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, p := range parts {
		if len(p.Shapes) == 0 {
			continue
		}
		m, err := solidMesh(k, p)
		if err != nil {
			return nil, fmt.Errorf("tessellate: part %q: %w", p.Name, err)
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

// solidMesh builds a single part. Kernels panic on invalid primitive
// parameters; the panic is reported as an error for that part.
func solidMesh(k kernel.Kernel, p Part) (m *kernel.Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("kernel panic: %v", r)
		}
	}()

	var solid kernel.Solid
	for _, sh := range p.Shapes {
		s, err := shapeSolid(k, sh)
		if err != nil {
			return nil, err
		}
		if sh.Offset != (mgl32.Vec3{}) {
			s = k.Translate(s, float64(sh.Offset[0]), float64(sh.Offset[1]), float64(sh.Offset[2]))
		}
		if solid == nil {
			solid = s
		} else {
			solid = k.Union(solid, s)
		}
	}

	// Scale, then rotation, then translation.
	if p.Scale != (mgl32.Vec3{}) {
		solid = k.Scale(solid, float64(p.Scale[0]), float64(p.Scale[1]), float64(p.Scale[2]))
	}
	rot := p.Rotation
	if rot != (mgl32.Vec3{}) {
		solid = k.Rotate(solid, float64(rot[0]), float64(rot[1]), float64(rot[2]))
	}
	trans := p.Translation
	if trans != (mgl32.Vec3{}) {
		solid = k.Translate(solid, float64(trans[0]), float64(trans[1]), float64(trans[2]))
	}

	m, err = k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	m.Name = p.Name
	return m, nil
}

func shapeSolid(k kernel.Kernel, sh Shape) (kernel.Solid, error) {
	switch sh.Kind {
	case ShapeBox:
		return k.Box(float64(sh.Size[0]), float64(sh.Size[1]), float64(sh.Size[2])), nil
	case ShapeSphere:
		return k.Sphere(float64(sh.Size[0])), nil
	default:
		return nil, fmt.Errorf("unsupported shape kind %v", sh.Kind)
	}
}
