package scene

import (
	"github.com/chazu/tessera/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl32"
)

// Table and marble placement. The table is a unit quad slab lying in the
// XZ plane below the origin; the marble rests on it.
var (
	TablePos  = mgl32.Vec3{0, -2, 0}
	TableSize = float32(5)
	MarblePos = mgl32.Vec3{3, -1.3, 0}
)

const marbleRadius = 0.5

// StaticParts describes the meshes drawn every frame regardless of
// placement: the table and the marble.
func StaticParts() []tessellate.Part {
	return []tessellate.Part{
		{
			Name: "table",
			// A 2x2 quad in XY with some thickness, turned to face +Y.
			Shapes:      []tessellate.Shape{{Kind: tessellate.ShapeBox, Size: mgl32.Vec3{2, 2, 0.2}}},
			Scale:       mgl32.Vec3{TableSize, TableSize, 2},
			Rotation:    mgl32.Vec3{-90, 0, 0},
			Translation: TablePos,
		},
		{
			Name:        "marble",
			Shapes:      []tessellate.Shape{{Kind: tessellate.ShapeSphere, Size: mgl32.Vec3{marbleRadius}}},
			Translation: MarblePos,
		},
	}
}
