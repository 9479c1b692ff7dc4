package kernel

import "github.com/go-gl/mathgl/mgl32"

// FloatsPerVertex is the stride of Interleaved: position (3), normal (3),
// texcoord (2).
const FloatsPerVertex = 8

// Vertex is a single mesh vertex. Vertices are immutable once produced.
type Vertex struct {
	Position mgl32.Vec3 `json:"position"`
	Normal   mgl32.Vec3 `json:"normal"`
	TexCoord mgl32.Vec2 `json:"texcoord"`
}

// Mesh is an indexed triangle mesh suitable for rendering.
// Every consecutive triple of Indices is one counter-clockwise triangle.
type Mesh struct {
	Name     string   `json:"name"`
	Vertices []Vertex `json:"vertices"`
	Indices  []uint32 `json:"indices"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Interleaved flattens the vertices into a single buffer laid out as
// [px py pz nx ny nz u v] per vertex.
func (m *Mesh) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Vertices)*FloatsPerVertex)
	for _, v := range m.Vertices {
		out = append(out,
			v.Position[0], v.Position[1], v.Position[2],
			v.Normal[0], v.Normal[1], v.Normal[2],
			v.TexCoord[0], v.TexCoord[1])
	}
	return out
}

// Positions returns the flat [x0,y0,z0, x1,y1,z1, ...] position buffer.
func (m *Mesh) Positions() []float32 {
	out := make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		out = append(out, v.Position[0], v.Position[1], v.Position[2])
	}
	return out
}

// Normals returns the flat normal buffer, 3 floats per vertex.
func (m *Mesh) Normals() []float32 {
	out := make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		out = append(out, v.Normal[0], v.Normal[1], v.Normal[2])
	}
	return out
}

// TexCoords returns the flat texture coordinate buffer, 2 floats per vertex.
func (m *Mesh) TexCoords() []float32 {
	out := make([]float32, 0, len(m.Vertices)*2)
	for _, v := range m.Vertices {
		out = append(out, v.TexCoord[0], v.TexCoord[1])
	}
	return out
}

// BoundingRadius returns the largest distance of any vertex from the
// mesh origin. An empty mesh has radius 0.
func (m *Mesh) BoundingRadius() float32 {
	var r float32
	for _, v := range m.Vertices {
		if l := v.Position.Len(); l > r {
			r = l
		}
	}
	return r
}
