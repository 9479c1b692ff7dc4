package kernel

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// --- Mesh helper method tests ---

func quad() *Mesh {
	n := mgl32.Vec3{0, 0, 1}
	return &Mesh{
		Name: "quad",
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-1, -1, 0}, Normal: n, TexCoord: mgl32.Vec2{0, 0}},
			{Position: mgl32.Vec3{1, -1, 0}, Normal: n, TexCoord: mgl32.Vec2{1, 0}},
			{Position: mgl32.Vec3{-1, 1, 0}, Normal: n, TexCoord: mgl32.Vec2{0, 1}},
			{Position: mgl32.Vec3{1, 1, 0}, Normal: n, TexCoord: mgl32.Vec2{1, 1}},
		},
		Indices: []uint32{0, 1, 2, 1, 3, 2},
	}
}

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []Vertex
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []Vertex{{Position: mgl32.Vec3{1, 2, 3}}}, 1},
		{"four vertices", quad().Vertices, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		if quad().IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshInterleaved(t *testing.T) {
	m := quad()
	buf := m.Interleaved()
	if len(buf) != m.VertexCount()*FloatsPerVertex {
		t.Fatalf("len(Interleaved()) = %d, want %d", len(buf), m.VertexCount()*FloatsPerVertex)
	}
	// Second vertex: position (1,-1,0), normal (0,0,1), texcoord (1,0).
	want := []float32{1, -1, 0, 0, 0, 1, 1, 0}
	got := buf[FloatsPerVertex : 2*FloatsPerVertex]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vertex 1 component %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMeshFlatBuffers(t *testing.T) {
	m := quad()
	if got := len(m.Positions()); got != 12 {
		t.Errorf("len(Positions()) = %d, want 12", got)
	}
	if got := len(m.Normals()); got != 12 {
		t.Errorf("len(Normals()) = %d, want 12", got)
	}
	if got := len(m.TexCoords()); got != 8 {
		t.Errorf("len(TexCoords()) = %d, want 8", got)
	}
	if uv := m.TexCoords(); uv[6] != 1 || uv[7] != 1 {
		t.Errorf("last texcoord = (%v, %v), want (1, 1)", uv[6], uv[7])
	}
}

func TestMeshBoundingRadius(t *testing.T) {
	if r := (&Mesh{}).BoundingRadius(); r != 0 {
		t.Errorf("empty BoundingRadius() = %v, want 0", r)
	}
	r := quad().BoundingRadius()
	if math.Abs(float64(r)-math.Sqrt2) > 1e-6 {
		t.Errorf("quad BoundingRadius() = %v, want sqrt(2)", r)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{
		minBB: [3]float64{0, 0, 0},
		maxBB: [3]float64{x, y, z},
	}
}

func (k *stubKernel) Sphere(radius float64) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, -radius},
		maxBB: [3]float64{radius, radius, radius},
	}
}

func (k *stubKernel) Union(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }
func (k *stubKernel) Scale(s Solid, _, _, _ float64) Solid     { return s }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelSphereBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Sphere(2)
	min, max := s.BoundingBox()
	if min != [3]float64{-2, -2, -2} {
		t.Errorf("Sphere min = %v, want [-2 -2 -2]", min)
	}
	if max != [3]float64{2, 2, 2} {
		t.Errorf("Sphere max = %v, want [2 2 2]", max)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(1, 1, 1)
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}
