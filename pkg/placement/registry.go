// Package placement tracks where user-spawned objects sit in the scene.
//
// A Registry is append-only for the lifetime of a session. Every object is
// bounded by a sphere of the same radius and no two bounding spheres may
// overlap. The registry also owns the teleport cursor: the index of the
// object the camera will jump to next.
package placement

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// NoCursor is the cursor value while the registry is empty.
const NoCursor = -1

// Registry is the ordered set of placed objects. It is not safe for
// concurrent use; the scene drives it from a single goroutine.
type Registry struct {
	radius  float32
	objects []mgl32.Vec3
	cursor  int
}

// NewRegistry returns an empty registry whose objects are bounded by
// spheres of sphereRadius. It panics if sphereRadius is not positive.
func NewRegistry(sphereRadius float32) *Registry {
	if !(sphereRadius > 0) {
		panic(fmt.Sprintf("placement: sphere radius must be positive, got %v", sphereRadius))
	}
	return &Registry{radius: sphereRadius, cursor: NoCursor}
}

// SphereRadius returns the bounding radius shared by all objects.
func (r *Registry) SphereRadius() float32 {
	return r.radius
}

// Count returns the number of placed objects.
func (r *Registry) Count() int {
	return len(r.objects)
}

// At returns the position of the i'th placed object. It panics if i is out
// of range.
func (r *Registry) At(i int) mgl32.Vec3 {
	if i < 0 || i >= len(r.objects) {
		panic(fmt.Sprintf("placement: index %d out of range [0, %d)", i, len(r.objects)))
	}
	return r.objects[i]
}

// Positions returns a copy of all placed positions in insertion order.
func (r *Registry) Positions() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(r.objects))
	copy(out, r.objects)
	return out
}

// Cursor returns the teleport cursor, or NoCursor if nothing is placed.
func (r *Registry) Cursor() int {
	return r.cursor
}

// Fits reports whether p is more than two radii away from every placed
// object.
func (r *Registry) Fits(p mgl32.Vec3) bool {
	minDist := 2 * r.radius
	minSq := minDist * minDist
	for _, q := range r.objects {
		d := p.Sub(q)
		if d.Dot(d) <= minSq {
			return false
		}
	}
	return true
}

// TryPlace appends p if it does not collide with any placed object and
// reports whether it did.
//
// On success the cursor moves to the new object only if it was already
// pointing at the previous newest object (or was unset). A cursor that
// has been left behind among older objects stays where it is.
func (r *Registry) TryPlace(p mgl32.Vec3) bool {
	if !r.Fits(p) {
		return false
	}
	r.objects = append(r.objects, p)
	switch {
	case r.cursor == NoCursor:
		r.cursor = 0
	case r.cursor == len(r.objects)-2:
		r.cursor++
	}
	return true
}

// Advance returns the position under the cursor and then moves the cursor
// one step forward unless it is already on the last object. It returns
// false when nothing has been placed.
func (r *Registry) Advance() (mgl32.Vec3, bool) {
	if r.cursor == NoCursor {
		return mgl32.Vec3{}, false
	}
	p := r.objects[r.cursor]
	if r.cursor < len(r.objects)-1 {
		r.cursor++
	}
	return p, true
}
