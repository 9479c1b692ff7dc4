// Package camera implements an orbiting camera: a target point, a distance
// from it and two angles around it. Per-frame input (keys, mouse drags,
// wheel, optional automatic spin) rotates the eye around the target.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Default projection parameters.
const (
	DefaultFovY   = 45 // degrees
	DefaultNear   = 0.01
	DefaultFar    = 1000
	DefaultAspect = 640.0 / 480.0
)

// maxPitch keeps the eye off the poles so LookAt never sees a view
// direction parallel to up.
const maxPitch = math.Pi/2 - 0.01

// minDistance keeps the eye from collapsing into the target.
const minDistance = 1e-3

var yAxis = mgl32.Vec3{0, 1, 0}

// OrbitCamera is an orbit camera. Fields are unexported; the zero value is
// not usable, construct with New.
type OrbitCamera struct {
	at       mgl32.Vec3
	up       mgl32.Vec3
	eye      mgl32.Vec3
	distance float32
	minDist  float32
	maxDist  float32
	yaw      float32 // around up, 0 looks down -Z from +Z
	pitch    float32 // elevation above the target's horizontal plane

	fovy, aspect, near, far float32

	// OrbitSpeed is the key-driven rotation speed in radians per second.
	OrbitSpeed float32
	// ZoomSpeed is the key-driven distance change in units per second.
	ZoomSpeed float32
	// MouseSensitivity converts mouse pixels to radians.
	MouseSensitivity float32
	// AutoOrbit spins the camera around up at this rate (radians per second).
	AutoOrbit float32

	keys       map[string]bool
	dragYaw    float32
	dragPitch  float32
	wheelSteps float32

	view mgl32.Mat4
	proj mgl32.Mat4
}

// New returns a camera looking from eye at at.
func New(eye, at, up mgl32.Vec3) *OrbitCamera {
	c := &OrbitCamera{
		fovy:             mgl32.DegToRad(DefaultFovY),
		aspect:           DefaultAspect,
		near:             DefaultNear,
		far:              DefaultFar,
		OrbitSpeed:       1.5,
		ZoomSpeed:        5,
		MouseSensitivity: 0.005,
		minDist:          minDistance,
		maxDist:          math.MaxFloat32,
		keys:             make(map[string]bool),
	}
	c.updateProj()
	c.SetView(eye, at, up)
	return c
}

// SetView places the camera at eye looking at at. The orbit angles and the
// distance are derived from the eye's offset to the target.
func (c *OrbitCamera) SetView(eye, at, up mgl32.Vec3) {
	if up.Len() == 0 {
		up = yAxis
	}
	c.at = at
	c.up = up.Normalize()

	off := eye.Sub(at)
	if d := off.Len(); d >= minDistance {
		c.distance = c.clampDistance(d)
		dir := c.toLocal(off.Mul(1 / d))
		c.pitch = clampPitch(float32(math.Asin(float64(clamp(dir[1], -1, 1)))))
		c.yaw = float32(math.Atan2(float64(dir[0]), float64(dir[2])))
	} else {
		c.distance = c.clampDistance(c.distance)
	}
	c.eye = eye
	c.view = mgl32.LookAtV(c.eye, c.at, c.up)
}

// Eye returns the eye position.
func (c *OrbitCamera) Eye() mgl32.Vec3 { return c.eye }

// At returns the target position.
func (c *OrbitCamera) At() mgl32.Vec3 { return c.at }

// Up returns the up direction.
func (c *OrbitCamera) Up() mgl32.Vec3 { return c.up }

// Distance returns the distance from the eye to the target.
func (c *OrbitCamera) Distance() float32 { return c.distance }

// SetDistance changes the target distance, clamped to the distance
// limits. The eye moves on the next Update.
func (c *OrbitCamera) SetDistance(d float32) {
	c.distance = c.clampDistance(d)
}

// SetDistanceLimits bounds every later distance change, including wheel
// and key zoom. The current distance is clamped immediately. A min below
// 1e-3 is raised to it; a max below min is raised to min.
func (c *OrbitCamera) SetDistanceLimits(min, max float32) {
	if min < minDistance {
		min = minDistance
	}
	if max < min {
		max = min
	}
	c.minDist, c.maxDist = min, max
	c.distance = c.clampDistance(c.distance)
}

// DistanceLimits returns the distance bounds.
func (c *OrbitCamera) DistanceLimits() (min, max float32) { return c.minDist, c.maxDist }

func (c *OrbitCamera) clampDistance(d float32) float32 {
	return clamp(d, c.minDist, c.maxDist)
}

// View returns the view matrix.
func (c *OrbitCamera) View() mgl32.Mat4 { return c.view }

// Proj returns the projection matrix.
func (c *OrbitCamera) Proj() mgl32.Mat4 { return c.proj }

// ViewProj returns Proj * View.
func (c *OrbitCamera) ViewProj() mgl32.Mat4 { return c.proj.Mul4(c.view) }

// Resize updates the aspect ratio for a viewport of w×h pixels.
func (c *OrbitCamera) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	c.aspect = float32(w) / float32(h)
	c.updateProj()
}

// SetProjection overrides the vertical field of view (degrees) and the
// clip planes.
func (c *OrbitCamera) SetProjection(fovyDeg, near, far float32) {
	c.fovy = mgl32.DegToRad(fovyDeg)
	c.near, c.far = near, far
	c.updateProj()
}

func (c *OrbitCamera) updateProj() {
	c.proj = mgl32.Perspective(c.fovy, c.aspect, c.near, c.far)
}

// KeyDown records a held orbit key: W/S pitch, A/D yaw, Q/E zoom in/out.
// It reports whether the key is an orbit key.
func (c *OrbitCamera) KeyDown(key string) bool {
	if !isOrbitKey(key) {
		return false
	}
	c.keys[key] = true
	return true
}

// KeyUp releases an orbit key.
func (c *OrbitCamera) KeyUp(key string) {
	delete(c.keys, key)
}

func isOrbitKey(key string) bool {
	switch key {
	case "W", "A", "S", "D", "Q", "E":
		return true
	}
	return false
}

// MouseMove accumulates a drag by (dx, dy) pixels. Moves without the drag
// button are ignored.
func (c *OrbitCamera) MouseMove(dx, dy float32, dragging bool) {
	if !dragging {
		return
	}
	c.dragYaw -= dx * c.MouseSensitivity
	c.dragPitch += dy * c.MouseSensitivity
}

// MouseWheel accumulates wheel steps; positive steps zoom in.
func (c *OrbitCamera) MouseWheel(dy float32) {
	c.wheelSteps += dy
}

// Update advances the orbit by dt seconds using held keys, accumulated
// mouse input and AutoOrbit, then recomputes the eye and view matrix.
func (c *OrbitCamera) Update(dt float32) {
	var yawRate, pitchRate, zoomRate float32
	if c.keys["A"] {
		yawRate -= c.OrbitSpeed
	}
	if c.keys["D"] {
		yawRate += c.OrbitSpeed
	}
	if c.keys["W"] {
		pitchRate += c.OrbitSpeed
	}
	if c.keys["S"] {
		pitchRate -= c.OrbitSpeed
	}
	if c.keys["Q"] {
		zoomRate -= c.ZoomSpeed
	}
	if c.keys["E"] {
		zoomRate += c.ZoomSpeed
	}

	c.yaw += (yawRate+c.AutoOrbit)*dt + c.dragYaw
	c.pitch = clampPitch(c.pitch + pitchRate*dt + c.dragPitch)
	c.SetDistance(c.distance*float32(math.Pow(0.9, float64(c.wheelSteps))) + zoomRate*dt)
	c.dragYaw, c.dragPitch, c.wheelSteps = 0, 0, 0

	c.eye = c.at.Add(c.direction().Mul(c.distance))
	c.view = mgl32.LookAtV(c.eye, c.at, c.up)
}

// direction is the unit vector from the target to the eye.
func (c *OrbitCamera) direction() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(c.yaw))
	sp, cp := math.Sincos(float64(c.pitch))
	return c.toWorld(mgl32.Vec3{float32(cp * sy), float32(sp), float32(cp * cy)})
}

// toWorld maps a direction from the orbit frame, where up is +Y, to world
// space. toLocal is its inverse.
func (c *OrbitCamera) toWorld(d mgl32.Vec3) mgl32.Vec3 {
	if c.up.ApproxEqual(yAxis) {
		return d
	}
	return mgl32.QuatBetweenVectors(yAxis, c.up).Rotate(d)
}

func (c *OrbitCamera) toLocal(d mgl32.Vec3) mgl32.Vec3 {
	if c.up.ApproxEqual(yAxis) {
		return d
	}
	return mgl32.QuatBetweenVectors(yAxis, c.up).Inverse().Rotate(d)
}

func clampPitch(p float32) float32 {
	return clamp(p, -maxPitch, maxPitch)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
