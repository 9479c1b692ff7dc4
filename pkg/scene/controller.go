// Package scene drives one interactive scene: a tessellated parametric
// surface instanced at every accepted placement, a pair of static meshes,
// one light and an orbit camera that can teleport between placements.
//
// A Controller is not safe for concurrent use. Callers that receive input
// on several goroutines must serialize calls themselves.
package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/tessera/pkg/camera"
	"github.com/chazu/tessera/pkg/config"
	"github.com/chazu/tessera/pkg/kernel"
	"github.com/chazu/tessera/pkg/kernel/sdfx"
	"github.com/chazu/tessera/pkg/placement"
	"github.com/chazu/tessera/pkg/render"
	"github.com/chazu/tessera/pkg/surface"
	"github.com/chazu/tessera/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("scene closed")

// ErrNoPlacement is returned by Placed for an index with no placement.
var ErrNoPlacement = errors.New("no such placement")

// Shader parameter names.
const (
	ParamWorld                = "world"
	ParamWorldIT              = "worldIT"
	ParamViewProj             = "viewProj"
	ParamCameraPos            = "cameraPos"
	ParamLightPos             = "lightPos"
	ParamLa                   = "La"
	ParamKa                   = "Ka"
	ParamConstantAttenuation  = "lightConstantAttenuation"
	ParamLinearAttenuation    = "lightLinearAttenuation"
	ParamQuadraticAttenuation = "lightQuadraticAttenuation"
	ParamSpotDir              = "spotDir"
	ParamCutoff               = "cutoff"
	ParamTexImage             = "texImage"
)

// SurfaceMeshName names the tessellated surface mesh.
const SurfaceMeshName = "surface"

// Resolution is the tessellation grid size.
type Resolution struct {
	N int `json:"n"`
	M int `json:"m"`
}

// UIState is the set of values the UI layer exchanges with the controller
// once per frame. Zero N, M or Distance leave the current value unchanged.
type UIState struct {
	SpawnPos        mgl32.Vec3 `json:"spawnPos"`
	N               int        `json:"n"`
	M               int        `json:"m"`
	Distance        float32    `json:"distance"`
	SpawnPressed    bool       `json:"spawnPressed"`
	TeleportPressed bool       `json:"teleportPressed"`
}

// KeyEvent is a key press or release. Key names are case-insensitive
// ("t", "F1").
type KeyEvent struct {
	Key    string `json:"key"`
	Ctrl   bool   `json:"ctrl"`
	Repeat bool   `json:"repeat"`
}

type static struct {
	name   string
	handle render.Handle
}

// Controller owns every piece of scene state. Construct with New and
// release with Close.
type Controller struct {
	cfg    config.Config
	dev    render.Device
	kernel kernel.Kernel

	surf          surface.Surface
	res           Resolution
	mesh          *kernel.Mesh
	surfaceHandle render.Handle
	statics       []static
	parts         []tessellate.Part

	registry *placement.Registry
	cam      *camera.OrbitCamera
	lighting Lighting

	wireframe       bool
	radius          float32
	pendingTeleport bool
	skipOrbit       bool
	closed          bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithKernel sets the geometry kernel used for the static meshes. The
// default is an sdfx kernel.
func WithKernel(k kernel.Kernel) Option {
	return func(c *Controller) { c.kernel = k }
}

// WithStaticParts replaces the static meshes. An empty list draws none.
func WithStaticParts(parts []tessellate.Part) Option {
	return func(c *Controller) { c.parts = parts }
}

// New builds the scene described by cfg on dev: it tessellates and uploads
// the surface, builds and uploads the static meshes and places the camera.
func New(cfg config.Config, dev render.Device, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	surf, err := surface.New(cfg.Surface.Kind, cfg.Surface.MajorRadius, cfg.Surface.MinorRadius)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	c := &Controller{
		cfg:      cfg,
		dev:      dev,
		surf:     surf,
		parts:    StaticParts(),
		lighting: lightingFromConfig(cfg.Light),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.kernel == nil {
		c.kernel = sdfx.New()
	}

	if err := c.SetResolution(cfg.Resolution.N, cfg.Resolution.M); err != nil {
		return nil, err
	}
	if err := c.uploadStatics(); err != nil {
		c.Close()
		return nil, err
	}

	radius := cfg.Placement.SphereRadius
	if radius <= 0 {
		radius = c.mesh.BoundingRadius()
	}
	c.registry = placement.NewRegistry(radius)

	cc := cfg.Camera
	c.cam = camera.New(mgl32.Vec3(cc.Eye), mgl32.Vec3(cc.At), mgl32.Vec3(cc.Up))
	c.cam.SetDistanceLimits(cc.MinDistance, cc.MaxDistance)
	far := float32(camera.DefaultFar)
	if reach := 2 * (cc.MaxDistance + radius); reach > far {
		far = reach
	}
	c.cam.SetProjection(cc.FovY, camera.DefaultNear, far)
	c.cam.Resize(cfg.Window.Width, cfg.Window.Height)
	c.cam.AutoOrbit = cc.AutoOrbit
	c.radius = c.clampDistance(cc.Distance)

	Logger().Info("scene ready",
		"surface", cfg.Surface.Kind,
		"resolution", fmt.Sprintf("%dx%d", c.res.N, c.res.M),
		"sphereRadius", radius,
		"statics", len(c.statics))
	return c, nil
}

func (c *Controller) uploadStatics() error {
	meshes, err := tessellate.Solids(c.kernel, c.parts)
	if err != nil {
		return fmt.Errorf("scene: static meshes: %w", err)
	}
	for _, m := range meshes {
		h, err := c.dev.Upload(m)
		if err != nil {
			return fmt.Errorf("scene: upload %s: %w", m.Name, err)
		}
		c.statics = append(c.statics, static{name: m.Name, handle: h})
	}
	return nil
}

// SetResolution clamps n and m to the configured bounds and, when the
// result differs from the current resolution, regenerates and re-uploads
// the surface mesh. On error the previous mesh stays in place.
func (c *Controller) SetResolution(n, m int) error {
	if c.closed {
		return ErrClosed
	}
	r := c.cfg.Resolution
	res := Resolution{N: clampInt(n, r.Min, r.Max), M: clampInt(m, r.Min, r.Max)}
	if c.mesh != nil && res == c.res {
		return nil
	}

	mesh, err := tessellate.Generate(c.surf, res.N, res.M)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	mesh.Name = SurfaceMeshName
	h, err := c.dev.Upload(mesh)
	if err != nil {
		return fmt.Errorf("scene: upload surface: %w", err)
	}
	if c.surfaceHandle != 0 {
		if err := c.dev.Release(c.surfaceHandle); err != nil {
			Logger().Warn("release surface mesh", "handle", c.surfaceHandle, "err", err)
		}
	}
	c.mesh, c.surfaceHandle, c.res = mesh, h, res

	Logger().Info("surface regenerated",
		"n", res.N, "m", res.M,
		"vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount())
	return nil
}

// Resolution returns the current tessellation resolution.
func (c *Controller) Resolution() Resolution { return c.res }

// Mesh returns the current surface mesh.
func (c *Controller) Mesh() *kernel.Mesh { return c.mesh }

// SurfaceHandle returns the device handle of the surface mesh.
func (c *Controller) SurfaceHandle() render.Handle { return c.surfaceHandle }

// Spawn places a surface instance at p. It reports false, leaving the
// scene unchanged, when p is too close to an existing placement.
func (c *Controller) Spawn(p mgl32.Vec3) bool {
	if c.closed {
		return false
	}
	if !c.registry.TryPlace(p) {
		Logger().Debug("placement rejected", "pos", p)
		return false
	}
	Logger().Info("placed", "pos", p, "count", c.registry.Count(), "cursor", c.registry.Cursor())
	return true
}

// Teleport moves the camera to the next placement in the teleport
// sequence, looking at it from +Z at the teleport distance. It reports
// false when nothing has been placed. The orbit update of the current
// frame is skipped after a teleport.
func (c *Controller) Teleport() bool {
	if c.closed {
		return false
	}
	target, ok := c.registry.Advance()
	if !ok {
		return false
	}
	eye := target.Add(mgl32.Vec3{0, 0, c.radius})
	c.cam.SetView(eye, target, mgl32.Vec3{0, 1, 0})
	c.skipOrbit = true
	Logger().Debug("teleport", "target", target, "cursor", c.registry.Cursor())
	return true
}

// SetDistance clamps d to the configured camera distance bounds and uses it
// as both the camera distance and the teleport distance. It returns the
// clamped value.
func (c *Controller) SetDistance(d float32) float32 {
	d = c.clampDistance(d)
	c.radius = d
	c.cam.SetDistance(d)
	return d
}

// Distance returns the teleport distance. Wheel and key zoom update it.
func (c *Controller) Distance() float32 { return c.radius }

func (c *Controller) clampDistance(d float32) float32 {
	return mgl32.Clamp(d, c.cfg.Camera.MinDistance, c.cfg.Camera.MaxDistance)
}

// Frame applies one frame of UI input and advances the camera by dt
// seconds. It returns ui with the values the controller actually applied.
func (c *Controller) Frame(dt float32, ui UIState) (UIState, error) {
	if c.closed {
		return ui, ErrClosed
	}
	n, m := ui.N, ui.M
	if n == 0 {
		n = c.res.N
	}
	if m == 0 {
		m = c.res.M
	}
	if err := c.SetResolution(n, m); err != nil {
		return ui, err
	}
	if ui.Distance != 0 && ui.Distance != c.radius {
		c.SetDistance(ui.Distance)
	}
	if ui.SpawnPressed {
		c.Spawn(ui.SpawnPos)
	}
	if ui.TeleportPressed || c.pendingTeleport {
		c.Teleport()
	}
	c.pendingTeleport = false

	if !c.skipOrbit {
		before := c.cam.Distance()
		c.cam.Update(dt)
		if d := c.cam.Distance(); d != before {
			c.radius = d
		}
	}
	c.skipOrbit = false

	ui.N, ui.M = c.res.N, c.res.M
	ui.Distance = c.radius
	ui.SpawnPressed, ui.TeleportPressed = false, false
	return ui, nil
}

// KeyDown handles a key press. The teleport key queues a teleport for the
// next frame, the wireframe key toggles wireframe and Ctrl with the reload
// key reloads shaders; repeats of those are ignored. Every other key goes
// to the camera.
func (c *Controller) KeyDown(ev KeyEvent) {
	if c.closed {
		return
	}
	key := strings.ToUpper(ev.Key)
	keys := c.cfg.Keys
	switch {
	case key == strings.ToUpper(keys.Teleport):
		if !ev.Repeat {
			c.pendingTeleport = true
		}
	case key == strings.ToUpper(keys.Wireframe):
		if !ev.Repeat {
			c.SetWireframe(!c.wireframe)
		}
	case key == strings.ToUpper(keys.Reload) && ev.Ctrl:
		if !ev.Repeat {
			c.ReloadShaders()
		}
	default:
		c.cam.KeyDown(key)
	}
}

// KeyUp handles a key release.
func (c *Controller) KeyUp(ev KeyEvent) {
	if c.closed {
		return
	}
	c.cam.KeyUp(strings.ToUpper(ev.Key))
}

// MouseMove forwards a mouse motion to the camera.
func (c *Controller) MouseMove(dx, dy float32, dragging bool) {
	if c.closed {
		return
	}
	c.cam.MouseMove(dx, dy, dragging)
}

// MouseWheel forwards wheel steps to the camera.
func (c *Controller) MouseWheel(dy float32) {
	if c.closed {
		return
	}
	c.cam.MouseWheel(dy)
}

// Resize updates the camera aspect ratio.
func (c *Controller) Resize(w, h int) {
	if c.closed {
		return
	}
	c.cam.Resize(w, h)
}

// TeleportPending reports whether a teleport key press awaits the next
// frame.
func (c *Controller) TeleportPending() bool { return c.pendingTeleport }

// SetWireframe switches the device polygon mode.
func (c *Controller) SetWireframe(on bool) {
	if c.closed {
		return
	}
	c.wireframe = on
	c.dev.SetWireframe(on)
}

// Wireframe reports whether wireframe mode is on.
func (c *Controller) Wireframe() bool { return c.wireframe }

// ReloadShaders asks the device to rebuild its shaders. Failures are
// logged and returned; the previous program stays in use.
func (c *Controller) ReloadShaders() error {
	if c.closed {
		return ErrClosed
	}
	if err := c.dev.ReloadShaders(); err != nil {
		Logger().Warn("shader reload failed", "err", err)
		return err
	}
	Logger().Info("shaders reloaded")
	return nil
}

// Count returns the number of placements.
func (c *Controller) Count() int { return c.registry.Count() }

// Cursor returns the teleport cursor, -1 when nothing has been placed.
func (c *Controller) Cursor() int { return c.registry.Cursor() }

// Placed returns the i-th placement.
func (c *Controller) Placed(i int) (mgl32.Vec3, error) {
	if i < 0 || i >= c.registry.Count() {
		return mgl32.Vec3{}, fmt.Errorf("scene: %w: index %d of %d", ErrNoPlacement, i, c.registry.Count())
	}
	return c.registry.At(i), nil
}

// Placements returns a copy of every placement in order.
func (c *Controller) Placements() []mgl32.Vec3 { return c.registry.Positions() }

// SphereRadius returns the collision radius of a placement.
func (c *Controller) SphereRadius() float32 { return c.registry.SphereRadius() }

// Camera returns the scene camera.
func (c *Controller) Camera() *camera.OrbitCamera { return c.cam }

// UIState returns the values a UI should display for the current state.
func (c *Controller) UIState() UIState {
	return UIState{N: c.res.N, M: c.res.M, Distance: c.radius}
}

// Title returns the window title for the current state.
func (c *Controller) Title() string {
	return fmt.Sprintf("%s - placed: %d, cursor: %d", c.cfg.Window.Title, c.registry.Count(), c.registry.Cursor())
}

// Render sets the frame parameters and draws the static meshes followed by
// one surface instance per placement.
func (c *Controller) Render() error {
	if c.closed {
		return ErrClosed
	}
	c.dev.SetMat4(ParamViewProj, c.cam.ViewProj())
	c.dev.SetVec3(ParamCameraPos, c.cam.Eye())
	c.setLightParams()
	c.dev.SetInt(ParamTexImage, 0)

	for _, s := range c.statics {
		if err := c.draw(s.handle, mgl32.Ident4()); err != nil {
			return err
		}
	}
	for _, p := range c.registry.Positions() {
		if err := c.draw(c.surfaceHandle, mgl32.Translate3D(p[0], p[1], p[2])); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) draw(h render.Handle, world mgl32.Mat4) error {
	c.dev.SetMat4(ParamWorld, world)
	c.dev.SetMat4(ParamWorldIT, world.Inv().Transpose())
	if err := c.dev.Draw(h); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}

// Close releases every device handle. Calling Close again is a no-op.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.surfaceHandle != 0 {
		errs = append(errs, c.dev.Release(c.surfaceHandle))
		c.surfaceHandle = 0
	}
	for _, s := range c.statics {
		errs = append(errs, c.dev.Release(s.handle))
	}
	c.statics = nil

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scene: close: %w", err)
	}
	Logger().Info("scene closed")
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
