package scene

import (
	"errors"
	"fmt"

	"github.com/chazu/tessera/pkg/config"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidLight is returned by SetLight for an unknown light kind.
var ErrInvalidLight = errors.New("invalid light")

// LightKind selects how the shader interprets the light position.
type LightKind int

const (
	Directional LightKind = config.LightDirectional
	Point       LightKind = config.LightPoint
	Spot        LightKind = config.LightSpot
)

func (k LightKind) String() string {
	switch k {
	case Directional:
		return "directional"
	case Point:
		return "point"
	case Spot:
		return "spot"
	default:
		return fmt.Sprintf("LightKind(%d)", int(k))
	}
}

// Light is the single scene light. For a directional light Position is
// the direction towards the light.
type Light struct {
	Kind      LightKind  `json:"kind"`
	Position  mgl32.Vec3 `json:"position"`
	SpotDir   mgl32.Vec3 `json:"spotDir"`
	Constant  float32    `json:"constant"`
	Linear    float32    `json:"linear"`
	Quadratic float32    `json:"quadratic"`
	Cutoff    float32    `json:"cutoff"`
}

// Vec4 returns the lightPos shader value: the position with the kind in w.
func (l Light) Vec4() mgl32.Vec4 {
	return l.Position.Vec4(float32(l.Kind))
}

// Lighting is the light plus the ambient light color La and the ambient
// material reflectance Ka.
type Lighting struct {
	Light Light      `json:"light"`
	La    mgl32.Vec3 `json:"La"`
	Ka    mgl32.Vec3 `json:"Ka"`
}

func lightingFromConfig(c config.Light) Lighting {
	return Lighting{
		Light: Light{
			Kind:      LightKind(c.Kind),
			Position:  mgl32.Vec3(c.Position),
			SpotDir:   mgl32.Vec3(c.SpotDir),
			Constant:  c.Constant,
			Linear:    c.Linear,
			Quadratic: c.Quadratic,
			Cutoff:    c.Cutoff,
		},
		La: mgl32.Vec3(c.La),
		Ka: mgl32.Vec3(c.Ka),
	}
}

// SetLight replaces the light. Attenuation factors and the spot cutoff are
// clamped to [0, 1].
func (c *Controller) SetLight(l Light) error {
	if l.Kind < Directional || l.Kind > Spot {
		return fmt.Errorf("scene: %w: kind %d", ErrInvalidLight, int(l.Kind))
	}
	l.Constant = mgl32.Clamp(l.Constant, 0, 1)
	l.Linear = mgl32.Clamp(l.Linear, 0, 1)
	l.Quadratic = mgl32.Clamp(l.Quadratic, 0, 1)
	l.Cutoff = mgl32.Clamp(l.Cutoff, 0, 1)
	c.lighting.Light = l
	return nil
}

// SetAmbient sets La and Ka, clamping each component to [0, 1].
func (c *Controller) SetAmbient(la, ka mgl32.Vec3) {
	c.lighting.La = clampColor(la)
	c.lighting.Ka = clampColor(ka)
}

// Lighting returns the current light and material.
func (c *Controller) Lighting() Lighting {
	return c.lighting
}

func clampColor(v mgl32.Vec3) mgl32.Vec3 {
	for i := range v {
		v[i] = mgl32.Clamp(v[i], 0, 1)
	}
	return v
}

// setLightParams pushes the per-frame lighting parameters to the device.
func (c *Controller) setLightParams() {
	l := c.lighting
	c.dev.SetVec4(ParamLightPos, l.Light.Vec4())
	c.dev.SetVec3(ParamSpotDir, l.Light.SpotDir)
	c.dev.SetFloat(ParamCutoff, l.Light.Cutoff)
	c.dev.SetFloat(ParamConstantAttenuation, l.Light.Constant)
	c.dev.SetFloat(ParamLinearAttenuation, l.Light.Linear)
	c.dev.SetFloat(ParamQuadraticAttenuation, l.Light.Quadratic)
	c.dev.SetVec3(ParamLa, l.La)
	c.dev.SetVec3(ParamKa, l.Ka)
}
