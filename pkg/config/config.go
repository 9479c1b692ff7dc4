// Package config loads the session configuration from a TOML file.
//
// Every field has a default, so a file only needs the keys it changes and
// a missing file is the same as an empty one.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/chazu/tessera/pkg/surface"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Light kinds, matching the w component of the light position.
const (
	LightDirectional = 0
	LightPoint       = 1
	LightSpot        = 2
)

// Config is the full session configuration.
type Config struct {
	Surface    Surface    `toml:"surface"`
	Resolution Resolution `toml:"resolution"`
	Placement  Placement  `toml:"placement"`
	Camera     Camera     `toml:"camera"`
	Keys       Keys       `toml:"keys"`
	Light      Light      `toml:"light"`
	Window     Window     `toml:"window"`
}

// Surface selects the tessellated parametric surface.
type Surface struct {
	Kind        string  `toml:"kind"`
	MajorRadius float64 `toml:"major_radius"`
	MinorRadius float64 `toml:"minor_radius"`
}

// Resolution is the initial tessellation resolution and its bounds.
type Resolution struct {
	N   int `toml:"n"`
	M   int `toml:"m"`
	Min int `toml:"min"`
	Max int `toml:"max"`
}

// Placement configures the placement registry. A zero SphereRadius means
// the collision radius is taken from the tessellated surface.
type Placement struct {
	SphereRadius float32 `toml:"sphere_radius"`
}

// Camera configures the initial view and the teleport distance.
type Camera struct {
	Distance    float32    `toml:"distance"`
	MinDistance float32    `toml:"min_distance"`
	MaxDistance float32    `toml:"max_distance"`
	Eye         [3]float32 `toml:"eye"`
	At          [3]float32 `toml:"at"`
	Up          [3]float32 `toml:"up"`
	FovY        float32    `toml:"fovy"`
	AutoOrbit   float32    `toml:"auto_orbit"`
}

// Keys names the keys handled by the scene rather than the camera.
// Reload fires only with Ctrl held.
type Keys struct {
	Teleport  string `toml:"teleport"`
	Wireframe string `toml:"wireframe"`
	Reload    string `toml:"reload"`
}

// Light is the initial light and material setup.
type Light struct {
	Kind      int        `toml:"kind"`
	Position  [3]float32 `toml:"position"`
	SpotDir   [3]float32 `toml:"spot_dir"`
	Constant  float32    `toml:"constant_attenuation"`
	Linear    float32    `toml:"linear_attenuation"`
	Quadratic float32    `toml:"quadratic_attenuation"`
	Cutoff    float32    `toml:"cutoff"`
	La        [3]float32 `toml:"la"`
	Ka        [3]float32 `toml:"ka"`
}

// Window configures the desktop window.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Surface: Surface{Kind: "torus", MajorRadius: 1, MinorRadius: 0.4},
		Resolution: Resolution{
			N: 20, M: 20,
			Min: 3, Max: 100,
		},
		Camera: Camera{
			Distance:    10,
			MinDistance: 1,
			MaxDistance: 50,
			Eye:         [3]float32{0, 7, 7},
			Up:          [3]float32{0, 1, 0},
			FovY:        45,
		},
		Keys: Keys{Teleport: "T", Wireframe: "F1", Reload: "F5"},
		Light: Light{
			Kind:     LightDirectional,
			Position: [3]float32{0, 1, 0},
			Constant: 1,
			Ka:       [3]float32{1, 1, 1},
		},
		Window: Window{Title: "Tessera", Width: 1280, Height: 720},
	}
}

// Load reads the file at path. A missing file yields Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("config: line %d, column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders the configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf).SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks every section and returns the first problem found,
// wrapping ErrInvalid.
func (c Config) Validate() error {
	if _, err := surface.New(c.Surface.Kind, c.Surface.MajorRadius, c.Surface.MinorRadius); err != nil {
		return invalid("surface: %v", err)
	}

	r := c.Resolution
	if r.Min < 1 || r.Max < r.Min {
		return invalid("resolution bounds must satisfy 1 <= min <= max, got [%d, %d]", r.Min, r.Max)
	}
	if r.N < 1 || r.M < 1 {
		return invalid("resolution must be positive, got %dx%d", r.N, r.M)
	}

	if c.Placement.SphereRadius < 0 {
		return invalid("placement.sphere_radius must not be negative, got %g", c.Placement.SphereRadius)
	}

	cam := c.Camera
	if cam.MinDistance <= 0 || cam.MaxDistance < cam.MinDistance {
		return invalid("camera distance bounds must satisfy 0 < min <= max, got [%g, %g]", cam.MinDistance, cam.MaxDistance)
	}
	if cam.Distance <= 0 {
		return invalid("camera.distance must be positive, got %g", cam.Distance)
	}
	if cam.FovY <= 0 || cam.FovY >= 180 {
		return invalid("camera.fovy must be in (0, 180), got %g", cam.FovY)
	}
	if cam.Up == [3]float32{} {
		return invalid("camera.up must not be zero")
	}
	if cam.Eye == cam.At {
		return invalid("camera.eye and camera.at must differ")
	}

	if c.Keys.Teleport == "" || c.Keys.Wireframe == "" || c.Keys.Reload == "" {
		return invalid("keys must not be empty")
	}

	l := c.Light
	if l.Kind < LightDirectional || l.Kind > LightSpot {
		return invalid("light.kind must be 0, 1 or 2, got %d", l.Kind)
	}
	if l.Constant < 0 || l.Linear < 0 || l.Quadratic < 0 {
		return invalid("light attenuation must not be negative")
	}
	if l.Cutoff < 0 || l.Cutoff > 1 {
		return invalid("light.cutoff must be in [0, 1], got %g", l.Cutoff)
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return invalid("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
