// Package render is the boundary between the scene and whatever draws it.
// The scene hands meshes to an Uploader and gets opaque handles back, sets
// shader parameters by name through a ParamSetter, and issues draws. It
// never sees buffers, programs or uniform locations.
package render

import (
	"errors"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnknownHandle is returned when a handle was never issued or has
// already been released.
var ErrUnknownHandle = errors.New("unknown mesh handle")

// ErrEmptyMesh is returned when uploading a mesh with no geometry.
var ErrEmptyMesh = errors.New("mesh has no geometry")

// Handle identifies an uploaded mesh. The zero Handle is never issued.
type Handle uint32

// Uploader turns CPU meshes into device-side resources.
type Uploader interface {
	Upload(m *kernel.Mesh) (Handle, error)
	Release(h Handle) error
}

// ParamSetter sets shader parameters by name for subsequent draws.
type ParamSetter interface {
	SetMat4(name string, v mgl32.Mat4)
	SetVec3(name string, v mgl32.Vec3)
	SetVec4(name string, v mgl32.Vec4)
	SetFloat(name string, v float32)
	SetInt(name string, v int32)
}

// Device is the full rendering collaborator used by the scene.
type Device interface {
	Uploader
	ParamSetter

	// Draw draws an uploaded mesh with the parameters currently set.
	Draw(h Handle) error
	// SetWireframe switches between filled and line polygon modes.
	SetWireframe(on bool)
	// ReloadShaders recompiles the shader program from source.
	ReloadShaders() error
}
