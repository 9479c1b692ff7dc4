package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/tessera/pkg/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// Compile-time interface check.
var _ Device = (*Recorder)(nil)

// MeshData is the JSON-serializable mesh format kept for each handle.
// Buffers are flat: 3 floats per position and normal, 2 per texcoord,
// 3 indices per triangle.
type MeshData struct {
	Handle    Handle    `json:"handle"`
	Name      string    `json:"name"`
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	TexCoords []float32 `json:"texcoords"`
	Indices   []uint32  `json:"indices"`
}

// DrawCall is one recorded draw: the mesh and a snapshot of every
// parameter set at the time of the call.
type DrawCall struct {
	Handle Handle         `json:"handle"`
	Params map[string]any `json:"params"`
}

// Frame is everything drawn between two BeginFrame calls.
type Frame struct {
	Draws     []DrawCall `json:"draws"`
	Wireframe bool       `json:"wireframe"`
}

// Recorder is an in-memory Device. It keeps uploaded meshes as flat
// buffers and records draw calls, so a separate rasterizer (the desktop
// frontend) can replay a frame. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	next      Handle
	meshes    map[Handle]MeshData
	params    map[string]any
	frame     Frame
	wireframe bool
	reloads   int

	// Reload is called by ReloadShaders; nil means reloading always succeeds.
	Reload func() error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		meshes: make(map[Handle]MeshData),
		params: make(map[string]any),
	}
}

// Upload implements Uploader.
func (r *Recorder) Upload(m *kernel.Mesh) (Handle, error) {
	if m == nil || m.IsEmpty() {
		return 0, ErrEmptyMesh
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next
	r.meshes[h] = MeshData{
		Handle:    h,
		Name:      m.Name,
		Positions: m.Positions(),
		Normals:   m.Normals(),
		TexCoords: m.TexCoords(),
		Indices:   append([]uint32(nil), m.Indices...),
	}
	return h, nil
}

// Release implements Uploader.
func (r *Recorder) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meshes[h]; !ok {
		return fmt.Errorf("render: release %d: %w", h, ErrUnknownHandle)
	}
	delete(r.meshes, h)
	return nil
}

func (r *Recorder) set(name string, v any) {
	r.mu.Lock()
	r.params[name] = v
	r.mu.Unlock()
}

// SetMat4 implements ParamSetter.
func (r *Recorder) SetMat4(name string, v mgl32.Mat4) { r.set(name, v) }

// SetVec3 implements ParamSetter.
func (r *Recorder) SetVec3(name string, v mgl32.Vec3) { r.set(name, v) }

// SetVec4 implements ParamSetter.
func (r *Recorder) SetVec4(name string, v mgl32.Vec4) { r.set(name, v) }

// SetFloat implements ParamSetter.
func (r *Recorder) SetFloat(name string, v float32) { r.set(name, v) }

// SetInt implements ParamSetter.
func (r *Recorder) SetInt(name string, v int32) { r.set(name, v) }

// Param returns the current value of a parameter.
func (r *Recorder) Param(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.params[name]
	return v, ok
}

// Draw implements Device.
func (r *Recorder) Draw(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meshes[h]; !ok {
		return fmt.Errorf("render: draw %d: %w", h, ErrUnknownHandle)
	}
	snapshot := make(map[string]any, len(r.params))
	for k, v := range r.params {
		snapshot[k] = v
	}
	r.frame.Draws = append(r.frame.Draws, DrawCall{Handle: h, Params: snapshot})
	return nil
}

// SetWireframe implements Device.
func (r *Recorder) SetWireframe(on bool) {
	r.mu.Lock()
	r.wireframe = on
	r.mu.Unlock()
}

// Wireframe reports the current polygon mode.
func (r *Recorder) Wireframe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wireframe
}

// ReloadShaders implements Device.
func (r *Recorder) ReloadShaders() error {
	r.mu.Lock()
	r.reloads++
	reload := r.Reload
	r.mu.Unlock()

	if reload == nil {
		return nil
	}
	if err := reload(); err != nil {
		return fmt.Errorf("render: reload shaders: %w", err)
	}
	return nil
}

// Reloads returns how many times ReloadShaders was called.
func (r *Recorder) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

// BeginFrame discards the recorded draws of the previous frame.
func (r *Recorder) BeginFrame() {
	r.mu.Lock()
	r.frame = Frame{}
	r.mu.Unlock()
}

// Frame returns the draws recorded since the last BeginFrame.
func (r *Recorder) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := Frame{
		Draws:     append([]DrawCall(nil), r.frame.Draws...),
		Wireframe: r.wireframe,
	}
	if f.Draws == nil {
		f.Draws = []DrawCall{}
	}
	return f
}

// Mesh returns the buffers uploaded under h.
func (r *Recorder) Mesh(h Handle) (MeshData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meshes[h]
	return m, ok
}

// Handles returns every live handle in ascending order.
func (r *Recorder) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs := make([]Handle, 0, len(r.meshes))
	for h := range r.meshes {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}
