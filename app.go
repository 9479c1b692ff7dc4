package main

import (
	"context"
	"sync"

	"github.com/chazu/tessera/pkg/config"
	"github.com/chazu/tessera/pkg/engine"
	"github.com/chazu/tessera/pkg/render"
	"github.com/chazu/tessera/pkg/scene"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventMeshes is emitted with every live mesh whenever the surface mesh is
// regenerated.
const EventMeshes = "meshes"

// App is the Wails backend. It exposes methods to the frontend via bindings.
// Bindings arrive on arbitrary goroutines; mu serializes every use of the
// scene.
type App struct {
	ctx context.Context

	mu          sync.Mutex
	rec         *render.Recorder
	scene       *scene.Controller
	engine      *engine.Engine
	lastSurface render.Handle
	title       string
}

// FrameData is everything the frontend needs to draw one frame.
type FrameData struct {
	UI            scene.UIState `json:"ui"`
	Frame         render.Frame  `json:"frame"`
	SurfaceHandle render.Handle `json:"surfaceHandle"`
	Title         string        `json:"title"`
	Count         int           `json:"count"`
	Cursor        int           `json:"cursor"`
	Error         string        `json:"error,omitempty"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ScriptResult is the console output returned to the frontend.
type ScriptResult struct {
	Actions []engine.Action `json:"actions"`
	Value   string          `json:"value"`
	Errors  []EvalErrorData `json:"errors"`
}

// NewApp builds the scene described by cfg on an in-memory recording
// device whose buffers and draw lists are shipped to the frontend.
func NewApp(cfg config.Config) (*App, error) {
	rec := render.NewRecorder()
	sc, err := scene.New(cfg, rec)
	if err != nil {
		return nil, err
	}
	return &App{
		rec:         rec,
		scene:       sc,
		engine:      engine.NewEngine(),
		lastSurface: sc.SurfaceHandle(),
		title:       sc.Title(),
	}, nil
}

// startup is called by Wails on app startup. The context is saved so
// runtime events can be emitted later.
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	runtime.WindowSetTitle(ctx, a.title)
}

// shutdown is called by Wails before the process exits.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.scene.Close(); err != nil {
		scene.Logger().Warn("scene teardown", "err", err)
	}
}

// Frame advances the scene by dt seconds with the UI values of this frame
// and returns the recorded draw list.
func (a *App) Frame(dt float32, ui scene.UIState) FrameData {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rec.BeginFrame()
	data := FrameData{UI: ui}
	applied, err := a.scene.Frame(dt, ui)
	if err == nil {
		data.UI = applied
		err = a.scene.Render()
	}
	if err != nil {
		scene.Logger().Warn("frame failed", "err", err)
		data.Error = err.Error()
	}

	data.Frame = a.rec.Frame()
	data.SurfaceHandle = a.scene.SurfaceHandle()
	data.Count = a.scene.Count()
	data.Cursor = a.scene.Cursor()
	data.Title = a.syncLocked()
	return data
}

// Meshes returns every live mesh ordered by handle.
func (a *App) Meshes() []render.MeshData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meshesLocked()
}

func (a *App) meshesLocked() []render.MeshData {
	handles := a.rec.Handles()
	meshes := make([]render.MeshData, 0, len(handles))
	for _, h := range handles {
		if m, ok := a.rec.Mesh(h); ok {
			meshes = append(meshes, m)
		}
	}
	return meshes
}

// syncLocked pushes mesh and title changes to the window and returns the
// current title.
func (a *App) syncLocked() string {
	if h := a.scene.SurfaceHandle(); h != a.lastSurface {
		a.lastSurface = h
		if a.ctx != nil {
			runtime.EventsEmit(a.ctx, EventMeshes, a.meshesLocked())
		}
	}
	if t := a.scene.Title(); t != a.title {
		a.title = t
		if a.ctx != nil {
			runtime.WindowSetTitle(a.ctx, t)
		}
	}
	return a.title
}

// UIState returns the values the UI should show on startup.
func (a *App) UIState() scene.UIState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scene.UIState()
}

// KeyDown forwards a key press.
func (a *App) KeyDown(ev scene.KeyEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scene.KeyDown(ev)
}

// KeyUp forwards a key release.
func (a *App) KeyUp(ev scene.KeyEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scene.KeyUp(ev)
}

// MouseMove forwards a mouse motion in pixels.
func (a *App) MouseMove(dx, dy float32, dragging bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scene.MouseMove(dx, dy, dragging)
}

// MouseWheel forwards wheel steps.
func (a *App) MouseWheel(dy float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scene.MouseWheel(dy)
}

// Resize forwards the canvas size.
func (a *App) Resize(w, h int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scene.Resize(w, h)
}

// Lighting returns the current light and material.
func (a *App) Lighting() scene.Lighting {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scene.Lighting()
}

// SetLighting replaces the light and material. It returns an error message
// for the UI, empty on success.
func (a *App) SetLighting(l scene.Lighting) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.scene.SetLight(l.Light); err != nil {
		return err.Error()
	}
	a.scene.SetAmbient(l.La, l.Ka)
	return ""
}

// RunScript evaluates console source against the scene. The scene lock is
// taken per command, so frames keep running while a script evaluates.
func (a *App) RunScript(source string) ScriptResult {
	result := ScriptResult{
		Actions: []engine.Action{},
		Errors:  []EvalErrorData{},
	}

	res, evalErrs, err := a.engine.Evaluate(source, a.scene, &a.mu)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    e.Line,
			Col:     e.Col,
			Message: e.Message,
		})
	}
	if res != nil {
		result.Actions = append(result.Actions, res.Actions...)
		result.Value = res.Value
	}

	a.mu.Lock()
	a.syncLocked()
	a.mu.Unlock()
	return result
}
