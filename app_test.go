package main

import (
	"context"
	"os"
	"testing"

	"github.com/chazu/tessera/pkg/config"
	"github.com/chazu/tessera/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(config.Default())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { app.shutdown(context.Background()) })
	return app
}

// TestE2ETourExample exercises the full pipeline: console script → engine →
// scene → recorder. This is the same path that the Wails RunScript binding
// takes, but without the Wails runtime.
func TestE2ETourExample(t *testing.T) {
	app := newTestApp(t)

	source, err := os.ReadFile("examples/tour.zy")
	if err != nil {
		t.Fatalf("failed to read tour.zy: %v", err)
	}

	result := app.RunScript(string(source))

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	if result.Value != "5" {
		t.Errorf("count = %q, want 5 (one spawn is rejected)", result.Value)
	}
	if len(result.Actions) != 11 {
		t.Errorf("expected 11 actions, got %d: %v", len(result.Actions), result.Actions)
	}

	// The surface mesh was regenerated at 24x16.
	meshes := app.Meshes()
	var surface bool
	for _, m := range meshes {
		if m.Name != scene.SurfaceMeshName {
			continue
		}
		surface = true
		if want := 25 * 17 * 3; len(m.Positions) != want {
			t.Errorf("surface positions = %d floats, want %d", len(m.Positions), want)
		}
		if want := 2 * 24 * 16 * 3; len(m.Indices) != want {
			t.Errorf("surface indices = %d, want %d", len(m.Indices), want)
		}
	}
	if !surface {
		t.Fatal("no surface mesh uploaded")
	}

	// Both teleports land on the newest placement.
	frame := app.Frame(0.016, scene.UIState{})
	if frame.Error != "" {
		t.Fatalf("frame error: %s", frame.Error)
	}
	if frame.Count != 5 || frame.Cursor != 4 {
		t.Errorf("count %d cursor %d, want 5 and 4", frame.Count, frame.Cursor)
	}
	if got := app.scene.Camera().At(); got != (mgl32.Vec3{0, 0, -4}) {
		t.Errorf("camera target = %v, want (0,0,-4)", got)
	}

	// Two statics plus one instance per placement.
	if len(frame.Frame.Draws) != 2+5 {
		t.Errorf("draws = %d, want 7", len(frame.Frame.Draws))
	}
	if frame.Title != "Tessera - placed: 5, cursor: 4" {
		t.Errorf("title = %q", frame.Title)
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.RunScript("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Actions) != 0 {
		t.Errorf("expected 0 actions for empty source, got %d", len(result.Actions))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	result := app.RunScript("(spawn 1 2 3")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if app.scene.Count() != 0 {
		t.Errorf("expected nothing placed on error, got %d", app.scene.Count())
	}
}

// TestE2EFrameSpawnAndTeleport drives the scene the way the UI panel does.
func TestE2EFrameSpawnAndTeleport(t *testing.T) {
	app := newTestApp(t)

	start := app.UIState()
	if start.N != 20 || start.M != 20 || start.Distance != 10 {
		t.Fatalf("unexpected initial UI state %+v", start)
	}

	ui := scene.UIState{SpawnPos: mgl32.Vec3{2, 0, 0}, SpawnPressed: true}
	frame := app.Frame(0.016, ui)
	if frame.Count != 1 || frame.Cursor != 0 {
		t.Fatalf("count %d cursor %d after spawn", frame.Count, frame.Cursor)
	}
	if frame.UI.SpawnPressed {
		t.Error("applied UI state should clear the spawn button")
	}

	frame = app.Frame(0.016, scene.UIState{TeleportPressed: true, Distance: 6})
	if frame.UI.Distance != 6 {
		t.Errorf("distance = %g, want 6", frame.UI.Distance)
	}
	if eye := app.scene.Camera().Eye(); eye != (mgl32.Vec3{2, 0, 6}) {
		t.Errorf("eye = %v, want (2,0,6)", eye)
	}
}

// TestE2EResolutionFromFrame checks that a resolution change reaches the
// mesh list and is reflected in the frame's surface handle.
func TestE2EResolutionFromFrame(t *testing.T) {
	app := newTestApp(t)

	before := app.Frame(0.016, scene.UIState{}).SurfaceHandle
	after := app.Frame(0.016, scene.UIState{N: 8, M: 6})
	if after.SurfaceHandle == before {
		t.Fatal("surface handle should change after regeneration")
	}
	if after.UI.N != 8 || after.UI.M != 6 {
		t.Errorf("applied resolution %dx%d, want 8x6", after.UI.N, after.UI.M)
	}

	var found bool
	for _, m := range app.Meshes() {
		if m.Handle == before {
			t.Error("old surface mesh still live")
		}
		if m.Handle == after.SurfaceHandle {
			found = true
		}
	}
	if !found {
		t.Error("new surface mesh missing from Meshes")
	}
}
