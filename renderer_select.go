package inspector

import (
	"fmt"

	"github.com/gekko3d/inspector/render"
)

// RendererState gives systems access to the scene graph overlays are
// drawn into.
type RendererState struct {
	Scene render.Scene
}

// RendererTag marks that a renderer has been installed into the App.
// Only one renderer should be installed at a time.
type RendererTag struct {
	Name string
}

// RendererModule installs the scene graph. Without a Scene an in-memory
// retained scene named SceneName is created.
type RendererModule struct {
	Scene     render.Scene
	SceneName string
}

func (m RendererModule) Install(app *App, cmd *Commands) {
	scene := m.Scene
	if scene == nil {
		name := m.SceneName
		if name == "" {
			name = "scene"
		}
		scene = render.NewRetainedScene(name)
	}
	if !claimRenderer(app, scene.Name()) {
		return
	}
	cmd.AddResources(&RendererState{Scene: scene})
	app.Logger().Infof("Renderer selected: %s", scene.Name())
}

// claimRenderer enforces a single renderer per App. It reports false when
// the same renderer is already installed and panics on a different one.
func claimRenderer(app *App, name string) bool {
	if tag, ok := Resource[RendererTag](app); ok {
		if tag.Name != name {
			msg := fmt.Sprintf("Multiple renderers installed: %s and %s", tag.Name, name)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
		return false
	}
	app.addResources(&RendererTag{Name: name})
	return true
}

// UseRenderer installs a renderer for an existing scene graph.
// Usage:
//
//	app.UseRenderer(render.NewRetainedScene("default"))
func (app *App) UseRenderer(scene render.Scene) *App {
	return app.UseModules(RendererModule{Scene: scene})
}

// Scene returns the installed scene graph, or nil.
func (app *App) Scene() render.Scene {
	if state, ok := Resource[RendererState](app); ok {
		return state.Scene
	}
	return nil
}
