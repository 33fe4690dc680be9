package inspector

import (
	"fmt"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Selection names the renderer object keyboard toggles act on.
type Selection struct {
	Name string
}

// KeyBindings maps keys to the capability they toggle on the selection.
type KeyBindings map[glfw.Key]Capability

func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		glfw.KeyW: CapWireframe,
		glfw.KeyT: CapTransparent,
		glfw.KeyM: CapCenterOfMass,
		glfw.KeyI: CapInertia,
		glfw.KeyC: CapCollision,
	}
}

// Input collects key presses from the window callback until the next
// render tick drains them.
type Input struct {
	mu      sync.Mutex
	pressed []glfw.Key
}

func (in *Input) press(key glfw.Key) {
	in.mu.Lock()
	in.pressed = append(in.pressed, key)
	in.mu.Unlock()
}

func (in *Input) drain() []glfw.Key {
	in.mu.Lock()
	defer in.mu.Unlock()
	keys := in.pressed
	in.pressed = nil
	return keys
}

// InputModule turns key presses in the inspector window into overlay
// requests for the selected object. It needs PlatformWindowModule and
// VisualizationModule.
type InputModule struct {
	Bindings KeyBindings
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	ws, ok := Resource[WindowState](app)
	if !ok {
		app.Logger().Warnf("no window, keyboard toggles disabled")
		return
	}
	if _, ok := Resource[OverlayEngine](app); !ok {
		panic("InputModule needs VisualizationModule")
	}
	bindings := mod.Bindings
	if bindings == nil {
		bindings = DefaultKeyBindings()
	}

	input := &Input{}
	if _, ok := Resource[Selection](app); !ok {
		cmd.AddResources(&Selection{})
	}
	cmd.AddResources(input)

	ws.windowGlfw.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			input.press(key)
		}
	})

	log := app.Logger()
	app.UseSystem(System(func(input *Input, sel *Selection, engine *OverlayEngine, ws *WindowState) {
		for _, key := range input.drain() {
			c, ok := bindings[key]
			if !ok {
				continue
			}
			if sel.Name == "" {
				log.Debugf("%s: nothing selected", c)
				continue
			}
			engine.Request(c, sel.Name)
		}
		st := engine.Stats()
		ws.SetTitle(fmt.Sprintf("Inspector [%s] %d requests, %d overlays", sel.Name, st.Requests, st.Created-st.Destroyed))
	}).InStage(PostRender))
}
