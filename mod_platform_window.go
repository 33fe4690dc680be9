package inspector

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowState is the shared GLFW window. Only one exists per App.
type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string
	closed       bool
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) (*WindowState, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	return &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}, nil
}

// SetTitle changes the window title if it differs from the current one.
func (s *WindowState) SetTitle(title string) {
	if s.closed || title == s.windowTitle {
		return
	}
	s.windowTitle = title
	s.windowGlfw.SetTitle(title)
}

// PlatformWindowModule opens the inspector window. Events are polled on
// every render tick and closing the window stops the App. Install is
// idempotent: an existing WindowState is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	if _, ok := Resource[WindowState](app); ok {
		return
	}
	width, height, title := m.Width, m.Height, m.Title
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Inspector"
	}

	ws, err := createWindowState(width, height, title)
	if err != nil {
		app.Logger().Errorf("no window: %v", err)
		return
	}
	app.addResources(ws)

	app.UseSystem(System(func(s *WindowState) {
		if s.closed {
			return
		}
		glfw.PollEvents()
		s.WindowWidth, s.WindowHeight = s.windowGlfw.GetSize()
		if s.windowGlfw.ShouldClose() {
			app.Logger().Infof("window closed")
			s.closed = true
			s.windowGlfw.Destroy()
			glfw.Terminate()
			app.Stop()
		}
	}).InStage(PreRender))
}
