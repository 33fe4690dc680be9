package inspector

import (
	"fmt"

	"github.com/gekko3d/inspector/transport"
)

// ServiceNames maps each capability to the service clients call to toggle
// it. The request payload is the name of a renderer object.
type ServiceNames struct {
	Wireframe    string `toml:"wireframe"`
	Transparent  string `toml:"transparent"`
	CenterOfMass string `toml:"com"`
	Inertia      string `toml:"inertia"`
	Collision    string `toml:"collision"`
}

func DefaultServiceNames() ServiceNames {
	return ServiceNames{
		Wireframe:    "/gui/view/wireframes",
		Transparent:  "/gui/view/transparent",
		CenterOfMass: "/gui/view/com",
		Inertia:      "/gui/view/inertia",
		Collision:    "/gui/view/collisions",
	}
}

// For returns the service name of c.
func (s ServiceNames) For(c Capability) string {
	switch c {
	case CapWireframe:
		return s.Wireframe
	case CapTransparent:
		return s.Transparent
	case CapCenterOfMass:
		return s.CenterOfMass
	case CapInertia:
		return s.Inertia
	case CapCollision:
		return s.Collision
	}
	return ""
}

// withDefaults fills empty names from DefaultServiceNames.
func (s ServiceNames) withDefaults() ServiceNames {
	def := DefaultServiceNames()
	if s.Wireframe == "" {
		s.Wireframe = def.Wireframe
	}
	if s.Transparent == "" {
		s.Transparent = def.Transparent
	}
	if s.CenterOfMass == "" {
		s.CenterOfMass = def.CenterOfMass
	}
	if s.Inertia == "" {
		s.Inertia = def.Inertia
	}
	if s.Collision == "" {
		s.Collision = def.Collision
	}
	return s
}

// VisualizationModule installs the OverlayEngine as a resource, runs its
// bookkeeping after every simulation step and its renderer work on every
// render tick. With a Node set the toggle services are advertised on it.
type VisualizationModule struct {
	ProbeStart   uint64
	ProbeCeiling uint64
	// Delimiter of scoped entity names in requests, "::" when empty.
	Delimiter string
	Services  ServiceNames
	Node      *transport.Node
}

func (m VisualizationModule) Install(app *App, cmd *Commands) {
	state, ok := Resource[RendererState](app)
	if !ok {
		panic("VisualizationModule needs a renderer, install RendererModule first")
	}
	engine := NewOverlayEngine(state.Scene, app.Logger(), OverlayOptions{
		ProbeStart:   m.ProbeStart,
		ProbeCeiling: m.ProbeCeiling,
		Delimiter:    m.Delimiter,
	})
	cmd.AddResources(engine)
	app.UseSystem(System(overlayStepSystem).InStage(PostUpdate))
	app.UseSystem(System(overlayRenderSystem).InStage(Render))

	if m.Node != nil {
		if err := AdvertiseOverlayServices(m.Node, engine, m.Services); err != nil {
			app.Logger().Errorf("%v", err)
		}
	}
}

// AdvertiseOverlayServices registers one toggle service per capability.
func AdvertiseOverlayServices(node *transport.Node, engine *OverlayEngine, names ServiceNames) error {
	names = names.withDefaults()
	for _, c := range Capabilities {
		c := c
		if err := node.Advertise(names.For(c), func(name string) bool {
			return engine.Request(c, name)
		}); err != nil {
			return fmt.Errorf("advertise %s service: %w", c, err)
		}
	}
	return nil
}

func overlayStepSystem(cmd *Commands, engine *OverlayEngine) {
	engine.SyncStep(cmd.Store())
}

func overlayRenderSystem(engine *OverlayEngine) {
	engine.SyncRender()
}
