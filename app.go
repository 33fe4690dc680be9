package inspector

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

// App owns the store, the resources and the staged systems. Step runs the
// simulation stages and RenderFrame runs the render stages; the two are never
// called concurrently on one App.
type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	ecs       *Ecs

	steps  uint64
	frames uint64

	stopOnce sync.Once
	stopped  chan struct{}

	// Command Buffering
	pendingAdditions    []pendingAdd
	pendingRemovals     []pendingRemoval
	pendingCompAdds     []pendingCompAdd
	pendingCompRemovals []pendingCompRemoval
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingRemoval struct {
	eid       EntityId
	recursive bool
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

type pendingCompRemoval struct {
	eid        EntityId
	components []any
}

func NewApp() *App {
	ecs := MakeEcs()
	app := &App{
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
		ecs:       &ecs,
		stopped:   make(chan struct{}),
	}
	for _, stage := range defaultStages {
		app.stages = append(app.stages, stage)
		app.initStage(stage)
	}
	return app
}

func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		module.Install(app, cmd)
		app.modules = append(app.modules, module)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Ecs returns the live store. Mutations should go through Commands.
func (app *App) Ecs() *Ecs {
	return app.ecs
}

// StepCount is the number of completed simulation steps.
func (app *App) StepCount() uint64 {
	return app.steps
}

// FrameCount is the number of completed render frames.
func (app *App) FrameCount() uint64 {
	return app.frames
}

// Step applies buffered commands, publishes the change feeds accumulated
// since the previous step and runs the simulation stages.
func (app *App) Step() {
	app.FlushCommands()
	app.ecs.advanceChangeFeed()
	app.callSystems(FixedUpdate)
	app.steps++
}

// RenderFrame runs the render stages once.
func (app *App) RenderFrame() {
	app.callSystems(DynamicUpdate)
	app.frames++
}

// Stop makes Run return. Safe to call from any system or goroutine.
func (app *App) Stop() {
	app.stopOnce.Do(func() { close(app.stopped) })
}

// Run drives Step and RenderFrame from two tickers on the calling goroutine
// until the context is cancelled or Stop is called.
func (app *App) Run(ctx context.Context, stepEvery, renderEvery time.Duration) error {
	if stepEvery <= 0 || renderEvery <= 0 {
		return fmt.Errorf("run: step and render periods must be positive, got %v and %v", stepEvery, renderEvery)
	}

	stepTicker := time.NewTicker(stepEvery)
	defer stepTicker.Stop()
	renderTicker := time.NewTicker(renderEvery)
	defer renderTicker.Stop()

	log := app.Logger()
	log.Infof("running: step every %v, render every %v", stepEvery, renderEvery)

	for {
		select {
		case <-ctx.Done():
			log.Infof("stopping after %d steps and %d frames", app.steps, app.frames)
			return nil
		case <-app.stopped:
			log.Infof("stopped after %d steps and %d frames", app.steps, app.frames)
			return nil
		case <-stepTicker.C:
			app.Step()
		case <-renderTicker.C:
			app.RenderFrame()
		}
	}
}

func (app *App) callSystems(updateType UpdateType) {
	for _, stage := range app.stages {
		if stage.UpdateType != updateType {
			continue
		}
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource looks up a resource registered as *T.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	typed, ok := r.(*T)
	return typed, ok
}

func (app *App) callSystem(system systemFn) {
	app.callSystemInternal(system)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			resourceVal := reflect.ValueOf(resource)
			typedResourceVal := reflect.NewAt(underlyingType, resourceVal.UnsafePointer())

			args[i] = typedResourceVal
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 &&
		len(app.pendingCompAdds) == 0 && len(app.pendingCompRemovals) == 0 {
		return
	}
	log := app.Logger()

	// 1. Additions, so that an entity added and removed in the same
	// batch is still reported as removed.
	for _, add := range app.pendingAdditions {
		app.ecs.insertEntity(add.eid, add.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	// 2. Component changes
	for _, add := range app.pendingCompAdds {
		app.ecs.addComponents(add.eid, add.components...)
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	for _, rem := range app.pendingCompRemovals {
		app.ecs.removeComponents(rem.eid, rem.components...)
	}
	app.pendingCompRemovals = app.pendingCompRemovals[:0]

	// 3. Removals
	for _, rem := range app.pendingRemovals {
		targets := []EntityId{rem.eid}
		if rem.recursive {
			targets = app.collectSubtree(rem.eid)
		}
		for _, eid := range targets {
			log.Debugf("flush: removing entity %d", eid)
			app.ecs.removeEntity(eid)
		}
	}
	app.pendingRemovals = app.pendingRemovals[:0]
}

// collectSubtree returns root followed by all of its descendants,
// breadth first.
func (app *App) collectSubtree(root EntityId) []EntityId {
	children := make(map[EntityId][]EntityId)
	NewQuery1[Parent](app.ecs).Map(func(eid EntityId, p *Parent) bool {
		children[p.Entity] = append(children[p.Entity], eid)
		return true
	})

	res := []EntityId{root}
	for i := 0; i < len(res); i++ {
		res = append(res, children[res[i]]...)
	}
	return res
}
