package inspector

// AppBuilder collects modules and extra stages before the App is assembled.
type AppBuilder struct {
	modules []Module
	stages  []stagedInsert
}

type stagedInsert struct {
	stage Stage
	where stagePositionBuilder
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{}
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)

	return b
}

func (b *AppBuilder) UseStage(stage Stage, where stagePositionBuilder) *AppBuilder {
	b.stages = append(b.stages, stagedInsert{stage: stage, where: where})

	return b
}

// Build creates the App, inserts the extra stages and installs the modules
// in the order they were given.
func (b *AppBuilder) Build() *App {
	app := NewApp()
	for _, s := range b.stages {
		app.UseStage(s.stage, s.where)
	}
	return app.UseModules(b.modules...)
}
