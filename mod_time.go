package inspector

import (
	"time"
)

// StepInfo describes the simulation step being run.
type StepInfo struct {
	// SimTime advances by Dt every step that is not paused.
	SimTime    time.Duration
	Dt         time.Duration
	Iterations uint64
	Paused     bool
	// RealTime is the wall clock at the start of the step.
	RealTime time.Time
}

type TimeModule struct {
	Dt time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	dt := mod.Dt
	if dt <= 0 {
		dt = time.Millisecond
	}
	cmd.AddResources(&StepInfo{
		Dt:       dt,
		RealTime: time.Now(),
	})
	app.UseSystem(System(timeSystem).InStage(PreUpdate))
}

func timeSystem(info *StepInfo) {
	info.RealTime = time.Now()
	if info.Paused {
		return
	}
	info.SimTime += info.Dt
	info.Iterations++
}
