package inspector

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/inspector/render"
)

func TestSceneSync_MirrorsHierarchy(t *testing.T) {
	ecs, w := newTestStore()
	scene := render.NewRetainedScene("test")
	sync := NewSceneSync(scene, nil, 100)

	sync.Collect(ecs)
	sync.Present()

	names := map[EntityId]string{
		w.box:       "box",
		w.base:      "box::base",
		w.baseVis:   "box::base::base_vis",
		w.arm:       "box::arm",
		w.armVis:    "box::arm::arm_vis",
		w.gripper:   "box::gripper",
		w.finger:    "box::gripper::finger",
		w.fingerVis: "box::gripper::finger::finger_vis",
	}
	for e, name := range names {
		id, ok := sync.VisualOf(e)
		require.True(t, ok, name)
		vis := scene.VisualById(id)
		require.NotNil(t, vis, name)
		assert.Equal(t, name, vis.Name())
		assert.Equal(t, e, mustEntity(t, vis))
		assert.True(t, id >= 100)
	}
	assert.Len(t, scene.Visuals(), len(names))

	for _, e := range []EntityId{w.world, w.baseCol, w.fingerCol, w.sun} {
		_, ok := sync.VisualOf(e)
		assert.False(t, ok, "entity %d", e)
	}

	box := scene.VisualByName("box")
	assert.Nil(t, box.Parent())
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, box.LocalTransform().Position)
	assert.Equal(t, "box::gripper", scene.VisualByName("box::gripper::finger").Parent().Name())

	arm := scene.VisualByName("box::arm::arm_vis")
	require.Len(t, arm.Geometries(), 1)
	assert.Equal(t, render.KindSphere, arm.Geometries()[0].Kind())
}

func TestSceneSync_VisualOptions(t *testing.T) {
	ecs := MakeEcs()
	model := ecs.addEntity(ModelTag{}, NameComponent{Name: "m"})
	link := ecs.addEntity(LinkTag{}, NameComponent{Name: "l"}, Parent{Entity: model})
	ecs.addEntity(VisualTag{}, NameComponent{Name: "v"}, Parent{Entity: link},
		GeometryComponent{Geometry: boxGeometry(1, 1, 1)},
		CastShadowsComponent{CastShadows: false},
		VisibilityFlagsComponent{Flags: 0x4},
		TransparencyComponent{Transparency: 0.3})
	ecs.addEntity(VisualTag{}, NameComponent{Name: "nogeom"}, Parent{Entity: link})
	ecs.advanceChangeFeed()

	scene := render.NewRetainedScene("test")
	sync := NewSceneSync(scene, nil, 0)
	sync.Collect(&ecs)
	sync.Present()

	vis := scene.VisualByName("m::l::v")
	require.NotNil(t, vis)
	assert.False(t, vis.CastShadows())
	assert.Equal(t, uint32(0x4), vis.VisibilityFlags())
	assert.InDelta(t, 0.3, vis.Geometries()[0].Material().Transparency, 1e-9)
	assert.False(t, scene.HasVisualName("m::l::nogeom"))
}

func TestSceneSync_IncrementalAddAndRemove(t *testing.T) {
	ecs, w := newTestStore()
	scene := render.NewRetainedScene("test")
	sync := NewSceneSync(scene, nil, 0)
	sync.Collect(ecs)
	sync.Present()
	count := len(scene.Visuals())

	extra := ecs.addEntity(VisualTag{}, NameComponent{Name: "extra"}, Parent{Entity: w.arm},
		GeometryComponent{Geometry: boxGeometry(1, 1, 1)})
	ecs.advanceChangeFeed()
	sync.Collect(ecs)
	sync.Present()
	assert.Len(t, scene.Visuals(), count+1)
	require.NotNil(t, scene.VisualByName("box::arm::extra"))

	ecs.removeEntity(w.arm)
	ecs.removeEntity(w.armVis)
	ecs.removeEntity(extra)
	ecs.advanceChangeFeed()
	sync.Collect(ecs)
	sync.Present()

	assert.Len(t, scene.Visuals(), count-2)
	assert.Nil(t, scene.VisualByName("box::arm"))
	_, ok := sync.VisualOf(w.arm)
	assert.False(t, ok)
}

func TestSceneSync_RemovedBeforePresent(t *testing.T) {
	ecs, w := newTestStore()
	scene := render.NewRetainedScene("test")
	sync := NewSceneSync(scene, nil, 0)
	sync.Collect(ecs)
	sync.Present()
	count := len(scene.Visuals())

	late := ecs.addEntity(LinkTag{}, NameComponent{Name: "late"}, Parent{Entity: w.box})
	ecs.advanceChangeFeed()
	sync.Collect(ecs)
	ecs.removeEntity(late)
	ecs.advanceChangeFeed()
	sync.Collect(ecs)
	sync.Present()

	assert.Len(t, scene.Visuals(), count)
	assert.False(t, scene.HasVisualName("box::late"))
}

func TestSceneSync_SkipsIdsInUse(t *testing.T) {
	ecs, _ := newTestStore()
	scene := render.NewRetainedScene("test")
	_, err := scene.CreateLight(0, "sun")
	require.NoError(t, err)
	_, err = scene.CreateVisual(2, "other")
	require.NoError(t, err)

	sync := NewSceneSync(scene, nil, 0)
	sync.Collect(ecs)
	sync.Present()

	seen := make(map[uint64]bool)
	for _, vis := range scene.Visuals() {
		assert.False(t, seen[vis.Id()])
		seen[vis.Id()] = true
	}
	assert.NotEqual(t, uint64(0), scene.VisualByName("box").Id())
}

func TestSceneSyncModule_NeedsRenderer(t *testing.T) {
	assert.Panics(t, func() {
		NewApp().UseModules(SceneSyncModule{})
	})
}
