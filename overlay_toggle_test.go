package inspector

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/inspector/render"
)

type overlayHarness struct {
	app    *App
	scene  render.Scene
	engine *OverlayEngine
	w      testWorld
}

// newOverlayHarness spawns the test world and runs one step and frame so
// that every primary visual exists.
func newOverlayHarness(t *testing.T) *overlayHarness {
	t.Helper()
	return newOverlayHarnessWith(t, VisualizationModule{})
}

func newOverlayHarnessWith(t *testing.T, vis VisualizationModule) *overlayHarness {
	t.Helper()
	app := NewApp().UseModules(
		RendererModule{SceneName: "test"},
		SceneSyncModule{},
		vis,
	)
	w := buildTestWorld(app.Commands().AddEntity)
	app.Step()
	app.RenderFrame()

	engine, ok := Resource[OverlayEngine](app)
	require.True(t, ok)
	h := &overlayHarness{app: app, scene: app.Scene(), engine: engine, w: w}
	require.NotNil(t, h.visual("box::gripper::finger::finger_vis"))
	return h
}

// cycle resolves queued names, decides on the next step and applies the
// decisions on the frame after.
func (h *overlayHarness) cycle() {
	h.app.RenderFrame()
	h.app.Step()
	h.app.RenderFrame()
}

func (h *overlayHarness) toggle(c Capability, name string) {
	h.engine.Request(c, name)
	h.cycle()
}

func (h *overlayHarness) visual(name string) render.Visual {
	return h.scene.VisualByName(name)
}

func (h *overlayHarness) overlays(c Capability) []render.Visual {
	var res []render.Visual
	for _, vis := range h.scene.Visuals() {
		if v, ok := vis.UserData(UserDataOverlay); ok && v == c {
			res = append(res, vis)
		}
	}
	return res
}

func TestOverlayEngine_CenterOfMassShowHide(t *testing.T) {
	h := newOverlayHarness(t)

	assert.True(t, h.engine.Request(CapCenterOfMass, "box"))
	h.cycle()

	recs := h.engine.Records(CapCenterOfMass)
	require.Len(t, recs, 2)
	assert.Equal(t, h.w.base, recs[0].Target)
	assert.Equal(t, h.w.finger, recs[1].Target)
	for _, rec := range recs {
		assert.True(t, rec.Visible)
		assert.True(t, rec.Materialized)
	}

	coms := h.overlays(CapCenterOfMass)
	require.Len(t, coms, 2)
	parents := []string{coms[0].Parent().Name(), coms[1].Parent().Name()}
	assert.ElementsMatch(t, []string{"box::base", "box::gripper::finger"}, parents)
	for _, com := range coms {
		assert.True(t, com.Visible())
		assert.True(t, strings.HasPrefix(com.Name(), com.Parent().Name()+"::COM_"))
		rec, ok := h.engine.Record(CapCenterOfMass, mustEntity(t, com))
		require.True(t, ok)
		assert.Equal(t, com.Id(), rec.ObjectId)
	}

	h.toggle(CapCenterOfMass, "box")
	coms = h.overlays(CapCenterOfMass)
	require.Len(t, coms, 2, "hiding reuses the objects")
	for _, com := range coms {
		assert.False(t, com.Visible())
	}

	st := h.engine.Stats()
	assert.Equal(t, uint64(2), st.Requests)
	assert.Equal(t, uint64(2), st.Resolved)
	assert.Equal(t, uint64(2), st.Created)
	assert.Equal(t, uint64(4), st.Applied)
	assert.Zero(t, st.Dropped)
}

func mustEntity(t *testing.T, vis render.Visual) EntityId {
	t.Helper()
	e, ok := EntityOfVisual(vis)
	require.True(t, ok)
	return e
}

func TestOverlayEngine_OverlayIdsDoNotCollide(t *testing.T) {
	h := newOverlayHarness(t)
	before := len(h.scene.Visuals())

	h.toggle(CapCenterOfMass, "box")
	h.toggle(CapInertia, "box")
	h.toggle(CapCollision, "box")

	assert.Len(t, h.scene.Visuals(), before+6)
	seen := make(map[uint64]bool)
	for _, vis := range h.scene.Visuals() {
		assert.False(t, seen[vis.Id()])
		seen[vis.Id()] = true
	}
}

func TestOverlayEngine_WireframeRestylesPrimaryVisuals(t *testing.T) {
	h := newOverlayHarness(t)

	h.toggle(CapWireframe, "box")
	for _, name := range []string{"box::base::base_vis", "box::arm::arm_vis", "box::gripper::finger::finger_vis"} {
		assert.True(t, h.visual(name).Wireframe(), name)
	}
	assert.False(t, h.visual("box::arm").Wireframe(), "links are not restyled")
	assert.Empty(t, h.overlays(CapWireframe))

	h.toggle(CapWireframe, "box::arm")
	assert.False(t, h.visual("box::arm::arm_vis").Wireframe())
	assert.True(t, h.visual("box::base::base_vis").Wireframe())

	assert.Zero(t, h.engine.Stats().Created)
}

func TestOverlayEngine_Transparent(t *testing.T) {
	h := newOverlayHarness(t)

	h.toggle(CapTransparent, "box::gripper")
	assert.True(t, h.visual("box::gripper::finger::finger_vis").Transparent())
	assert.False(t, h.visual("box::base::base_vis").Transparent())

	h.toggle(CapTransparent, "box::gripper::finger")
	assert.False(t, h.visual("box::gripper::finger::finger_vis").Transparent())
}

func TestOverlayEngine_MixedBatchFollowsFirstEntity(t *testing.T) {
	h := newOverlayHarness(t)
	visible := func(e EntityId) bool {
		rec, ok := h.engine.Record(CapCenterOfMass, e)
		require.True(t, ok)
		return rec.Visible
	}

	h.toggle(CapCenterOfMass, "box::base")
	assert.True(t, visible(h.w.base))
	_, ok := h.engine.Record(CapCenterOfMass, h.w.finger)
	assert.False(t, ok)

	// finger has never been toggled, so the whole batch is shown.
	h.toggle(CapCenterOfMass, "box")
	assert.True(t, visible(h.w.base))
	assert.True(t, visible(h.w.finger))

	h.toggle(CapCenterOfMass, "box::base")
	assert.False(t, visible(h.w.base))

	// base comes first and is hidden, so both are shown.
	h.toggle(CapCenterOfMass, "box")
	assert.True(t, visible(h.w.base))
	assert.True(t, visible(h.w.finger))

	h.toggle(CapCenterOfMass, "box::gripper")
	assert.False(t, visible(h.w.finger))

	// base comes first and is shown, so both are hidden.
	h.toggle(CapCenterOfMass, "box")
	assert.False(t, visible(h.w.base))
	assert.False(t, visible(h.w.finger))

	for _, com := range h.overlays(CapCenterOfMass) {
		assert.False(t, com.Visible())
	}
}

func TestOverlayEngine_RequestsInOneFrameApplyInOrder(t *testing.T) {
	h := newOverlayHarness(t)

	h.engine.Request(CapCenterOfMass, "box::base")
	h.engine.Request(CapCenterOfMass, "box::base")
	h.engine.Request(CapCenterOfMass, "box::base")
	h.cycle()

	rec, ok := h.engine.Record(CapCenterOfMass, h.w.base)
	require.True(t, ok)
	assert.True(t, rec.Visible, "show, hide, show")
	assert.Len(t, h.overlays(CapCenterOfMass), 1)
}

func TestOverlayEngine_Inertia(t *testing.T) {
	h := newOverlayHarness(t)

	h.toggle(CapInertia, "box::base")
	objs := h.overlays(CapInertia)
	require.Len(t, objs, 1)
	assert.Equal(t, "box::base", objs[0].Parent().Name())
	assert.True(t, strings.HasPrefix(objs[0].Name(), "box::base::Inertia_"))

	iv, ok := objs[0].(render.InertiaVisual)
	require.True(t, ok)
	assert.Equal(t, 2.0, iv.Inertial().Mass)
}

func TestOverlayEngine_Collision(t *testing.T) {
	h := newOverlayHarness(t)

	h.toggle(CapCollision, "box::gripper")
	objs := h.overlays(CapCollision)
	require.Len(t, objs, 1)
	col := objs[0]
	assert.Equal(t, "box::gripper::finger::finger_col", col.Name())
	assert.Equal(t, "box::gripper::finger", col.Parent().Name())
	assert.Equal(t, h.w.fingerCol, mustEntity(t, col))
	assert.False(t, col.CastShadows())
	assert.True(t, col.Visible())

	h.toggle(CapCollision, "box::gripper")
	assert.False(t, col.Visible())
}

func TestOverlayEngine_LinkWithoutInertial(t *testing.T) {
	h := newOverlayHarness(t)

	h.toggle(CapCenterOfMass, "box::arm")
	assert.Empty(t, h.engine.Records(CapCenterOfMass))
	assert.Empty(t, h.overlays(CapCenterOfMass))
	assert.Equal(t, uint64(1), h.engine.Stats().Resolved)
}

func TestOverlayEngine_RejectedRequests(t *testing.T) {
	h := newOverlayHarness(t)

	assert.True(t, h.engine.Request(CapWireframe, "box::base::base_vis"))
	assert.True(t, h.engine.Request(CapWireframe, "nope"))
	assert.True(t, h.engine.Request(CapWireframe, ""))
	assert.True(t, h.engine.Request(Capability(99), "box"))
	h.cycle()

	assert.Empty(t, h.engine.Records(CapWireframe))
	assert.False(t, h.visual("box::base::base_vis").Wireframe())

	st := h.engine.Stats()
	assert.Equal(t, uint64(4), st.Requests)
	assert.Equal(t, uint64(1), st.Resolved, "only the visual name resolves")
	assert.Equal(t, uint64(3), st.Dropped, "invalid kind, unknown name and bad capability")
}

func TestOverlayEngine_EntityRemoval(t *testing.T) {
	h := newOverlayHarness(t)
	h.engine.Request(CapCenterOfMass, "box")
	h.engine.Request(CapWireframe, "box")
	h.cycle()
	require.Len(t, h.overlays(CapCenterOfMass), 2)

	h.app.Commands().RemoveEntityTree(h.w.gripper)
	h.app.Step()
	h.app.RenderFrame()

	_, ok := h.engine.Record(CapCenterOfMass, h.w.finger)
	assert.False(t, ok)
	_, ok = h.engine.Record(CapWireframe, h.w.fingerVis)
	assert.False(t, ok)
	assert.Nil(t, h.visual("box::gripper"))

	coms := h.overlays(CapCenterOfMass)
	require.Len(t, coms, 1)
	assert.Equal(t, h.w.base, mustEntity(t, coms[0]))

	// The remaining record is no longer fresh: the next toggle hides it.
	h.toggle(CapCenterOfMass, "box")
	assert.False(t, coms[0].Visible())

	dropped := h.engine.Stats().Dropped
	h.toggle(CapCenterOfMass, "box::gripper")
	assert.Equal(t, dropped+1, h.engine.Stats().Dropped, "a removed model's name no longer resolves")
	assert.Len(t, h.overlays(CapCenterOfMass), 1)
	_, ok = h.engine.Record(CapCenterOfMass, h.w.finger)
	assert.False(t, ok)
}

func TestOverlayEngine_SubtreeRemovedDuringStep(t *testing.T) {
	h := newOverlayHarness(t)
	remove := false
	h.app.UseSystem(System(func(cmd *Commands) {
		if remove {
			remove = false
			cmd.RemoveEntityTree(h.w.gripper)
		}
	}).InStage(Update))

	h.engine.Request(CapCenterOfMass, "box")
	h.app.RenderFrame()
	remove = true
	h.app.Step()
	require.False(t, h.app.Ecs().Alive(h.w.finger))

	_, ok := h.engine.Record(CapCenterOfMass, h.w.finger)
	assert.False(t, ok, "no record for a link removed earlier in the step")
	rec, ok := h.engine.Record(CapCenterOfMass, h.w.base)
	require.True(t, ok)
	assert.True(t, rec.Visible)

	h.app.RenderFrame()
	coms := h.overlays(CapCenterOfMass)
	require.Len(t, coms, 1)
	assert.Equal(t, h.w.base, mustEntity(t, coms[0]))
	assert.Equal(t, uint64(1), h.engine.Stats().Created)

	h.app.Step()
	h.app.RenderFrame()
	assert.Nil(t, h.visual("box::gripper"))
	assert.Len(t, h.overlays(CapCenterOfMass), 1)
}

func TestOverlayEngine_ThreeObjectsReuseIds(t *testing.T) {
	h := newOverlayHarness(t)
	armCol := h.app.Commands().AddEntity(CollisionTag{}, NameComponent{Name: "arm_col"}, Parent{Entity: h.w.arm},
		PoseComponent{Pose: IdentityPose()},
		CollisionElementComponent{Collision: CollisionElement{Name: "arm_col", Pose: IdentityPose(), Geometry: boxGeometry(0.2, 0.2, 1)}})
	h.app.Step()
	h.app.RenderFrame()

	before := make(map[uint64]bool)
	for _, vis := range h.scene.Visuals() {
		before[vis.Id()] = true
	}

	h.toggle(CapCollision, "box")
	recs := h.engine.Records(CapCollision)
	require.Len(t, recs, 3)
	assert.ElementsMatch(t, []EntityId{h.w.baseCol, armCol, h.w.fingerCol},
		[]EntityId{recs[0].Target, recs[1].Target, recs[2].Target})

	ids := make(map[uint64]EntityId)
	for _, rec := range recs {
		assert.True(t, rec.Visible)
		assert.True(t, rec.Materialized)
		assert.False(t, before[rec.ObjectId], "id %d was already in use", rec.ObjectId)
		ids[rec.ObjectId] = rec.Target
	}
	assert.Len(t, ids, 3, "every object gets its own id")

	h.toggle(CapCollision, "box")
	for id := range ids {
		vis := h.scene.VisualById(id)
		require.NotNil(t, vis)
		assert.False(t, vis.Visible())
	}

	h.toggle(CapCollision, "box")
	for _, rec := range h.engine.Records(CapCollision) {
		assert.Equal(t, rec.Target, ids[rec.ObjectId], "shown again under the same id")
		assert.True(t, h.scene.VisualById(rec.ObjectId).Visible())
	}
	assert.Equal(t, uint64(3), h.engine.Stats().Created)
	assert.Len(t, h.overlays(CapCollision), 3)
}

func TestOverlayEngine_ScopedEntityNames(t *testing.T) {
	h := newOverlayHarness(t)

	// No renderer object carries the world segment; the store does.
	h.toggle(CapCenterOfMass, "default::box::gripper")
	recs := h.engine.Records(CapCenterOfMass)
	require.Len(t, recs, 1)
	assert.Equal(t, h.w.finger, recs[0].Target)
	assert.True(t, recs[0].Materialized)

	h.toggle(CapCenterOfMass, "default::box::nope")
	st := h.engine.Stats()
	assert.Equal(t, uint64(1), st.Resolved)
	assert.Equal(t, uint64(1), st.Dropped)
}

func TestOverlayEngine_ScopedEntityNamesCustomDelimiter(t *testing.T) {
	h := newOverlayHarnessWith(t, VisualizationModule{Delimiter: "/"})

	h.toggle(CapInertia, "default/box/base")
	_, ok := h.engine.Record(CapInertia, h.w.base)
	assert.True(t, ok)
	assert.Len(t, h.overlays(CapInertia), 1)

	h.toggle(CapInertia, "default::box::base")
	assert.Equal(t, uint64(1), h.engine.Stats().Dropped)
}

func TestOverlayEngine_ConcurrentRequests(t *testing.T) {
	h := newOverlayHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.engine.Request(CapInertia, "box::base")
		}()
	}
	wg.Wait()
	h.cycle()

	assert.Equal(t, uint64(8), h.engine.Stats().Resolved)
	rec, ok := h.engine.Record(CapInertia, h.w.base)
	require.True(t, ok)
	assert.False(t, rec.Visible, "an even number of toggles")
}

// engineHarness drives an OverlayEngine by hand against a store and a
// scene whose primary visuals the test creates itself.
type engineHarness struct {
	ecs     *Ecs
	w       testWorld
	scene   *render.RetainedScene
	factory *OverlayFactory
	engine  *OverlayEngine
}

func newEngineHarness(opts OverlayOptions) *engineHarness {
	ecs, w := newTestStore()
	scene := render.NewRetainedScene("test")
	h := &engineHarness{
		ecs:     ecs,
		w:       w,
		scene:   scene,
		factory: NewOverlayFactory(scene, nil),
		engine:  NewOverlayEngine(scene, nil, opts),
	}
	h.engine.SyncStep(ecs)
	return h
}

func (h *engineHarness) step() {
	h.ecs.advanceChangeFeed()
	h.engine.SyncStep(h.ecs)
}

func TestOverlayEngine_RetriesWhileParentMissing(t *testing.T) {
	h := newEngineHarness(OverlayOptions{ProbeStart: 500})
	box, err := h.factory.CreateEmptyVisual(1, h.w.box, "box", IdentityPose(), nil)
	require.NoError(t, err)

	h.engine.Request(CapCenterOfMass, "box")
	h.engine.SyncRender()
	h.step()
	h.engine.SyncRender()

	rec, ok := h.engine.Record(CapCenterOfMass, h.w.base)
	require.True(t, ok)
	assert.True(t, rec.Visible)
	assert.False(t, rec.Materialized)

	_, err = h.factory.CreateEmptyVisual(2, h.w.base, "base", IdentityPose(), box)
	require.NoError(t, err)
	h.engine.SyncRender()

	rec, _ = h.engine.Record(CapCenterOfMass, h.w.base)
	assert.True(t, rec.Materialized)
	assert.Equal(t, uint64(500), rec.ObjectId)
	com := h.scene.VisualById(500)
	require.NotNil(t, com)
	assert.Equal(t, "box::base::COM_500", com.Name())

	rec, _ = h.engine.Record(CapCenterOfMass, h.w.finger)
	assert.False(t, rec.Materialized, "finger has no visual yet")
	assert.Equal(t, uint64(1), h.engine.Stats().Created)
}

func TestOverlayEngine_DestroysOwnedObjects(t *testing.T) {
	h := newEngineHarness(OverlayOptions{ProbeStart: 500})
	box, _ := h.factory.CreateEmptyVisual(1, h.w.box, "box", IdentityPose(), nil)
	h.factory.CreateEmptyVisual(2, h.w.base, "base", IdentityPose(), box)
	gripper, _ := h.factory.CreateEmptyVisual(3, h.w.gripper, "gripper", IdentityPose(), box)
	h.factory.CreateEmptyVisual(4, h.w.finger, "finger", IdentityPose(), gripper)

	h.engine.Request(CapCenterOfMass, "box")
	h.engine.SyncRender()
	h.step()
	h.engine.SyncRender()
	require.NotNil(t, h.scene.VisualById(500))
	require.NotNil(t, h.scene.VisualById(501))

	// 501 is replaced by an object the engine does not own.
	h.scene.DestroyVisual(h.scene.VisualById(501), true)
	imposter, err := h.scene.CreateVisual(501, "imposter")
	require.NoError(t, err)

	h.ecs.removeEntity(h.w.base)
	h.ecs.removeEntity(h.w.finger)
	h.step()
	h.engine.SyncRender()

	assert.Nil(t, h.scene.VisualById(500))
	assert.Same(t, imposter, h.scene.VisualById(501))
	assert.NotNil(t, h.scene.VisualById(2), "primary visuals are left alone")
	assert.Equal(t, uint64(1), h.engine.Stats().Destroyed)
	assert.Empty(t, h.engine.Records(CapCenterOfMass))
}

func TestOverlayEngine_IdSpaceExhaustedDropsRecord(t *testing.T) {
	h := newEngineHarness(OverlayOptions{ProbeStart: 1, ProbeCeiling: 2})
	box, _ := h.factory.CreateEmptyVisual(1, h.w.box, "box", IdentityPose(), nil)
	h.factory.CreateEmptyVisual(2, h.w.base, "base", IdentityPose(), box)

	h.engine.Request(CapCenterOfMass, "box::base")
	h.engine.SyncRender()
	h.step()
	h.engine.SyncRender()

	_, ok := h.engine.Record(CapCenterOfMass, h.w.base)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), h.engine.Stats().Dropped)
}
