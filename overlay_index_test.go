package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayIndex_FullScan(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	assert.Equal(t, []EntityId{w.base, w.arm}, idx.Links(w.box))
	assert.Equal(t, []EntityId{w.gripper}, idx.NestedModels(w.box))
	assert.Empty(t, idx.NestedModels(w.world), "top level models are not nested in the world")
	assert.Equal(t, []EntityId{w.finger}, idx.Links(w.gripper))
	assert.Equal(t, []EntityId{w.baseVis}, idx.Visuals(w.base))
	assert.Equal(t, []EntityId{w.baseCol}, idx.Collisions(w.base))
	assert.Empty(t, idx.Collisions(w.arm))

	in, ok := idx.Inertial(w.base)
	require.True(t, ok)
	assert.Equal(t, 2.0, in.Mass)
	assert.True(t, idx.HasInertial(w.finger))
	assert.False(t, idx.HasInertial(w.arm))

	col, link, ok := idx.Collision(w.fingerCol)
	require.True(t, ok)
	assert.Equal(t, "finger_col", col.Name)
	assert.Equal(t, w.finger, link)

	_, _, ok = idx.Collision(w.baseVis)
	assert.False(t, ok)
}

func TestOverlayIndex_ReturnsCopies(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	links := idx.Links(w.box)
	links[0] = 12345
	assert.Equal(t, w.base, idx.Links(w.box)[0])
}

func TestOverlayIndex_IncrementalAdd(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	wrist := ecs.addEntity(LinkTag{}, NameComponent{Name: "wrist"}, Parent{Entity: w.gripper},
		InertialComponent{Inertial: testInertial(1)})
	wristVis := ecs.addEntity(VisualTag{}, Parent{Entity: wrist}, GeometryComponent{Geometry: boxGeometry(1, 1, 1)})
	ecs.advanceChangeFeed()
	idx.Update(ecs)

	assert.Equal(t, []EntityId{w.finger, wrist}, idx.Links(w.gripper))
	assert.Equal(t, []EntityId{wristVis}, idx.Visuals(wrist))
	assert.True(t, idx.HasInertial(wrist))

	// Updating again without changes leaves everything in place.
	ecs.advanceChangeFeed()
	idx.Update(ecs)
	assert.Equal(t, []EntityId{w.finger, wrist}, idx.Links(w.gripper))
	assert.Equal(t, []EntityId{w.base, w.arm}, idx.Links(w.box))
}

func TestOverlayIndex_Removal(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	ecs.removeEntity(w.base)
	ecs.removeEntity(w.baseVis)
	ecs.removeEntity(w.baseCol)
	ecs.advanceChangeFeed()
	idx.Update(ecs)

	assert.Equal(t, []EntityId{w.arm}, idx.Links(w.box))
	assert.Empty(t, idx.Visuals(w.base))
	assert.Empty(t, idx.Collisions(w.base))
	assert.False(t, idx.HasInertial(w.base))
	_, _, ok := idx.Collision(w.baseCol)
	assert.False(t, ok)
}

func TestOverlayIndex_AddAndRemoveInSameStep(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	tmp := ecs.addEntity(LinkTag{}, Parent{Entity: w.box})
	ecs.removeEntity(tmp)
	ecs.advanceChangeFeed()
	idx.Update(ecs)

	assert.NotContains(t, idx.Links(w.box), tmp)
}

func TestOverlayIndex_FirstUpdateSeesOlderEntities(t *testing.T) {
	ecs, w := newTestStore()
	// Entities are no longer new by the time the index first looks.
	ecs.advanceChangeFeed()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	assert.Equal(t, []EntityId{w.base, w.arm}, idx.Links(w.box))
}
