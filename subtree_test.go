package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildLinks(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	tests := []struct {
		name string
		root EntityId
		want []EntityId
	}{
		{"link yields itself", w.arm, []EntityId{w.arm}},
		{"model with nested model", w.box, []EntityId{w.base, w.arm, w.finger}},
		{"nested model", w.gripper, []EntityId{w.finger}},
		{"visual is not a target", w.baseVis, []EntityId{}},
		{"world is not a target", w.world, []EntityId{}},
		{"unknown entity", 9999, []EntityId{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.ChildLinks(ecs, tt.root))
			assert.Equal(t, tt.want, ChildLinksFromStore(ecs, tt.root))
		})
	}
}

func TestChildLinks_DeepNesting(t *testing.T) {
	ecs := MakeEcs()
	root := ecs.addEntity(ModelTag{})
	parent := root
	var want []EntityId
	for i := 0; i < 10; i++ {
		m := ecs.addEntity(ModelTag{}, Parent{Entity: parent})
		want = append(want, ecs.addEntity(LinkTag{}, Parent{Entity: m}))
		parent = m
	}
	ecs.advanceChangeFeed()
	idx := NewOverlayIndex()
	idx.Update(&ecs)

	assert.Equal(t, want, idx.ChildLinks(&ecs, root))
}

func TestChildLinks_SiblingOrder(t *testing.T) {
	ecs := MakeEcs()
	root := ecs.addEntity(ModelTag{})
	a := ecs.addEntity(ModelTag{}, Parent{Entity: root})
	b := ecs.addEntity(ModelTag{}, Parent{Entity: root})
	la := ecs.addEntity(LinkTag{}, Parent{Entity: a})
	lb := ecs.addEntity(LinkTag{}, Parent{Entity: b})
	direct := ecs.addEntity(LinkTag{}, Parent{Entity: root})
	ecs.advanceChangeFeed()
	idx := NewOverlayIndex()
	idx.Update(&ecs)

	// Direct links first, then nested models in id order.
	assert.Equal(t, []EntityId{direct, la, lb}, idx.ChildLinks(&ecs, root))
}

func TestChildLinks_IndexLagsStore(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	late := ecs.addEntity(LinkTag{}, Parent{Entity: w.box})

	assert.NotContains(t, idx.ChildLinks(ecs, w.box), late)
	assert.Contains(t, ChildLinksFromStore(ecs, w.box), late)
}

func TestChildLinks_SkipsEntitiesRemovedSinceUpdate(t *testing.T) {
	ecs, w := newTestStore()
	idx := NewOverlayIndex()
	idx.Update(ecs)

	ecs.removeEntity(w.finger)
	ecs.removeEntity(w.gripper)

	assert.Equal(t, []EntityId{w.base, w.arm}, idx.ChildLinks(ecs, w.box))
	assert.Equal(t, []EntityId{w.base, w.arm}, ChildLinksFromStore(ecs, w.box))
}
