package inspector

import (
	"slices"
	"sync"

	"github.com/gekko3d/inspector/render"
)

// SceneSync mirrors the models, links and visuals of the store into the
// renderer. These primary visuals are tagged with their entity, which is
// how overlay requests find their way back into the store. Collect runs
// on simulation steps, Present on render ticks.
type SceneSync struct {
	mu          sync.Mutex
	initialized bool
	spawns      []sceneSpawn
	removals    []EntityId

	// Touched by Present only.
	scene   render.Scene
	factory *OverlayFactory
	log     Logger
	visuals map[EntityId]uint64
	nextId  uint64
}

type sceneSpawn struct {
	entity EntityId
	kind   EntityKind
	name   string
	pose   Pose
	// parent is NullEntity for entities placed at the scene root.
	parent EntityId
	desc   *VisualDesc
}

func NewSceneSync(scene render.Scene, log Logger, firstId uint64) *SceneSync {
	if log == nil {
		log = NewNopLogger()
	}
	return &SceneSync{
		scene:   scene,
		factory: NewOverlayFactory(scene, log),
		log:     log,
		visuals: make(map[EntityId]uint64),
		nextId:  firstId,
	}
}

// Collect queues the entities created and removed since the previous step.
// The first call queues everything already in the store.
func (s *SceneSync) Collect(ecs *Ecs) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.initialized = true
		var all []EntityId
		collect := func(eid EntityId) {
			all = append(all, eid)
		}
		NewQuery1[ModelTag](ecs).Map(func(eid EntityId, _ *ModelTag) bool { collect(eid); return true })
		NewQuery1[LinkTag](ecs).Map(func(eid EntityId, _ *LinkTag) bool { collect(eid); return true })
		NewQuery1[VisualTag](ecs).Map(func(eid EntityId, _ *VisualTag) bool { collect(eid); return true })
		slices.Sort(all)
		for _, eid := range all {
			s.queueSpawnLocked(ecs, eid)
		}
	} else {
		ecs.EachNew(func(eid EntityId) bool {
			s.queueSpawnLocked(ecs, eid)
			return true
		})
	}

	ecs.EachRemovedEntity(func(eid EntityId, _ []any) bool {
		s.removals = append(s.removals, eid)
		return true
	})
}

func (s *SceneSync) queueSpawnLocked(ecs *Ecs, eid EntityId) {
	kind := EntityKindOf(ecs, eid)
	if kind != KindModel && kind != KindLink && kind != KindVisual {
		return
	}

	sp := sceneSpawn{entity: eid, kind: kind, name: nameOf(ecs, eid), pose: IdentityPose()}
	if p, ok := GetComponent[PoseComponent](ecs, eid); ok {
		sp.pose = p.Pose
	}
	if p, ok := GetComponent[Parent](ecs, eid); ok {
		switch EntityKindOf(ecs, p.Entity) {
		case KindModel, KindLink:
			sp.parent = p.Entity
		}
	}

	if kind == KindVisual {
		g, ok := GetComponent[GeometryComponent](ecs, eid)
		if !ok {
			s.log.Warnf("visual %q (entity %d) has no geometry, not drawn", sp.name, eid)
			return
		}
		geom := g.Geometry
		desc := &VisualDesc{
			Name:            sp.name,
			Pose:            sp.pose,
			Geometry:        &geom,
			CastShadows:     true,
			VisibilityFlags: ^uint32(0),
		}
		if m, ok := GetComponent[MaterialComponent](ecs, eid); ok {
			mat := m.Material
			desc.Material = &mat
		}
		if t, ok := GetComponent[TransparencyComponent](ecs, eid); ok {
			desc.Transparency = t.Transparency
		}
		if c, ok := GetComponent[CastShadowsComponent](ecs, eid); ok {
			desc.CastShadows = c.CastShadows
		}
		if f, ok := GetComponent[VisibilityFlagsComponent](ecs, eid); ok {
			desc.VisibilityFlags = f.Flags
		}
		sp.desc = desc
	}
	s.spawns = append(s.spawns, sp)
}

// Present destroys the visuals of removed entities and creates the queued
// ones, parents first. Entities whose parent visual does not exist yet stay
// queued.
func (s *SceneSync) Present() {
	s.mu.Lock()
	removals := s.removals
	spawns := s.spawns
	s.removals = nil
	s.spawns = nil
	s.mu.Unlock()

	removed := make(set[EntityId], len(removals))
	for _, eid := range removals {
		removed[eid] = struct{}{}
		id, ok := s.visuals[eid]
		if !ok {
			continue
		}
		delete(s.visuals, eid)
		if vis := s.scene.VisualById(id); vis != nil {
			if owner, _ := EntityOfVisual(vis); owner == eid {
				s.scene.DestroyVisual(vis, true)
			}
		}
	}

	pending := spawns[:0]
	for _, sp := range spawns {
		if _, gone := removed[sp.entity]; !gone {
			pending = append(pending, sp)
		}
	}

	for progress := true; progress && len(pending) > 0; {
		progress = false
		var waiting []sceneSpawn
		for _, sp := range pending {
			var parent render.Visual
			if sp.parent != NullEntity {
				id, ok := s.visuals[sp.parent]
				if !ok {
					waiting = append(waiting, sp)
					continue
				}
				parent = s.scene.VisualById(id)
			}
			s.spawn(sp, parent)
			progress = true
		}
		pending = waiting
	}

	if len(pending) > 0 {
		s.log.Debugf("scene sync: %d visuals waiting for their parent", len(pending))
		s.mu.Lock()
		s.spawns = append(pending, s.spawns...)
		s.mu.Unlock()
	}
}

func (s *SceneSync) spawn(sp sceneSpawn, parent render.Visual) {
	if _, ok := s.visuals[sp.entity]; ok {
		return
	}
	id, err := ProbeObjectId(s.scene, s.nextId, DefaultIdProbeCeiling)
	if err != nil {
		s.log.Errorf("scene sync: entity %d: %v", sp.entity, err)
		return
	}

	var vis render.Visual
	if sp.desc != nil {
		vis, err = s.factory.CreateVisual(id, sp.entity, *sp.desc, parent)
	} else {
		vis, err = s.factory.CreateEmptyVisual(id, sp.entity, sp.name, sp.pose, parent)
	}
	if err != nil {
		s.log.Errorf("scene sync: %s %q (entity %d): %v", sp.kind, sp.name, sp.entity, err)
	}
	if vis == nil {
		return
	}
	s.visuals[sp.entity] = vis.Id()
	s.nextId = id + 1
}

// VisualOf returns the primary visual id of an entity.
func (s *SceneSync) VisualOf(entity EntityId) (uint64, bool) {
	id, ok := s.visuals[entity]
	return id, ok
}

type SceneSyncModule struct {
	FirstId uint64
}

func (m SceneSyncModule) Install(app *App, cmd *Commands) {
	state, ok := Resource[RendererState](app)
	if !ok {
		panic("SceneSyncModule needs a renderer, install RendererModule first")
	}
	cmd.AddResources(NewSceneSync(state.Scene, app.Logger(), m.FirstId))
	app.UseSystem(System(sceneCollectSystem).InStage(PostUpdate))
	app.UseSystem(System(scenePresentSystem).InStage(PreRender))
}

func sceneCollectSystem(cmd *Commands, sync *SceneSync) {
	sync.Collect(cmd.Store())
}

func scenePresentSystem(sync *SceneSync) {
	sync.Present()
}
