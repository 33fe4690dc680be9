package inspector

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gekko3d/inspector/render"
)

// errParentMissing means the visual an overlay hangs off has not been
// created yet; the work stays queued for the next frame.
var errParentMissing = errors.New("parent visual not in scene")

// errNoSuchObject means a requested name matches no renderer object. The
// name is then tried as a scoped entity name on the next step.
var errNoSuchObject = fmt.Errorf("no renderer object: %w", ErrNotFound)

// OverlayRecord is the engine's state for one affected entity of one
// capability. Records are created on the first toggle that reaches the
// entity and only go away when the entity is removed from the store.
type OverlayRecord struct {
	Target       EntityId
	ObjectId     uint64
	Visible      bool
	Materialized bool
}

// EngineStats counts what happened to requests and overlay objects.
type EngineStats struct {
	Requests  uint64
	Resolved  uint64
	Dropped   uint64
	Created   uint64
	Applied   uint64
	Destroyed uint64
}

type OverlayOptions struct {
	// ProbeStart is the first renderer id tried for new overlay objects.
	ProbeStart uint64
	// ProbeCeiling bounds the number of ids tried. Zero means
	// DefaultIdProbeCeiling.
	ProbeCeiling uint64
	// Delimiter separates the segments of scoped entity names, used for
	// requested names that match no renderer object. Empty means "::".
	Delimiter string
}

type capabilityState struct {
	names []string
	// scoped holds requested names that matched no renderer object; they
	// are resolved against the store on the next step.
	scoped  []string
	targets []EntityId
	records map[EntityId]*OverlayRecord
	// pending holds records whose renderer object is behind the record.
	pending set[EntityId]
}

type destroyRequest struct {
	objectId uint64
	owner    EntityId
}

// OverlayEngine toggles overlays on and off. SyncStep runs on simulation
// steps and does the bookkeeping, SyncRender runs on render ticks and is
// the only place the renderer is touched. Request may be called from any
// goroutine. SyncStep and SyncRender must not run concurrently.
type OverlayEngine struct {
	mu      sync.Mutex
	index   *OverlayIndex
	delim   string
	caps    [capabilityCount]capabilityState
	destroy []destroyRequest
	stats   EngineStats

	// Touched by SyncRender only.
	scene         render.Scene
	factory       *OverlayFactory
	log           Logger
	probeStart    uint64
	probeCeiling  uint64
	entityVisuals map[EntityId]uint64
}

func NewOverlayEngine(scene render.Scene, log Logger, opts OverlayOptions) *OverlayEngine {
	if log == nil {
		log = NewNopLogger()
	}
	if opts.ProbeCeiling == 0 {
		opts.ProbeCeiling = DefaultIdProbeCeiling
	}
	if opts.Delimiter == "" {
		opts.Delimiter = "::"
	}
	e := &OverlayEngine{
		index:         NewOverlayIndex(),
		delim:         opts.Delimiter,
		scene:         scene,
		factory:       NewOverlayFactory(scene, log),
		log:           log,
		probeStart:    opts.ProbeStart,
		probeCeiling:  opts.ProbeCeiling,
		entityVisuals: make(map[EntityId]uint64),
	}
	for i := range e.caps {
		e.caps[i].records = make(map[EntityId]*OverlayRecord)
		e.caps[i].pending = make(set[EntityId])
	}
	return e
}

// Request queues a toggle of capability c on the renderer object called
// name. It always acknowledges; whether the toggle applies is only visible
// in the scene later on.
func (e *OverlayEngine) Request(c Capability, name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Requests++
	if c < 0 || c >= capabilityCount {
		e.stats.Dropped++
		return true
	}
	if name != "" {
		e.caps[c].names = append(e.caps[c].names, name)
	}
	return true
}

// SyncStep folds store changes into the index, forgets records of removed
// entities and turns queued targets into show/hide decisions.
func (e *OverlayEngine) SyncStep(ecs *Ecs) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.index.Update(ecs)
	ecs.EachRemovedEntity(func(eid EntityId, _ []any) bool {
		e.forgetLocked(eid)
		return true
	})

	for _, c := range Capabilities {
		st := &e.caps[c]
		e.resolveScopedLocked(ecs, c)
		targets := st.targets
		st.targets = nil
		for _, target := range targets {
			kind := EntityKindOf(ecs, target)
			if kind != KindModel && kind != KindLink {
				e.log.Errorf("%v", fmt.Errorf("entity [%d] %q for viewing %s: %w: must be a model or link",
					target, ScopedName(ecs, target, e.delim, false), c, ErrInvalidTargetKind))
				e.stats.Dropped++
				continue
			}
			e.decideLocked(c, e.affectedLocked(ecs, c, target))
		}
	}
}

// resolveScopedLocked turns the scoped names queued for c into targets.
// A name may match several entities; all of them become targets.
func (e *OverlayEngine) resolveScopedLocked(ecs *Ecs, c Capability) {
	st := &e.caps[c]
	for _, name := range st.scoped {
		matches := EntitiesFromScopedName(name, ecs, NullEntity, e.delim)
		if len(matches) == 0 {
			e.log.Errorf("unable to find node name [%s] to view %s: %v", name, c, ErrNotFound)
			e.stats.Dropped++
			continue
		}
		e.stats.Resolved++
		st.targets = append(st.targets, matches...)
	}
	st.scoped = nil
}

func (e *OverlayEngine) forgetLocked(eid EntityId) {
	for _, c := range Capabilities {
		st := &e.caps[c]
		rec, ok := st.records[eid]
		if !ok {
			continue
		}
		if c.ownsObject() && rec.Materialized {
			e.destroy = append(e.destroy, destroyRequest{objectId: rec.ObjectId, owner: eid})
		}
		delete(st.records, eid)
		delete(st.pending, eid)
	}
}

// affectedLocked expands a model or link into the entities capability c
// acts on: the visuals or collisions of every link below the target, or
// the links themselves when they carry an inertial.
func (e *OverlayEngine) affectedLocked(ecs *Ecs, c Capability, target EntityId) []EntityId {
	var res []EntityId
	seen := make(set[EntityId])
	add := func(ids ...EntityId) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			// Removals flushed mid-step reach the index on the next step.
			if !ecs.Alive(id) {
				continue
			}
			seen[id] = struct{}{}
			res = append(res, id)
		}
	}

	for _, link := range e.index.ChildLinks(ecs, target) {
		switch {
		case c.linkLevel():
			if e.index.HasInertial(link) {
				add(link)
			}
		case c == CapCollision:
			add(e.index.Collisions(link)...)
		default:
			add(e.index.Visuals(link)...)
		}
	}
	return res
}

// decideLocked applies the toggle rule to one batch. If any entity has
// never been toggled, the whole batch is shown and records are created for
// the new entities. Otherwise every entity gets the negation of the first
// entity's current state, so a batch of mixed states follows whichever
// entity comes first.
func (e *OverlayEngine) decideLocked(c Capability, affected []EntityId) {
	if len(affected) == 0 {
		e.log.Debugf("viewing %s: nothing to toggle", c)
		return
	}
	st := &e.caps[c]

	var fresh []EntityId
	for _, a := range affected {
		if _, ok := st.records[a]; !ok {
			fresh = append(fresh, a)
		}
	}

	var show bool
	if len(fresh) > 0 {
		show = true
		for _, f := range fresh {
			st.records[f] = &OverlayRecord{Target: f}
		}
	} else {
		show = !st.records[affected[0]].Visible
	}

	for _, a := range affected {
		st.records[a].Visible = show
		st.pending[a] = struct{}{}
	}
	e.log.Debugf("viewing %s: %d entities, %d new, visible=%t", c, len(affected), len(fresh), show)
}

// renderWork is a snapshot of one pending record plus the payload needed
// to build its object, taken under the lock.
type renderWork struct {
	cap    Capability
	entity EntityId
	rec    OverlayRecord

	parent    EntityId
	inertial  Inertial
	collision CollisionElement
	hasData   bool
}

type renderResult struct {
	work     renderWork
	objectId uint64
	created  bool
	err      error
}

// SyncRender destroys objects of removed entities, builds missing overlay
// objects, applies the latest decisions and resolves the names requested
// since the previous tick. The lock is never held across renderer calls.
func (e *OverlayEngine) SyncRender() {
	e.mu.Lock()
	destroy := e.destroy
	e.destroy = nil
	work := e.collectWorkLocked()
	var names [capabilityCount][]string
	for _, c := range Capabilities {
		names[c] = e.caps[c].names
		e.caps[c].names = nil
	}
	e.mu.Unlock()

	destroyed := 0
	for _, d := range destroy {
		vis := e.scene.VisualById(d.objectId)
		if vis == nil || !IsOverlayVisual(vis) {
			continue
		}
		if owner, _ := EntityOfVisual(vis); owner != d.owner {
			continue
		}
		e.scene.DestroyVisual(vis, true)
		destroyed++
	}

	results := make([]renderResult, 0, len(work))
	for _, w := range work {
		results = append(results, e.realize(w))
	}

	var resolved [capabilityCount][]EntityId
	var scoped [capabilityCount][]string
	dropped := 0
	for _, c := range Capabilities {
		for _, name := range names[c] {
			entity, err := e.resolveTarget(name)
			if errors.Is(err, errNoSuchObject) {
				scoped[c] = append(scoped[c], name)
				continue
			}
			if err != nil {
				e.log.Errorf("unable to find node name [%s] to view %s: %v", name, c, err)
				dropped++
				continue
			}
			resolved[c] = append(resolved[c], entity)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Destroyed += uint64(destroyed)
	e.stats.Dropped += uint64(dropped)
	for _, r := range results {
		e.commitLocked(r)
	}
	for _, c := range Capabilities {
		e.caps[c].targets = append(e.caps[c].targets, resolved[c]...)
		e.caps[c].scoped = append(e.caps[c].scoped, scoped[c]...)
		e.stats.Resolved += uint64(len(resolved[c]))
	}
}

func (e *OverlayEngine) collectWorkLocked() []renderWork {
	var work []renderWork
	for _, c := range Capabilities {
		st := &e.caps[c]
		ids := make([]EntityId, 0, len(st.pending))
		for id := range st.pending {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, id := range ids {
			w := renderWork{cap: c, entity: id, rec: *st.records[id]}
			switch {
			case c.linkLevel():
				w.inertial, w.hasData = e.index.Inertial(id)
			case c == CapCollision:
				w.collision, w.parent, w.hasData = e.index.Collision(id)
			default:
				w.hasData = true
			}
			work = append(work, w)
		}
	}
	return work
}

func (e *OverlayEngine) realize(w renderWork) renderResult {
	res := renderResult{work: w, objectId: w.rec.ObjectId}

	var vis render.Visual
	if w.rec.Materialized {
		vis = e.scene.VisualById(w.rec.ObjectId)
		if vis != nil {
			if owner, _ := EntityOfVisual(vis); owner != w.entity {
				vis = nil
			}
		}
	}
	if vis == nil {
		var err error
		vis, err = e.materialize(w)
		if err != nil {
			res.err = err
			return res
		}
		res.objectId = vis.Id()
		res.created = w.cap.ownsObject()
	}

	switch w.cap {
	case CapWireframe:
		vis.SetWireframe(w.rec.Visible)
	case CapTransparent:
		vis.SetTransparent(w.rec.Visible)
	default:
		vis.SetVisible(w.rec.Visible)
	}
	return res
}

func (e *OverlayEngine) materialize(w renderWork) (render.Visual, error) {
	if !w.hasData {
		return nil, fmt.Errorf("%s overlay for entity %d: %w", w.cap, w.entity, ErrMissingComponent)
	}

	if !w.cap.ownsObject() {
		vis := e.entityVisual(w.entity)
		if vis == nil {
			return nil, errParentMissing
		}
		return vis, nil
	}

	parentEntity := w.entity
	if w.cap == CapCollision {
		parentEntity = w.parent
	}
	parent := e.entityVisual(parentEntity)
	if parent == nil {
		return nil, errParentMissing
	}

	id, err := ProbeObjectId(e.scene, e.probeStart, e.probeCeiling)
	if err != nil {
		return nil, err
	}

	var vis render.Visual
	switch w.cap {
	case CapCenterOfMass:
		vis, err = e.factory.CreateCOMVisual(id, w.entity, w.inertial, parent)
	case CapInertia:
		vis, err = e.factory.CreateInertiaVisual(id, w.entity, w.inertial, parent)
	case CapCollision:
		vis, err = e.factory.CreateCollision(id, w.entity, w.collision, parent)
	}
	if err != nil {
		return nil, err
	}
	vis.SetUserData(UserDataOverlay, w.cap)
	return vis, nil
}

func (e *OverlayEngine) commitLocked(r renderResult) {
	w := r.work
	st := &e.caps[w.cap]
	rec, ok := st.records[w.entity]
	if !ok {
		return
	}

	switch {
	case r.err == nil:
		rec.ObjectId = r.objectId
		rec.Materialized = true
		delete(st.pending, w.entity)
		e.stats.Applied++
		if r.created {
			e.stats.Created++
		}
	case errors.Is(r.err, errParentMissing):
		rec.Materialized = false
		e.log.Debugf("viewing %s: no visual for entity %d yet, retrying next frame", w.cap, w.entity)
	default:
		// The record goes away so that a later toggle starts over.
		e.log.Errorf("viewing %s: dropping entity %d: %v", w.cap, w.entity, r.err)
		delete(st.records, w.entity)
		delete(st.pending, w.entity)
		e.stats.Dropped++
	}
}

// resolveTarget maps a renderer object name to the entity it stands for.
func (e *OverlayEngine) resolveTarget(name string) (EntityId, error) {
	vis, ok := e.scene.NodeByName(name).(render.Visual)
	if !ok || vis == nil {
		return NullEntity, fmt.Errorf("visual %q: %w", name, errNoSuchObject)
	}
	entity, ok := EntityOfVisual(vis)
	if !ok {
		return NullEntity, fmt.Errorf("entity of visual %q: %w", name, ErrNotFound)
	}
	return entity, nil
}

// entityVisual finds the primary visual standing for an entity, skipping
// overlay objects tagged with the same entity.
func (e *OverlayEngine) entityVisual(entity EntityId) render.Visual {
	if id, ok := e.entityVisuals[entity]; ok {
		if vis := e.scene.VisualById(id); vis != nil && !IsOverlayVisual(vis) {
			if owner, _ := EntityOfVisual(vis); owner == entity {
				return vis
			}
		}
		delete(e.entityVisuals, entity)
	}

	for _, vis := range e.scene.Visuals() {
		if IsOverlayVisual(vis) {
			continue
		}
		if owner, ok := EntityOfVisual(vis); ok && owner == entity {
			e.entityVisuals[entity] = vis.Id()
			return vis
		}
	}
	return nil
}

// Records returns a copy of the records of one capability ordered by
// entity.
func (e *OverlayEngine) Records(c Capability) []OverlayRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c < 0 || c >= capabilityCount {
		return nil
	}
	res := make([]OverlayRecord, 0, len(e.caps[c].records))
	for _, rec := range e.caps[c].records {
		res = append(res, *rec)
	}
	slices.SortFunc(res, func(a, b OverlayRecord) int {
		switch {
		case a.Target < b.Target:
			return -1
		case a.Target > b.Target:
			return 1
		}
		return 0
	})
	return res
}

// Record returns the record of one entity for one capability.
func (e *OverlayEngine) Record(c Capability, entity EntityId) (OverlayRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c < 0 || c >= capabilityCount {
		return OverlayRecord{}, false
	}
	rec, ok := e.caps[c].records[entity]
	if !ok {
		return OverlayRecord{}, false
	}
	return *rec, true
}

func (e *OverlayEngine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
