package inspector

import (
	"slices"
)

// OverlayIndex caches which links a model owns, which models it nests,
// which visuals and collisions each link owns, and the inertial and
// collision payloads the overlays are built from. It is filled by a full
// scan on the first Update and kept current from the store's change feeds
// afterwards. Callers only get copies.
type OverlayIndex struct {
	initialized bool

	modelToLinks     map[EntityId][]EntityId
	modelToModels    map[EntityId][]EntityId
	linkToVisuals    map[EntityId][]EntityId
	linkToCollisions map[EntityId][]EntityId

	inertials       map[EntityId]Inertial
	collisions      map[EntityId]CollisionElement
	collisionParent map[EntityId]EntityId
}

func NewOverlayIndex() *OverlayIndex {
	return &OverlayIndex{
		modelToLinks:     make(map[EntityId][]EntityId),
		modelToModels:    make(map[EntityId][]EntityId),
		linkToVisuals:    make(map[EntityId][]EntityId),
		linkToCollisions: make(map[EntityId][]EntityId),
		inertials:        make(map[EntityId]Inertial),
		collisions:       make(map[EntityId]CollisionElement),
		collisionParent:  make(map[EntityId]EntityId),
	}
}

// indexEntry is one row found by a scan, kept until the scan is sorted.
type indexEntry struct {
	id     EntityId
	parent EntityId
}

func sortEntries(entries []indexEntry) {
	slices.SortFunc(entries, func(a, b indexEntry) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
}

// Update folds the store into the index. The first call scans everything,
// later calls only look at entities created or removed during the previous
// step. Removals are applied last so that nothing stale survives the call.
func (idx *OverlayIndex) Update(ecs *Ecs) {
	onlyNew := idx.initialized
	idx.initialized = true

	var models, links, visuals, collisions []indexEntry

	modelQuery := NewQuery2[ModelTag, Parent](ecs)
	linkQuery := NewQuery2[LinkTag, Parent](ecs)
	visualQuery := NewQuery2[VisualTag, Parent](ecs)
	collisionQuery := NewQuery2[CollisionTag, Parent](ecs)
	inertialQuery := NewQuery2[LinkTag, InertialComponent](ecs)
	collisionElemQuery := NewQuery2[CollisionTag, CollisionElementComponent](ecs)
	if onlyNew {
		modelQuery = modelQuery.OnlyNew()
		linkQuery = linkQuery.OnlyNew()
		visualQuery = visualQuery.OnlyNew()
		collisionQuery = collisionQuery.OnlyNew()
		inertialQuery = inertialQuery.OnlyNew()
		collisionElemQuery = collisionElemQuery.OnlyNew()
	}

	modelQuery.Map(func(eid EntityId, _ *ModelTag, p *Parent) bool {
		models = append(models, indexEntry{id: eid, parent: p.Entity})
		return true
	})
	linkQuery.Map(func(eid EntityId, _ *LinkTag, p *Parent) bool {
		links = append(links, indexEntry{id: eid, parent: p.Entity})
		return true
	})
	visualQuery.Map(func(eid EntityId, _ *VisualTag, p *Parent) bool {
		visuals = append(visuals, indexEntry{id: eid, parent: p.Entity})
		return true
	})
	collisionQuery.Map(func(eid EntityId, _ *CollisionTag, p *Parent) bool {
		collisions = append(collisions, indexEntry{id: eid, parent: p.Entity})
		return true
	})
	inertialQuery.Map(func(eid EntityId, _ *LinkTag, in *InertialComponent) bool {
		idx.inertials[eid] = in.Inertial
		return true
	})
	collisionElemQuery.Map(func(eid EntityId, _ *CollisionTag, c *CollisionElementComponent) bool {
		idx.collisions[eid] = c.Collision
		return true
	})

	for _, entries := range [][]indexEntry{models, links, visuals, collisions} {
		sortEntries(entries)
	}

	// Nested models are only recorded under a parent that is a model, so
	// that top level models under the world do not show up as children.
	for _, m := range models {
		if HasComponent[ModelTag](ecs, m.parent) {
			idx.modelToModels[m.parent] = appendUnique(idx.modelToModels[m.parent], m.id)
		}
	}
	for _, l := range links {
		idx.modelToLinks[l.parent] = appendUnique(idx.modelToLinks[l.parent], l.id)
	}
	for _, v := range visuals {
		idx.linkToVisuals[v.parent] = appendUnique(idx.linkToVisuals[v.parent], v.id)
	}
	for _, c := range collisions {
		idx.linkToCollisions[c.parent] = appendUnique(idx.linkToCollisions[c.parent], c.id)
		idx.collisionParent[c.id] = c.parent
	}

	ecs.EachRemovedEntity(func(eid EntityId, components []any) bool {
		parent := NullEntity
		if p, ok := ComponentFromSnapshot[Parent](components); ok {
			parent = p.Entity
		}
		idx.purge(eid, parent)
		return true
	})
}

// purge drops every row keyed by the entity and removes it from its
// parent's child lists.
func (idx *OverlayIndex) purge(eid EntityId, parent EntityId) {
	delete(idx.modelToLinks, eid)
	delete(idx.modelToModels, eid)
	delete(idx.linkToVisuals, eid)
	delete(idx.linkToCollisions, eid)
	delete(idx.inertials, eid)
	delete(idx.collisions, eid)
	delete(idx.collisionParent, eid)

	if parent == NullEntity {
		return
	}
	for _, rows := range []map[EntityId][]EntityId{idx.modelToLinks, idx.modelToModels, idx.linkToVisuals, idx.linkToCollisions} {
		children, ok := rows[parent]
		if !ok {
			continue
		}
		rows[parent] = slices.DeleteFunc(children, func(c EntityId) bool { return c == eid })
	}
}

func appendUnique(list []EntityId, id EntityId) []EntityId {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// Links returns the links directly owned by a model.
func (idx *OverlayIndex) Links(model EntityId) []EntityId {
	return slices.Clone(idx.modelToLinks[model])
}

// NestedModels returns the models directly nested in a model.
func (idx *OverlayIndex) NestedModels(model EntityId) []EntityId {
	return slices.Clone(idx.modelToModels[model])
}

func (idx *OverlayIndex) Visuals(link EntityId) []EntityId {
	return slices.Clone(idx.linkToVisuals[link])
}

func (idx *OverlayIndex) Collisions(link EntityId) []EntityId {
	return slices.Clone(idx.linkToCollisions[link])
}

func (idx *OverlayIndex) Inertial(link EntityId) (Inertial, bool) {
	in, ok := idx.inertials[link]
	return in, ok
}

func (idx *OverlayIndex) HasInertial(link EntityId) bool {
	_, ok := idx.inertials[link]
	return ok
}

// Collision returns a collision's shape and the link that owns it.
func (idx *OverlayIndex) Collision(collision EntityId) (CollisionElement, EntityId, bool) {
	c, ok := idx.collisions[collision]
	if !ok {
		return CollisionElement{}, NullEntity, false
	}
	return c, idx.collisionParent[collision], true
}
