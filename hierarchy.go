package inspector

import (
	"fmt"
	"slices"
	"strings"
)

// WorldPose folds the entity's pose with its ancestors' poses, stopping at
// the first ancestor without a pose. An entity without a pose yields the
// identity pose and ErrMissingComponent.
func WorldPose(ecs *Ecs, e EntityId) (Pose, error) {
	pc, ok := GetComponent[PoseComponent](ecs, e)
	if !ok {
		err := fmt.Errorf("world pose of entity %d: %w", e, ErrMissingComponent)
		pkgLog().Warnf("%v", err)
		return IdentityPose(), err
	}

	pose := pc.Pose
	for p, ok := GetComponent[Parent](ecs, e); ok; p, ok = GetComponent[Parent](ecs, p.Entity) {
		parentPose, ok := GetComponent[PoseComponent](ecs, p.Entity)
		if !ok {
			break
		}
		pose = parentPose.Pose.Compose(pose)
	}
	return pose, nil
}

// ScopedName builds the qualified name of an entity by walking up its
// ancestry. With includePrefix every segment is preceded by the kind string,
// e.g. "world/default/model/box/link/base". Entities of unknown kind are
// skipped and the walk stops at the first entity without a name.
func ScopedName(ecs *Ecs, e EntityId, delim string, includePrefix bool) string {
	var segments []string

	for entity := e; ; {
		nc, ok := GetComponent[NameComponent](ecs, entity)
		if !ok {
			break
		}

		prefix := EntityKindOf(ecs, entity).String()
		if prefix == "" {
			pkgLog().Warnf("skipping entity [%s] when generating scoped name, entity kind not known", nc.Name)
		} else if includePrefix {
			segments = append(segments, nc.Name, prefix)
		} else {
			segments = append(segments, nc.Name)
		}

		p, ok := GetComponent[Parent](ecs, entity)
		if !ok {
			break
		}
		entity = p.Entity
	}

	slices.Reverse(segments)
	return strings.Join(segments, delim)
}

// EntitiesFromScopedName resolves a delimiter-separated name path. The first
// segment matches any entity with that name, or the children of relativeTo
// when it is not NullEntity; each further segment matches children of the
// previous matches. Returns nil as soon as a segment matches nothing. The
// result is deduplicated and sorted.
func EntitiesFromScopedName(scopedName string, ecs *Ecs, relativeTo EntityId, delim string) []EntityId {
	if delim == "" {
		pkgLog().Warnf("can't process scoped name [%s] with empty delimiter", scopedName)
		return nil
	}

	names := strings.Split(scopedName, delim)

	var res []EntityId
	if relativeTo != NullEntity {
		res = []EntityId{relativeTo}
	}

	for _, name := range names {
		var current []EntityId
		if len(res) == 0 {
			NewQuery1[NameComponent](ecs).Map(func(eid EntityId, nc *NameComponent) bool {
				if nc.Name == name {
					current = append(current, eid)
				}
				return true
			})
		} else {
			parents := make(set[EntityId], len(res))
			for _, r := range res {
				parents[r] = struct{}{}
			}
			NewQuery2[NameComponent, Parent](ecs).Map(func(eid EntityId, nc *NameComponent, p *Parent) bool {
				if _, ok := parents[p.Entity]; ok && nc.Name == name {
					current = append(current, eid)
				}
				return true
			})
		}
		if len(current) == 0 {
			return nil
		}
		res = current
	}

	slices.Sort(res)
	return slices.Compact(res)
}

// WorldEntity ascends from e until it reaches a world entity. Returns
// NullEntity when the chain ends without one.
func WorldEntity(ecs *Ecs, e EntityId) EntityId {
	entity := e
	for !HasComponent[WorldTag](ecs, entity) {
		p, ok := GetComponent[Parent](ecs, entity)
		if !ok {
			return NullEntity
		}
		entity = p.Entity
	}
	return entity
}

// FindWorldEntity returns the lowest-id world entity, or NullEntity.
func FindWorldEntity(ecs *Ecs) EntityId {
	found := NullEntity
	NewQuery1[WorldTag](ecs).Map(func(eid EntityId, _ *WorldTag) bool {
		if found == NullEntity || eid < found {
			found = eid
		}
		return true
	})
	return found
}

// TopLevelModel returns the outermost model containing e, e itself if it is
// a model without model ancestors, or NullEntity.
func TopLevelModel(ecs *Ecs, e EntityId) EntityId {
	model := NullEntity
	for entity := e; entity != NullEntity; {
		if HasComponent[ModelTag](ecs, entity) {
			model = entity
		}
		p, ok := GetComponent[Parent](ecs, entity)
		if !ok {
			break
		}
		entity = p.Entity
	}
	return model
}

// RemoveParentScope drops everything up to and including the first delim.
// Names without delim, or with delim only at the very end, are returned
// unchanged.
func RemoveParentScope(name string, delim string) string {
	if delim == "" {
		return name
	}
	_, after, found := strings.Cut(name, delim)
	if !found || after == "" {
		return name
	}
	return after
}
