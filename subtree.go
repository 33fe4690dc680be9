package inspector

import (
	"fmt"
	"slices"
)

// ChildLinks expands root into the links beneath it. A link yields itself,
// a model yields every link reachable through any depth of nested models,
// anything else yields nothing and logs an error. The walk reads the index
// only, so the result is stable for a given index state.
func (idx *OverlayIndex) ChildLinks(ecs *Ecs, root EntityId) []EntityId {
	return childLinks(ecs, root, idx.Links, idx.NestedModels)
}

// ChildLinksFromStore is ChildLinks on live store queries, for callers that
// have no index or need to look at entities the index has not seen yet.
func ChildLinksFromStore(ecs *Ecs, root EntityId) []EntityId {
	children := func(model EntityId, want func(EntityId) bool) []EntityId {
		var res []EntityId
		NewQuery1[Parent](ecs).Map(func(eid EntityId, p *Parent) bool {
			if p.Entity == model && want(eid) {
				res = append(res, eid)
			}
			return true
		})
		slices.Sort(res)
		return res
	}
	links := func(model EntityId) []EntityId {
		return children(model, func(e EntityId) bool { return HasComponent[LinkTag](ecs, e) })
	}
	models := func(model EntityId) []EntityId {
		return children(model, func(e EntityId) bool { return HasComponent[ModelTag](ecs, e) })
	}
	return childLinks(ecs, root, links, models)
}

func childLinks(ecs *Ecs, root EntityId, links, models func(EntityId) []EntityId) []EntityId {
	switch EntityKindOf(ecs, root) {
	case KindLink:
		return []EntityId{root}
	case KindModel:
	default:
		pkgLog().Errorf("%v", fmt.Errorf("child links of entity %d: %w: need a model or a link", root, ErrInvalidTargetKind))
		return []EntityId{}
	}

	res := []EntityId{}
	seen := make(set[EntityId])
	stack := []EntityId{root}
	for len(stack) > 0 {
		model := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[model]; ok {
			continue
		}
		seen[model] = struct{}{}

		for _, link := range links(model) {
			if ecs.Alive(link) {
				res = append(res, link)
			}
		}
		nested := models(model)
		// Pushed in reverse so nested models are visited in index order.
		for i := len(nested) - 1; i >= 0; i-- {
			if ecs.Alive(nested[i]) {
				stack = append(stack, nested[i])
			}
		}
	}
	return res
}
