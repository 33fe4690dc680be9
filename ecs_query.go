package inspector

import (
	"reflect"
)

// TO get more queries:
//  1. Add QueryN and identifyComponentsN
//  2. Copy MapN-1() and implement according to other Map() functions
//  3. Add MakeQueryN/NewQueryN constructors
type Query1[A any] struct{ queryFilter }
type Query2[A, B any] struct{ queryFilter }
type Query3[A, B, C any] struct{ queryFilter }
type Query4[A, B, C, D any] struct{ queryFilter }
type Query5[A, B, C, D, E any] struct{ queryFilter }

// queryFilter narrows a query beyond its required components.
type queryFilter struct {
	ecs     *Ecs
	onlyNew bool
	without []any
}

func (f queryFilter) excludes(arch *archetype) bool {
	for _, c := range f.without {
		t := reflect.TypeOf(c)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if _, ok := arch.componentData[f.ecs.getComponentId(t)]; ok {
			return true
		}
	}
	return false
}

func (f queryFilter) skips(entityId EntityId) bool {
	return f.onlyNew && !f.ecs.IsNew(entityId)
}

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return NewQuery1[A](cmd.app.ecs) }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return NewQuery2[A, B](cmd.app.ecs) }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return NewQuery3[A, B, C](cmd.app.ecs) }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return NewQuery4[A, B, C, D](cmd.app.ecs)
}
func MakeQuery5[A, B, C, D, E any](cmd *Commands) Query5[A, B, C, D, E] {
	return NewQuery5[A, B, C, D, E](cmd.app.ecs)
}

func NewQuery1[A any](ecs *Ecs) Query1[A] { return Query1[A]{queryFilter{ecs: ecs}} }
func NewQuery2[A, B any](ecs *Ecs) Query2[A, B] {
	return Query2[A, B]{queryFilter{ecs: ecs}}
}
func NewQuery3[A, B, C any](ecs *Ecs) Query3[A, B, C] {
	return Query3[A, B, C]{queryFilter{ecs: ecs}}
}
func NewQuery4[A, B, C, D any](ecs *Ecs) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{queryFilter{ecs: ecs}}
}
func NewQuery5[A, B, C, D, E any](ecs *Ecs) Query5[A, B, C, D, E] {
	return Query5[A, B, C, D, E]{queryFilter{ecs: ecs}}
}

// OnlyNew restricts the query to entities created during the previous step.
func (q Query1[A]) OnlyNew() Query1[A] {
	q.onlyNew = true
	return q
}
func (q Query2[A, B]) OnlyNew() Query2[A, B] {
	q.onlyNew = true
	return q
}
func (q Query3[A, B, C]) OnlyNew() Query3[A, B, C] {
	q.onlyNew = true
	return q
}
func (q Query4[A, B, C, D]) OnlyNew() Query4[A, B, C, D] {
	q.onlyNew = true
	return q
}
func (q Query5[A, B, C, D, E]) OnlyNew() Query5[A, B, C, D, E] {
	q.onlyNew = true
	return q
}

// Without skips entities that carry any of the given components.
func (q Query1[A]) Without(components ...any) Query1[A] {
	q.without = append(q.without[:len(q.without):len(q.without)], components...)
	return q
}
func (q Query2[A, B]) Without(components ...any) Query2[A, B] {
	q.without = append(q.without[:len(q.without):len(q.without)], components...)
	return q
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponents1[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if q.excludes(arch) {
			continue
		}
		// Check required components
		var comps1 []A
		no_a := false
		if arg1CompData, ok := arch.componentData[id1]; ok {
			comps1 = arg1CompData.([]A)
		} else if _, ok := opt[id1]; ok {
			no_a = true
		} else {
			continue
		}

		// Return entities
		for entityId, row := range arch.entities {
			if q.skips(entityId) {
				continue
			}
			var a *A
			if !no_a {
				a = &comps1[row]
			}

			if !m(entityId, a) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponents2[A, B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if q.excludes(arch) {
			continue
		}
		// Check required components
		var comps1 []A
		no_a := false
		if arg1CompData, ok := arch.componentData[id1]; ok {
			comps1 = arg1CompData.([]A)
		} else if _, ok := opt[id1]; ok {
			no_a = true
		} else {
			continue
		}

		var comps2 []B
		no_b := false
		if arg2CompData, ok := arch.componentData[id2]; ok {
			comps2 = arg2CompData.([]B)
		} else if _, ok := opt[id2]; ok {
			no_b = true
		} else {
			continue
		}

		// Return entities
		for entityId, row := range arch.entities {
			if q.skips(entityId) {
				continue
			}
			var a *A
			if !no_a {
				a = &comps1[row]
			}

			var b *B
			if !no_b {
				b = &comps2[row]
			}

			if !m(entityId, a, b) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := identifyComponents3[A, B, C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if q.excludes(arch) {
			continue
		}
		// Check required components
		var comps1 []A
		no_a := false
		if arg1CompData, ok := arch.componentData[id1]; ok {
			comps1 = arg1CompData.([]A)
		} else if _, ok := opt[id1]; ok {
			no_a = true
		} else {
			continue
		}

		var comps2 []B
		no_b := false
		if arg2CompData, ok := arch.componentData[id2]; ok {
			comps2 = arg2CompData.([]B)
		} else if _, ok := opt[id2]; ok {
			no_b = true
		} else {
			continue
		}

		var comps3 []C
		no_c := false
		if arg3CompData, ok := arch.componentData[id3]; ok {
			comps3 = arg3CompData.([]C)
		} else if _, ok := opt[id3]; ok {
			no_c = true
		} else {
			continue
		}

		// Return entities
		for entityId, row := range arch.entities {
			if q.skips(entityId) {
				continue
			}
			var a *A
			if !no_a {
				a = &comps1[row]
			}

			var b *B
			if !no_b {
				b = &comps2[row]
			}

			var c *C
			if !no_c {
				c = &comps3[row]
			}

			if !m(entityId, a, b, c) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	id1, id2, id3, id4 := identifyComponents4[A, B, C, D](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if q.excludes(arch) {
			continue
		}
		// Check required components
		var comps1 []A
		no_a := false
		if arg1CompData, ok := arch.componentData[id1]; ok {
			comps1 = arg1CompData.([]A)
		} else if _, ok := opt[id1]; ok {
			no_a = true
		} else {
			continue
		}

		var comps2 []B
		no_b := false
		if arg2CompData, ok := arch.componentData[id2]; ok {
			comps2 = arg2CompData.([]B)
		} else if _, ok := opt[id2]; ok {
			no_b = true
		} else {
			continue
		}

		var comps3 []C
		no_c := false
		if arg3CompData, ok := arch.componentData[id3]; ok {
			comps3 = arg3CompData.([]C)
		} else if _, ok := opt[id3]; ok {
			no_c = true
		} else {
			continue
		}

		var comps4 []D
		no_d := false
		if arg4CompData, ok := arch.componentData[id4]; ok {
			comps4 = arg4CompData.([]D)
		} else if _, ok := opt[id4]; ok {
			no_d = true
		} else {
			continue
		}

		// Return entities
		for entityId, row := range arch.entities {
			if q.skips(entityId) {
				continue
			}
			var a *A
			if !no_a {
				a = &comps1[row]
			}

			var b *B
			if !no_b {
				b = &comps2[row]
			}

			var c *C
			if !no_c {
				c = &comps3[row]
			}

			var d *D
			if !no_d {
				d = &comps4[row]
			}

			if !m(entityId, a, b, c, d) {
				return
			}
		}
	}
}

func (q Query5[A, B, C, D, E]) Map(m func(EntityId, *A, *B, *C, *D, *E) bool, optionals ...any) {
	id1, id2, id3, id4, id5 := identifyComponents5[A, B, C, D, E](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if q.excludes(arch) {
			continue
		}
		// Check required components
		var comps1 []A
		no_a := false
		if arg1CompData, ok := arch.componentData[id1]; ok {
			comps1 = arg1CompData.([]A)
		} else if _, ok := opt[id1]; ok {
			no_a = true
		} else {
			continue
		}

		var comps2 []B
		no_b := false
		if arg2CompData, ok := arch.componentData[id2]; ok {
			comps2 = arg2CompData.([]B)
		} else if _, ok := opt[id2]; ok {
			no_b = true
		} else {
			continue
		}

		var comps3 []C
		no_c := false
		if arg3CompData, ok := arch.componentData[id3]; ok {
			comps3 = arg3CompData.([]C)
		} else if _, ok := opt[id3]; ok {
			no_c = true
		} else {
			continue
		}

		var comps4 []D
		no_d := false
		if arg4CompData, ok := arch.componentData[id4]; ok {
			comps4 = arg4CompData.([]D)
		} else if _, ok := opt[id4]; ok {
			no_d = true
		} else {
			continue
		}

		var comps5 []E
		no_e := false
		if arg5CompData, ok := arch.componentData[id5]; ok {
			comps5 = arg5CompData.([]E)
		} else if _, ok := opt[id5]; ok {
			no_e = true
		} else {
			continue
		}

		// Return entities
		for entityId, row := range arch.entities {
			if q.skips(entityId) {
				continue
			}
			var a *A
			if !no_a {
				a = &comps1[row]
			}

			var b *B
			if !no_b {
				b = &comps2[row]
			}

			var c *C
			if !no_c {
				c = &comps3[row]
			}

			var d *D
			if !no_d {
				d = &comps4[row]
			}

			var e *E
			if !no_e {
				e = &comps5[row]
			}

			if !m(entityId, a, b, c, d, e) {
				return
			}
		}
	}
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, component := range components {
		t := reflect.TypeOf(component)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		res[ecs.getComponentId(t)] = struct{}{}
	}
	return res
}

func identifyComponents1[A any](ecs *Ecs) componentId {
	var a A
	return ecs.getComponentId(reflect.TypeOf(a))
}

func identifyComponents2[A, B any](ecs *Ecs) (componentId, componentId) {
	var a A
	var b B
	return ecs.getComponentId(reflect.TypeOf(a)), ecs.getComponentId(reflect.TypeOf(b))
}

func identifyComponents3[A, B, C any](ecs *Ecs) (componentId, componentId, componentId) {
	var a A
	var b B
	var c C
	return ecs.getComponentId(reflect.TypeOf(a)), ecs.getComponentId(reflect.TypeOf(b)), ecs.getComponentId(reflect.TypeOf(c))
}

func identifyComponents4[A, B, C, D any](ecs *Ecs) (componentId, componentId, componentId, componentId) {
	var a A
	var b B
	var c C
	var d D
	return ecs.getComponentId(reflect.TypeOf(a)), ecs.getComponentId(reflect.TypeOf(b)), ecs.getComponentId(reflect.TypeOf(c)), ecs.getComponentId(reflect.TypeOf(d))
}

func identifyComponents5[A, B, C, D, E any](ecs *Ecs) (componentId, componentId, componentId, componentId, componentId) {
	var a A
	var b B
	var c C
	var d D
	var e E
	return ecs.getComponentId(reflect.TypeOf(a)), ecs.getComponentId(reflect.TypeOf(b)), ecs.getComponentId(reflect.TypeOf(c)), ecs.getComponentId(reflect.TypeOf(d)), ecs.getComponentId(reflect.TypeOf(e))
}
