package render

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// RetainedScene keeps the whole scene graph in memory. It does not draw;
// a presenter reads it back through the Scene interface. It must only be
// used from one goroutine at a time.
type RetainedScene struct {
	name string

	nodes   map[uint64]*node
	lights  map[uint64]*node
	sensors map[uint64]*node
	visuals map[uint64]Visual
	byName  map[string]Node

	materials map[string]*Material
}

var _ Scene = (*RetainedScene)(nil)

func NewRetainedScene(name string) *RetainedScene {
	return &RetainedScene{
		name:      name,
		nodes:     make(map[uint64]*node),
		lights:    make(map[uint64]*node),
		sensors:   make(map[uint64]*node),
		visuals:   make(map[uint64]Visual),
		byName:    make(map[string]Node),
		materials: make(map[string]*Material),
	}
}

func (s *RetainedScene) Name() string { return s.name }

func (s *RetainedScene) idTaken(id uint64) bool {
	return s.HasNodeId(id) || s.HasLightId(id) || s.HasSensorId(id) || s.HasVisualId(id)
}

func (s *RetainedScene) claim(id uint64, name string) error {
	if s.idTaken(id) {
		return fmt.Errorf("create %q with id %d: %w", name, id, ErrIdTaken)
	}
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("create %q with id %d: %w", name, id, ErrNameTaken)
	}
	return nil
}

// CreateNode adds a plain transform node.
func (s *RetainedScene) CreateNode(id uint64, name string) (Node, error) {
	if err := s.claim(id, name); err != nil {
		return nil, err
	}
	n := newNode(s, id, name)
	s.nodes[id] = n
	s.byName[name] = n
	return n, nil
}

func (s *RetainedScene) CreateLight(id uint64, name string) (Node, error) {
	if err := s.claim(id, name); err != nil {
		return nil, err
	}
	n := newNode(s, id, name)
	s.lights[id] = n
	s.byName[name] = n
	return n, nil
}

func (s *RetainedScene) CreateSensor(id uint64, name string) (Node, error) {
	if err := s.claim(id, name); err != nil {
		return nil, err
	}
	n := newNode(s, id, name)
	s.sensors[id] = n
	s.byName[name] = n
	return n, nil
}

func (s *RetainedScene) CreateVisual(id uint64, name string) (Visual, error) {
	if err := s.claim(id, name); err != nil {
		return nil, err
	}
	v := newVisual(s, id, name)
	s.register(v)
	return v, nil
}

func (s *RetainedScene) CreateCOMVisual(id uint64, name string) (COMVisual, error) {
	if err := s.claim(id, name); err != nil {
		return nil, err
	}
	v := &comVisual{visual: newVisual(s, id, name)}
	v.node.self = v
	s.register(v)
	return v, nil
}

func (s *RetainedScene) CreateInertiaVisual(id uint64, name string) (InertiaVisual, error) {
	if err := s.claim(id, name); err != nil {
		return nil, err
	}
	v := &inertiaVisual{visual: newVisual(s, id, name), rotation: mgl64.QuatIdent()}
	v.node.self = v
	s.register(v)
	return v, nil
}

func (s *RetainedScene) register(v Visual) {
	s.visuals[v.Id()] = v
	s.byName[v.Name()] = v
}

// DestroyVisual detaches v and forgets it. Child visuals are destroyed too
// when recursive is set, otherwise they are detached and kept.
func (s *RetainedScene) DestroyVisual(v Visual, recursive bool) {
	if v == nil {
		return
	}
	if existing, ok := s.visuals[v.Id()]; !ok || existing != v {
		return
	}

	for _, child := range v.Children() {
		if cv, ok := child.(Visual); ok && recursive {
			s.DestroyVisual(cv, true)
			continue
		}
		v.RemoveChild(child)
	}
	if p := v.Parent(); p != nil {
		p.RemoveChild(v)
	}

	delete(s.visuals, v.Id())
	delete(s.byName, v.Name())
}

func (s *RetainedScene) CreateBox() Geometry      { return &primitive{kind: KindBox} }
func (s *RetainedScene) CreateCylinder() Geometry { return &primitive{kind: KindCylinder} }
func (s *RetainedScene) CreateSphere() Geometry   { return &primitive{kind: KindSphere} }
func (s *RetainedScene) CreatePlane() Geometry    { return &primitive{kind: KindPlane} }

func (s *RetainedScene) CreateCapsule() Capsule {
	return &capsule{primitive: primitive{kind: KindCapsule}, radius: 0.5, length: 1}
}

// CreateMesh records the descriptor. A single submesh stands in for the
// mesh contents, named after the requested submesh if any.
func (s *RetainedScene) CreateMesh(desc MeshDescriptor) (Mesh, error) {
	if desc.Uri == "" {
		return nil, fmt.Errorf("create mesh: %w", ErrEmptyUri)
	}
	subName := desc.SubMeshName
	if subName == "" {
		subName = "default"
	}
	return &mesh{
		primitive: primitive{kind: KindMesh},
		desc:      desc,
		subMeshes: []*SubMesh{{Name: subName, Material: newMaterial(desc.Uri + "::" + subName)}},
	}, nil
}

func (s *RetainedScene) CreateHeightmap(desc HeightmapDescriptor) (Heightmap, error) {
	if desc.Uri == "" {
		return nil, fmt.Errorf("create heightmap %q: %w", desc.Name, ErrEmptyUri)
	}
	return &heightmap{primitive: primitive{kind: KindHeightmap}, desc: desc}, nil
}

func (s *RetainedScene) CreateMaterial(name string) (*Material, error) {
	if _, ok := s.materials[name]; ok {
		return nil, fmt.Errorf("create material %q: %w", name, ErrNameTaken)
	}
	m := newMaterial(name)
	s.materials[name] = m
	return m, nil
}

func (s *RetainedScene) Material(name string) (*Material, bool) {
	m, ok := s.materials[name]
	return m, ok
}

func (s *RetainedScene) HasNodeId(id uint64) bool {
	_, ok := s.nodes[id]
	return ok
}

func (s *RetainedScene) HasLightId(id uint64) bool {
	_, ok := s.lights[id]
	return ok
}

func (s *RetainedScene) HasSensorId(id uint64) bool {
	_, ok := s.sensors[id]
	return ok
}

func (s *RetainedScene) HasVisualId(id uint64) bool {
	_, ok := s.visuals[id]
	return ok
}

func (s *RetainedScene) HasVisualName(name string) bool {
	_, ok := s.byName[name].(Visual)
	return ok
}

func (s *RetainedScene) NodeByName(name string) Node {
	return s.byName[name]
}

func (s *RetainedScene) VisualById(id uint64) Visual {
	return s.visuals[id]
}

func (s *RetainedScene) VisualByName(name string) Visual {
	v, _ := s.byName[name].(Visual)
	return v
}

func (s *RetainedScene) Visuals() []Visual {
	res := make([]Visual, 0, len(s.visuals))
	for _, v := range s.visuals {
		res = append(res, v)
	}
	slices.SortFunc(res, func(a, b Visual) int {
		switch {
		case a.Id() < b.Id():
			return -1
		case a.Id() > b.Id():
			return 1
		}
		return 0
	})
	return res
}

// node

type node struct {
	scene    *RetainedScene
	self     Node
	id       uint64
	name     string
	parent   Node
	children []Node
	local    Transform
	userData map[string]any
}

func newNode(s *RetainedScene, id uint64, name string) *node {
	n := &node{
		scene:    s,
		id:       id,
		name:     name,
		local:    NewTransform(),
		userData: make(map[string]any),
	}
	n.self = n
	return n
}

// baseNode gives access to the shared node state of every object this
// package creates.
type baseNode interface {
	base() *node
}

func (n *node) base() *node  { return n }
func (n *node) Id() uint64   { return n.id }
func (n *node) Name() string { return n.name }
func (n *node) Parent() Node { return n.parent }
func (n *node) Children() []Node {
	return slices.Clone(n.children)
}

func (n *node) AddChild(child Node) error {
	b, ok := child.(baseNode)
	if !ok || b.base().scene != n.scene {
		return fmt.Errorf("add child to %q: %w", n.name, ErrForeignObject)
	}
	cb := b.base()
	if cb.parent != nil {
		cb.parent.RemoveChild(child)
	}
	cb.parent = n.self
	n.children = append(n.children, child)
	return nil
}

func (n *node) RemoveChild(child Node) {
	idx := slices.IndexFunc(n.children, func(c Node) bool { return c.Id() == child.Id() && c.Name() == child.Name() })
	if idx < 0 {
		return
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	if b, ok := child.(baseNode); ok {
		b.base().parent = nil
	}
}

func (n *node) LocalTransform() Transform     { return n.local }
func (n *node) SetLocalPosition(p mgl64.Vec3) { n.local.Position = p }
func (n *node) SetLocalRotation(q mgl64.Quat) { n.local.Rotation = q }
func (n *node) SetLocalScale(s mgl64.Vec3)    { n.local.Scale = s }

func (n *node) WorldMatrix() mgl64.Mat4 {
	m := n.local.ObjectToWorld()
	for p := n.parent; p != nil; p = p.Parent() {
		m = p.LocalTransform().ObjectToWorld().Mul4(m)
	}
	return m
}

func (n *node) SetUserData(key string, value any) { n.userData[key] = value }

func (n *node) UserData(key string) (any, bool) {
	v, ok := n.userData[key]
	return v, ok
}

// visual

type visual struct {
	*node
	geometries      []Geometry
	material        *Material
	visible         bool
	wireframe       bool
	transparent     bool
	castShadows     bool
	visibilityFlags uint32
}

func newVisual(s *RetainedScene, id uint64, name string) *visual {
	v := &visual{
		node:            newNode(s, id, name),
		visible:         true,
		castShadows:     true,
		visibilityFlags: ^uint32(0),
	}
	v.node.self = v
	return v
}

func (v *visual) AddGeometry(g Geometry) {
	if g == nil {
		return
	}
	if v.material != nil && g.Material() == nil {
		g.SetMaterial(v.material)
	}
	v.geometries = append(v.geometries, g)
}

func (v *visual) Geometries() []Geometry { return slices.Clone(v.geometries) }

func (v *visual) SetMaterial(m *Material) {
	v.material = m
	for _, g := range v.geometries {
		g.SetMaterial(m)
	}
}

func (v *visual) Material() *Material { return v.material }

// SetVisible applies to the whole subtree, like hiding a branch.
func (v *visual) SetVisible(visible bool) {
	v.visible = visible
	for _, c := range v.children {
		if cv, ok := c.(Visual); ok {
			cv.SetVisible(visible)
		}
	}
}

func (v *visual) Visible() bool { return v.visible }

func (v *visual) SetWireframe(wireframe bool) { v.wireframe = wireframe }
func (v *visual) Wireframe() bool             { return v.wireframe }

func (v *visual) SetTransparent(transparent bool) { v.transparent = transparent }
func (v *visual) Transparent() bool               { return v.transparent }

func (v *visual) SetCastShadows(cast bool) { v.castShadows = cast }
func (v *visual) CastShadows() bool        { return v.castShadows }

func (v *visual) SetVisibilityFlags(flags uint32) { v.visibilityFlags = flags }
func (v *visual) VisibilityFlags() uint32         { return v.visibilityFlags }

// com / inertia visuals

type comVisual struct {
	*visual
	inertial Inertial
	radius   float64
}

func (v *comVisual) SetInertial(in Inertial) {
	v.inertial = in
	v.radius = comSphereRadius(in.Mass)
	v.SetLocalPosition(in.CenterOfMass)
}

func (v *comVisual) Inertial() Inertial    { return v.inertial }
func (v *comVisual) SphereRadius() float64 { return v.radius }

type inertiaVisual struct {
	*visual
	inertial Inertial
	radii    mgl64.Vec3
	rotation mgl64.Quat
}

func (v *inertiaVisual) SetInertial(in Inertial) {
	v.inertial = in
	radii, principal := equivalentEllipsoid(in.Mass, in.MOI)
	v.radii = radii
	v.rotation = principal

	frame := in.Frame
	if frame.W == 0 && frame.V.Len() == 0 {
		frame = mgl64.QuatIdent()
	}
	v.SetLocalPosition(in.CenterOfMass)
	v.SetLocalRotation(frame.Mul(principal).Normalize())
	v.SetLocalScale(radii.Mul(2))
}

func (v *inertiaVisual) Inertial() Inertial            { return v.inertial }
func (v *inertiaVisual) Radii() mgl64.Vec3             { return v.radii }
func (v *inertiaVisual) PrincipalRotation() mgl64.Quat { return v.rotation }

// geometry

type primitive struct {
	kind     GeometryKind
	material *Material
}

func (p *primitive) Kind() GeometryKind      { return p.kind }
func (p *primitive) SetMaterial(m *Material) { p.material = m }
func (p *primitive) Material() *Material     { return p.material }

type capsule struct {
	primitive
	radius float64
	length float64
}

func (c *capsule) SetRadius(r float64) { c.radius = r }
func (c *capsule) Radius() float64     { return c.radius }
func (c *capsule) SetLength(l float64) { c.length = l }
func (c *capsule) Length() float64     { return c.length }

type mesh struct {
	primitive
	desc      MeshDescriptor
	subMeshes []*SubMesh
}

func (m *mesh) Descriptor() MeshDescriptor { return m.desc }
func (m *mesh) SubMeshes() []*SubMesh      { return slices.Clone(m.subMeshes) }

// SetMaterial on a mesh replaces every submesh material with a copy.
func (m *mesh) SetMaterial(mat *Material) {
	m.material = mat
	if mat == nil {
		return
	}
	for _, sm := range m.subMeshes {
		sm.Material = mat.Clone(mat.Name() + "::" + sm.Name)
	}
}

type heightmap struct {
	primitive
	desc HeightmapDescriptor
}

func (h *heightmap) Descriptor() HeightmapDescriptor { return h.desc }
