// Package render defines the retained scene graph the inspector draws
// overlays into, and an in-memory implementation of it.
package render

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrIdTaken       = errors.New("object id already in use")
	ErrNameTaken     = errors.New("object name already in use")
	ErrForeignObject = errors.New("object belongs to another scene")
	ErrEmptyUri      = errors.New("empty resource uri")
)

// Scene is a retained scene graph. Objects are addressed by numeric id and
// by name; ids are unique across the node, light, sensor and visual
// namespaces.
type Scene interface {
	Name() string

	CreateVisual(id uint64, name string) (Visual, error)
	CreateCOMVisual(id uint64, name string) (COMVisual, error)
	CreateInertiaVisual(id uint64, name string) (InertiaVisual, error)
	DestroyVisual(v Visual, recursive bool)

	CreateBox() Geometry
	CreateCylinder() Geometry
	CreateSphere() Geometry
	CreatePlane() Geometry
	CreateCapsule() Capsule
	CreateMesh(desc MeshDescriptor) (Mesh, error)
	CreateHeightmap(desc HeightmapDescriptor) (Heightmap, error)

	CreateMaterial(name string) (*Material, error)
	Material(name string) (*Material, bool)

	HasNodeId(id uint64) bool
	HasLightId(id uint64) bool
	HasSensorId(id uint64) bool
	HasVisualId(id uint64) bool
	HasVisualName(name string) bool

	NodeByName(name string) Node
	VisualById(id uint64) Visual
	VisualByName(name string) Visual
	// Visuals returns every visual ordered by id.
	Visuals() []Visual
}

// Node is anything placed in the scene graph.
type Node interface {
	Id() uint64
	Name() string

	Parent() Node
	Children() []Node
	AddChild(child Node) error
	RemoveChild(child Node)

	LocalTransform() Transform
	SetLocalPosition(p mgl64.Vec3)
	SetLocalRotation(q mgl64.Quat)
	SetLocalScale(s mgl64.Vec3)
	// WorldMatrix composes the local transforms from the root down.
	WorldMatrix() mgl64.Mat4

	SetUserData(key string, value any)
	UserData(key string) (any, bool)
}

type Visual interface {
	Node

	AddGeometry(g Geometry)
	Geometries() []Geometry

	// SetMaterial applies the material to the visual and its geometries.
	SetMaterial(m *Material)
	Material() *Material

	SetVisible(visible bool)
	Visible() bool
	SetWireframe(wireframe bool)
	Wireframe() bool
	SetTransparent(transparent bool)
	Transparent() bool
	SetCastShadows(cast bool)
	CastShadows() bool
	SetVisibilityFlags(flags uint32)
	VisibilityFlags() uint32
}

// Inertial is the renderer-side copy of a body's mass properties.
type Inertial struct {
	Mass         float64
	CenterOfMass mgl64.Vec3
	// Frame rotates the inertia frame relative to the parent visual.
	Frame mgl64.Quat
	// MOI is the inertia tensor about the center of mass in Frame.
	MOI mgl64.Mat3
}

// COMVisual marks a center of mass with a sphere whose size follows mass.
type COMVisual interface {
	Visual
	SetInertial(in Inertial)
	Inertial() Inertial
	SphereRadius() float64
}

// InertiaVisual draws the ellipsoid with the same principal moments as the
// body.
type InertiaVisual interface {
	Visual
	SetInertial(in Inertial)
	Inertial() Inertial
	// Radii are the semi-axes along the principal directions.
	Radii() mgl64.Vec3
	// PrincipalRotation orients the principal directions.
	PrincipalRotation() mgl64.Quat
}

type GeometryKind int

const (
	KindBox GeometryKind = iota
	KindCylinder
	KindSphere
	KindPlane
	KindCapsule
	KindMesh
	KindHeightmap
)

type Geometry interface {
	Kind() GeometryKind
	SetMaterial(m *Material)
	Material() *Material
}

type Capsule interface {
	Geometry
	SetRadius(r float64)
	Radius() float64
	SetLength(l float64)
	Length() float64
}

type MeshDescriptor struct {
	Uri           string
	SubMeshName   string
	CenterSubMesh bool
}

type SubMesh struct {
	Name     string
	Material *Material
}

type Mesh interface {
	Geometry
	Descriptor() MeshDescriptor
	SubMeshes() []*SubMesh
}

type HeightmapTexture struct {
	Size    float64
	Diffuse string
	Normal  string
}

type HeightmapBlend struct {
	MinHeight float64
	FadeDist  float64
}

type HeightmapDescriptor struct {
	Name     string
	Uri      string
	Size     mgl64.Vec3
	Position mgl64.Vec3
	Sampling uint32
	Textures []HeightmapTexture
	Blends   []HeightmapBlend
}

type Heightmap interface {
	Geometry
	Descriptor() HeightmapDescriptor
}
