package inspector

import (
	"github.com/go-gl/mathgl/mgl64"
)

type GeometryType int

const (
	GeometryEmpty GeometryType = iota
	GeometryBox
	GeometryCapsule
	GeometryCylinder
	GeometryEllipsoid
	GeometryPlane
	GeometrySphere
	GeometryMesh
	GeometryHeightmap
)

var geometryTypeNames = map[GeometryType]string{
	GeometryEmpty:     "empty",
	GeometryBox:       "box",
	GeometryCapsule:   "capsule",
	GeometryCylinder:  "cylinder",
	GeometryEllipsoid: "ellipsoid",
	GeometryPlane:     "plane",
	GeometrySphere:    "sphere",
	GeometryMesh:      "mesh",
	GeometryHeightmap: "heightmap",
}

func (t GeometryType) String() string {
	if s, ok := geometryTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseGeometryType is the inverse of String. Unknown names map to
// GeometryEmpty and false.
func ParseGeometryType(s string) (GeometryType, bool) {
	for t, name := range geometryTypeNames {
		if name == s {
			return t, true
		}
	}
	return GeometryEmpty, false
}

// Geometry describes a shape. Only the fields relevant to Type are read.
type Geometry struct {
	Type GeometryType

	// Size is the box size, the plane size (X, Y) and the heightmap size.
	Size mgl64.Vec3
	// Radius is used by sphere, cylinder and capsule.
	Radius float64
	// Length is used by cylinder and capsule.
	Length float64
	Radii  mgl64.Vec3
	Normal mgl64.Vec3

	Mesh      *MeshShape
	Heightmap *HeightmapShape
}

type MeshShape struct {
	Uri string
	// FilePath is the document the mesh was declared in. Relative uris
	// resolve against its directory.
	FilePath      string
	Submesh       string
	CenterSubmesh bool
	Scale         mgl64.Vec3
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

type HeightmapShape struct {
	Uri      string
	FilePath string
	Size     mgl64.Vec3
	Position mgl64.Vec3
	Sampling uint32
	Textures []HeightmapTexture
	Blends   []HeightmapBlend
}

type PbrWorkflow int

const (
	PbrNone PbrWorkflow = iota
	PbrMetal
	PbrSpecular
)

type PbrMaterial struct {
	Workflow       PbrWorkflow
	Roughness      float64
	Metalness      float64
	AlbedoMap      string
	NormalMap      string
	RoughnessMap   string
	MetalnessMap   string
	EnvironmentMap string
	EmissiveMap    string
	LightMap       string
	LightMapUVSet  uint32
}

// Material colors are RGBA in [0,1].
type Material struct {
	Ambient     mgl64.Vec4
	Diffuse     mgl64.Vec4
	Specular    mgl64.Vec4
	Emissive    mgl64.Vec4
	RenderOrder float32
	DoubleSided bool
	// FilePath is the document the material was declared in.
	FilePath string
	Pbr      *PbrMaterial
}

// Inertial holds mass properties. Pose places the center of mass and the
// inertia frame relative to the owning link.
type Inertial struct {
	Mass                         float64
	Pose                         Pose
	Ixx, Iyy, Izz, Ixy, Ixz, Iyz float64
}

// MOI returns the moment of inertia tensor about the center of mass.
func (in Inertial) MOI() mgl64.Mat3 {
	return mgl64.Mat3{
		in.Ixx, in.Ixy, in.Ixz,
		in.Ixy, in.Iyy, in.Iyz,
		in.Ixz, in.Iyz, in.Izz,
	}
}

type CollisionElement struct {
	Name     string
	Pose     Pose
	Geometry Geometry
}

// VisualDesc is everything the factory needs to build a visual.
type VisualDesc struct {
	Name            string
	Pose            Pose
	Geometry        *Geometry
	Material        *Material
	Transparency    float64
	CastShadows     bool
	VisibilityFlags uint32
}
