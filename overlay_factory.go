package inspector

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/gekko3d/inspector/render"
)

// User data keys set on every visual the inspector creates.
const (
	// UserDataEntity holds the EntityId the visual stands for.
	UserDataEntity = "inspector-entity"
	// UserDataPauseUpdate tells pose updaters to leave the visual alone.
	UserDataPauseUpdate = "pause-update"
	// UserDataOverlay holds the Capability of overlay objects. Primary
	// visuals do not carry it.
	UserDataOverlay = "inspector-overlay"
)

const defaultMaterialName = "inspector-grey"

var collisionColor = mgl64.Vec4{1.0, 0.5088, 0.0468, 0.7}

// OverlayFactory builds renderer objects from component payloads. It only
// touches the scene.
type OverlayFactory struct {
	scene render.Scene
	log   Logger
}

func NewOverlayFactory(scene render.Scene, log Logger) *OverlayFactory {
	if log == nil {
		log = NewNopLogger()
	}
	return &OverlayFactory{scene: scene, log: log}
}

// CreateVisual builds a visual for desc under parent. The name is scoped
// by the parent's name; if a visual of that name already exists it is
// returned as is. A geometry that cannot be built leaves an empty visual
// and the error is returned along with it.
func (f *OverlayFactory) CreateVisual(id uint64, entity EntityId, desc VisualDesc, parent render.Visual) (render.Visual, error) {
	if desc.Geometry == nil {
		return nil, fmt.Errorf("create visual for entity %d: %w: no geometry", entity, ErrUnsupportedGeometry)
	}

	name := desc.Name
	if name == "" {
		name = fmt.Sprint(entity)
	}
	if parent != nil {
		name = parent.Name() + "::" + name
	}
	if f.scene.HasVisualName(name) {
		return f.scene.VisualByName(name), nil
	}

	vis, err := f.scene.CreateVisual(id, name)
	if err != nil {
		return nil, fmt.Errorf("create visual for entity %d: %w", entity, err)
	}
	tagVisual(vis, entity)
	setLocalPose(vis, desc.Pose)

	geom, scale, localPose, geomErr := f.LoadGeometry(*desc.Geometry)
	if geomErr == nil {
		if !localPose.IsIdentity() {
			geomVis, err := f.scene.CreateVisual(f.nextFreeId(id), name+"_geom")
			if err != nil {
				f.scene.DestroyVisual(vis, true)
				return nil, fmt.Errorf("create geometry child for entity %d: %w", entity, err)
			}
			tagVisual(geomVis, entity)
			geomVis.AddGeometry(geom)
			setLocalPose(geomVis, localPose)
			if err := vis.AddChild(geomVis); err != nil {
				f.log.Errorf("attach %q: %v", geomVis.Name(), err)
			}
		} else {
			vis.AddGeometry(geom)
		}
		vis.SetLocalScale(scale)
		f.applyMaterial(desc, geom)
	} else {
		f.log.Errorf("failed to load geometry for visual %q: %v", name, geomErr)
	}

	vis.SetVisibilityFlags(desc.VisibilityFlags)
	vis.SetCastShadows(desc.CastShadows)

	if parent != nil {
		if err := parent.AddChild(vis); err != nil {
			f.scene.DestroyVisual(vis, true)
			return nil, fmt.Errorf("parent visual for entity %d: %w", entity, err)
		}
	}
	return vis, geomErr
}

// applyMaterial picks the material of a freshly loaded geometry. Heightmaps
// bring their own; meshes keep their submesh materials and only take on
// the visual's transparency and shadow settings.
func (f *OverlayFactory) applyMaterial(desc VisualDesc, geom render.Geometry) {
	var material *render.Material
	switch {
	case desc.Geometry.Type == GeometryHeightmap:
	case desc.Material != nil:
		material = f.LoadMaterial(*desc.Material)
	case desc.Geometry.Type != GeometryMesh:
		material = f.defaultMaterial()
	default:
		mesh, ok := geom.(render.Mesh)
		if !ok {
			break
		}
		for _, sm := range mesh.SubMeshes() {
			if sm.Material == nil {
				continue
			}
			alpha := (1 - desc.Transparency) * (1 - sm.Material.Transparency)
			sm.Material.Transparency = 1 - alpha
			sm.Material.CastShadows = desc.CastShadows
		}
	}

	if material == nil {
		return
	}
	material = material.Clone(material.Name() + "::" + uuid.NewString())
	material.Transparency = desc.Transparency
	material.CastShadows = desc.CastShadows
	geom.SetMaterial(material)
}

func (f *OverlayFactory) defaultMaterial() *render.Material {
	if m, ok := f.scene.Material(defaultMaterialName); ok {
		return m
	}
	m, err := f.scene.CreateMaterial(defaultMaterialName)
	if err != nil {
		f.log.Errorf("create default material: %v", err)
		return nil
	}
	m.Ambient = mgl64.Vec4{0.3, 0.3, 0.3, 1}
	m.Diffuse = mgl64.Vec4{0.7, 0.7, 0.7, 1}
	m.Specular = mgl64.Vec4{1, 1, 1, 1}
	m.Roughness = 0.2
	m.Metalness = 1
	return m
}

// CreateEmptyVisual creates a named visual without geometry, e.g. for
// models and links that only group other visuals.
func (f *OverlayFactory) CreateEmptyVisual(id uint64, entity EntityId, name string, pose Pose, parent render.Visual) (render.Visual, error) {
	if name == "" {
		name = fmt.Sprint(entity)
	}
	if parent != nil {
		name = parent.Name() + "::" + name
	}
	if f.scene.HasVisualName(name) {
		return f.scene.VisualByName(name), nil
	}
	vis, err := f.scene.CreateVisual(id, name)
	if err != nil {
		return nil, fmt.Errorf("create visual for entity %d: %w", entity, err)
	}
	tagVisual(vis, entity)
	setLocalPose(vis, pose)
	if parent != nil {
		if err := parent.AddChild(vis); err != nil {
			f.scene.DestroyVisual(vis, true)
			return nil, fmt.Errorf("parent visual for entity %d: %w", entity, err)
		}
	}
	return vis, nil
}

// CreateCollision builds the orange, shadowless proxy of a collision shape.
func (f *OverlayFactory) CreateCollision(id uint64, entity EntityId, collision CollisionElement, parent render.Visual) (render.Visual, error) {
	if parent != nil && collision.Name != "" {
		// A same-named visual of another entity must not be adopted.
		if existing := f.scene.VisualByName(parent.Name() + "::" + collision.Name); existing != nil {
			if owner, _ := EntityOfVisual(existing); owner != entity {
				return nil, fmt.Errorf("create collision for entity %d: %w", entity, render.ErrNameTaken)
			}
		}
	}

	geom := collision.Geometry
	desc := VisualDesc{
		Name:     collision.Name,
		Pose:     collision.Pose,
		Geometry: &geom,
		Material: &Material{
			Ambient: collisionColor,
			Diffuse: collisionColor,
		},
		VisibilityFlags: ^uint32(0),
	}
	vis, err := f.CreateVisual(id, entity, desc, parent)
	if err != nil {
		if vis != nil {
			f.scene.DestroyVisual(vis, true)
		}
		return nil, err
	}
	return vis, nil
}

// CreateCOMVisual places a center of mass marker for the link's inertial.
func (f *OverlayFactory) CreateCOMVisual(id uint64, entity EntityId, inertial Inertial, parent render.Visual) (render.COMVisual, error) {
	name := fmt.Sprintf("COM_%d", id)
	if parent != nil {
		name = parent.Name() + "::" + name
	}
	vis, err := f.scene.CreateCOMVisual(id, name)
	if err != nil {
		return nil, fmt.Errorf("create center of mass visual for entity %d: %w", entity, err)
	}
	vis.SetInertial(toRenderInertial(inertial))
	tagVisual(vis, entity)
	if parent != nil {
		if err := parent.AddChild(vis); err != nil {
			f.scene.DestroyVisual(vis, true)
			return nil, fmt.Errorf("parent center of mass visual for entity %d: %w", entity, err)
		}
	}
	return vis, nil
}

// CreateInertiaVisual places the equivalent inertia ellipsoid for the
// link's inertial.
func (f *OverlayFactory) CreateInertiaVisual(id uint64, entity EntityId, inertial Inertial, parent render.Visual) (render.InertiaVisual, error) {
	name := fmt.Sprintf("Inertia_%d", id)
	if parent != nil {
		name = parent.Name() + "::" + name
	}
	vis, err := f.scene.CreateInertiaVisual(id, name)
	if err != nil {
		return nil, fmt.Errorf("create inertia visual for entity %d: %w", entity, err)
	}
	vis.SetInertial(toRenderInertial(inertial))
	tagVisual(vis, entity)
	if parent != nil {
		if err := parent.AddChild(vis); err != nil {
			f.scene.DestroyVisual(vis, true)
			return nil, fmt.Errorf("parent inertia visual for entity %d: %w", entity, err)
		}
	}
	return vis, nil
}

// LoadGeometry translates a geometry description into a renderer
// primitive, the scale to draw it with and a corrective pose for the
// primitive relative to its visual. The pose is only ever set for planes.
func (f *OverlayFactory) LoadGeometry(geom Geometry) (render.Geometry, mgl64.Vec3, Pose, error) {
	scale := mgl64.Vec3{1, 1, 1}
	localPose := IdentityPose()

	switch geom.Type {
	case GeometryBox:
		return f.scene.CreateBox(), geom.Size, localPose, nil

	case GeometryCapsule:
		c := f.scene.CreateCapsule()
		c.SetRadius(geom.Radius)
		c.SetLength(geom.Length)
		return c, scale, localPose, nil

	case GeometryCylinder:
		d := geom.Radius * 2
		return f.scene.CreateCylinder(), mgl64.Vec3{d, d, geom.Length}, localPose, nil

	case GeometryEllipsoid:
		return f.scene.CreateSphere(), geom.Radii.Mul(2), localPose, nil

	case GeometryPlane:
		scale = mgl64.Vec3{geom.Size.X(), geom.Size.Y(), 1}
		localPose.Rotation = rotationBetween(mgl64.Vec3{0, 0, 1}, geom.Normal)
		return f.scene.CreatePlane(), scale, localPose, nil

	case GeometrySphere:
		d := geom.Radius * 2
		return f.scene.CreateSphere(), mgl64.Vec3{d, d, d}, localPose, nil

	case GeometryMesh:
		if geom.Mesh == nil {
			return nil, scale, localPose, fmt.Errorf("mesh geometry: %w: missing uri", ErrUnsupportedGeometry)
		}
		fullPath := AsFullPath(geom.Mesh.Uri, geom.Mesh.FilePath)
		m, err := f.scene.CreateMesh(render.MeshDescriptor{
			Uri:           fullPath,
			SubMeshName:   geom.Mesh.Submesh,
			CenterSubMesh: geom.Mesh.CenterSubmesh,
		})
		if err != nil {
			return nil, scale, localPose, fmt.Errorf("mesh geometry: %w", err)
		}
		if geom.Mesh.Scale != (mgl64.Vec3{}) {
			scale = geom.Mesh.Scale
		}
		return m, scale, localPose, nil

	case GeometryHeightmap:
		hm := geom.Heightmap
		if hm == nil {
			return nil, scale, localPose, fmt.Errorf("heightmap geometry: %w: missing uri", ErrUnsupportedGeometry)
		}
		desc := render.HeightmapDescriptor{
			Uri:      AsFullPath(hm.Uri, hm.FilePath),
			Size:     hm.Size,
			Position: hm.Position,
			Sampling: hm.Sampling,
		}
		desc.Name = desc.Uri
		for _, t := range hm.Textures {
			desc.Textures = append(desc.Textures, render.HeightmapTexture{
				Size:    t.Size,
				Diffuse: AsFullPath(t.Diffuse, hm.FilePath),
				Normal:  AsFullPath(t.Normal, hm.FilePath),
			})
		}
		for _, b := range hm.Blends {
			desc.Blends = append(desc.Blends, render.HeightmapBlend{MinHeight: b.MinHeight, FadeDist: b.FadeDist})
		}
		h, err := f.scene.CreateHeightmap(desc)
		if err != nil {
			return nil, scale, localPose, fmt.Errorf("heightmap geometry: %w", err)
		}
		return h, hm.Size, localPose, nil
	}

	return nil, scale, localPose, fmt.Errorf("geometry type %s: %w", geom.Type, ErrUnsupportedGeometry)
}

// LoadMaterial registers a new uniquely named material built from m. PBR
// maps are resolved against the material's document and the resource
// paths; missing files are logged and left unset.
func (f *OverlayFactory) LoadMaterial(m Material) *render.Material {
	material, err := f.scene.CreateMaterial("material-" + uuid.NewString())
	if err != nil {
		f.log.Errorf("create material: %v", err)
		return nil
	}
	material.Ambient = m.Ambient
	material.Diffuse = m.Diffuse
	material.Specular = m.Specular
	material.Emissive = m.Emissive
	material.RenderOrder = m.RenderOrder
	material.DoubleSided = m.DoubleSided

	pbr := m.Pbr
	if pbr == nil {
		return material
	}
	if pbr.Workflow != PbrMetal {
		f.log.Errorf("PBR material: currently only metal workflow is supported")
		return material
	}

	material.Roughness = pbr.Roughness
	material.Metalness = pbr.Metalness

	resolve := func(uri string) string {
		if uri == "" {
			return ""
		}
		full := FindFile(AsFullPath(uri, m.FilePath))
		if full == "" {
			f.log.Errorf("unable to find file [%s]", uri)
		}
		return full
	}
	material.RoughnessMap = resolve(pbr.RoughnessMap)
	material.MetalnessMap = resolve(pbr.MetalnessMap)
	material.Texture = resolve(pbr.AlbedoMap)
	material.NormalMap = resolve(pbr.NormalMap)
	material.EnvironmentMap = resolve(pbr.EnvironmentMap)
	material.EmissiveMap = resolve(pbr.EmissiveMap)
	if lm := resolve(pbr.LightMap); lm != "" {
		material.LightMap = lm
		material.LightMapUVSet = pbr.LightMapUVSet
	}
	return material
}

// nextFreeId is used for helper children that need an id of their own.
func (f *OverlayFactory) nextFreeId(after uint64) uint64 {
	id, err := ProbeObjectId(f.scene, after+1, DefaultIdProbeCeiling)
	if err != nil {
		return math.MaxUint64
	}
	return id
}

func tagVisual(vis render.Visual, entity EntityId) {
	vis.SetUserData(UserDataEntity, entity)
	vis.SetUserData(UserDataPauseUpdate, 0)
}

func setLocalPose(n render.Node, p Pose) {
	n.SetLocalPosition(p.Position)
	n.SetLocalRotation(p.rotation())
}

func toRenderInertial(in Inertial) render.Inertial {
	return render.Inertial{
		Mass:         in.Mass,
		CenterOfMass: in.Pose.Position,
		Frame:        in.Pose.rotation(),
		MOI:          in.MOI(),
	}
}

// rotationBetween returns the shortest rotation taking from onto to. A
// zero target leaves the identity.
func rotationBetween(from, to mgl64.Vec3) mgl64.Quat {
	if to.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(from.Normalize(), to.Normalize())
}

// EntityOfVisual reads the entity a visual was tagged with.
func EntityOfVisual(n render.Node) (EntityId, bool) {
	if n == nil {
		return NullEntity, false
	}
	v, ok := n.UserData(UserDataEntity)
	if !ok {
		return NullEntity, false
	}
	e, ok := v.(EntityId)
	return e, ok
}

// IsOverlayVisual reports whether the visual was created for an overlay
// capability rather than standing for the entity itself.
func IsOverlayVisual(n render.Node) bool {
	_, ok := n.UserData(UserDataOverlay)
	return ok
}
