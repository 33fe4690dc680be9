package inspector

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// WorldDef defines the initial state of a world: a tree of models, their
// links, and what the links carry.
type WorldDef struct {
	Name   string     `yaml:"name"`
	Models []ModelDef `yaml:"models,omitempty"`
	Lights []LightDef `yaml:"lights,omitempty"`
	// FilePath is where the definition was read from. Relative resource
	// uris resolve against it. Not serialized.
	FilePath string `yaml:"-"`
}

// PoseDef is x, y, z, roll, pitch, yaw. Empty means identity.
type PoseDef []float64

type ModelDef struct {
	Name   string     `yaml:"name"`
	Pose   PoseDef    `yaml:"pose,omitempty,flow"`
	Models []ModelDef `yaml:"models,omitempty"`
	Links  []LinkDef  `yaml:"links,omitempty"`
}

type LinkDef struct {
	Name       string         `yaml:"name"`
	Pose       PoseDef        `yaml:"pose,omitempty,flow"`
	Inertial   *InertialDef   `yaml:"inertial,omitempty"`
	Visuals    []VisualDef    `yaml:"visuals,omitempty"`
	Collisions []CollisionDef `yaml:"collisions,omitempty"`
	Sensors    []SensorDef    `yaml:"sensors,omitempty"`
}

type InertialDef struct {
	Mass float64 `yaml:"mass"`
	Pose PoseDef `yaml:"pose,omitempty,flow"`
	Ixx  float64 `yaml:"ixx"`
	Iyy  float64 `yaml:"iyy"`
	Izz  float64 `yaml:"izz"`
	Ixy  float64 `yaml:"ixy,omitempty"`
	Ixz  float64 `yaml:"ixz,omitempty"`
	Iyz  float64 `yaml:"iyz,omitempty"`
}

type VisualDef struct {
	Name            string       `yaml:"name"`
	Pose            PoseDef      `yaml:"pose,omitempty,flow"`
	Geometry        GeometryDef  `yaml:"geometry"`
	Material        *MaterialDef `yaml:"material,omitempty"`
	Transparency    float64      `yaml:"transparency,omitempty"`
	CastShadows     *bool        `yaml:"cast_shadows,omitempty"`
	VisibilityFlags *uint32      `yaml:"visibility_flags,omitempty"`
}

type CollisionDef struct {
	Name     string      `yaml:"name"`
	Pose     PoseDef     `yaml:"pose,omitempty,flow"`
	Geometry GeometryDef `yaml:"geometry"`
}

type SensorDef struct {
	Name string  `yaml:"name"`
	Pose PoseDef `yaml:"pose,omitempty,flow"`
}

type LightDef struct {
	Name string  `yaml:"name"`
	Pose PoseDef `yaml:"pose,omitempty,flow"`
}

// GeometryDef holds the parameters of every geometry type; Type selects
// which ones are read.
type GeometryDef struct {
	Type          string    `yaml:"type"`
	Size          []float64 `yaml:"size,omitempty,flow"`
	Radius        float64   `yaml:"radius,omitempty"`
	Length        float64   `yaml:"length,omitempty"`
	Radii         []float64 `yaml:"radii,omitempty,flow"`
	Normal        []float64 `yaml:"normal,omitempty,flow"`
	Uri           string    `yaml:"uri,omitempty"`
	Submesh       string    `yaml:"submesh,omitempty"`
	CenterSubmesh bool      `yaml:"center_submesh,omitempty"`
	Scale         []float64 `yaml:"scale,omitempty,flow"`
	Sampling      uint32    `yaml:"sampling,omitempty"`
}

type MaterialDef struct {
	Ambient     []float64 `yaml:"ambient,omitempty,flow"`
	Diffuse     []float64 `yaml:"diffuse,omitempty,flow"`
	Specular    []float64 `yaml:"specular,omitempty,flow"`
	Emissive    []float64 `yaml:"emissive,omitempty,flow"`
	RenderOrder float32   `yaml:"render_order,omitempty"`
	DoubleSided bool      `yaml:"double_sided,omitempty"`
	Pbr         *PbrDef   `yaml:"pbr,omitempty"`
}

type PbrDef struct {
	Workflow       string  `yaml:"workflow"`
	Roughness      float64 `yaml:"roughness,omitempty"`
	Metalness      float64 `yaml:"metalness,omitempty"`
	AlbedoMap      string  `yaml:"albedo_map,omitempty"`
	NormalMap      string  `yaml:"normal_map,omitempty"`
	RoughnessMap   string  `yaml:"roughness_map,omitempty"`
	MetalnessMap   string  `yaml:"metalness_map,omitempty"`
	EnvironmentMap string  `yaml:"environment_map,omitempty"`
	EmissiveMap    string  `yaml:"emissive_map,omitempty"`
	LightMap       string  `yaml:"light_map,omitempty"`
	LightMapUVSet  uint32  `yaml:"light_map_uv_set,omitempty"`
}

// LoadWorld spawns the definition through cmd and returns the world
// entity. Nothing is spawned if the definition is invalid.
func LoadWorld(cmd *Commands, def *WorldDef) (EntityId, error) {
	if err := def.validate(); err != nil {
		return NullEntity, err
	}

	world := cmd.AddEntity(&WorldTag{}, &NameComponent{Name: def.Name})
	for _, light := range def.Lights {
		pose, _ := light.Pose.Pose()
		cmd.AddEntity(&LightTag{}, &NameComponent{Name: light.Name}, &PoseComponent{Pose: pose}, &Parent{Entity: world})
	}
	for i := range def.Models {
		spawnModel(cmd, world, &def.Models[i], def.FilePath)
	}
	return world, nil
}

func (def *WorldDef) validate() error {
	if def.Name == "" {
		return fmt.Errorf("world: missing name")
	}
	for _, l := range def.Lights {
		if _, err := l.Pose.Pose(); err != nil {
			return fmt.Errorf("light %q: %w", l.Name, err)
		}
	}
	for i := range def.Models {
		if err := def.Models[i].validate(); err != nil {
			return fmt.Errorf("world %q: %w", def.Name, err)
		}
	}
	return nil
}

func (m *ModelDef) validate() error {
	if m.Name == "" {
		return fmt.Errorf("model: missing name")
	}
	if _, err := m.Pose.Pose(); err != nil {
		return fmt.Errorf("model %q: %w", m.Name, err)
	}
	for i := range m.Models {
		if err := m.Models[i].validate(); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	for _, l := range m.Links {
		if err := l.validate(); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	return nil
}

func (l *LinkDef) validate() error {
	if l.Name == "" {
		return fmt.Errorf("link: missing name")
	}
	if _, err := l.Pose.Pose(); err != nil {
		return fmt.Errorf("link %q: %w", l.Name, err)
	}
	if l.Inertial != nil {
		if _, err := l.Inertial.Pose.Pose(); err != nil {
			return fmt.Errorf("link %q inertial: %w", l.Name, err)
		}
	}
	for _, v := range l.Visuals {
		if _, err := v.Pose.Pose(); err != nil {
			return fmt.Errorf("visual %q: %w", v.Name, err)
		}
		if _, err := v.Geometry.Geometry(""); err != nil {
			return fmt.Errorf("visual %q: %w", v.Name, err)
		}
	}
	for _, c := range l.Collisions {
		if _, err := c.Pose.Pose(); err != nil {
			return fmt.Errorf("collision %q: %w", c.Name, err)
		}
		if _, err := c.Geometry.Geometry(""); err != nil {
			return fmt.Errorf("collision %q: %w", c.Name, err)
		}
	}
	return nil
}

func spawnModel(cmd *Commands, parent EntityId, def *ModelDef, filePath string) EntityId {
	pose, _ := def.Pose.Pose()
	model := cmd.AddEntity(
		&ModelTag{},
		&NameComponent{Name: def.Name},
		&PoseComponent{Pose: pose},
		&Parent{Entity: parent},
	)
	for i := range def.Links {
		spawnLink(cmd, model, &def.Links[i], filePath)
	}
	for i := range def.Models {
		spawnModel(cmd, model, &def.Models[i], filePath)
	}
	return model
}

func spawnLink(cmd *Commands, model EntityId, def *LinkDef, filePath string) EntityId {
	pose, _ := def.Pose.Pose()
	comps := []any{
		&LinkTag{},
		&NameComponent{Name: def.Name},
		&PoseComponent{Pose: pose},
		&Parent{Entity: model},
	}
	if def.Inertial != nil {
		comps = append(comps, &InertialComponent{Inertial: def.Inertial.Inertial()})
	}
	link := cmd.AddEntity(comps...)

	for _, v := range def.Visuals {
		vPose, _ := v.Pose.Pose()
		geom, _ := v.Geometry.Geometry(filePath)
		castShadows := true
		if v.CastShadows != nil {
			castShadows = *v.CastShadows
		}
		flags := ^uint32(0)
		if v.VisibilityFlags != nil {
			flags = *v.VisibilityFlags
		}
		vComps := []any{
			&VisualTag{},
			&NameComponent{Name: v.Name},
			&PoseComponent{Pose: vPose},
			&Parent{Entity: link},
			&GeometryComponent{Geometry: geom},
			&CastShadowsComponent{CastShadows: castShadows},
			&TransparencyComponent{Transparency: v.Transparency},
			&VisibilityFlagsComponent{Flags: flags},
		}
		if v.Material != nil {
			vComps = append(vComps, &MaterialComponent{Material: v.Material.Material(filePath)})
		}
		cmd.AddEntity(vComps...)
	}

	for _, c := range def.Collisions {
		cPose, _ := c.Pose.Pose()
		geom, _ := c.Geometry.Geometry(filePath)
		cmd.AddEntity(
			&CollisionTag{},
			&NameComponent{Name: c.Name},
			&PoseComponent{Pose: cPose},
			&Parent{Entity: link},
			&GeometryComponent{Geometry: geom},
			&CollisionElementComponent{Collision: CollisionElement{Name: c.Name, Pose: cPose, Geometry: geom}},
		)
	}

	for _, s := range def.Sensors {
		sPose, _ := s.Pose.Pose()
		cmd.AddEntity(&SensorTag{}, &NameComponent{Name: s.Name}, &PoseComponent{Pose: sPose}, &Parent{Entity: link})
	}
	return link
}

// Pose converts the definition. Anything but 0 or 6 values is an error.
func (p PoseDef) Pose() (Pose, error) {
	switch len(p) {
	case 0:
		return IdentityPose(), nil
	case 6:
		return NewPose(p[0], p[1], p[2], p[3], p[4], p[5]), nil
	}
	return IdentityPose(), fmt.Errorf("pose: want 6 values (x y z roll pitch yaw), got %d", len(p))
}

// PoseDefOf is the inverse of PoseDef.Pose. Identity poses become empty.
func PoseDefOf(p Pose) PoseDef {
	if p.IsIdentity() {
		return nil
	}
	roll, pitch, yaw := p.RPY()
	return PoseDef{p.Position.X(), p.Position.Y(), p.Position.Z(), roll, pitch, yaw}
}

func (d *InertialDef) Inertial() Inertial {
	pose, _ := d.Pose.Pose()
	return Inertial{
		Mass: d.Mass,
		Pose: pose,
		Ixx:  d.Ixx,
		Iyy:  d.Iyy,
		Izz:  d.Izz,
		Ixy:  d.Ixy,
		Ixz:  d.Ixz,
		Iyz:  d.Iyz,
	}
}

// Geometry converts the definition. filePath is recorded on meshes and
// heightmaps so their uris can be resolved later.
func (d GeometryDef) Geometry(filePath string) (Geometry, error) {
	t, ok := ParseGeometryType(d.Type)
	if !ok {
		return Geometry{}, fmt.Errorf("geometry type %q: %w", d.Type, ErrUnsupportedGeometry)
	}
	g := Geometry{
		Type:   t,
		Size:   vec3Of(d.Size, mgl64.Vec3{1, 1, 1}),
		Radius: d.Radius,
		Length: d.Length,
		Radii:  vec3Of(d.Radii, mgl64.Vec3{}),
		Normal: vec3Of(d.Normal, mgl64.Vec3{0, 0, 1}),
	}
	switch t {
	case GeometryMesh:
		g.Mesh = &MeshShape{
			Uri:           d.Uri,
			FilePath:      filePath,
			Submesh:       d.Submesh,
			CenterSubmesh: d.CenterSubmesh,
			Scale:         vec3Of(d.Scale, mgl64.Vec3{1, 1, 1}),
		}
	case GeometryHeightmap:
		g.Heightmap = &HeightmapShape{
			Uri:      d.Uri,
			FilePath: filePath,
			Size:     g.Size,
			Sampling: d.Sampling,
		}
	}
	return g, nil
}

// GeometryDefOf is the inverse of GeometryDef.Geometry.
func GeometryDefOf(g Geometry) GeometryDef {
	d := GeometryDef{Type: g.Type.String()}
	switch g.Type {
	case GeometryBox, GeometryPlane:
		d.Size = g.Size[:]
		if g.Type == GeometryPlane {
			d.Normal = g.Normal[:]
		}
	case GeometrySphere:
		d.Radius = g.Radius
	case GeometryCylinder, GeometryCapsule:
		d.Radius = g.Radius
		d.Length = g.Length
	case GeometryEllipsoid:
		d.Radii = g.Radii[:]
	case GeometryMesh:
		if g.Mesh != nil {
			d.Uri = g.Mesh.Uri
			d.Submesh = g.Mesh.Submesh
			d.CenterSubmesh = g.Mesh.CenterSubmesh
			d.Scale = g.Mesh.Scale[:]
		}
	case GeometryHeightmap:
		if g.Heightmap != nil {
			d.Uri = g.Heightmap.Uri
			d.Size = g.Heightmap.Size[:]
			d.Sampling = g.Heightmap.Sampling
		}
	}
	return d
}

func (d *MaterialDef) Material(filePath string) Material {
	m := Material{
		Ambient:     vec4Of(d.Ambient, mgl64.Vec4{0, 0, 0, 1}),
		Diffuse:     vec4Of(d.Diffuse, mgl64.Vec4{0, 0, 0, 1}),
		Specular:    vec4Of(d.Specular, mgl64.Vec4{0, 0, 0, 1}),
		Emissive:    vec4Of(d.Emissive, mgl64.Vec4{0, 0, 0, 1}),
		RenderOrder: d.RenderOrder,
		DoubleSided: d.DoubleSided,
		FilePath:    filePath,
	}
	if d.Pbr != nil {
		workflow := PbrNone
		switch d.Pbr.Workflow {
		case "metal":
			workflow = PbrMetal
		case "specular":
			workflow = PbrSpecular
		}
		m.Pbr = &PbrMaterial{
			Workflow:       workflow,
			Roughness:      d.Pbr.Roughness,
			Metalness:      d.Pbr.Metalness,
			AlbedoMap:      d.Pbr.AlbedoMap,
			NormalMap:      d.Pbr.NormalMap,
			RoughnessMap:   d.Pbr.RoughnessMap,
			MetalnessMap:   d.Pbr.MetalnessMap,
			EnvironmentMap: d.Pbr.EnvironmentMap,
			EmissiveMap:    d.Pbr.EmissiveMap,
			LightMap:       d.Pbr.LightMap,
			LightMapUVSet:  d.Pbr.LightMapUVSet,
		}
	}
	return m
}

func MaterialDefOf(m Material) *MaterialDef {
	d := &MaterialDef{
		Ambient:     m.Ambient[:],
		Diffuse:     m.Diffuse[:],
		Specular:    m.Specular[:],
		Emissive:    m.Emissive[:],
		RenderOrder: m.RenderOrder,
		DoubleSided: m.DoubleSided,
	}
	if p := m.Pbr; p != nil {
		workflow := ""
		switch p.Workflow {
		case PbrMetal:
			workflow = "metal"
		case PbrSpecular:
			workflow = "specular"
		}
		d.Pbr = &PbrDef{
			Workflow:       workflow,
			Roughness:      p.Roughness,
			Metalness:      p.Metalness,
			AlbedoMap:      p.AlbedoMap,
			NormalMap:      p.NormalMap,
			RoughnessMap:   p.RoughnessMap,
			MetalnessMap:   p.MetalnessMap,
			EnvironmentMap: p.EnvironmentMap,
			EmissiveMap:    p.EmissiveMap,
			LightMap:       p.LightMap,
			LightMapUVSet:  p.LightMapUVSet,
		}
	}
	return d
}

func vec3Of(v []float64, def mgl64.Vec3) mgl64.Vec3 {
	if len(v) != 3 {
		return def
	}
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func vec4Of(v []float64, def mgl64.Vec4) mgl64.Vec4 {
	switch len(v) {
	case 3:
		return mgl64.Vec4{v[0], v[1], v[2], 1}
	case 4:
		return mgl64.Vec4{v[0], v[1], v[2], v[3]}
	}
	return def
}
