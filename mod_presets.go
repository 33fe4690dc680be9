package inspector

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ParseWorld decodes a YAML world definition.
func ParseWorld(data []byte) (*WorldDef, error) {
	var def WorldDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse world: %w", err)
	}
	return &def, nil
}

// LoadWorldFile reads a YAML world definition and spawns it.
func LoadWorldFile(cmd *Commands, filename string) (EntityId, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return NullEntity, fmt.Errorf("read world %s: %w", filename, err)
	}
	def, err := ParseWorld(data)
	if err != nil {
		return NullEntity, fmt.Errorf("%s: %w", filename, err)
	}
	def.FilePath = filename
	return LoadWorld(cmd, def)
}

// SaveWorldFile writes the world rooted at world back out as YAML.
func SaveWorldFile(ecs *Ecs, world EntityId, filename string) error {
	def, err := WorldDefOf(ecs, world)
	if err != nil {
		return err
	}
	bytes, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode world: %w", err)
	}
	return os.WriteFile(filename, bytes, 0644)
}

// WorldDefOf rebuilds a definition from the store. Entities of kinds the
// definition has no place for are left out.
func WorldDefOf(ecs *Ecs, world EntityId) (*WorldDef, error) {
	if !HasComponent[WorldTag](ecs, world) {
		return nil, fmt.Errorf("entity %d is not a world: %w", world, ErrNotFound)
	}

	children := make(map[EntityId][]EntityId)
	NewQuery1[Parent](ecs).Map(func(eid EntityId, p *Parent) bool {
		children[p.Entity] = append(children[p.Entity], eid)
		return true
	})
	for _, c := range children {
		slices.Sort(c)
	}

	def := &WorldDef{Name: nameOf(ecs, world)}
	for _, child := range children[world] {
		switch EntityKindOf(ecs, child) {
		case KindModel:
			def.Models = append(def.Models, modelDefOf(ecs, children, child))
		case KindLight:
			def.Lights = append(def.Lights, LightDef{Name: nameOf(ecs, child), Pose: poseDefOf(ecs, child)})
		}
	}
	return def, nil
}

func modelDefOf(ecs *Ecs, children map[EntityId][]EntityId, model EntityId) ModelDef {
	def := ModelDef{Name: nameOf(ecs, model), Pose: poseDefOf(ecs, model)}
	for _, child := range children[model] {
		switch EntityKindOf(ecs, child) {
		case KindModel:
			def.Models = append(def.Models, modelDefOf(ecs, children, child))
		case KindLink:
			def.Links = append(def.Links, linkDefOf(ecs, children, child))
		}
	}
	return def
}

func linkDefOf(ecs *Ecs, children map[EntityId][]EntityId, link EntityId) LinkDef {
	def := LinkDef{Name: nameOf(ecs, link), Pose: poseDefOf(ecs, link)}
	if in, ok := GetComponent[InertialComponent](ecs, link); ok {
		def.Inertial = &InertialDef{
			Mass: in.Inertial.Mass,
			Pose: PoseDefOf(in.Inertial.Pose),
			Ixx:  in.Inertial.Ixx,
			Iyy:  in.Inertial.Iyy,
			Izz:  in.Inertial.Izz,
			Ixy:  in.Inertial.Ixy,
			Ixz:  in.Inertial.Ixz,
			Iyz:  in.Inertial.Iyz,
		}
	}

	for _, child := range children[link] {
		switch EntityKindOf(ecs, child) {
		case KindVisual:
			g, ok := GetComponent[GeometryComponent](ecs, child)
			if !ok {
				continue
			}
			v := VisualDef{
				Name:     nameOf(ecs, child),
				Pose:     poseDefOf(ecs, child),
				Geometry: GeometryDefOf(g.Geometry),
			}
			if m, ok := GetComponent[MaterialComponent](ecs, child); ok {
				v.Material = MaterialDefOf(m.Material)
			}
			if t, ok := GetComponent[TransparencyComponent](ecs, child); ok {
				v.Transparency = t.Transparency
			}
			if cs, ok := GetComponent[CastShadowsComponent](ecs, child); ok && !cs.CastShadows {
				castShadows := false
				v.CastShadows = &castShadows
			}
			if vf, ok := GetComponent[VisibilityFlagsComponent](ecs, child); ok && vf.Flags != ^uint32(0) {
				flags := vf.Flags
				v.VisibilityFlags = &flags
			}
			def.Visuals = append(def.Visuals, v)
		case KindCollision:
			c, ok := GetComponent[CollisionElementComponent](ecs, child)
			if !ok {
				continue
			}
			def.Collisions = append(def.Collisions, CollisionDef{
				Name:     nameOf(ecs, child),
				Pose:     PoseDefOf(c.Collision.Pose),
				Geometry: GeometryDefOf(c.Collision.Geometry),
			})
		case KindSensor:
			def.Sensors = append(def.Sensors, SensorDef{Name: nameOf(ecs, child), Pose: poseDefOf(ecs, child)})
		}
	}
	return def
}

func nameOf(ecs *Ecs, e EntityId) string {
	if n, ok := GetComponent[NameComponent](ecs, e); ok {
		return n.Name
	}
	return ""
}

func poseDefOf(ecs *Ecs, e EntityId) PoseDef {
	if p, ok := GetComponent[PoseComponent](ecs, e); ok {
		return PoseDefOf(p.Pose)
	}
	return nil
}

// WorldInfo is the resource PresetModule leaves behind.
type WorldInfo struct {
	Entity   EntityId
	FilePath string
}

// PresetModule spawns a world from a YAML file at install time.
type PresetModule struct {
	Path string
}

func (m PresetModule) Install(app *App, cmd *Commands) {
	world, err := LoadWorldFile(cmd, m.Path)
	if err != nil {
		app.Logger().Errorf("load world preset: %v", err)
		return
	}
	app.Logger().Infof("loaded world preset %s", m.Path)
	cmd.AddResources(&WorldInfo{Entity: world, FilePath: m.Path})
}
