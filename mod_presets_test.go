package inspector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const robotWorld = `
name: default
lights:
  - name: sun
    pose: [0, 0, 10, 0, 0, 0]
models:
  - name: robot
    pose: [1, 0, 0, 0, 0, 0]
    links:
      - name: base
        inertial:
          mass: 2
          ixx: 1
          iyy: 2
          izz: 3
        visuals:
          - name: base_vis
            geometry: {type: box, size: [1, 1, 1]}
            material:
              diffuse: [1, 0, 0]
              pbr: {workflow: metal, roughness: 0.3, albedo_map: albedo.png}
          - name: wheel
            cast_shadows: false
            visibility_flags: 2
            transparency: 0.5
            geometry: {type: mesh, uri: meshes/wheel.dae, submesh: rim}
        collisions:
          - name: base_col
            geometry: {type: cylinder, radius: 0.5, length: 1}
        sensors:
          - name: camera
    models:
      - name: gripper
        links:
          - name: finger
            pose: [0, 0, 0.5, 0, 0, 0]
`

func spawnWorld(t *testing.T, data string) (*App, EntityId) {
	t.Helper()
	def, err := ParseWorld([]byte(data))
	require.NoError(t, err)
	def.FilePath = "/worlds/robot.yaml"

	app := NewApp()
	world, err := LoadWorld(app.Commands(), def)
	require.NoError(t, err)
	app.FlushCommands()
	return app, world
}

func entityByName(ecs *Ecs, name string) EntityId {
	found := NullEntity
	NewQuery1[NameComponent](ecs).Map(func(eid EntityId, n *NameComponent) bool {
		if n.Name == name {
			found = eid
			return false
		}
		return true
	})
	return found
}

func TestLoadWorld(t *testing.T) {
	app, world := spawnWorld(t, robotWorld)
	ecs := app.Ecs()

	assert.Equal(t, KindWorld, EntityKindOf(ecs, world))
	robot := entityByName(ecs, "robot")
	base := entityByName(ecs, "base")
	finger := entityByName(ecs, "finger")
	assert.Equal(t, KindModel, EntityKindOf(ecs, robot))
	assert.Equal(t, KindLink, EntityKindOf(ecs, base))
	assert.Equal(t, KindSensor, EntityKindOf(ecs, entityByName(ecs, "camera")))
	assert.Equal(t, KindLight, EntityKindOf(ecs, entityByName(ecs, "sun")))
	assert.Equal(t, "default::robot::gripper::finger", ScopedName(ecs, finger, "::", false))

	pose, err := WorldPose(ecs, finger)
	require.NoError(t, err)
	assert.True(t, pose.Position.ApproxEqual(mgl64.Vec3{1, 0, 0.5}))

	in, ok := GetComponent[InertialComponent](ecs, base)
	require.True(t, ok)
	assert.Equal(t, 2.0, in.Inertial.Mass)
	assert.Equal(t, 3.0, in.Inertial.Izz)

	vis := entityByName(ecs, "base_vis")
	mat, ok := GetComponent[MaterialComponent](ecs, vis)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec4{1, 0, 0, 1}, mat.Material.Diffuse)
	require.NotNil(t, mat.Material.Pbr)
	assert.Equal(t, PbrMetal, mat.Material.Pbr.Workflow)
	assert.Equal(t, "/worlds/robot.yaml", mat.Material.FilePath)

	wheel := entityByName(ecs, "wheel")
	g, _ := GetComponent[GeometryComponent](ecs, wheel)
	require.NotNil(t, g.Geometry.Mesh)
	assert.Equal(t, "meshes/wheel.dae", g.Geometry.Mesh.Uri)
	assert.Equal(t, "/worlds/robot.yaml", g.Geometry.Mesh.FilePath)
	cs, _ := GetComponent[CastShadowsComponent](ecs, wheel)
	assert.False(t, cs.CastShadows)
	flags, _ := GetComponent[VisibilityFlagsComponent](ecs, wheel)
	assert.Equal(t, uint32(2), flags.Flags)

	col := entityByName(ecs, "base_col")
	c, ok := GetComponent[CollisionElementComponent](ecs, col)
	require.True(t, ok)
	assert.Equal(t, GeometryCylinder, c.Collision.Geometry.Type)
	assert.Equal(t, "base_col", c.Collision.Name)
}

func TestLoadWorld_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "models: [{name: m}]"},
		{"model without name", "name: w\nmodels: [{pose: [0, 0, 0, 0, 0, 0]}]"},
		{"short pose", "name: w\nmodels: [{name: m, pose: [1, 2]}]"},
		{"bad geometry", "name: w\nmodels: [{name: m, links: [{name: l, visuals: [{name: v, geometry: {type: blob}}]}]}]"},
		{"bad light pose", "name: w\nlights: [{name: sun, pose: [1]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseWorld([]byte(tt.yaml))
			require.NoError(t, err)
			app := NewApp()
			_, err = LoadWorld(app.Commands(), def)
			assert.Error(t, err)
			app.FlushCommands()
			assert.Zero(t, app.Ecs().EntityCount(), "nothing is spawned")
		})
	}

	_, err := ParseWorld([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestLoadWorld_UnsupportedGeometryIsWrapped(t *testing.T) {
	def, err := ParseWorld([]byte("name: w\nmodels: [{name: m, links: [{name: l, collisions: [{name: c, geometry: {type: blob}}]}]}]"))
	require.NoError(t, err)
	_, err = LoadWorld(NewApp().Commands(), def)
	assert.True(t, errors.Is(err, ErrUnsupportedGeometry))
}

func TestSaveWorldFile_RoundTrip(t *testing.T) {
	app, world := spawnWorld(t, robotWorld)
	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, SaveWorldFile(app.Ecs(), world, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	saved, err := ParseWorld(data)
	require.NoError(t, err)
	orig, err := ParseWorld([]byte(robotWorld))
	require.NoError(t, err)

	assert.Equal(t, orig.Name, saved.Name)
	require.Len(t, saved.Models, 1)
	robot := saved.Models[0]
	assert.Equal(t, "robot", robot.Name)
	require.Len(t, robot.Links, 1)
	require.Len(t, robot.Models, 1)
	assert.Equal(t, "finger", robot.Models[0].Links[0].Name)

	base := robot.Links[0]
	require.NotNil(t, base.Inertial)
	assert.Equal(t, 2.0, base.Inertial.Mass)
	require.Len(t, base.Visuals, 2)
	assert.Equal(t, "box", base.Visuals[0].Geometry.Type)
	require.NotNil(t, base.Visuals[1].CastShadows)
	assert.False(t, *base.Visuals[1].CastShadows)
	require.NotNil(t, base.Visuals[1].VisibilityFlags)
	assert.Equal(t, uint32(2), *base.Visuals[1].VisibilityFlags)
	assert.Equal(t, "rim", base.Visuals[1].Geometry.Submesh)
	require.Len(t, base.Collisions, 1)
	assert.Equal(t, 0.5, base.Collisions[0].Geometry.Radius)
	require.Len(t, base.Sensors, 1)
	require.Len(t, saved.Lights, 1)
	assert.InDelta(t, 10, saved.Lights[0].Pose[2], 1e-9)

	_, err = WorldDefOf(app.Ecs(), entityByName(app.Ecs(), "robot"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPresetModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(robotWorld), 0644))

	app := NewApp().UseModules(
		RendererModule{},
		SceneSyncModule{},
		PresetModule{Path: path},
	)
	info, ok := Resource[WorldInfo](app)
	require.True(t, ok)
	assert.Equal(t, path, info.FilePath)

	app.Step()
	app.RenderFrame()
	assert.Equal(t, KindWorld, EntityKindOf(app.Ecs(), info.Entity))
	assert.NotNil(t, app.Scene().VisualByName("robot::base::base_vis"))
	assert.NotNil(t, app.Scene().VisualByName("robot::gripper::finger"))

	missing := NewApp().UseModules(PresetModule{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	_, ok = Resource[WorldInfo](missing)
	assert.False(t, ok)
}
