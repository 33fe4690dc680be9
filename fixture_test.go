package inspector

import (
	"github.com/go-gl/mathgl/mgl64"
)

// testWorld is a small robot used across tests:
//
//	default (world)
//	  box (model)
//	    base (link, inertial)
//	      base_vis, base_col
//	    arm (link)
//	      arm_vis
//	    gripper (model)
//	      finger (link, inertial)
//	        finger_vis, finger_col
//	  sun (light)
type testWorld struct {
	world, box, base, baseVis, baseCol, arm, armVis EntityId
	gripper, finger, fingerVis, fingerCol, sun      EntityId
}

func testInertial(mass float64) Inertial {
	return Inertial{
		Mass: mass,
		Pose: NewPose(0, 0, 0.1, 0, 0, 0),
		Ixx:  1,
		Iyy:  2,
		Izz:  3,
	}
}

func boxGeometry(x, y, z float64) Geometry {
	return Geometry{Type: GeometryBox, Size: mgl64.Vec3{x, y, z}}
}

// spawn abstracts over Ecs.addEntity and Commands.AddEntity.
type spawnFn func(components ...any) EntityId

func buildTestWorld(spawn spawnFn) testWorld {
	var w testWorld
	w.world = spawn(WorldTag{}, NameComponent{Name: "default"})
	w.box = spawn(ModelTag{}, NameComponent{Name: "box"}, Parent{Entity: w.world},
		PoseComponent{Pose: NewPose(1, 0, 0, 0, 0, 0)})

	w.base = spawn(LinkTag{}, NameComponent{Name: "base"}, Parent{Entity: w.box},
		PoseComponent{Pose: NewPose(0, 0, 1, 0, 0, 0)}, InertialComponent{Inertial: testInertial(2)})
	w.baseVis = spawn(VisualTag{}, NameComponent{Name: "base_vis"}, Parent{Entity: w.base},
		PoseComponent{Pose: IdentityPose()}, GeometryComponent{Geometry: boxGeometry(1, 1, 1)})
	w.baseCol = spawn(CollisionTag{}, NameComponent{Name: "base_col"}, Parent{Entity: w.base},
		PoseComponent{Pose: IdentityPose()},
		CollisionElementComponent{Collision: CollisionElement{Name: "base_col", Pose: IdentityPose(), Geometry: boxGeometry(1, 1, 1)}})

	w.arm = spawn(LinkTag{}, NameComponent{Name: "arm"}, Parent{Entity: w.box},
		PoseComponent{Pose: NewPose(0, 0, 2, 0, 0, 0)})
	w.armVis = spawn(VisualTag{}, NameComponent{Name: "arm_vis"}, Parent{Entity: w.arm},
		PoseComponent{Pose: IdentityPose()}, GeometryComponent{Geometry: Geometry{Type: GeometrySphere, Radius: 0.5}})

	w.gripper = spawn(ModelTag{}, NameComponent{Name: "gripper"}, Parent{Entity: w.box},
		PoseComponent{Pose: NewPose(0, 0, 3, 0, 0, 0)})
	w.finger = spawn(LinkTag{}, NameComponent{Name: "finger"}, Parent{Entity: w.gripper},
		PoseComponent{Pose: IdentityPose()}, InertialComponent{Inertial: testInertial(0.5)})
	w.fingerVis = spawn(VisualTag{}, NameComponent{Name: "finger_vis"}, Parent{Entity: w.finger},
		PoseComponent{Pose: IdentityPose()}, GeometryComponent{Geometry: boxGeometry(0.1, 0.1, 0.3)})
	w.fingerCol = spawn(CollisionTag{}, NameComponent{Name: "finger_col"}, Parent{Entity: w.finger},
		PoseComponent{Pose: IdentityPose()},
		CollisionElementComponent{Collision: CollisionElement{Name: "finger_col", Pose: IdentityPose(), Geometry: boxGeometry(0.1, 0.1, 0.3)}})

	w.sun = spawn(LightTag{}, NameComponent{Name: "sun"}, Parent{Entity: w.world})
	return w
}

// newTestStore builds the test world straight into a store and publishes
// it as one step's additions.
func newTestStore() (*Ecs, testWorld) {
	ecs := MakeEcs()
	w := buildTestWorld(ecs.addEntity)
	ecs.advanceChangeFeed()
	return &ecs, w
}
