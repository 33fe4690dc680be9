package inspector

// Kind markers. An entity normally carries exactly one; if it carries more,
// EntityKindOf resolves them by a fixed precedence.
type WorldTag struct{}
type ModelTag struct{}
type LightTag struct{}
type LinkTag struct{}
type CollisionTag struct{}
type VisualTag struct{}
type JointTag struct{}
type SensorTag struct{}
type ActorTag struct{}
type ParticleEmitterTag struct{}

// Parent is a weak back reference; the parent may already be gone.
type Parent struct {
	Entity EntityId
}

type NameComponent struct {
	Name string
}

// PoseComponent is the pose relative to the parent entity.
type PoseComponent struct {
	Pose Pose
}

type GeometryComponent struct {
	Geometry Geometry
}

type MaterialComponent struct {
	Material Material
}

type InertialComponent struct {
	Inertial Inertial
}

type CollisionElementComponent struct {
	Collision CollisionElement
}

type CastShadowsComponent struct {
	CastShadows bool
}

type TransparencyComponent struct {
	Transparency float64
}

type VisibilityFlagsComponent struct {
	Flags uint32
}
