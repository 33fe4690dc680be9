package inspector

// EntityKind classifies entities by their kind marker.
type EntityKind int

const (
	KindUnknown EntityKind = iota
	KindWorld
	KindModel
	KindLight
	KindLink
	KindCollision
	KindVisual
	KindJoint
	KindSensor
	KindActor
	KindParticleEmitter
)

var kindNames = [...]string{
	KindUnknown:         "",
	KindWorld:           "world",
	KindModel:           "model",
	KindLight:           "light",
	KindLink:            "link",
	KindCollision:       "collision",
	KindVisual:          "visual",
	KindJoint:           "joint",
	KindSensor:          "sensor",
	KindActor:           "actor",
	KindParticleEmitter: "particle_emitter",
}

// String is the prefix used in qualified names; empty for KindUnknown.
func (k EntityKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

// ParseEntityKind maps a prefix back to a kind.
func ParseEntityKind(s string) (EntityKind, bool) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return EntityKind(k), true
		}
	}
	return KindUnknown, false
}

// kindPrecedence is the order in which markers are checked.
var kindPrecedence = []struct {
	kind EntityKind
	has  func(*Ecs, EntityId) bool
}{
	{KindWorld, HasComponent[WorldTag]},
	{KindModel, HasComponent[ModelTag]},
	{KindLight, HasComponent[LightTag]},
	{KindLink, HasComponent[LinkTag]},
	{KindCollision, HasComponent[CollisionTag]},
	{KindVisual, HasComponent[VisualTag]},
	{KindJoint, HasComponent[JointTag]},
	{KindSensor, HasComponent[SensorTag]},
	{KindActor, HasComponent[ActorTag]},
	{KindParticleEmitter, HasComponent[ParticleEmitterTag]},
}

// EntityKindOf returns the first matching kind in precedence order.
func EntityKindOf(ecs *Ecs, e EntityId) EntityKind {
	for _, p := range kindPrecedence {
		if p.has(ecs, e) {
			return p.kind
		}
	}
	return KindUnknown
}

// KindMarker returns a zero marker component for the kind, for building
// entities from data files.
func KindMarker(k EntityKind) (any, bool) {
	switch k {
	case KindWorld:
		return WorldTag{}, true
	case KindModel:
		return ModelTag{}, true
	case KindLight:
		return LightTag{}, true
	case KindLink:
		return LinkTag{}, true
	case KindCollision:
		return CollisionTag{}, true
	case KindVisual:
		return VisualTag{}, true
	case KindJoint:
		return JointTag{}, true
	case KindSensor:
		return SensorTag{}, true
	case KindActor:
		return ActorTag{}, true
	case KindParticleEmitter:
		return ParticleEmitterTag{}, true
	}
	return nil, false
}
