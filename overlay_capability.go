package inspector

// Capability is one kind of overlay that can be toggled per target.
type Capability int

const (
	CapWireframe Capability = iota
	CapTransparent
	CapCenterOfMass
	CapInertia
	CapCollision

	capabilityCount
)

// Capabilities lists every capability in a fixed order.
var Capabilities = []Capability{CapWireframe, CapTransparent, CapCenterOfMass, CapInertia, CapCollision}

var capabilityNames = [...]string{
	CapWireframe:    "wireframe",
	CapTransparent:  "transparent",
	CapCenterOfMass: "com",
	CapInertia:      "inertia",
	CapCollision:    "collision",
}

func (c Capability) String() string {
	if c < 0 || c >= capabilityCount {
		return "unknown"
	}
	return capabilityNames[c]
}

// ParseCapability maps a name produced by String back to the capability.
func ParseCapability(s string) (Capability, bool) {
	for i, name := range capabilityNames {
		if name == s {
			return Capability(i), true
		}
	}
	return 0, false
}

// linkLevel capabilities create one object per link; the others act on
// the visuals or collisions a link owns.
func (c Capability) linkLevel() bool {
	return c == CapCenterOfMass || c == CapInertia
}

// ownsObject reports whether the engine created the renderer object and
// must destroy it. Wireframe and transparency only restyle the entity's
// own visual.
func (c Capability) ownsObject() bool {
	return c == CapCenterOfMass || c == CapInertia || c == CapCollision
}
