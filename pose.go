package inspector

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a rigid transform. Poses compose child-then-parent:
// world = parent.Compose(child).
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// NewPose builds a pose from a translation and roll/pitch/yaw in radians.
func NewPose(x, y, z, roll, pitch, yaw float64) Pose {
	return Pose{
		Position: mgl64.Vec3{x, y, z},
		Rotation: mgl64.AnglesToQuat(yaw, pitch, roll, mgl64.ZYX).Normalize(),
	}
}

// Compose returns the pose of child expressed in the frame p is expressed in.
func (p Pose) Compose(child Pose) Pose {
	rot := p.rotation()
	return Pose{
		Position: p.Position.Add(rot.Rotate(child.Position)),
		Rotation: rot.Mul(child.rotation()).Normalize(),
	}
}

func (p Pose) Inverse() Pose {
	inv := p.rotation().Inverse()
	return Pose{
		Position: inv.Rotate(p.Position.Mul(-1)),
		Rotation: inv,
	}
}

func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	return p.Position.ApproxEqualThreshold(o.Position, eps) &&
		p.rotation().OrientationEqualThreshold(o.rotation(), eps)
}

func (p Pose) IsIdentity() bool {
	return p.ApproxEqual(IdentityPose(), 1e-9)
}

// RPY returns roll, pitch and yaw in radians.
func (p Pose) RPY() (roll, pitch, yaw float64) {
	q := p.rotation()
	w, x, y, z := q.W, q.V.X(), q.V.Y(), q.V.Z()

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// rotation treats the zero quaternion as identity so that zero-value Poses
// behave.
func (p Pose) rotation() mgl64.Quat {
	if p.Rotation.W == 0 && p.Rotation.V.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return p.Rotation
}
