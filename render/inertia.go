package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// leadDensity sizes center of mass spheres: a lead ball of the body's mass.
const leadDensity = 11340.0

func comSphereRadius(mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	return math.Cbrt(0.75 * mass / (math.Pi * leadDensity))
}

// equivalentEllipsoid returns the semi-axes of the solid ellipsoid of the
// given mass whose principal moments match the tensor, and the rotation of
// its principal frame.
func equivalentEllipsoid(mass float64, moi mgl64.Mat3) (mgl64.Vec3, mgl64.Quat) {
	moments, axes := principalAxes(moi)
	if mass <= 0 {
		return mgl64.Vec3{}, mgl64.QuatIdent()
	}

	i1, i2, i3 := moments[0], moments[1], moments[2]
	k := 5.0 / (2.0 * mass)
	radii := mgl64.Vec3{
		math.Sqrt(math.Max(0, k*(i2+i3-i1))),
		math.Sqrt(math.Max(0, k*(i1+i3-i2))),
		math.Sqrt(math.Max(0, k*(i1+i2-i3))),
	}
	return radii, mgl64.Mat4ToQuat(axes.Mat4()).Normalize()
}

// principalAxes diagonalizes a symmetric 3x3 matrix with cyclic Jacobi
// rotations. It returns the eigenvalues and a proper rotation whose columns
// are the matching eigenvectors.
func principalAxes(m mgl64.Mat3) (mgl64.Vec3, mgl64.Mat3) {
	var a, v [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] = m.At(i, j)
		}
		v[i][i] = 1
	}

	for sweep := 0; sweep < 50; sweep++ {
		off := a[0][1]*a[0][1] + a[0][2]*a[0][2] + a[1][2]*a[1][2]
		if off < 1e-24 {
			break
		}
		for p := 0; p < 2; p++ {
			for q := p + 1; q < 3; q++ {
				if a[p][q] == 0 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for k := 0; k < 3; k++ {
					akp, akq := a[k][p], a[k][q]
					a[k][p] = c*akp - s*akq
					a[k][q] = s*akp + c*akq
				}
				for k := 0; k < 3; k++ {
					apk, aqk := a[p][k], a[q][k]
					a[p][k] = c*apk - s*aqk
					a[q][k] = s*apk + c*aqk
				}
				for k := 0; k < 3; k++ {
					vkp, vkq := v[k][p], v[k][q]
					v[k][p] = c*vkp - s*vkq
					v[k][q] = s*vkp + c*vkq
				}
			}
		}
	}

	var axes mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axes.Set(i, j, v[i][j])
		}
	}
	if axes.Det() < 0 {
		for i := 0; i < 3; i++ {
			axes.Set(i, 2, -axes.At(i, 2))
		}
	}
	return mgl64.Vec3{a[0][0], a[1][1], a[2][2]}, axes
}
