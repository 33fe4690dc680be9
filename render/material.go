package render

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Material is a plain description of surface appearance. Colors are RGBA
// in [0,1]. Map fields hold resolved file paths.
type Material struct {
	name string

	Ambient  mgl64.Vec4
	Diffuse  mgl64.Vec4
	Specular mgl64.Vec4
	Emissive mgl64.Vec4

	Transparency float64
	CastShadows  bool
	DepthWrite   bool
	RenderOrder  float32
	DoubleSided  bool

	Roughness float64
	Metalness float64

	Texture        string
	NormalMap      string
	RoughnessMap   string
	MetalnessMap   string
	EnvironmentMap string
	EmissiveMap    string
	LightMap       string
	LightMapUVSet  uint32
}

func newMaterial(name string) *Material {
	return &Material{
		name:        name,
		Ambient:     mgl64.Vec4{0, 0, 0, 1},
		Diffuse:     mgl64.Vec4{1, 1, 1, 1},
		Specular:    mgl64.Vec4{0, 0, 0, 1},
		Emissive:    mgl64.Vec4{0, 0, 0, 1},
		CastShadows: true,
		DepthWrite:  true,
		Roughness:   0.5,
	}
}

func (m *Material) Name() string { return m.name }

// Clone copies the material under a new name. The copy is not registered
// with any scene.
func (m *Material) Clone(name string) *Material {
	c := *m
	c.name = name
	return &c
}
