package inspector

import (
	"fmt"

	"github.com/gekko3d/inspector/render"
)

// DefaultIdProbeCeiling bounds how many ids ProbeObjectId tries.
const DefaultIdProbeCeiling = 100000

// ProbeObjectId returns the first id at or above start that is used by no
// node, light, sensor or visual of the scene. It gives up after attempts
// candidates with ErrIdSpaceExhausted.
func ProbeObjectId(scene render.Scene, start uint64, attempts uint64) (uint64, error) {
	for i := uint64(0); i < attempts; i++ {
		id := start + i
		if id < start {
			break
		}
		if scene.HasNodeId(id) || scene.HasLightId(id) || scene.HasSensorId(id) || scene.HasVisualId(id) {
			continue
		}
		return id, nil
	}
	return 0, fmt.Errorf("probe %d ids from %d in scene %q: %w", attempts, start, scene.Name(), ErrIdSpaceExhausted)
}
