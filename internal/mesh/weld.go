package mesh

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/pkg/math"
)

// DefaultWeldEpsilon is the position quantum used when welding triangle soups.
const DefaultWeldEpsilon float32 = 1e-5

// Weld converts a triangle soup into an indexed mesh, merging corners whose
// positions fall into the same epsilon-sized cell. Vertices keep the order
// of first appearance.
func Weld(triangles [][3]math.Vec3, epsilon float32) *Mesh {
	if epsilon <= 0 {
		epsilon = DefaultWeldEpsilon
	}

	// Group corners by quantized position for O(n) lookup
	posMap := make(map[[3]int64]uint32, len(triangles)*3/2)
	positions := make([]math.Vec3, 0, len(triangles)*3/2)
	indices := make([]uint32, 0, len(triangles)*3)

	for _, tri := range triangles {
		for _, p := range tri {
			key := [3]int64{
				int64(math32.Round(p.X / epsilon)),
				int64(math32.Round(p.Y / epsilon)),
				int64(math32.Round(p.Z / epsilon)),
			}
			idx, ok := posMap[key]
			if !ok {
				idx = uint32(len(positions))
				posMap[key] = idx
				positions = append(positions, p)
			}
			indices = append(indices, idx)
		}
	}

	return &Mesh{
		Positions: positions,
		Indices:   indices,
		Bounds:    math.BoundsOf(positions),
	}
}

// Soup expands the mesh into one position triple per triangle.
func (m *Mesh) Soup() [][3]math.Vec3 {
	tris := make([][3]math.Vec3, m.TriangleCount())
	for i := range tris {
		tris[i] = m.Triangle(i)
	}
	return tris
}
