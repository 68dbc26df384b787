package simplify

import (
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// SimplifiedMesh is the compacted output of a simplification pass.
type SimplifiedMesh struct {
	Positions []math.Vec3
	Indices   []uint32
}

// VertexCount returns the number of surviving vertices.
func (m *SimplifiedMesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of surviving triangles.
func (m *SimplifiedMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ToMesh wraps the result as a mesh with computed bounds. The buffers are
// shared with the result.
func (m *SimplifiedMesh) ToMesh() *mesh.Mesh {
	return &mesh.Mesh{
		Positions: m.Positions,
		Indices:   m.Indices,
		Bounds:    math.BoundsOf(m.Positions),
	}
}

// Mesh simplifies m down to target triangles with a fresh Simplifier.
func Mesh(m *mesh.Mesh, target int, opts Options) (*SimplifiedMesh, error) {
	if target < 0 {
		return nil, ErrInvalidTarget
	}
	s := New(opts)
	if err := s.LoadMesh(m.Positions, m.Indices); err != nil {
		return nil, err
	}
	s.Simplify(target)
	return s.BuildResult(), nil
}
