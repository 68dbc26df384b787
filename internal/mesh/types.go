// Package mesh provides the indexed triangle mesh shared by the simplifier,
// the LOD groups and the chunk streamer, plus a handle registry and STL I/O.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshlod/pkg/math"
)

// Buffer strides in bytes, used for memory accounting.
const (
	VertexStride = 12 // three float32 components
	IndexStride  = 4  // uint32
)

// Mesh errors.
var (
	ErrInvalidIndices  = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange = errors.New("index out of vertex range")
	ErrEmptyMesh       = errors.New("mesh has no triangles")
	ErrUnknownHandle   = errors.New("unknown mesh handle")
)

// Mesh holds vertex positions, a triangle index list and the bounding box.
type Mesh struct {
	Positions []math.Vec3
	Indices   []uint32
	Bounds    math.AABB
}

// New validates the index list and builds a mesh with computed bounds. The
// slices are retained, not copied.
func New(positions []math.Vec3, indices []uint32) (*Mesh, error) {
	if err := ValidateIndices(len(positions), indices); err != nil {
		return nil, err
	}
	return &Mesh{
		Positions: positions,
		Indices:   indices,
		Bounds:    math.BoundsOf(positions),
	}, nil
}

// ValidateIndices checks that indices form whole triangles referencing
// existing vertices.
func ValidateIndices(vertexCount int, indices []uint32) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIndices, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return fmt.Errorf("%w: indices[%d]=%d, %d vertices", ErrIndexOutOfRange, i, idx, vertexCount)
		}
	}
	return nil
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ByteSize returns the resident size of the vertex and index buffers.
func (m *Mesh) ByteSize() int64 {
	return BufferSize(len(m.Positions), len(m.Indices))
}

// Triangle returns the three corner positions of triangle i.
func (m *Mesh) Triangle(i int) [3]math.Vec3 {
	return [3]math.Vec3{
		m.Positions[m.Indices[3*i]],
		m.Positions[m.Indices[3*i+1]],
		m.Positions[m.Indices[3*i+2]],
	}
}

// BufferSize returns the byte size of a vertex/index buffer pair.
func BufferSize(vertices, indices int) int64 {
	return int64(vertices)*VertexStride + int64(indices)*IndexStride
}
