package stream

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// Part is one cell of a partitioned mesh.
type Part struct {
	Cell   CellCoord
	Bounds math.AABB
	Data   ChunkData
}

// CellCoord addresses a cubic grid cell.
type CellCoord struct{ X, Y, Z int32 }

func cellOf(p math.Vec3, size float32) CellCoord {
	return CellCoord{
		X: int32(math32.Floor(p.X / size)),
		Y: int32(math32.Floor(p.Y / size)),
		Z: int32(math32.Floor(p.Z / size)),
	}
}

func compareCells(a, b CellCoord) int {
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// Partition splits m into grid cells of the given size, bucketing each
// triangle by its centroid. Every triangle lands in exactly one part; each
// part carries only the vertices its triangles use. Parts are ordered by cell
// (z, then y, then x). A non-positive cellSize yields a single part.
func Partition(m *mesh.Mesh, cellSize float32) []Part {
	if m == nil || m.TriangleCount() == 0 {
		return nil
	}

	buckets := make(map[CellCoord][]int)
	for t := range m.TriangleCount() {
		var cell CellCoord
		if cellSize > 0 {
			tri := m.Triangle(t)
			centroid := tri[0].Add(tri[1]).Add(tri[2]).Scale(1.0 / 3.0)
			cell = cellOf(centroid, cellSize)
		}
		buckets[cell] = append(buckets[cell], t)
	}

	cells := make([]CellCoord, 0, len(buckets))
	for c := range buckets {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, compareCells)

	parts := make([]Part, 0, len(cells))
	for _, c := range cells {
		parts = append(parts, buildPart(m, c, buckets[c]))
	}
	return parts
}

func buildPart(m *mesh.Mesh, cell CellCoord, tris []int) Part {
	remap := make(map[uint32]uint32, len(tris)*3)
	data := ChunkData{Indices: make([]uint32, 0, len(tris)*3)}

	for _, t := range tris {
		for _, old := range m.Indices[t*3 : t*3+3] {
			idx, ok := remap[old]
			if !ok {
				idx = uint32(len(data.Vertices))
				remap[old] = idx
				data.Vertices = append(data.Vertices, m.Positions[old])
			}
			data.Indices = append(data.Indices, idx)
		}
	}

	return Part{
		Cell:   cell,
		Bounds: math.BoundsOf(data.Vertices),
		Data:   data,
	}
}
