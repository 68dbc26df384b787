package stream

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshlod/pkg/math"
)

var (
	_ kdtree.Interface  = chunkPoints(nil)
	_ kdtree.Comparable = chunkPoint{}
)

// chunkPoint is a chunk center in the index.
type chunkPoint struct {
	id ChunkID
	c  r3.Vec
}

func pointOf(id ChunkID, p math.Vec3) chunkPoint {
	return chunkPoint{id: id, c: r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}}
}

func (a chunkPoint) axis(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return a.c.X
	case 1:
		return a.c.Y
	default:
		return a.c.Z
	}
}

// Compare returns a_d - b_d.
func (a chunkPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return a.axis(d) - b.(chunkPoint).axis(d)
}

func (a chunkPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (a chunkPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.c, b.(chunkPoint).c))
}

type chunkPoints []chunkPoint

func (p chunkPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p chunkPoints) Len() int                      { return len(p) }

func (p chunkPoints) Pivot(d kdtree.Dim) int {
	pl := chunkPlane{dim: d, points: p}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

func (p chunkPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type chunkPlane struct {
	dim    kdtree.Dim
	points chunkPoints
}

func (p chunkPlane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.dim) < 0
}
func (p chunkPlane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p chunkPlane) Len() int      { return len(p.points) }
func (p chunkPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// chunkIndex answers nearest-chunk queries over chunk centers.
type chunkIndex struct {
	tree *kdtree.Tree
}

func newChunkIndex(chunks []*MeshChunk) *chunkIndex {
	if len(chunks) == 0 {
		return &chunkIndex{}
	}
	pts := make(chunkPoints, len(chunks))
	for i, c := range chunks {
		pts[i] = pointOf(c.ID, c.Bounds.Center())
	}
	return &chunkIndex{tree: kdtree.New(pts, false)}
}

// nearest returns up to k chunk ids ordered by distance, ties by id.
func (ix *chunkIndex) nearest(p math.Vec3, k int) []ChunkID {
	if k <= 0 || ix.tree == nil || ix.tree.Root == nil {
		return nil
	}

	keep := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keep, pointOf(0, p))

	found := make([]kdtree.ComparableDist, 0, keep.Len())
	for _, cd := range keep.Heap {
		// The keeper seeds its heap with an empty sentinel.
		if cd.Comparable == nil {
			continue
		}
		found = append(found, cd)
	}
	slices.SortFunc(found, func(a, b kdtree.ComparableDist) int {
		if c := cmp.Compare(a.Dist, b.Dist); c != 0 {
			return c
		}
		return cmp.Compare(a.Comparable.(chunkPoint).id, b.Comparable.(chunkPoint).id)
	})

	ids := make([]ChunkID, len(found))
	for i, cd := range found {
		ids[i] = cd.Comparable.(chunkPoint).id
	}
	return ids
}
