package simplify

import (
	"container/heap"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// Simplifier errors.
var (
	ErrInvalidTarget    = errors.New("target triangle count must not be negative")
	ErrInvalidRatio     = errors.New("simplification ratio must be positive")
	ErrUnknownPlacement = errors.New("unknown collapse placement")
)

// Placement selects where a collapsed edge's surviving vertex is placed.
type Placement int

const (
	// PlacementMidpoint moves the survivor to the edge midpoint.
	PlacementMidpoint Placement = iota
	// PlacementOptimal solves for the quadric-minimizing position and falls
	// back to the midpoint when the system is singular.
	PlacementOptimal
)

// String returns the config name of the placement.
func (p Placement) String() string {
	switch p {
	case PlacementMidpoint:
		return "midpoint"
	case PlacementOptimal:
		return "optimal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// ParsePlacement converts a config name to a Placement.
func ParsePlacement(s string) (Placement, error) {
	switch strings.ToLower(s) {
	case "", "midpoint":
		return PlacementMidpoint, nil
	case "optimal":
		return PlacementOptimal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlacement, s)
	}
}

// Options configures a Simplifier.
type Options struct {
	Placement Placement
}

// Simplifier collapses edges of a loaded mesh until a triangle budget is met.
//
// Candidates live in a min-heap keyed by cost. Entries are invalidated
// lazily through per-vertex stamps: a collapse bumps the survivor's stamp and
// re-inserts only the edges around it.
//
// A Simplifier is single-use per LoadMesh and not safe for concurrent use.
type Simplifier struct {
	opts Options

	positions []math.Vec3
	indices   []uint32
	quadrics  []Quadric
	removed   []bool
	vertexMap []uint32
	stamps    []uint32

	triAlive []bool
	vertTris [][]uint32

	heap edgeHeap
	seq  uint64
	seen map[uint32]struct{}

	activeTriangles int
	collapses       int
}

// New creates a simplifier.
func New(opts Options) *Simplifier {
	return &Simplifier{
		opts: opts,
		seen: make(map[uint32]struct{}),
	}
}

// LoadMesh resets the simplifier, copies the input and accumulates the face
// quadrics of every triangle into its three vertices.
func (s *Simplifier) LoadMesh(positions []math.Vec3, indices []uint32) error {
	if err := mesh.ValidateIndices(len(positions), indices); err != nil {
		return err
	}

	n := len(positions)
	triCount := len(indices) / 3

	s.positions = append(make([]math.Vec3, 0, n), positions...)
	s.indices = append(make([]uint32, 0, len(indices)), indices...)
	s.quadrics = make([]Quadric, n)
	s.removed = make([]bool, n)
	s.vertexMap = make([]uint32, n)
	s.stamps = make([]uint32, n)
	s.triAlive = make([]bool, triCount)
	s.vertTris = make([][]uint32, n)
	s.heap = s.heap[:0]
	s.seq = 0
	s.activeTriangles = 0
	s.collapses = 0
	clear(s.seen)

	for v := range s.vertexMap {
		s.vertexMap[v] = uint32(v)
	}

	for t := range triCount {
		i0, i1, i2 := s.indices[3*t], s.indices[3*t+1], s.indices[3*t+2]

		// Zero-area faces still contribute their (degenerate) quadric.
		q := FaceQuadric(s.positions[i0], s.positions[i1], s.positions[i2])
		s.quadrics[i0] = s.quadrics[i0].Add(q)
		s.quadrics[i1] = s.quadrics[i1].Add(q)
		s.quadrics[i2] = s.quadrics[i2].Add(q)

		if i0 == i1 || i1 == i2 || i2 == i0 {
			continue
		}
		s.triAlive[t] = true
		s.activeTriangles++
		s.vertTris[i0] = append(s.vertTris[i0], uint32(t))
		s.vertTris[i1] = append(s.vertTris[i1], uint32(t))
		s.vertTris[i2] = append(s.vertTris[i2], uint32(t))
	}

	// Seed the heap with every undirected edge once, in triangle order.
	seen := make(map[[2]uint32]struct{}, triCount*3/2)
	for t := range triCount {
		if !s.triAlive[t] {
			continue
		}
		for e := 0; e < 3; e++ {
			a, b := s.indices[3*t+e], s.indices[3*t+(e+1)%3]
			key := [2]uint32{min(a, b), max(a, b)}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			s.heap = append(s.heap, s.evaluate(a, b))
		}
	}
	heap.Init(&s.heap)

	return nil
}

// Simplify collapses the cheapest edges until at most target triangles
// remain or no candidate is left. It returns the triangle count reached.
func (s *Simplifier) Simplify(target int) int {
	if target < 0 {
		target = 0
	}
	start := s.activeTriangles

	for s.activeTriangles > target {
		c, ok := s.popValid()
		if !ok {
			break
		}
		s.collapse(c)
	}

	if s.activeTriangles > target {
		logger.Debug("simplification stopped above target",
			zap.Int("target", target),
			zap.Int("reached", s.activeTriangles))
	}
	logger.Debug("mesh simplified",
		zap.Int("from", start),
		zap.Int("to", s.activeTriangles),
		zap.Int("collapses", s.collapses),
		zap.Stringer("placement", s.opts.Placement))

	return s.activeTriangles
}

// TriangleCount returns the number of non-degenerate triangles left.
func (s *Simplifier) TriangleCount() int {
	return s.activeTriangles
}

// Collapses returns the number of edge collapses performed since LoadMesh.
func (s *Simplifier) Collapses() int {
	return s.collapses
}

// BuildResult compacts the surviving vertices and remaps the triangles,
// dropping any that became degenerate.
func (s *Simplifier) BuildResult() *SimplifiedMesh {
	remap := make([]int32, len(s.positions))
	out := &SimplifiedMesh{
		Positions: make([]math.Vec3, 0, len(s.positions)),
	}
	for v := range s.positions {
		remap[v] = -1
		if s.removed[v] {
			continue
		}
		remap[v] = int32(len(out.Positions))
		out.Positions = append(out.Positions, s.positions[v])
	}

	out.Indices = make([]uint32, 0, s.activeTriangles*3)
	for t, alive := range s.triAlive {
		if !alive {
			continue
		}
		i0 := remap[s.find(s.indices[3*t])]
		i1 := remap[s.find(s.indices[3*t+1])]
		i2 := remap[s.find(s.indices[3*t+2])]
		if i0 < 0 || i1 < 0 || i2 < 0 || i0 == i1 || i1 == i2 || i2 == i0 {
			continue
		}
		out.Indices = append(out.Indices, uint32(i0), uint32(i1), uint32(i2))
	}
	return out
}

// find follows vertexMap to the surviving representative, compressing the
// path behind it.
func (s *Simplifier) find(v uint32) uint32 {
	root := v
	for s.vertexMap[root] != root {
		root = s.vertexMap[root]
	}
	for s.vertexMap[v] != root {
		next := s.vertexMap[v]
		s.vertexMap[v] = root
		v = next
	}
	return root
}

// evaluate prices the collapse of b into a.
func (s *Simplifier) evaluate(a, b uint32) candidate {
	q := s.quadrics[a].Add(s.quadrics[b])
	pos := s.positions[a].Midpoint(s.positions[b])
	if s.opts.Placement == PlacementOptimal {
		if p, ok := q.Optimal(); ok {
			pos = p
		}
	}
	c := candidate{
		v0:     a,
		v1:     b,
		cost:   q.Evaluate(pos),
		pos:    pos,
		stamp0: s.stamps[a],
		stamp1: s.stamps[b],
		seq:    s.seq,
	}
	s.seq++
	return c
}

func (s *Simplifier) popValid() (candidate, bool) {
	for s.heap.Len() > 0 {
		c := heap.Pop(&s.heap).(candidate)
		if s.removed[c.v0] || s.removed[c.v1] {
			continue
		}
		if c.stamp0 != s.stamps[c.v0] || c.stamp1 != s.stamps[c.v1] {
			continue
		}
		return c, true
	}
	return candidate{}, false
}

// collapse merges c.v1 into c.v0 and re-queues the survivor's edges.
func (s *Simplifier) collapse(c candidate) {
	a, b := c.v0, c.v1

	s.positions[a] = c.pos
	s.quadrics[a] = s.quadrics[a].Add(s.quadrics[b])
	s.removed[b] = true
	s.vertexMap[b] = a
	s.stamps[a]++
	s.collapses++

	for _, t := range s.vertTris[b] {
		if !s.triAlive[t] {
			continue
		}
		tri := s.indices[3*t : 3*t+3]
		if tri[0] == a || tri[1] == a || tri[2] == a {
			s.triAlive[t] = false
			s.activeTriangles--
			continue
		}
		for k := range tri {
			if tri[k] == b {
				tri[k] = a
			}
		}
		s.vertTris[a] = append(s.vertTris[a], t)
	}
	s.vertTris[b] = nil

	alive := s.vertTris[a][:0]
	for _, t := range s.vertTris[a] {
		if s.triAlive[t] {
			alive = append(alive, t)
		}
	}
	s.vertTris[a] = alive

	clear(s.seen)
	for _, t := range alive {
		for e := 0; e < 3; e++ {
			x, y := s.indices[3*t+uint32(e)], s.indices[3*t+uint32(e+1)%3]
			if x != a && y != a {
				continue
			}
			other := x
			if other == a {
				other = y
			}
			if _, ok := s.seen[other]; ok {
				continue
			}
			s.seen[other] = struct{}{}
			heap.Push(&s.heap, s.evaluate(x, y))
		}
	}
}
