package simplify

import (
	"context"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// gridMesh builds a flat n×n quad grid on the XY plane.
func gridMesh(n int) *mesh.Mesh {
	var pos []math.Vec3
	var idx []uint32
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			pos = append(pos, math.Vec3{X: float32(x), Y: float32(y)})
		}
	}
	row := uint32(n + 1)
	for y := range uint32(n) {
		for x := range uint32(n) {
			i := y*row + x
			idx = append(idx, i, i+1, i+row+1, i, i+row+1, i+row)
		}
	}
	m, err := mesh.New(pos, idx)
	if err != nil {
		panic(err)
	}
	return m
}

// sphereMesh builds a UV sphere of the given radius.
func sphereMesh(rings, segments int, radius float32) *mesh.Mesh {
	pos := []math.Vec3{{Y: radius}}
	for r := 1; r < rings; r++ {
		phi := gomath.Pi * float64(r) / float64(rings)
		for s := range segments {
			theta := 2 * gomath.Pi * float64(s) / float64(segments)
			pos = append(pos, math.Vec3{
				X: radius * float32(gomath.Sin(phi)*gomath.Cos(theta)),
				Y: radius * float32(gomath.Cos(phi)),
				Z: radius * float32(gomath.Sin(phi)*gomath.Sin(theta)),
			})
		}
	}
	pos = append(pos, math.Vec3{Y: -radius})
	bottom := uint32(len(pos) - 1)

	ring := func(r, s int) uint32 { return uint32(1 + (r-1)*segments + s%segments) }

	var idx []uint32
	for s := range segments {
		idx = append(idx, 0, ring(1, s+1), ring(1, s))
	}
	for r := 1; r < rings-1; r++ {
		for s := range segments {
			a, b := ring(r, s), ring(r, s+1)
			c, d := ring(r+1, s), ring(r+1, s+1)
			idx = append(idx, a, b, d, a, d, c)
		}
	}
	for s := range segments {
		idx = append(idx, bottom, ring(rings-1, s), ring(rings-1, s+1))
	}

	m, err := mesh.New(pos, idx)
	if err != nil {
		panic(err)
	}
	return m
}

func assertWellFormed(t *testing.T, m *SimplifiedMesh) {
	t.Helper()
	require.Zero(t, len(m.Indices)%3, "index count must be a multiple of 3")
	for i := 0; i < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		assert.Less(t, int(a), m.VertexCount())
		assert.Less(t, int(b), m.VertexCount())
		assert.Less(t, int(c), m.VertexCount())
		assert.False(t, a == b || b == c || c == a, "triangle %d is degenerate: %d %d %d", i/3, a, b, c)
	}
}

func TestQuadricZeroOnPlane(t *testing.T) {
	q := FaceQuadric(
		math.Vec3{X: 0, Y: 0, Z: 0},
		math.Vec3{X: 1, Y: 0, Z: 0},
		math.Vec3{X: 0, Y: 1, Z: 0},
	)

	for _, p := range []math.Vec3{{X: 0.3, Y: 0.2}, {X: -5, Y: 7}, {X: 100, Y: -100}} {
		assert.InDelta(t, 0, q.Evaluate(p), 1e-9, "point %v lies on the plane", p)
	}

	prev := 0.0
	for _, dz := range []float32{0.1, 0.2, 0.5, 1, 3} {
		e := q.Evaluate(math.Vec3{X: 0.3, Y: 0.2, Z: dz})
		assert.Greater(t, e, prev, "error must grow with displacement %v", dz)
		assert.InDelta(t, float64(dz)*float64(dz), e, 1e-6)
		prev = e
	}
}

func TestQuadricAddIsLinear(t *testing.T) {
	a := PlaneQuadric(1, 0, 0, -1)
	b := PlaneQuadric(0, 1, 0, -2)
	p := math.Vec3{X: 3, Y: -1, Z: 4}

	assert.InDelta(t, a.Evaluate(p)+b.Evaluate(p), a.Add(b).Evaluate(p), 1e-9)
}

func TestQuadricOptimal(t *testing.T) {
	q := PlaneQuadric(1, 0, 0, -1).
		Add(PlaneQuadric(0, 1, 0, -2)).
		Add(PlaneQuadric(0, 0, 1, -3))

	p, ok := q.Optimal()
	require.True(t, ok)
	assert.True(t, p.ApproxEqual(math.Vec3{X: 1, Y: 2, Z: 3}, 1e-5), "got %v", p)
	assert.InDelta(t, 0, q.Evaluate(p), 1e-9)

	_, ok = PlaneQuadric(0, 0, 1, 0).Optimal()
	assert.False(t, ok, "a single plane has no unique minimizer")
}

func TestSimplifyQuadCollapsesFirstEdgeToMidpoint(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.LoadMesh(
		[]math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		[]uint32{0, 1, 2, 0, 2, 3},
	))

	got := s.Simplify(1)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, s.Collapses())

	res := s.BuildResult()
	assert.Equal(t, []math.Vec3{{X: 0.5, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, res.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, res.Indices)
}

func TestSimplifyReachesTarget(t *testing.T) {
	tests := []struct {
		name      string
		mesh      *mesh.Mesh
		target    int
		placement Placement
	}{
		{"grid half", gridMesh(8), 64, PlacementMidpoint},
		{"grid tiny", gridMesh(8), 2, PlacementMidpoint},
		{"sphere midpoint", sphereMesh(12, 16, 5), 100, PlacementMidpoint},
		{"sphere optimal", sphereMesh(12, 16, 5), 100, PlacementOptimal},
		{"sphere zero", sphereMesh(6, 8, 1), 0, PlacementOptimal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Mesh(tt.mesh, tt.target, Options{Placement: tt.placement})
			require.NoError(t, err)

			assert.LessOrEqual(t, res.TriangleCount(), tt.mesh.TriangleCount())
			assert.LessOrEqual(t, res.TriangleCount(), tt.target)
			assert.LessOrEqual(t, res.VertexCount(), tt.mesh.VertexCount())
			assertWellFormed(t, res)
		})
	}
}

func TestSimplifyTargetAboveCountIsNoop(t *testing.T) {
	src := sphereMesh(6, 8, 1)
	s := New(Options{})
	require.NoError(t, s.LoadMesh(src.Positions, src.Indices))

	assert.Equal(t, src.TriangleCount(), s.Simplify(src.TriangleCount()+10))
	assert.Zero(t, s.Collapses())

	res := s.BuildResult()
	assert.Equal(t, src.Positions, res.Positions)
	assert.Equal(t, src.Indices, res.Indices)
}

func TestSimplifyKeepsVertexMapConsistent(t *testing.T) {
	src := sphereMesh(10, 12, 2)
	s := New(Options{Placement: PlacementOptimal})
	require.NoError(t, s.LoadMesh(src.Positions, src.Indices))
	s.Simplify(src.TriangleCount() / 4)
	_ = s.BuildResult()

	for v := range s.vertexMap {
		root := s.find(uint32(v))
		assert.False(t, s.removed[root], "vertex %d maps to removed vertex %d", v, root)
		assert.Equal(t, !s.removed[v], s.vertexMap[v] == uint32(v), "vertex %d", v)
	}
}

func TestSimplifyIsDeterministic(t *testing.T) {
	src := sphereMesh(10, 12, 2)

	a, err := Mesh(src, 60, Options{})
	require.NoError(t, err)
	b, err := Mesh(src, 60, Options{})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSimplifyEmptyInput(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.LoadMesh(nil, nil))

	assert.Equal(t, 0, s.Simplify(10))
	res := s.BuildResult()
	assert.Zero(t, res.VertexCount())
	assert.Zero(t, res.TriangleCount())
}

func TestSimplifyDropsDegenerateInputTriangles(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.LoadMesh(
		[]math.Vec3{{X: 0}, {X: 1}, {Y: 1}},
		[]uint32{0, 1, 2, 0, 0, 1},
	))
	assert.Equal(t, 1, s.TriangleCount())

	res := s.BuildResult()
	assert.Equal(t, []uint32{0, 1, 2}, res.Indices)
}

func TestLoadMeshRejectsInvalidIndices(t *testing.T) {
	s := New(Options{})
	err := s.LoadMesh([]math.Vec3{{}, {X: 1}}, []uint32{0, 1, 2})
	assert.ErrorIs(t, err, mesh.ErrIndexOutOfRange)

	_, err = Mesh(gridMesh(1), -1, Options{})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestParsePlacement(t *testing.T) {
	tests := []struct {
		in      string
		want    Placement
		wantErr bool
	}{
		{"", PlacementMidpoint, false},
		{"midpoint", PlacementMidpoint, false},
		{"Optimal", PlacementOptimal, false},
		{"centroid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlacement(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPlacement)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParsePlacement(got.String())))
		})
	}
}

func TestBuildChain(t *testing.T) {
	src := sphereMesh(12, 16, 5)

	levels, err := BuildChain(context.Background(), src, []float64{1, 0.5, 0.25, 0.1}, ChainOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, levels, 4)

	assert.Same(t, src, levels[0])
	for i := 1; i < len(levels); i++ {
		assert.LessOrEqual(t, levels[i].TriangleCount(), levels[i-1].TriangleCount(), "level %d", i)
		assert.False(t, levels[i].Bounds.IsEmpty(), "level %d bounds", i)
	}
	assert.LessOrEqual(t, levels[3].TriangleCount(), int(gomath.Round(float64(src.TriangleCount())*0.1)))
}

func TestBuildChainRejectsBadRatio(t *testing.T) {
	_, err := BuildChain(context.Background(), gridMesh(2), []float64{1, 0}, ChainOptions{})
	assert.ErrorIs(t, err, ErrInvalidRatio)
}

func TestBuildChainHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildChain(ctx, gridMesh(4), []float64{0.5}, ChainOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
