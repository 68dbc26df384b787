package mesh

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshlod/pkg/math"
)

func quad() ([]math.Vec3, []uint32) {
	return []math.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 0},
		}, []uint32{
			0, 1, 2,
			0, 2, 3,
		}
}

func TestNew(t *testing.T) {
	pos, idx := quad()
	m, err := New(pos, idx)
	require.NoError(t, err)

	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 2, m.TriangleCount())
	assert.Equal(t, int64(4*VertexStride+6*IndexStride), m.ByteSize())
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 0}, m.Bounds.Max)
}

func TestNewRejectsBadIndices(t *testing.T) {
	pos, _ := quad()

	tests := []struct {
		name    string
		indices []uint32
		wantErr error
	}{
		{"partial triangle", []uint32{0, 1}, ErrInvalidIndices},
		{"out of range", []uint32{0, 1, 4}, ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(pos, tt.indices)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWeldMergesCoincidentCorners(t *testing.T) {
	pos, idx := quad()
	m, err := New(pos, idx)
	require.NoError(t, err)

	soup := m.Soup()
	require.Len(t, soup, 2)

	// Nudge a shared corner by less than the weld quantum.
	soup[1][0].X += 1e-7

	welded := Weld(soup, 1e-5)
	assert.Equal(t, 4, welded.VertexCount())
	assert.Equal(t, 2, welded.TriangleCount())
	assert.Equal(t, idx, welded.Indices)
}

func TestRegistry(t *testing.T) {
	pos, idx := quad()
	m, err := New(pos, idx)
	require.NoError(t, err)

	reg := NewRegistry()
	h := reg.Register(m)
	assert.NotEqual(t, NoMesh, h)

	got, ok := reg.Lookup(h)
	require.True(t, ok)
	assert.Same(t, m, got)

	_, ok = reg.Lookup(NoMesh)
	assert.False(t, ok)

	require.NoError(t, reg.Release(h))
	_, ok = reg.Lookup(h)
	assert.False(t, ok, "released handle must not resolve")
	assert.ErrorIs(t, reg.Release(h), ErrUnknownHandle)

	h2 := reg.Register(m)
	assert.NotEqual(t, h, h2, "handles are not reused")
	assert.Equal(t, 1, reg.Len())
}

func TestSTLRoundTrip(t *testing.T) {
	pos, idx := quad()
	m, err := New(pos, idx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSTL(&buf, m, "quad"))

	got, err := ReadSTL(bytes.NewReader(buf.Bytes()), DefaultWeldEpsilon)
	require.NoError(t, err)

	assert.Equal(t, m.TriangleCount(), got.TriangleCount())
	assert.Equal(t, m.VertexCount(), got.VertexCount())
	assert.Equal(t, m.Bounds, got.Bounds)
}
