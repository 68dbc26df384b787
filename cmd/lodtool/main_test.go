package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshlod/internal/config"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// terrain is an n×n grid with a gentle height field so simplification has
// something to measure.
func terrain(t *testing.T, n int) *mesh.Mesh {
	t.Helper()
	var pos []math.Vec3
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			h := float32((x*7+y*13)%5) * 0.05
			pos = append(pos, math.Vec3{X: float32(x), Y: float32(y), Z: h})
		}
	}
	var idx []uint32
	row := uint32(n + 1)
	for y := range uint32(n) {
		for x := range uint32(n) {
			a := y*row + x
			idx = append(idx, a, a+1, a+row, a+1, a+row+1, a+row)
		}
	}
	m, err := mesh.New(pos, idx)
	require.NoError(t, err)
	return m
}

func simConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.Frames = 240
	cfg.Streaming.ChunkSize = 5
	cfg.Streaming.MemoryBudget = 4000
	cfg.Streaming.CheckInvariants = true
	cfg.Simplify.Workers = 2
	return cfg
}

func TestSimulate(t *testing.T) {
	cfg := simConfig()
	sum, err := simulate(context.Background(), cfg, terrain(t, 20))
	require.NoError(t, err)

	assert.Equal(t, 240, sum.Frames)
	require.Len(t, sum.Levels, 4)
	for i := 1; i < len(sum.Levels); i++ {
		assert.LessOrEqual(t, sum.Levels[i], sum.Levels[i-1])
	}

	total := 0
	for _, n := range sum.FramesAt {
		total += n
	}
	assert.Equal(t, 240, total)
	assert.GreaterOrEqual(t, sum.Switches, 2, "dollying out and back changes level both ways")
	assert.Greater(t, sum.MaxCoverage, float32(0))

	assert.Equal(t, 16, sum.Stream.Chunks)
	assert.LessOrEqual(t, sum.PeakMemory, cfg.Streaming.MemoryBudget)
	assert.Greater(t, sum.FocusFrames, 0, "camera looks at the mesh center")
	assert.LessOrEqual(t, sum.FocusResident, sum.FocusFrames)
	assert.Equal(t, 1, sum.Manager.GroupCount)

	var out bytes.Buffer
	sum.print(&out)
	assert.Contains(t, out.String(), "LOD switches:")
}

func TestSimulateRejectsBadChains(t *testing.T) {
	cfg := simConfig()
	cfg.Simplify.ChainRatios = nil
	_, err := simulate(context.Background(), cfg, terrain(t, 4))
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg.Simplify.ChainRatios = []float64{1, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2}
	_, err = simulate(context.Background(), cfg, terrain(t, 4))
	assert.Error(t, err)
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulate(ctx, simConfig(), terrain(t, 8))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeshCommands(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "terrain.stl")
	require.NoError(t, mesh.SaveSTL(in, terrain(t, 10), "terrain"))

	cfg := config.Default()

	require.NoError(t, cmdInfo(cfg, []string{in}))
	assert.Error(t, cmdInfo(cfg, nil))
	assert.Error(t, cmdInfo(cfg, []string{filepath.Join(dir, "missing.stl")}))

	out := filepath.Join(dir, "half.stl")
	require.NoError(t, cmdSimplify(cfg, []string{"-target", "100", in, out}))
	half, err := mesh.LoadSTL(out, cfg.Simplify.WeldEpsilon)
	require.NoError(t, err)
	assert.LessOrEqual(t, half.TriangleCount(), 100)

	lods := filepath.Join(dir, "lods")
	require.NoError(t, cmdChain(context.Background(), cfg, []string{in, lods}))
	for i := range cfg.Simplify.ChainRatios {
		m, err := mesh.LoadSTL(filepath.Join(lods, fmt.Sprintf("lod%d.stl", i)), cfg.Simplify.WeldEpsilon)
		require.NoError(t, err)
		assert.Positive(t, m.TriangleCount())
	}

	err = cmdStream(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "usage:"))
}
