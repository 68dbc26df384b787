package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/config"
	"github.com/Faultbox/meshlod/internal/engine/camera"
	"github.com/Faultbox/meshlod/internal/engine/picking"
	"github.com/Faultbox/meshlod/internal/lod"
	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/internal/simplify"
	"github.com/Faultbox/meshlod/internal/stream"
)

// dollyRange is how far the camera pulls back, in multiples of the fitted
// distance, over one simulation.
const dollyRange = 8

// summary collects the outcome of a stream simulation.
type summary struct {
	Frames       int
	Levels       []int // triangles per level
	FramesAt     []int // frames spent on each level
	Switches     int
	PeakMemory   int64
	MemoryBudget int64
	MaxCoverage  float32
	// Frames where the view ray hit a chunk, and how many of those found it
	// resident.
	FocusFrames   int
	FocusResident int
	Stream        stream.Stats
	Manager       lod.ManagerStats
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "Frames:       %d\n", s.Frames)
	fmt.Fprintf(w, "LOD switches: %d\n", s.Switches)
	fmt.Fprintf(w, "Max coverage: %.3f\n", s.MaxCoverage)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-6s %10s %8s\n", "Level", "Triangles", "Frames")
	for i, tris := range s.Levels {
		fmt.Fprintf(w, "  %-6d %10d %8d\n", i, tris, s.FramesAt[i])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Chunks:       %d (%d resident)\n", s.Stream.Chunks, s.Stream.Resident)
	fmt.Fprintf(w, "Loads:        %d (%d failed, %d discarded)\n", s.Stream.Loads, s.Stream.Failures, s.Stream.Discarded)
	fmt.Fprintf(w, "Evictions:    %d\n", s.Stream.Evictions)
	fmt.Fprintf(w, "Focus hits:   %d of %d frames resident\n", s.FocusResident, s.FocusFrames)
	fmt.Fprintf(w, "Peak memory:  %.1f KB of %.1f KB\n", float64(s.PeakMemory)/1024, float64(s.MemoryBudget)/1024)
	fmt.Fprintf(w, "Triangles:    %d of %d budget (%.1f%%)\n",
		s.Manager.CurrentTriangles, s.Manager.TriangleBudget, s.Manager.BudgetUsage*100)
}

// simulate builds an LOD chain for m, partitions it into chunks and runs the
// configured number of frames with the camera orbiting and dollying out and
// back in.
func simulate(ctx context.Context, cfg *config.Config, m *mesh.Mesh) (summary, error) {
	levels, err := simplify.BuildChain(ctx, m, cfg.Simplify.ChainRatios, cfg.Chain())
	if err != nil {
		return summary{}, err
	}
	if len(levels) == 0 {
		return summary{}, fmt.Errorf("%w: simplify.chain_ratios is empty", config.ErrInvalid)
	}
	if len(levels) > lod.MaxLevels {
		return summary{}, fmt.Errorf("%d chain ratios: %w", len(levels), lod.ErrTooManyLODLevels)
	}

	cam := camera.NewOrbitCamera()
	cam.FOV = cfg.FOV()
	cam.ViewportHeight = cfg.Camera.ViewportHeight
	cam.FitToBounds(m.Bounds)
	if cfg.Camera.Distance > 0 {
		cam.SetDistance(cfg.Camera.Distance)
	}
	baseDistance := cam.Distance
	cam.MaxDistance = max(cam.MaxDistance, baseDistance*dollyRange)

	reg := mesh.NewRegistry()
	mgr := lod.NewManager(reg, cfg.LODManager())
	_, group := mgr.CreateGroup()

	groupCfg := group.Config()
	if len(groupCfg.Thresholds) == 0 {
		// Spread the levels evenly across the dolly range.
		n := float32(len(levels))
		for i := 1; i < len(levels); i++ {
			groupCfg.Thresholds = append(groupCfg.Thresholds,
				baseDistance*(1+(dollyRange-1)*float32(i)/n))
		}
		groupCfg.MaxDistance = max(groupCfg.MaxDistance, baseDistance*dollyRange*2)
		group.SetConfig(groupCfg)
	}
	for _, l := range levels {
		if err := group.AppendLevel(reg.Register(l)); err != nil {
			return summary{}, err
		}
	}

	parts := stream.Partition(m, cfg.Streaming.ChunkSize)
	vm := stream.NewVirtualMesh(cfg.Stream(), stream.NewMemoryLoader(parts, cfg.Streaming.LoadLatency))
	defer vm.Close()
	for _, p := range parts {
		vm.AddChunk(p.Bounds, 0)
	}

	sum := summary{
		Frames:       cfg.Simulation.Frames,
		FramesAt:     make([]int, len(levels)),
		MemoryBudget: cfg.Streaming.MemoryBudget,
	}
	for _, l := range levels {
		sum.Levels = append(sum.Levels, l.TriangleCount())
	}

	dt := cfg.Simulation.FrameTime
	prev := group.CurrentLevel()
	for frame := 0; frame < cfg.Simulation.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		phase := 2 * math32.Pi * float32(frame) / float32(cfg.Simulation.Frames)
		cam.Orbit(cfg.Camera.OrbitSpeed*dt, 0)
		cam.SetDistance(baseDistance * (1 + (dollyRange-1)*(1-math32.Cos(phase))/2))
		view := cam.View()

		mgr.Update(dt, view.Position)
		vm.UpdatePriorities(view.Position, view.Forward)
		vm.ProcessStreaming()

		drawn := 0
		vm.VisitResident(func(c *stream.MeshChunk) bool {
			drawn += len(c.Indices) / 3
			return true
		})

		if id, _, ok := picking.PickChunk(vm, picking.CenterRay(view)); ok {
			sum.FocusFrames++
			if c, _ := vm.Chunk(id); c.Resident() {
				sum.FocusResident++
			}
		}

		cur := group.CurrentLevel()
		if cur != prev {
			sum.Switches++
			prev = cur
		}
		sum.FramesAt[cur]++
		sum.PeakMemory = max(sum.PeakMemory, vm.MemoryUsage())
		coverage := group.ScreenCoverage(view.Position, group.ObjectPosition(), view.FOV, view.ViewportHeight)
		sum.MaxCoverage = max(sum.MaxCoverage, coverage)

		logger.Debug("frame",
			zap.Int("frame", frame),
			zap.Float32("distance", cam.Distance),
			zap.Int("level", cur),
			zap.Float32("blend", group.TransitionBlend()),
			zap.Float32("coverage", coverage),
			zap.Int("chunk_triangles", drawn),
			zap.Int64("memory", vm.MemoryUsage()))
	}

	if err := vm.Validate(); err != nil {
		return sum, err
	}
	sum.Stream = vm.Stats()
	sum.Manager = mgr.Stats()

	logger.Info("simulation finished",
		zap.Int("frames", sum.Frames),
		zap.Int("switches", sum.Switches),
		zap.Uint64("loads", sum.Stream.Loads),
		zap.Uint64("evictions", sum.Stream.Evictions))
	return sum, nil
}
