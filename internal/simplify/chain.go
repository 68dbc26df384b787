package simplify

import (
	"context"
	"fmt"
	gomath "math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
)

// ChainOptions configures BuildChain.
type ChainOptions struct {
	Options
	// Workers bounds the number of levels simplified at once. Zero means
	// one per CPU.
	Workers int
}

// BuildChain produces one mesh per ratio of the source triangle count, in
// ratio order. Ratios of 1 or more return the source mesh itself. Each level
// runs its own Simplifier, so levels are built in parallel; simplification
// itself has no yield points, so ctx is only checked between levels.
func BuildChain(ctx context.Context, src *mesh.Mesh, ratios []float64, opts ChainOptions) ([]*mesh.Mesh, error) {
	for i, r := range ratios {
		if r <= 0 || gomath.IsNaN(r) {
			return nil, fmt.Errorf("%w: ratios[%d]=%g", ErrInvalidRatio, i, r)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	levels := make([]*mesh.Mesh, len(ratios))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ratio := range ratios {
		if ratio >= 1 {
			levels[i] = src
			continue
		}
		target := int(gomath.Round(float64(src.TriangleCount()) * ratio))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Mesh(src, target, opts.Options)
			if err != nil {
				return fmt.Errorf("level %d: %w", i, err)
			}
			levels[i] = res.ToMesh()
			logger.Debug("lod level built",
				zap.Int("level", i),
				zap.Float64("ratio", ratio),
				zap.Int("target", target),
				zap.Int("triangles", res.TriangleCount()))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return levels, nil
}
