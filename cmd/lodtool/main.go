// lodtool builds LOD chains for STL meshes and simulates LOD selection and
// chunk streaming against an orbiting camera.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/config"
	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/internal/simplify"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, args := args[0], args[1:]
	switch command {
	case "info":
		err = cmdInfo(cfg, args)
	case "simplify":
		err = cmdSimplify(cfg, args)
	case "chain":
		err = cmdChain(ctx, cfg, args)
	case "stream":
		err = cmdStream(ctx, cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`lodtool - mesh LOD and streaming utility

Usage:
  lodtool [global options] <command> [options]

Commands:
  info <mesh.stl>                          Show mesh statistics
  simplify [-target N | -ratio r] <in> <out>  Simplify a mesh
  chain <mesh.stl> [outdir]                Build the LOD chain, optionally write lodN.stl
  stream <mesh.stl>                        Simulate LOD selection and chunk streaming

Global options:
  -config <file>     Config file (default ./config.yaml)
  -debug             Debug logging and invariant checks
  -budget N          LOD triangle budget
  -memory N          Streaming memory budget in bytes
  -placement p       midpoint or optimal
  -quality 0-2       Quality level
  -frames N          Frames to simulate

Examples:
  lodtool info bunny.stl
  lodtool -placement optimal simplify -ratio 0.25 bunny.stl bunny_lo.stl
  lodtool chain bunny.stl ./lods
  lodtool -memory 65536 -frames 300 stream bunny.stl`)
}

func loadMesh(cfg *config.Config, path string) (*mesh.Mesh, error) {
	m, err := mesh.LoadSTL(path, cfg.Simplify.WeldEpsilon)
	if err != nil {
		return nil, err
	}
	logger.Info("mesh loaded",
		zap.String("path", path),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()))
	return m, nil
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lodtool info <mesh.stl>")
	}

	m, err := loadMesh(cfg, args[0])
	if err != nil {
		return err
	}

	size := m.Bounds.Size()
	fmt.Printf("Mesh:      %s\n", args[0])
	fmt.Printf("Vertices:  %d\n", m.VertexCount())
	fmt.Printf("Triangles: %d\n", m.TriangleCount())
	fmt.Printf("Memory:    %.2f KB\n", float64(m.ByteSize())/1024)
	fmt.Printf("Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
		m.Bounds.Min.X, m.Bounds.Min.Y, m.Bounds.Min.Z,
		m.Bounds.Max.X, m.Bounds.Max.Y, m.Bounds.Max.Z)
	fmt.Printf("Size:      %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	fmt.Printf("Radius:    %.3f\n", m.Bounds.HalfExtent())
	return nil
}

func cmdSimplify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	target := fs.Int("target", -1, "Target triangle count")
	ratio := fs.Float64("ratio", 0.5, "Target as a fraction of the input triangle count")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: lodtool simplify [-target N | -ratio r] <in.stl> <out.stl>")
	}

	m, err := loadMesh(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	n := *target
	if n < 0 {
		if !(*ratio > 0) {
			return fmt.Errorf("%w: %g", simplify.ErrInvalidRatio, *ratio)
		}
		n = int(float64(m.TriangleCount())*(*ratio) + 0.5)
	}

	start := time.Now()
	out, err := simplify.Mesh(m, n, cfg.Chain().Options)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := mesh.SaveSTL(fs.Arg(1), out.ToMesh(), "lodtool"); err != nil {
		return err
	}

	fmt.Printf("Triangles: %d -> %d (target %d)\n", m.TriangleCount(), out.TriangleCount(), n)
	fmt.Printf("Vertices:  %d -> %d\n", m.VertexCount(), out.VertexCount())
	fmt.Printf("Time:      %v\n", elapsed.Round(time.Millisecond))
	return nil
}

func cmdChain(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lodtool chain <mesh.stl> [outdir]")
	}

	m, err := loadMesh(cfg, args[0])
	if err != nil {
		return err
	}

	start := time.Now()
	levels, err := simplify.BuildChain(ctx, m, cfg.Simplify.ChainRatios, cfg.Chain())
	if err != nil {
		return err
	}
	fmt.Printf("Built %d levels in %v (%s placement)\n",
		len(levels), time.Since(start).Round(time.Millisecond), cfg.Chain().Placement)
	fmt.Println()
	fmt.Printf("  %-6s %-8s %10s %10s %10s\n", "Level", "Ratio", "Triangles", "Vertices", "KB")

	for i, l := range levels {
		fmt.Printf("  %-6d %-8.3f %10d %10d %10.1f\n",
			i, cfg.Simplify.ChainRatios[i], l.TriangleCount(), l.VertexCount(), float64(l.ByteSize())/1024)
	}

	if len(args) < 2 {
		return nil
	}
	outDir := args[1]
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	for i, l := range levels {
		path := filepath.Join(outDir, fmt.Sprintf("lod%d.stl", i))
		if err := mesh.SaveSTL(path, l, fmt.Sprintf("lod%d", i)); err != nil {
			return err
		}
	}
	fmt.Printf("\nWrote %d files to %s\n", len(levels), outDir)
	return nil
}

func cmdStream(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lodtool stream <mesh.stl>")
	}

	m, err := loadMesh(cfg, args[0])
	if err != nil {
		return err
	}

	sum, err := simulate(ctx, cfg, m)
	if err != nil {
		return err
	}
	sum.print(os.Stdout)
	return nil
}
