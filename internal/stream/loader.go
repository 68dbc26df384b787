package stream

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"
)

// Loader fetches chunk geometry. Load is called from its own goroutine and
// must honor ctx cancellation.
type Loader interface {
	Load(ctx context.Context, id ChunkID, lodLevel int) (ChunkData, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, id ChunkID, lodLevel int) (ChunkData, error)

func (f LoaderFunc) Load(ctx context.Context, id ChunkID, lodLevel int) (ChunkData, error) {
	return f(ctx, id, lodLevel)
}

// MemoryLoader serves partitioned geometry from memory, optionally after a
// simulated latency. Chunk IDs index the parts in order.
type MemoryLoader struct {
	parts   []Part
	latency time.Duration
	loads   atomic.Uint64
}

// NewMemoryLoader serves the given parts.
func NewMemoryLoader(parts []Part, latency time.Duration) *MemoryLoader {
	return &MemoryLoader{parts: parts, latency: latency}
}

func (l *MemoryLoader) Load(ctx context.Context, id ChunkID, _ int) (ChunkData, error) {
	if int(id) >= len(l.parts) {
		return ChunkData{}, fmt.Errorf("load chunk %d: %w", id, ErrUnknownChunk)
	}

	if l.latency > 0 {
		timer := time.NewTimer(l.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChunkData{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return ChunkData{}, err
	}

	l.loads.Add(1)
	p := l.parts[id]
	// Callers own the returned buffers.
	return ChunkData{
		Vertices: slices.Clone(p.Data.Vertices),
		Indices:  slices.Clone(p.Data.Indices),
	}, nil
}

// Loads counts completed loads.
func (l *MemoryLoader) Loads() uint64 {
	return l.loads.Load()
}
