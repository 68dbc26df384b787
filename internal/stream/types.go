// Package stream keeps a large mesh resident as spatial chunks under a fixed
// memory budget. Chunks are prioritized by camera distance and view angle,
// loaded through a Loader and evicted lowest priority first.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

var (
	ErrUnknownChunk   = errors.New("unknown chunk")
	ErrInvalidState   = errors.New("chunk in invalid state")
	ErrMemoryMismatch = errors.New("memory usage does not match resident chunks")
	ErrNoLoader       = errors.New("no chunk loader configured")
	ErrClosed         = errors.New("virtual mesh closed")
)

// ChunkID indexes a chunk within its VirtualMesh.
type ChunkID uint32

// ChunkState is the residency state of a chunk.
type ChunkState uint8

const (
	StateUnloaded ChunkState = iota
	StateLoading
	StateLoaded
	// StateUnloading marks a chunk whose load was cancelled while the loader
	// is still running. It returns to StateUnloaded once the result is drained.
	StateUnloading
)

func (s ChunkState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateUnloading:
		return "unloading"
	default:
		return fmt.Sprintf("ChunkState(%d)", uint8(s))
	}
}

// ChunkData is the geometry of one chunk.
type ChunkData struct {
	Vertices []math.Vec3
	Indices  []uint32
}

// ByteSize is the resident cost of the buffers.
func (d ChunkData) ByteSize() int64 {
	return mesh.BufferSize(len(d.Vertices), len(d.Indices))
}

// MeshChunk is one spatial piece of a VirtualMesh. Vertices and Indices are
// non-nil exactly when State is StateLoaded. Callers must treat the chunk as
// read-only.
type MeshChunk struct {
	ID              ChunkID
	Bounds          math.AABB
	LODLevel        int
	Priority        float32
	State           ChunkState
	LastAccessFrame uint64

	Vertices []math.Vec3
	Indices  []uint32

	// sizeHint is the byte size seen on the last load, 0 if never loaded.
	sizeHint int64
}

// Resident reports whether the chunk's buffers are in memory.
func (c *MeshChunk) Resident() bool {
	return c.State == StateLoaded
}

// ByteSize is the size of the resident buffers.
func (c *MeshChunk) ByteSize() int64 {
	return mesh.BufferSize(len(c.Vertices), len(c.Indices))
}

// Config holds streaming tunables.
type Config struct {
	// MemoryBudget is the resident byte budget.
	MemoryBudget int64
	// LoadPriority is the minimum priority for a chunk to be requested.
	LoadPriority float32
	// DiscardPriority drops completed loads whose chunk fell below it.
	DiscardPriority float32
	// MinViewDot floors the view term so chunks behind the camera keep a
	// nonzero priority.
	MinViewDot float32
	// MaxInFlight bounds outstanding loads.
	MaxInFlight int
	// LoadTimeout bounds a single load; 0 means no timeout.
	LoadTimeout time.Duration
	// CheckInvariants validates memory accounting after every load and eviction.
	CheckInvariants bool
}

// DefaultConfig returns a 64MB budget with four concurrent loads.
func DefaultConfig() Config {
	return Config{
		MemoryBudget:    64 << 20,
		LoadPriority:    0,
		DiscardPriority: 0,
		MinViewDot:      0.1,
		MaxInFlight:     4,
		LoadTimeout:     5 * time.Second,
	}
}

// Stats is a snapshot of streaming counters.
type Stats struct {
	Chunks       int
	Resident     int
	Loading      int
	MemoryUsage  int64
	MemoryBudget int64
	Loads        uint64
	Evictions    uint64
	Failures     uint64
	Discarded    uint64
}
