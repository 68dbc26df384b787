// Package lod selects per-object detail levels by camera distance, with
// hysteresis against popping and timed blends between levels.
package lod

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/meshlod/internal/mesh"
)

// MaxLevels is the number of detail levels a Group can hold.
const MaxLevels = 8

// Billboard geometry is a single camera-facing quad.
const (
	billboardVertices  = 4
	billboardTriangles = 2
)

// LOD errors.
var (
	ErrTooManyLODLevels      = errors.New("too many LOD levels")
	ErrUnknownMesh           = errors.New("mesh handle does not resolve")
	ErrInvalidRange          = errors.New("LOD distance range is invalid")
	ErrUnknownGroup          = errors.New("unknown LOD group")
	ErrUnknownTransitionType = errors.New("unknown transition type")
)

// TransitionType tells the renderer how to blend two levels. Selection does
// not depend on it.
type TransitionType int

const (
	TransitionNone      TransitionType = iota // Hard switch
	TransitionCrossfade                       // Alpha blend both levels
	TransitionMorph                           // Geomorph vertex positions
	TransitionDither                          // Screen-door dissolve
)

// String returns the config name of the transition type.
func (t TransitionType) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionCrossfade:
		return "crossfade"
	case TransitionMorph:
		return "morph"
	case TransitionDither:
		return "dither"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// ParseTransitionType converts a config name to a TransitionType.
func ParseTransitionType(s string) (TransitionType, error) {
	switch strings.ToLower(s) {
	case "none":
		return TransitionNone, nil
	case "", "crossfade":
		return TransitionCrossfade, nil
	case "morph":
		return TransitionMorph, nil
	case "dither":
		return TransitionDither, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransitionType, s)
	}
}

// Config holds per-group selection settings.
type Config struct {
	Enabled     bool
	Transitions bool

	TransitionType TransitionType
	// TransitionDuration is the blend time in seconds.
	TransitionDuration float32

	// HysteresisFactor scales level boundaries before a switch is accepted.
	// Values above 1 widen the dead zone.
	HysteresisFactor float32

	// MaxDistance bounds billboard levels and AppendLevel's last range.
	MaxDistance float32

	// Thresholds are the default level boundaries used by AppendLevel.
	Thresholds []float32

	// StrictOrdering rejects levels whose ranges are inverted or overlap the
	// previous level.
	StrictOrdering bool

	// QualityBias is set by Manager.SetQualityLevel. It is stored for
	// selection policies but not applied to thresholds.
	QualityBias float32
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		Transitions:        true,
		TransitionType:     TransitionCrossfade,
		TransitionDuration: 0.5,
		HysteresisFactor:   1.1,
		MaxDistance:        1000,
		Thresholds:         []float32{10, 50, 200, 1000},
	}
}

// Level is one detail level of a Group.
type Level struct {
	Mesh          mesh.Handle // NoMesh for billboards
	MinDistance   float32
	MaxDistance   float32
	VertexCount   int
	TriangleCount int
	IsBillboard   bool
}

// Contains reports whether distance falls in [MinDistance, MaxDistance).
func (l Level) Contains(distance float32) bool {
	return distance >= l.MinDistance && distance < l.MaxDistance
}

// GroupStats is a diagnostic snapshot of a Group.
type GroupStats struct {
	LevelCount         int
	CurrentLevel       int
	TargetLevel        int
	TransitionProgress float32
	Transitioning      bool
	CurrentVertices    int
	CurrentTriangles   int
	IsBillboard        bool
	BoundingRadius     float32
}
