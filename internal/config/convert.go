package config

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/internal/lod"
	"github.com/Faultbox/meshlod/internal/simplify"
	"github.com/Faultbox/meshlod/internal/stream"
)

// ErrInvalid reports a config value outside its allowed range.
var ErrInvalid = errors.New("invalid config")

// Validate checks values that cannot be fixed up silently.
func (c *Config) Validate() error {
	if _, err := lod.ParseTransitionType(c.LOD.TransitionType); err != nil {
		return fmt.Errorf("lod.transition_type: %w", err)
	}
	if _, err := simplify.ParsePlacement(c.Simplify.Placement); err != nil {
		return fmt.Errorf("simplify.placement: %w", err)
	}
	if c.LOD.Hysteresis < 1 {
		return fmt.Errorf("%w: lod.hysteresis %g is below 1", ErrInvalid, c.LOD.Hysteresis)
	}
	if c.LOD.TransitionDuration < 0 {
		return fmt.Errorf("%w: lod.transition_duration %g is negative", ErrInvalid, c.LOD.TransitionDuration)
	}
	if c.LOD.TriangleBudget < 0 {
		return fmt.Errorf("%w: lod.triangle_budget %d is negative", ErrInvalid, c.LOD.TriangleBudget)
	}
	if c.Streaming.MemoryBudget < 0 {
		return fmt.Errorf("%w: streaming.memory_budget %d is negative", ErrInvalid, c.Streaming.MemoryBudget)
	}
	for i, r := range c.Simplify.ChainRatios {
		if !(r > 0) {
			return fmt.Errorf("%w: simplify.chain_ratios[%d] %g is not positive", ErrInvalid, i, r)
		}
	}
	if c.Camera.FOVDegrees <= 0 || c.Camera.FOVDegrees >= 180 {
		return fmt.Errorf("%w: camera.fov_degrees %g", ErrInvalid, c.Camera.FOVDegrees)
	}
	return nil
}

// LODManager builds the LOD manager settings. The config must be valid.
func (c *Config) LODManager() lod.ManagerConfig {
	tt, _ := lod.ParseTransitionType(c.LOD.TransitionType)
	return lod.ManagerConfig{
		Group: lod.Config{
			Enabled:            c.LOD.Enabled,
			Transitions:        c.LOD.Transitions,
			TransitionType:     tt,
			TransitionDuration: c.LOD.TransitionDuration,
			HysteresisFactor:   c.LOD.Hysteresis,
			MaxDistance:        c.LOD.MaxDistance,
			Thresholds:         c.LOD.Thresholds,
			StrictOrdering:     c.LOD.StrictOrdering,
		},
		TriangleBudget: c.LOD.TriangleBudget,
		QualityLevel:   c.LOD.QualityLevel,
	}
}

// Stream builds the virtual mesh settings.
func (c *Config) Stream() stream.Config {
	return stream.Config{
		MemoryBudget:    c.Streaming.MemoryBudget,
		LoadPriority:    c.Streaming.LoadPriority,
		DiscardPriority: c.Streaming.DiscardPriority,
		MinViewDot:      c.Streaming.MinViewDot,
		MaxInFlight:     c.Streaming.MaxInFlight,
		LoadTimeout:     c.Streaming.LoadTimeout,
		CheckInvariants: c.Streaming.CheckInvariants,
	}
}

// Chain builds the simplifier chain options. The config must be valid.
func (c *Config) Chain() simplify.ChainOptions {
	p, _ := simplify.ParsePlacement(c.Simplify.Placement)
	return simplify.ChainOptions{
		Options: simplify.Options{Placement: p},
		Workers: c.Simplify.Workers,
	}
}

// FOV returns the camera field of view in radians.
func (c *Config) FOV() float32 {
	return c.Camera.FOVDegrees * math32.Pi / 180
}
