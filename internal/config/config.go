// Package config handles lodtool configuration loading and management.
package config

import "time"

// Config holds all tool settings.
type Config struct {
	LOD        LODConfig        `yaml:"lod"`
	Streaming  StreamingConfig  `yaml:"streaming"`
	Simplify   SimplifyConfig   `yaml:"simplify"`
	Camera     CameraConfig     `yaml:"camera"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LODConfig holds level selection and transition settings.
type LODConfig struct {
	Enabled            bool      `yaml:"enabled"`
	Transitions        bool      `yaml:"transitions"`
	TransitionType     string    `yaml:"transition_type"` // none, crossfade, morph, dither
	TransitionDuration float32   `yaml:"transition_duration"`
	Hysteresis         float32   `yaml:"hysteresis"`
	MaxDistance        float32   `yaml:"max_distance"`
	Thresholds         []float32 `yaml:"thresholds"` // empty = spread over the camera range
	TriangleBudget     int       `yaml:"triangle_budget"`
	QualityLevel       int       `yaml:"quality_level"`
	StrictOrdering     bool      `yaml:"strict_ordering"`
}

// StreamingConfig holds virtual mesh settings.
type StreamingConfig struct {
	MemoryBudget    int64         `yaml:"memory_budget"` // bytes
	ChunkSize       float32       `yaml:"chunk_size"`    // world units, 0 = one chunk
	LoadPriority    float32       `yaml:"load_priority"`
	DiscardPriority float32       `yaml:"discard_priority"`
	MinViewDot      float32       `yaml:"min_view_dot"`
	MaxInFlight     int           `yaml:"max_in_flight"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
	LoadLatency     time.Duration `yaml:"load_latency"` // simulated, for the in-memory loader
	CheckInvariants bool          `yaml:"check_invariants"`
}

// SimplifyConfig holds mesh simplification settings.
type SimplifyConfig struct {
	Placement   string    `yaml:"placement"` // midpoint, optimal
	ChainRatios []float64 `yaml:"chain_ratios"`
	Workers     int       `yaml:"workers"`
	WeldEpsilon float32   `yaml:"weld_epsilon"`
}

// CameraConfig holds the simulated camera.
type CameraConfig struct {
	FOVDegrees     float32 `yaml:"fov_degrees"`
	ViewportHeight float32 `yaml:"viewport_height"`
	Distance       float32 `yaml:"distance"`    // 0 = fit to the mesh
	OrbitSpeed     float32 `yaml:"orbit_speed"` // radians per second
}

// SimulationConfig holds the stream command's frame loop.
type SimulationConfig struct {
	Frames    int     `yaml:"frames"`
	FrameTime float32 `yaml:"frame_time"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LOD: LODConfig{
			Enabled:            true,
			Transitions:        true,
			TransitionType:     "crossfade",
			TransitionDuration: 0.5,
			Hysteresis:         1.1,
			MaxDistance:        1000,
			TriangleBudget:     1_000_000,
			QualityLevel:       2,
		},
		Streaming: StreamingConfig{
			MemoryBudget: 64 << 20,
			ChunkSize:    0,
			MinViewDot:   0.1,
			MaxInFlight:  4,
			LoadTimeout:  5 * time.Second,
		},
		Simplify: SimplifyConfig{
			Placement:   "midpoint",
			ChainRatios: []float64{1, 0.5, 0.25, 0.1},
			Workers:     0,
			WeldEpsilon: 1e-5,
		},
		Camera: CameraConfig{
			FOVDegrees:     60,
			ViewportHeight: 1080,
			OrbitSpeed:     0.5,
		},
		Simulation: SimulationConfig{
			Frames:    600,
			FrameTime: 1.0 / 60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
