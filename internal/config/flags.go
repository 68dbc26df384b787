package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging and invariant checks")
	flagBudget    = flag.Int("budget", -1, "LOD triangle budget")
	flagMemory    = flag.Int64("memory", -1, "Streaming memory budget in bytes")
	flagPlacement = flag.String("placement", "", "Collapse placement: midpoint or optimal")
	flagQuality   = flag.Int("quality", -1, "Quality level 0-2")
	flagFrames    = flag.Int("frames", 0, "Frames to simulate")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after the global flags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Streaming.CheckInvariants = true
	}
	if *flagBudget >= 0 {
		cfg.LOD.TriangleBudget = *flagBudget
	}
	if *flagMemory >= 0 {
		cfg.Streaming.MemoryBudget = *flagMemory
	}
	if *flagPlacement != "" {
		cfg.Simplify.Placement = *flagPlacement
	}
	if *flagQuality >= 0 {
		cfg.LOD.QualityLevel = *flagQuality
	}
	if *flagFrames > 0 {
		cfg.Simulation.Frames = *flagFrames
	}
}
