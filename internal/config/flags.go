package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagConcurrency = flag.Int("concurrency", 0, "Background worker count")
	flagTileSize    = flag.Int("tile-size", 0, "Vertices per tile edge")
	flagMaxLevel    = flag.Int("max-level", -1, "Maximum level of detail")
	flagSSE         = flag.Float64("sse", 0, "Screen-space error budget in pixels")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagConcurrency > 0 {
		cfg.Jobs.Concurrency = *flagConcurrency
	}
	if *flagTileSize > 0 {
		cfg.Terrain.TileSize = *flagTileSize
	}
	if *flagMaxLevel >= 0 {
		cfg.Terrain.MaxLevel = uint32(*flagMaxLevel)
	}
	if *flagSSE > 0 {
		cfg.Terrain.ScreenSpaceError = float32(*flagSSE)
	}
}
