// Package config handles engine configuration loading and management.
package config

import "time"

// Config holds all engine settings.
type Config struct {
	Terrain TerrainConfig  `yaml:"terrain"`
	Jobs    JobsConfig     `yaml:"jobs"`
	Sources []SourceConfig `yaml:"sources"`
	Network NetworkConfig  `yaml:"network"`
	Logging LoggingConfig  `yaml:"logging"`
}

// TerrainConfig holds terrain paging and geometry settings. Changing
// TileSize or Concurrency on a live engine requires a full terrain reset.
type TerrainConfig struct {
	Profile          string  `yaml:"profile"`            // "global-geodetic" or "spherical-mercator"
	TileSize         int     `yaml:"tile_size"`          // vertices per tile edge
	SkirtRatio       float32 `yaml:"skirt_ratio"`        // skirt depth as a fraction of tile size
	MorphTerrain     bool    `yaml:"morph_terrain"`      // geometric LOD morphing
	ScreenSpaceError float32 `yaml:"screen_space_error"` // pixel error budget for LOD selection
	MinLevel         uint32  `yaml:"min_level"`
	MaxLevel         uint32  `yaml:"max_level"`
	SplitElevation   bool    `yaml:"split_elevation"` // load elevation on its own pipeline
}

// JobsConfig holds background worker settings.
type JobsConfig struct {
	Concurrency int `yaml:"concurrency"` // worker count; 0 means GOMAXPROCS
}

// SourceConfig describes one map layer.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // "gradient", "tms", "mbtiles", "mbtiles-elevation"
	URL     string `yaml:"url"`     // tms: URL template with {z}/{x}/{y}
	Path    string `yaml:"path"`    // mbtiles: database file
	TMSFlip bool   `yaml:"tms_flip"` // tms: y axis runs south-to-north
}

// NetworkConfig holds HTTP fetch settings for remote tile sources.
type NetworkConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			Profile:          "global-geodetic",
			TileSize:         17,
			SkirtRatio:       0.0,
			MorphTerrain:     true,
			ScreenSpaceError: 128,
			MinLevel:         0,
			MaxLevel:         19,
			SplitElevation:   false,
		},
		Jobs: JobsConfig{
			Concurrency: 4,
		},
		Sources: []SourceConfig{
			{Name: "base", Kind: "gradient"},
		},
		Network: NetworkConfig{
			FetchTimeout: 10 * time.Second,
			UserAgent:    "strata/1.0",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
