// Package terrain implements the tile streaming and paging subsystem:
// a quad-tree of terrain tiles, each independently loaded in the
// background, merged into render state on the update thread, and
// expired by a recency tracker, under strict coarse-to-fine ordering.
package terrain

import (
	"fmt"

	"github.com/openglobe3d/strata/internal/config"
)

// Settings holds the terrain paging parameters. They are read at
// initialization; changing TileSize or Concurrency afterwards requires
// a full Reset of the terrain node.
type Settings struct {
	TileSize         int     // vertices per tile edge
	SkirtRatio       float32 // skirt depth as a fraction of tile span
	MorphTerrain     bool    // emit morph targets in tile geometry
	ScreenSpaceError float32 // pixel error budget for LOD selection
	MinLevel         uint32  // level of the root tiles
	MaxLevel         uint32  // finest level that will subdivide
	SplitElevation   bool    // load elevation on its own pipeline
	Concurrency      int     // background worker count
}

// SettingsFromConfig maps the YAML config onto terrain settings.
func SettingsFromConfig(t config.TerrainConfig, j config.JobsConfig) Settings {
	return Settings{
		TileSize:         t.TileSize,
		SkirtRatio:       t.SkirtRatio,
		MorphTerrain:     t.MorphTerrain,
		ScreenSpaceError: t.ScreenSpaceError,
		MinLevel:         t.MinLevel,
		MaxLevel:         t.MaxLevel,
		SplitElevation:   t.SplitElevation,
		Concurrency:      j.Concurrency,
	}
}

// maxTileSize keeps the vertex count of a grid plus its skirt ring
// within reach of 16-bit mesh indices.
const maxTileSize = 254

// Validate reports configuration errors up front.
func (s Settings) Validate() error {
	if s.TileSize < 2 {
		return fmt.Errorf("tile size %d is below the minimum of 2", s.TileSize)
	}
	if s.TileSize > maxTileSize {
		return fmt.Errorf("tile size %d exceeds the maximum of %d", s.TileSize, maxTileSize)
	}
	if s.MaxLevel < s.MinLevel {
		return fmt.Errorf("max level %d is below min level %d", s.MaxLevel, s.MinLevel)
	}
	if s.ScreenSpaceError <= 0 {
		return fmt.Errorf("screen-space error must be positive, got %v", s.ScreenSpaceError)
	}
	if s.SkirtRatio < 0 {
		return fmt.Errorf("skirt ratio must not be negative, got %v", s.SkirtRatio)
	}
	return nil
}
