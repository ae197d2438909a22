package gis

import (
	"github.com/openglobe3d/strata/pkg/geo"
)

// Layer is a single source of map data. A layer is opened once before
// use; per-tile reads happen concurrently from background jobs and must
// be safe for concurrent use.
type Layer interface {
	// Name identifies the layer in configs and logs.
	Name() string

	// Open prepares the layer for reads. Returns a non-OK status for
	// configuration errors (missing file, unreachable endpoint).
	Open() Status

	// Close releases layer resources.
	Close() error

	// Status returns the layer's open state.
	Status() Status

	// MinLevel and MaxLevel bound the levels the layer can answer.
	MinLevel() uint32
	MaxLevel() uint32
}

// ImageLayer produces color imagery.
type ImageLayer interface {
	Layer

	// CreateImage reads the image intersecting key. A non-OK status
	// means "no data here", never a hard failure for the caller.
	CreateImage(key geo.TileKey, io IO) (geo.GeoImage, Status)
}

// ElevationLayer produces heightfields.
type ElevationLayer interface {
	Layer

	// CreateHeightfield reads the heightfield intersecting key.
	CreateHeightfield(key geo.TileKey, io IO) (*geo.Heightfield, Status)
}

// LevelInRange reports whether a key's level is within a layer's bounds.
func LevelInRange(l Layer, key geo.TileKey) bool {
	return key.Level >= l.MinLevel() && key.Level <= l.MaxLevel()
}
