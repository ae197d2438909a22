// Package geo provides tiling-scheme value types: profiles, tile keys,
// extents, and the raster payloads (images, heightfields) that tile layers
// produce.
package geo

import (
	"github.com/paulmach/orb"
)

// Profile describes a tiling scheme: the world extent it covers and how
// many root tiles subdivide it at level zero. All tile keys carry the
// profile they belong to.
type Profile struct {
	Name string

	// Extent is the full world extent of the scheme, in the scheme's
	// native units (degrees for geodetic, meters for mercator).
	Extent orb.Bound

	// RootTilesWide and RootTilesHigh define the level-0 grid.
	RootTilesWide uint32
	RootTilesHigh uint32
}

// GlobalGeodetic returns the WGS84 geographic profile: two side-by-side
// root tiles covering -180..180, -90..90.
func GlobalGeodetic() *Profile {
	return &Profile{
		Name:          "global-geodetic",
		Extent:        orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
		RootTilesWide: 2,
		RootTilesHigh: 1,
	}
}

// SphericalMercator returns the web-mercator profile: a single square root
// tile covering the projected world extent.
func SphericalMercator() *Profile {
	const half = 20037508.342789244
	return &Profile{
		Name:          "spherical-mercator",
		Extent:        orb.Bound{Min: orb.Point{-half, -half}, Max: orb.Point{half, half}},
		RootTilesWide: 1,
		RootTilesHigh: 1,
	}
}

// NumTiles returns the grid dimensions at the given level.
func (p *Profile) NumTiles(level uint32) (wide, high uint32) {
	return p.RootTilesWide << level, p.RootTilesHigh << level
}

// AllKeysAtLevel returns every key of the given level, row-major.
func (p *Profile) AllKeysAtLevel(level uint32) []TileKey {
	wide, high := p.NumTiles(level)
	keys := make([]TileKey, 0, wide*high)
	for y := uint32(0); y < high; y++ {
		for x := uint32(0); x < wide; x++ {
			keys = append(keys, TileKey{Level: level, X: x, Y: y, Profile: p})
		}
	}
	return keys
}

// TileExtent returns the world extent of one tile. Row 0 is the top
// (northernmost) row, matching the usual tile pyramid convention.
func (p *Profile) TileExtent(key TileKey) orb.Bound {
	wide, high := p.NumTiles(key.Level)
	w := (p.Extent.Max[0] - p.Extent.Min[0]) / float64(wide)
	h := (p.Extent.Max[1] - p.Extent.Min[1]) / float64(high)
	minX := p.Extent.Min[0] + float64(key.X)*w
	maxY := p.Extent.Max[1] - float64(key.Y)*h
	return orb.Bound{
		Min: orb.Point{minX, maxY - h},
		Max: orb.Point{minX + w, maxY},
	}
}

// Resolution returns the width of one tile at the given level, in the
// profile's native units.
func (p *Profile) Resolution(level uint32) float64 {
	wide, _ := p.NumTiles(level)
	return (p.Extent.Max[0] - p.Extent.Min[0]) / float64(wide)
}

// LevelForResolution returns the smallest level whose tile width is at or
// below the requested resolution.
func (p *Profile) LevelForResolution(res float64) uint32 {
	var level uint32
	for p.Resolution(level) > res && level < 30 {
		level++
	}
	return level
}
