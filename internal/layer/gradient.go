// Package layer provides concrete map layer implementations: a
// procedural gradient source for tests and demos, TMS imagery over
// HTTP, and MBTiles imagery/elevation from sqlite databases.
package layer

import (
	"image"
	"image/color"
	"math"

	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/pkg/geo"
)

// GradientLayer is a procedural layer producing a deterministic color
// ramp and an analytic rolling-hills heightfield. It needs no I/O, so
// it serves as the default source for tests and headless runs.
type GradientLayer struct {
	name     string
	tileSize int
	maxLevel uint32
}

// NewGradientLayer creates a gradient layer producing tileSize x
// tileSize rasters up to maxLevel.
func NewGradientLayer(name string, tileSize int, maxLevel uint32) *GradientLayer {
	if tileSize <= 1 {
		tileSize = 17
	}
	return &GradientLayer{name: name, tileSize: tileSize, maxLevel: maxLevel}
}

// Name implements gis.Layer.
func (g *GradientLayer) Name() string { return g.name }

// Open implements gis.Layer. Procedural layers cannot fail to open.
func (g *GradientLayer) Open() gis.Status { return gis.OK }

// Close implements gis.Layer.
func (g *GradientLayer) Close() error { return nil }

// Status implements gis.Layer.
func (g *GradientLayer) Status() gis.Status { return gis.OK }

// MinLevel implements gis.Layer.
func (g *GradientLayer) MinLevel() uint32 { return 0 }

// MaxLevel implements gis.Layer.
func (g *GradientLayer) MaxLevel() uint32 { return g.maxLevel }

// CreateImage implements gis.ImageLayer. The pixel value depends only
// on world position, so adjacent tiles line up seamlessly.
func (g *GradientLayer) CreateImage(key geo.TileKey, io gis.IO) (geo.GeoImage, gis.Status) {
	if io.Canceled() {
		return geo.GeoImage{}, gis.Canceled()
	}
	if !gis.LevelInRange(g, key) {
		return geo.GeoImage{}, gis.Unavailable()
	}

	ext := key.Extent()
	world := key.Profile.Extent
	img := image.NewNRGBA(image.Rect(0, 0, g.tileSize, g.tileSize))

	for py := 0; py < g.tileSize; py++ {
		if io.Canceled() {
			return geo.GeoImage{}, gis.Canceled()
		}
		for px := 0; px < g.tileSize; px++ {
			u := float64(px) / float64(g.tileSize-1)
			v := float64(py) / float64(g.tileSize-1)
			wx := ext.Min[0] + u*(ext.Max[0]-ext.Min[0])
			wy := ext.Max[1] - v*(ext.Max[1]-ext.Min[1])

			// Normalize to 0..1 across the whole world.
			nx := (wx - world.Min[0]) / (world.Max[0] - world.Min[0])
			ny := (wy - world.Min[1]) / (world.Max[1] - world.Min[1])

			img.SetNRGBA(px, py, color.NRGBA{
				R: uint8(nx * 255),
				G: uint8(ny * 255),
				B: uint8(float64(key.Level) * 12),
				A: 255,
			})
		}
	}

	return geo.GeoImage{Image: img, Extent: ext}, gis.OK
}

// CreateHeightfield implements gis.ElevationLayer: rolling hills from a
// fixed sum of sines, deterministic per world position.
func (g *GradientLayer) CreateHeightfield(key geo.TileKey, io gis.IO) (*geo.Heightfield, gis.Status) {
	if io.Canceled() {
		return nil, gis.Canceled()
	}
	if !gis.LevelInRange(g, key) {
		return nil, gis.Unavailable()
	}

	ext := key.Extent()
	hf := geo.NewHeightfield(g.tileSize, g.tileSize, ext)

	for r := 0; r < g.tileSize; r++ {
		if io.Canceled() {
			return nil, gis.Canceled()
		}
		for c := 0; c < g.tileSize; c++ {
			u := float64(c) / float64(g.tileSize-1)
			v := float64(r) / float64(g.tileSize-1)
			wx := ext.Min[0] + u*(ext.Max[0]-ext.Min[0])
			wy := ext.Max[1] - v*(ext.Max[1]-ext.Min[1])

			h := 500*math.Sin(wx*0.05) + 300*math.Cos(wy*0.08) + 120*math.Sin(wx*0.21+wy*0.17)
			hf.Set(c, r, float32(h))
		}
	}

	return hf, gis.OK
}
