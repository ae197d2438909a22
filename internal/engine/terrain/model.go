package terrain

import (
	"image"

	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/pkg/geo"
	"github.com/openglobe3d/strata/pkg/math"
)

// ColorLayerModel is one color layer's contribution to a tile model.
type ColorLayerModel struct {
	LayerName string
	Image     geo.GeoImage
	Matrix    math.Mat4
}

// ElevationModel is a tile model's heightfield slot.
type ElevationModel struct {
	Heightfield *geo.Heightfield
	Matrix      math.Mat4
}

// NormalModel is a tile model's normal-map slot.
type NormalModel struct {
	Image  geo.GeoImage
	Matrix math.Mat4
}

// TileModel is the transient value a model factory builds for one tile:
// everything the map's layers produced for the key. It has no identity
// beyond the key it was computed for and is consumed exactly once by a
// merge, then discarded.
type TileModel struct {
	Key      geo.TileKey
	Revision gis.Revision

	ColorLayers []ColorLayerModel
	Elevation   ElevationModel
	Normal      NormalModel
}

// Empty reports whether no layer produced any data.
func (m TileModel) Empty() bool {
	return len(m.ColorLayers) == 0 &&
		!m.Elevation.Heightfield.Valid() &&
		!m.Normal.Image.Valid()
}

// CreateTileManifest restricts a factory run to a subset of layers by
// name. An empty manifest means all layers.
type CreateTileManifest struct {
	Layers []string
}

// Empty reports whether the manifest imposes no restriction.
func (m CreateTileManifest) Empty() bool {
	return len(m.Layers) == 0
}

// Includes reports whether the named layer participates.
func (m CreateTileManifest) Includes(name string) bool {
	if m.Empty() {
		return true
	}
	for _, n := range m.Layers {
		if n == name {
			return true
		}
	}
	return false
}

// ImageSlot is a live raster binding in a tile's render state.
type ImageSlot struct {
	Image  image.Image
	Matrix math.Mat4
}

// Valid reports whether the slot is bound.
func (s ImageSlot) Valid() bool { return s.Image != nil }

// HeightfieldSlot is a live elevation binding in a tile's render state.
type HeightfieldSlot struct {
	Heightfield *geo.Heightfield
	Matrix      math.Mat4
}

// Valid reports whether the slot is bound.
func (s HeightfieldSlot) Valid() bool { return s.Heightfield.Valid() }

// RenderModel is the render-ready state of one tile: the rasters the
// host renderer samples plus the scale/bias matrices that map the
// tile's unit square into each raster (identity for the tile's own
// data; quadrant sub-rectangles for data inherited from an ancestor).
type RenderModel struct {
	Color     ImageSlot
	Elevation HeightfieldSlot
	Normal    ImageSlot
}

// DescriptorSink receives render-model changes destined for the GPU.
// The host renderer implements it; all calls happen on the update
// thread, preserving single-writer discipline toward the GPU pipeline.
type DescriptorSink interface {
	UpdateTileDescriptors(key geo.TileKey, model *RenderModel)
}

// NopDescriptorSink discards descriptor updates, for headless runs.
type NopDescriptorSink struct{}

// UpdateTileDescriptors implements DescriptorSink.
func (NopDescriptorSink) UpdateTileDescriptors(geo.TileKey, *RenderModel) {}
