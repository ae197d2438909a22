package terrain

import (
	"image"
	stdmath "math"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/logger"
	"github.com/openglobe3d/strata/pkg/geo"
	"github.com/openglobe3d/strata/pkg/math"
)

// ModelFactory assembles tile models from a map's layers. It runs on
// background job workers and keeps no per-tile state, so a single
// factory serves every tile concurrently.
type ModelFactory struct {
	m        *gis.Map
	settings Settings
	log      *zap.Logger
}

// NewModelFactory returns a factory bound to a map.
func NewModelFactory(m *gis.Map, settings Settings) *ModelFactory {
	return &ModelFactory{
		m:        m,
		settings: settings,
		log:      logger.Named("terrain.factory"),
	}
}

// CreateTileModel queries every participating layer for the key and
// assembles the results into one model. Layers are queried in parallel;
// a layer with no data for the key simply contributes nothing. The
// returned model carries the map revision it was built against.
func (f *ModelFactory) CreateTileModel(key geo.TileKey, manifest CreateTileManifest, cancelable jobs.Cancelable) TileModel {
	// A canceled run returns the zero model; the merge pass recognizes
	// the missing key and leaves the tile untouched.
	if cancelable != nil && cancelable.Canceled() {
		return TileModel{}
	}
	model := TileModel{
		Key:      key,
		Revision: f.m.Revision(),
	}

	io := gis.NewIO(cancelable)

	imageLayers := f.m.ImageLayers()
	results := make([]ColorLayerModel, len(imageLayers))
	found := make([]bool, len(imageLayers))

	var g errgroup.Group
	g.SetLimit(4)
	for i, layer := range imageLayers {
		if !manifest.Includes(layer.Name()) || !layer.Status().Ok() {
			continue
		}
		if !gis.LevelInRange(layer, key) {
			continue
		}
		i, layer := i, layer
		g.Go(func() error {
			img, status := layer.CreateImage(key, io)
			if status.Ok() && img.Valid() {
				results[i] = ColorLayerModel{
					LayerName: layer.Name(),
					Image:     img,
					Matrix:    math.Identity(),
				}
				found[i] = true
			} else if status.Code == gis.StatusFailed {
				f.log.Warn("image read failed",
					zap.String("layer", layer.Name()),
					zap.String("key", key.String()),
					zap.Error(status.Err))
			}
			return nil
		})
	}
	g.Wait()

	for i := range results {
		if found[i] {
			model.ColorLayers = append(model.ColorLayers, results[i])
		}
	}

	if !f.settings.SplitElevation {
		f.addElevation(&model, key, manifest, io)
	}
	return model
}

// CreateElevationModel builds a model carrying only the elevation and
// normal slots, for the split pipeline where height loads on its own
// schedule.
func (f *ModelFactory) CreateElevationModel(key geo.TileKey, manifest CreateTileManifest, cancelable jobs.Cancelable) TileModel {
	if cancelable != nil && cancelable.Canceled() {
		return TileModel{}
	}
	model := TileModel{
		Key:      key,
		Revision: f.m.Revision(),
	}
	io := gis.NewIO(cancelable)
	f.addElevation(&model, key, manifest, io)
	return model
}

// addElevation fills the model's elevation slot from the first
// elevation layer with data for the key, then derives a normal map.
func (f *ModelFactory) addElevation(model *TileModel, key geo.TileKey, manifest CreateTileManifest, io gis.IO) {
	for _, layer := range f.m.ElevationLayers() {
		if !manifest.Includes(layer.Name()) || !layer.Status().Ok() {
			continue
		}
		if !gis.LevelInRange(layer, key) {
			continue
		}
		hf, status := layer.CreateHeightfield(key, io)
		if status.Ok() && hf.Valid() {
			model.Elevation = ElevationModel{
				Heightfield: hf,
				Matrix:      math.Identity(),
			}
			model.Normal = NormalModel{
				Image:  buildNormalMap(hf, key),
				Matrix: math.Identity(),
			}
			return
		}
		if status.Code == gis.StatusFailed {
			f.log.Warn("heightfield read failed",
				zap.String("layer", layer.Name()),
				zap.String("key", key.String()),
				zap.Error(status.Err))
		}
	}
}

// CompositeColorLayers flattens a model's color layers into one RGBA
// raster, bottom layer first. A single-layer model returns that layer's
// image untouched.
func CompositeColorLayers(layers []ColorLayerModel, size int) image.Image {
	if len(layers) == 0 {
		return nil
	}
	if len(layers) == 1 {
		return layers[0].Image.Image
	}
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	for _, l := range layers {
		draw.BiLinear.Scale(out, out.Bounds(), l.Image.Image, l.Image.Image.Bounds(), draw.Over, nil)
	}
	return out
}

// buildNormalMap derives a tangent-space normal map from the
// heightfield with central differences, encoded as RGB in [0,255] with
// +Z up. The world-space sample spacing comes from the tile's extent.
func buildNormalMap(hf *geo.Heightfield, key geo.TileKey) geo.GeoImage {
	extent := key.Extent()
	w, h := hf.Width, hf.Height
	dx := (extent.Max[0] - extent.Min[0]) / float64(w-1)
	dy := (extent.Max[1] - extent.Min[1]) / float64(h-1)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			left := hf.At(clampInt(c-1, 0, w-1), r)
			right := hf.At(clampInt(c+1, 0, w-1), r)
			down := hf.At(c, clampInt(r-1, 0, h-1))
			up := hf.At(c, clampInt(r+1, 0, h-1))

			nx := -(float64(right-left)) / (2 * dx)
			ny := -(float64(up-down)) / (2 * dy)
			nz := 1.0
			inv := 1.0 / stdmath.Sqrt(nx*nx+ny*ny+nz*nz)

			i := img.PixOffset(c, h-1-r)
			img.Pix[i+0] = encodeUnit(nx * inv)
			img.Pix[i+1] = encodeUnit(ny * inv)
			img.Pix[i+2] = encodeUnit(nz * inv)
			img.Pix[i+3] = 0xff
		}
	}
	return geo.GeoImage{Image: img, Extent: extent}
}

func encodeUnit(v float64) uint8 {
	return uint8((v*0.5 + 0.5) * 255.0)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
