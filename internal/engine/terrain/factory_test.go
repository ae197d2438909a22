package terrain

import (
	"testing"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/layer"
	"github.com/openglobe3d/strata/pkg/geo"
)

func testSettings() Settings {
	return Settings{
		TileSize:         9,
		SkirtRatio:       0.05,
		MorphTerrain:     true,
		ScreenSpaceError: 128,
		MinLevel:         0,
		MaxLevel:         4,
		Concurrency:      2,
	}
}

func gradientMap() *gis.Map {
	m := gis.NewMap(geo.GlobalGeodetic())
	m.AddLayer(layer.NewGradientLayer("gradient", 9, 19))
	return m
}

func TestCreateTileModelPopulatesAllSlots(t *testing.T) {
	m := gradientMap()
	f := NewModelFactory(m, testSettings())

	key := geo.TileKey{Level: 1, X: 1, Y: 0, Profile: m.Profile()}
	model := f.CreateTileModel(key, CreateTileManifest{}, nil)

	if model.Key != key {
		t.Errorf("model key = %v, want %v", model.Key, key)
	}
	if model.Revision != m.Revision() {
		t.Errorf("model revision = %d, want %d", model.Revision, m.Revision())
	}
	if len(model.ColorLayers) != 1 {
		t.Fatalf("color layers = %d, want 1", len(model.ColorLayers))
	}
	if !model.ColorLayers[0].Image.Valid() {
		t.Error("color image is empty")
	}
	if !model.Elevation.Heightfield.Valid() {
		t.Error("elevation slot is empty")
	}
	if !model.Normal.Image.Valid() {
		t.Error("normal map was not derived")
	}
	if model.Empty() {
		t.Error("model reports empty with data in every slot")
	}
}

func TestCreateTileModelCanceledReturnsZero(t *testing.T) {
	m := gradientMap()
	f := NewModelFactory(m, testSettings())

	token := jobs.NewToken()
	token.Cancel()

	key := geo.TileKey{Level: 0, X: 0, Y: 0, Profile: m.Profile()}
	model := f.CreateTileModel(key, CreateTileManifest{}, token)

	if model.Key.Valid() {
		t.Error("canceled run produced a keyed model")
	}
	if !model.Empty() {
		t.Error("canceled run produced layer data")
	}
}

func TestCreateElevationModelCarriesNoImagery(t *testing.T) {
	m := gradientMap()
	f := NewModelFactory(m, testSettings())

	key := geo.TileKey{Level: 2, X: 0, Y: 1, Profile: m.Profile()}
	model := f.CreateElevationModel(key, CreateTileManifest{}, nil)

	if len(model.ColorLayers) != 0 {
		t.Errorf("elevation-only model has %d color layers", len(model.ColorLayers))
	}
	if !model.Elevation.Heightfield.Valid() {
		t.Error("elevation slot is empty")
	}
	if !model.Normal.Image.Valid() {
		t.Error("normal map missing")
	}
}

func TestManifestFiltersLayers(t *testing.T) {
	m := gradientMap()
	f := NewModelFactory(m, testSettings())

	key := geo.TileKey{Level: 1, X: 0, Y: 0, Profile: m.Profile()}
	model := f.CreateTileModel(key, CreateTileManifest{Layers: []string{"other"}}, nil)

	if len(model.ColorLayers) != 0 {
		t.Errorf("manifest excluding the layer still produced %d color layers",
			len(model.ColorLayers))
	}
	if model.Elevation.Heightfield.Valid() {
		t.Error("manifest excluding the layer still produced elevation")
	}
}

func TestCreateTileModelDeterministic(t *testing.T) {
	m := gradientMap()
	f := NewModelFactory(m, testSettings())
	key := geo.TileKey{Level: 3, X: 5, Y: 2, Profile: m.Profile()}

	a := f.CreateTileModel(key, CreateTileManifest{}, nil)
	b := f.CreateTileModel(key, CreateTileManifest{}, nil)

	ha, hb := a.Elevation.Heightfield, b.Elevation.Heightfield
	if len(ha.Samples) != len(hb.Samples) {
		t.Fatalf("sample counts differ: %d vs %d", len(ha.Samples), len(hb.Samples))
	}
	for i := range ha.Samples {
		if ha.Samples[i] != hb.Samples[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, ha.Samples[i], hb.Samples[i])
		}
	}

	ia, ib := a.ColorLayers[0].Image.Image, b.ColorLayers[0].Image.Image
	pts := []struct{ x, y int }{{0, 0}, {3, 7}, {8, 8}}
	for _, p := range pts {
		if ia.At(p.x, p.y) != ib.At(p.x, p.y) {
			t.Errorf("pixel (%d,%d) differs between runs", p.x, p.y)
		}
	}
}

func TestCompositeSingleLayerPassthrough(t *testing.T) {
	m := gradientMap()
	f := NewModelFactory(m, testSettings())

	key := geo.TileKey{Level: 0, X: 0, Y: 0, Profile: m.Profile()}
	model := f.CreateTileModel(key, CreateTileManifest{}, nil)

	out := CompositeColorLayers(model.ColorLayers, 256)
	if out != model.ColorLayers[0].Image.Image {
		t.Error("single-layer composite should return the layer image unchanged")
	}
}
