package layer

import (
	"bytes"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/pkg/geo"
)

// writeMBTiles creates a minimal MBTiles database with one tile at
// zoom 1, XYZ (0,0) — stored at TMS row 1.
func writeMBTiles(t *testing.T, tileData []byte, format string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mbtiles")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE metadata (name TEXT, value TEXT)`,
		`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}

	meta := map[string]string{
		"name":    "test",
		"format":  format,
		"minzoom": "0",
		"maxzoom": "4",
	}
	for k, v := range meta {
		if _, err := db.Exec(`INSERT INTO metadata VALUES (?, ?)`, k, v); err != nil {
			t.Fatalf("inserting metadata: %v", err)
		}
	}

	if _, err := db.Exec(`INSERT INTO tiles VALUES (1, 0, 1, ?)`, tileData); err != nil {
		t.Fatalf("inserting tile: %v", err)
	}
	return path
}

func TestMBTilesImageRead(t *testing.T) {
	tile := encodePNG(t, color.NRGBA{B: 180, A: 255})
	path := writeMBTiles(t, tile, "png")

	l := NewMBTilesImageLayer("ortho", path)
	if status := l.Open(); !status.Ok() {
		t.Fatalf("open failed: %v", status)
	}
	defer l.Close()

	if l.MinLevel() != 0 || l.MaxLevel() != 4 {
		t.Errorf("zoom range = %d..%d, want 0..4", l.MinLevel(), l.MaxLevel())
	}

	p := geo.SphericalMercator()
	img, status := l.CreateImage(geo.TileKey{Level: 1, X: 0, Y: 0, Profile: p}, gis.IO{})
	if !status.Ok() {
		t.Fatalf("CreateImage failed: %v", status)
	}
	if !img.Valid() {
		t.Fatal("expected a decoded image")
	}

	// The other quadrants are absent.
	_, status = l.CreateImage(geo.TileKey{Level: 1, X: 1, Y: 1, Profile: p}, gis.IO{})
	if status.Code != gis.StatusUnavailable {
		t.Errorf("missing tile status = %v, want unavailable", status)
	}

	// Out of zoom range.
	_, status = l.CreateImage(geo.TileKey{Level: 9, X: 0, Y: 0, Profile: p}, gis.IO{})
	if status.Code != gis.StatusUnavailable {
		t.Errorf("out-of-range status = %v, want unavailable", status)
	}
}

func TestMBTilesElevationDecode(t *testing.T) {
	// terrain-RGB: height = R*256 + G + B/256 - 32768.
	// R=128, G=100 encodes exactly 100 meters.
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 128, G: 100, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	path := writeMBTiles(t, buf.Bytes(), "png")

	l := NewMBTilesElevationLayer("dem", path)
	if status := l.Open(); !status.Ok() {
		t.Fatalf("open failed: %v", status)
	}
	defer l.Close()

	key := geo.TileKey{Level: 1, X: 0, Y: 0, Profile: geo.SphericalMercator()}
	hf, status := l.CreateHeightfield(key, gis.IO{})
	if !status.Ok() {
		t.Fatalf("CreateHeightfield failed: %v", status)
	}

	if got := hf.At(2, 2); got != 100 {
		t.Errorf("decoded height = %v, want 100", got)
	}
	min, max := hf.MinMax()
	if min != 100 || max != 100 {
		t.Errorf("MinMax() = (%v, %v), want (100, 100)", min, max)
	}
}

func TestMBTilesMissingFileFailsOpen(t *testing.T) {
	l := NewMBTilesImageLayer("bad", filepath.Join(t.TempDir(), "missing", "x.mbtiles"))
	status := l.Open()
	// sql.Open defers real work; the metadata query must surface the failure.
	if status.Ok() {
		t.Error("expected open to fail for a missing database")
	}
}
