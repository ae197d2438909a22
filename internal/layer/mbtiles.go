package layer

import (
	"bytes"
	"database/sql"
	"image"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"

	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/pkg/geo"
)

// mbtilesSource wraps one MBTiles sqlite database. Rows are stored in
// the TMS scheme (row 0 at the south edge), so lookups flip the key's Y.
type mbtilesSource struct {
	name   string
	path   string
	db     *sql.DB
	status gis.Status

	minLevel uint32
	maxLevel uint32
	format   string
}

func (m *mbtilesSource) Name() string { return m.name }

func (m *mbtilesSource) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
func (m *mbtilesSource) Status() gis.Status { return m.status }
func (m *mbtilesSource) MinLevel() uint32   { return m.minLevel }
func (m *mbtilesSource) MaxLevel() uint32   { return m.maxLevel }

func (m *mbtilesSource) Open() gis.Status {
	db, err := sql.Open("sqlite3", m.path)
	if err != nil {
		m.status = gis.Failed(errors.Wrapf(err, "opening %s", m.path))
		return m.status
	}
	m.db = db
	m.maxLevel = 19

	rows, err := db.Query(`SELECT name, value FROM metadata`)
	if err != nil {
		m.status = gis.Failed(errors.Wrapf(err, "reading metadata from %s", m.path))
		return m.status
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			continue
		}
		switch name {
		case "format":
			m.format = value
		case "minzoom":
			if v, err := strconv.ParseUint(value, 10, 32); err == nil {
				m.minLevel = uint32(v)
			}
		case "maxzoom":
			if v, err := strconv.ParseUint(value, 10, 32); err == nil {
				m.maxLevel = uint32(v)
			}
		}
	}

	m.status = gis.OK
	return m.status
}

// readTile fetches one raw tile blob, or Unavailable when absent.
func (m *mbtilesSource) readTile(key geo.TileKey, io gis.IO) ([]byte, gis.Status) {
	if !m.status.Ok() {
		return nil, m.status
	}
	if io.Canceled() {
		return nil, gis.Canceled()
	}
	if key.Level < m.minLevel || key.Level > m.maxLevel {
		return nil, gis.Unavailable()
	}

	tile := maptile.New(key.X, key.Y, maptile.Zoom(key.Level))
	tmsRow := uint32(1)<<tile.Z - 1 - tile.Y

	var blob []byte
	err := m.db.QueryRow(
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		uint32(tile.Z), tile.X, tmsRow,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, gis.Unavailable()
	}
	if err != nil {
		return nil, gis.Failed(errors.Wrapf(err, "querying tile %s", key))
	}
	return blob, gis.OK
}

// MBTilesImageLayer reads color imagery from an MBTiles database.
type MBTilesImageLayer struct {
	mbtilesSource
}

// NewMBTilesImageLayer creates an image layer over the given database.
func NewMBTilesImageLayer(name, path string) *MBTilesImageLayer {
	return &MBTilesImageLayer{mbtilesSource{name: name, path: path}}
}

// CreateImage implements gis.ImageLayer.
func (m *MBTilesImageLayer) CreateImage(key geo.TileKey, io gis.IO) (geo.GeoImage, gis.Status) {
	blob, status := m.readTile(key, io)
	if !status.Ok() {
		return geo.GeoImage{}, status
	}

	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return geo.GeoImage{}, gis.Failed(errors.Wrapf(err, "decoding tile %s", key))
	}
	return geo.GeoImage{Image: img, Extent: key.Extent()}, gis.OK
}

// MBTilesElevationLayer reads terrain-RGB encoded elevation tiles from
// an MBTiles database: height = (R*256 + G + B/256) - 32768.
type MBTilesElevationLayer struct {
	mbtilesSource
}

// NewMBTilesElevationLayer creates an elevation layer over the given
// database.
func NewMBTilesElevationLayer(name, path string) *MBTilesElevationLayer {
	return &MBTilesElevationLayer{mbtilesSource{name: name, path: path}}
}

// CreateHeightfield implements gis.ElevationLayer.
func (m *MBTilesElevationLayer) CreateHeightfield(key geo.TileKey, io gis.IO) (*geo.Heightfield, gis.Status) {
	blob, status := m.readTile(key, io)
	if !status.Ok() {
		return nil, status
	}

	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, gis.Failed(errors.Wrapf(err, "decoding elevation tile %s", key))
	}

	bounds := img.Bounds()
	hf := geo.NewHeightfield(bounds.Dx(), bounds.Dy(), key.Extent())
	for r := 0; r < bounds.Dy(); r++ {
		if io.Canceled() {
			return nil, gis.Canceled()
		}
		for c := 0; c < bounds.Dx(); c++ {
			cr, cg, cb, _ := img.At(bounds.Min.X+c, bounds.Min.Y+r).RGBA()
			// RGBA returns 16-bit channels; shift back to 8-bit.
			r8 := float32(cr >> 8)
			g8 := float32(cg >> 8)
			b8 := float32(cb >> 8)
			hf.Set(c, r, r8*256+g8+b8/256-32768)
		}
	}
	return hf, gis.OK
}
