package layer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/logger"
	"github.com/openglobe3d/strata/pkg/geo"
)

// TMSOptions configures a TMSImageLayer.
type TMSOptions struct {
	// URL is a template containing {z}, {x} and {y} placeholders.
	URL string

	// FlipY selects the TMS row convention (row 0 at the south edge)
	// instead of the XYZ convention (row 0 at the north edge).
	FlipY bool

	MinLevel uint32
	MaxLevel uint32

	Timeout   time.Duration
	UserAgent string
}

// TMSImageLayer reads imagery from a TMS/XYZ tile endpoint over HTTP.
type TMSImageLayer struct {
	name   string
	opts   TMSOptions
	client *http.Client
	status gis.Status
	log    *zap.Logger
}

// NewTMSImageLayer creates a TMS layer. Open validates the URL template.
func NewTMSImageLayer(name string, opts TMSOptions) *TMSImageLayer {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxLevel == 0 {
		opts.MaxLevel = 19
	}
	return &TMSImageLayer{
		name:   name,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    logger.Named("layer.tms"),
	}
}

// Name implements gis.Layer.
func (t *TMSImageLayer) Name() string { return t.name }

// Open implements gis.Layer.
func (t *TMSImageLayer) Open() gis.Status {
	for _, ph := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(t.opts.URL, ph) {
			t.status = gis.Failed(errors.Errorf("url template missing %s: %s", ph, t.opts.URL))
			return t.status
		}
	}
	t.status = gis.OK
	return t.status
}

// Close implements gis.Layer.
func (t *TMSImageLayer) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// Status implements gis.Layer.
func (t *TMSImageLayer) Status() gis.Status { return t.status }

// MinLevel implements gis.Layer.
func (t *TMSImageLayer) MinLevel() uint32 { return t.opts.MinLevel }

// MaxLevel implements gis.Layer.
func (t *TMSImageLayer) MaxLevel() uint32 { return t.opts.MaxLevel }

// tileURL expands the URL template for one key, applying the TMS row
// flip when configured.
func (t *TMSImageLayer) tileURL(key geo.TileKey) string {
	tile := maptile.New(key.X, key.Y, maptile.Zoom(key.Level))
	y := tile.Y
	if t.opts.FlipY {
		y = uint32(1)<<tile.Z - 1 - tile.Y
	}
	url := t.opts.URL
	url = strings.ReplaceAll(url, "{z}", fmt.Sprint(uint32(tile.Z)))
	url = strings.ReplaceAll(url, "{x}", fmt.Sprint(tile.X))
	url = strings.ReplaceAll(url, "{y}", fmt.Sprint(y))
	return url
}

// CreateImage implements gis.ImageLayer.
func (t *TMSImageLayer) CreateImage(key geo.TileKey, io gis.IO) (geo.GeoImage, gis.Status) {
	if !t.status.Ok() {
		return geo.GeoImage{}, t.status
	}
	if io.Canceled() {
		return geo.GeoImage{}, gis.Canceled()
	}
	if !gis.LevelInRange(t, key) {
		return geo.GeoImage{}, gis.Unavailable()
	}

	url := t.tileURL(key)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return geo.GeoImage{}, gis.Failed(errors.Wrap(err, "building tile request"))
	}
	ua := io.UserAgent
	if ua == "" {
		ua = t.opts.UserAgent
	}
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return geo.GeoImage{}, gis.Failed(errors.Wrapf(err, "fetching %s", url))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return geo.GeoImage{}, gis.Unavailable()
	case resp.StatusCode != http.StatusOK:
		return geo.GeoImage{}, gis.Failed(errors.Errorf("fetching %s: HTTP %d", url, resp.StatusCode))
	}

	if io.Canceled() {
		return geo.GeoImage{}, gis.Canceled()
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		t.log.Debug("tile decode failed", zap.String("url", url), zap.Error(err))
		return geo.GeoImage{}, gis.Failed(errors.Wrapf(err, "decoding %s", url))
	}

	return geo.GeoImage{Image: img, Extent: key.Extent()}, gis.OK
}
