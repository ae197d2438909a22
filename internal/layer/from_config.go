package layer

import (
	"github.com/pkg/errors"

	"github.com/openglobe3d/strata/internal/config"
	"github.com/openglobe3d/strata/internal/gis"
)

// FromConfig constructs a layer from one source definition.
func FromConfig(src config.SourceConfig, net config.NetworkConfig, terrain config.TerrainConfig) (gis.Layer, error) {
	switch src.Kind {
	case "gradient":
		return NewGradientLayer(src.Name, terrain.TileSize, terrain.MaxLevel), nil
	case "tms":
		return NewTMSImageLayer(src.Name, TMSOptions{
			URL:       src.URL,
			FlipY:     src.TMSFlip,
			MaxLevel:  terrain.MaxLevel,
			Timeout:   net.FetchTimeout,
			UserAgent: net.UserAgent,
		}), nil
	case "mbtiles":
		return NewMBTilesImageLayer(src.Name, src.Path), nil
	case "mbtiles-elevation":
		return NewMBTilesElevationLayer(src.Name, src.Path), nil
	default:
		return nil, errors.Errorf("unknown source kind %q for layer %q", src.Kind, src.Name)
	}
}
