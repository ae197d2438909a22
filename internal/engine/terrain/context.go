package terrain

import (
	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/logger"
	"github.com/openglobe3d/strata/pkg/geo"
)

// Context bundles the services every tile needs: the map, the model
// factory, the job scheduler, the geometry pool, and the precomputed
// LOD ranges. One Context is shared by the whole tile tree and is
// immutable after construction.
type Context struct {
	Map       *gis.Map
	Profile   *geo.Profile
	Settings  Settings
	Factory   *ModelFactory
	Scheduler *jobs.Scheduler
	Geometry  *GeometryPool
	Selection *SelectionInfo
	Sink      DescriptorSink
	Log       *zap.Logger
}

// NewContext wires a context from a map and settings.
func NewContext(m *gis.Map, settings Settings, scheduler *jobs.Scheduler, sink DescriptorSink) *Context {
	if sink == nil {
		sink = NopDescriptorSink{}
	}
	return &Context{
		Map:       m,
		Profile:   m.Profile(),
		Settings:  settings,
		Factory:   NewModelFactory(m, settings),
		Scheduler: scheduler,
		Geometry:  NewGeometryPool(),
		Selection: NewSelectionInfo(m.Profile(), settings.MaxLevel, float64(settings.ScreenSpaceError)),
		Sink:      sink,
		Log:       logger.Named("terrain"),
	}
}
