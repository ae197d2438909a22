package terrain

import (
	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/engine/scene"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/logger"
	"github.com/openglobe3d/strata/pkg/math"
)

// geometrySweepInterval is how many frames pass between geometry pool
// sweeps; unused shared meshes linger at most this long.
const geometrySweepInterval = 60

// TerrainNode is the root of the terrain subsystem: it owns the tile
// registry, creates root tiles for the map's profile, and drives LOD
// selection each frame. Traverse and Update must run on the engine's
// update goroutine.
type TerrainNode struct {
	ctx      *Context
	registry *Registry
	roots    []*TileNode

	scheduler *jobs.Scheduler
	sink      DescriptorSink
	settings  Settings
	log       *zap.Logger
}

// NewTerrainNode builds a terrain node over a map. The scheduler runs
// the node's background loads; the sink receives render-state changes
// (nil means headless).
func NewTerrainNode(m *gis.Map, settings Settings, scheduler *jobs.Scheduler, sink DescriptorSink) (*TerrainNode, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := &TerrainNode{
		scheduler: scheduler,
		sink:      sink,
		settings:  settings,
		log:       logger.Named("terrain"),
	}
	t.SetMap(m)
	return t, nil
}

// SetMap binds the node to a map, discarding all tiles of the previous
// one. Layer changes on the bound map restart the data pipeline of
// every live tile without discarding the tree.
func (t *TerrainNode) SetMap(m *gis.Map) {
	if t.registry != nil {
		t.registry.ReleaseAll()
	}
	t.ctx = NewContext(m, t.settings, t.scheduler, t.sink)
	t.registry = NewRegistry(t.ctx)
	t.roots = nil

	m.OnLayerAdded(func(gis.Layer, gis.Revision) { t.registry.Refresh() })
	m.OnLayerRemoved(func(gis.Layer, gis.Revision) { t.registry.Refresh() })

	t.log.Info("map bound",
		zap.String("profile", m.Profile().Name),
		zap.Uint32("min_level", t.settings.MinLevel),
		zap.Uint32("max_level", t.settings.MaxLevel))
}

// createRootTiles builds one pinned tile per root key. Roots never
// expire; everything deeper pages in and out beneath them.
func (t *TerrainNode) createRootTiles() {
	keys := t.ctx.Profile.AllKeysAtLevel(t.settings.MinLevel)
	t.roots = make([]*TileNode, 0, len(keys))
	for _, key := range keys {
		tile := t.registry.CreateTile(key, nil)
		tile.DoNotExpire = true
		t.roots = append(t.roots, tile)
	}
	t.log.Info("root tiles created", zap.Int("count", len(t.roots)))
}

// Roots returns the pinned root tiles, creating them on first call.
func (t *TerrainNode) Roots() []*TileNode {
	if t.roots == nil {
		t.createRootTiles()
	}
	return t.roots
}

// Children implements scene.Node: the pinned root tiles.
func (t *TerrainNode) Children() []scene.Node {
	roots := t.Roots()
	nodes := make([]scene.Node, len(roots))
	for i, r := range roots {
		nodes[i] = r
	}
	return nodes
}

// Traverse selects the tile set for a camera position: it walks the
// tree from the roots, pings every tile it keeps, descends where the
// screen-space error wants more detail, and calls visit for each tile
// that would render this frame. Pinging drives all loading; tiles the
// walk skips go dormant and eventually evict.
func (t *TerrainNode) Traverse(camera math.Vec3, stamp scene.FrameStamp, visit func(*TileNode)) {
	for _, root := range t.Roots() {
		t.traverseTile(root, camera, stamp, visit)
	}
}

func (t *TerrainNode) traverseTile(tile *TileNode, camera math.Vec3, stamp scene.FrameStamp, visit func(*TileNode)) {
	distance := float64(tile.Bound().DistanceTo(camera))
	if distance < 0 {
		distance = 0 // camera inside the bound
	}
	subdivide := t.ctx.Selection.ShouldSubdivide(tile.Key.Level, distance)

	t.registry.Ping(tile, stamp.Frame, distance, subdivide)

	// Children render in place of the parent only as a complete quad;
	// until it attaches the parent keeps rendering at its own level.
	if subdivide && tile.HasChildren() {
		for q := 0; q < 4; q++ {
			t.traverseTile(tile.Child(q), camera, stamp, visit)
		}
		return
	}
	if visit != nil {
		visit(tile)
	}
}

// Update services the frame's queued work: dispatches loads, merges
// landed models, attaches child quads, evicts dormant tiles, and
// periodically sweeps the geometry pool.
func (t *TerrainNode) Update(stamp scene.FrameStamp) {
	if t.roots == nil {
		t.createRootTiles()
	}
	t.registry.Update(stamp)

	if stamp.Frame%geometrySweepInterval == 0 {
		if removed := t.ctx.Geometry.Sweep(); removed > 0 {
			t.log.Debug("geometry pool swept", zap.Int("removed", removed))
		}
	}
}

// Registry exposes the tile registry, chiefly for stats and tests.
func (t *TerrainNode) Registry() *Registry { return t.registry }

// Context exposes the node's shared services.
func (t *TerrainNode) Context() *Context { return t.ctx }

// Shutdown cancels all outstanding work and disposes every tile. The
// scheduler is owned by the caller and stays open.
func (t *TerrainNode) Shutdown() {
	t.registry.ReleaseAll()
	t.ctx.Geometry.Sweep()
	t.log.Info("terrain shut down")
}
