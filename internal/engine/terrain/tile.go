package terrain

import (
	"container/list"
	stdmath "math"
	"sync"
	"sync/atomic"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/engine/scene"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/pkg/geo"
	"github.com/openglobe3d/strata/pkg/math"
)

// TileNode is one tile of the terrain quadtree. It owns the tile's
// render state and the futures of its in-flight loads. All fields
// except the guarded render model and the atomics belong to the update
// thread under the registry's lock.
type TileNode struct {
	Key geo.TileKey

	parent   *TileNode
	children *scene.QuadGroup
	geometry *SharedGeometry
	bound    math.Sphere

	// renderMu guards renderModel and revision: background jobs read a
	// parent's model while building children, the update thread writes
	// it during merges.
	renderMu    sync.Mutex
	renderModel RenderModel
	revision    gis.Revision

	// In-flight work. Empty means idle, Working means dispatched,
	// Available means ready for the update thread to consume.
	childrenLoader  jobs.Future[[4]*TileNode]
	dataLoader      jobs.Future[TileModel]
	dataMerger      jobs.Future[bool]
	elevationLoader jobs.Future[TileModel]
	elevationMerger jobs.Future[bool]

	loadToken *jobs.Token

	// Per-frame dedupe: a tile enters each service queue at most once
	// between updates, no matter how many times it is pinged.
	queuedForChildren  bool
	queuedForData      bool
	queuedForElevation bool
	queuedForMerge     bool
	queuedForElevMerge bool
	queuedForUpdate    bool

	needsChildren bool
	needsUpdate   bool

	// DoNotExpire pins the tile against eviction. Root tiles set it.
	DoNotExpire bool

	tracking *list.Element

	lastFrame atomic.Uint64
	lastRange atomic.Uint64 // float64 bits of the last traversal distance

	morphConstants [2]float32
}

// newTileNode builds a tile for the key, inheriting the parent's render
// state through quadrant scale/bias matrices so the tile can draw
// immediately at the parent's resolution. Runs on background workers,
// so it touches the parent only through its guarded render model.
func newTileNode(key geo.TileKey, parent *TileNode, ctx *Context) *TileNode {
	t := &TileNode{
		Key:           key,
		parent:        parent,
		children:      scene.NewQuadGroup(),
		geometry:      ctx.Geometry.Acquire(ctx.Settings.TileSize, ctx.Settings.SkirtRatio, ctx.Settings.MorphTerrain),
		needsChildren: true,
	}
	if ctx.Settings.MorphTerrain {
		c0, c1 := ctx.Selection.MorphConstants(key.Level)
		t.morphConstants = [2]float32{c0, c1}
	}
	t.bound = tileBound(key)
	t.lastRange.Store(stdmath.Float64bits(stdmath.MaxFloat64))

	if parent != nil {
		t.inheritFrom(parent)
	}
	return t
}

// tileBound computes a bounding sphere over the tile's extent, in the
// profile's horizontal units. Terrain height is tiny next to tile
// extents at the levels where LOD decisions matter, so the sphere stays
// flat and distances are effectively horizontal.
func tileBound(key geo.TileKey) math.Sphere {
	ext := key.Extent()
	cx := (ext.Min[0] + ext.Max[0]) / 2
	cy := (ext.Min[1] + ext.Max[1]) / 2
	w := ext.Max[0] - ext.Min[0]
	h := ext.Max[1] - ext.Min[1]
	return math.Sphere{
		Center: math.Vec3{X: float32(cx), Y: float32(cy)},
		Radius: float32(stdmath.Sqrt(w*w+h*h) / 2),
	}
}

// inheritFrom seeds the tile's render model from the parent's, composed
// with the scale/bias of this tile's quadrant so samplers address the
// correct sub-rectangle.
func (t *TileNode) inheritFrom(parent *TileNode) {
	sb := scaleBiasForQuadrant(t.Key.Quadrant())

	pm := parent.RenderModel()
	t.renderMu.Lock()
	defer t.renderMu.Unlock()

	if pm.Color.Valid() {
		t.renderModel.Color = ImageSlot{
			Image:  pm.Color.Image,
			Matrix: pm.Color.Matrix.Mul(sb),
		}
	}
	if pm.Elevation.Valid() {
		t.renderModel.Elevation = HeightfieldSlot{
			Heightfield: pm.Elevation.Heightfield,
			Matrix:      pm.Elevation.Matrix.Mul(sb),
		}
	}
	if pm.Normal.Valid() {
		t.renderModel.Normal = ImageSlot{
			Image:  pm.Normal.Image,
			Matrix: pm.Normal.Matrix.Mul(sb),
		}
	}
}

// scaleBiasForQuadrant maps the unit square onto one quadrant of a
// parent raster. UV v grows northward while tile rows grow southward,
// so the row bit flips.
func scaleBiasForQuadrant(q uint32) math.Mat4 {
	biasX := 0.5 * float32(q&1)
	biasY := 0.5 * float32(1-(q>>1))
	return math.ScaleBias(0.5, biasX, biasY)
}

// pushDescriptors hands the current render state to the host sink.
// Called on the update thread.
func (t *TileNode) pushDescriptors(ctx *Context) {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()
	ctx.Sink.UpdateTileDescriptors(t.Key, &t.renderModel)
}

// RenderModel returns a snapshot of the tile's render state.
func (t *TileNode) RenderModel() RenderModel {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()
	return t.renderModel
}

// Revision returns the map revision of the tile's merged data.
func (t *TileNode) Revision() gis.Revision {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()
	return t.revision
}

// Children implements scene.Node. The quad group yields children only
// when all four are attached, so the tree never renders a partial
// sibling set.
func (t *TileNode) Children() []scene.Node {
	return t.children.Children()
}

// HasChildren reports whether the full child quad is attached.
func (t *TileNode) HasChildren() bool {
	return t.children.Complete()
}

// Child returns the attached child in the given quadrant, or nil.
func (t *TileNode) Child(quadrant int) *TileNode {
	n := t.children.Child(quadrant)
	if n == nil {
		return nil
	}
	return n.(*TileNode)
}

// Parent returns the tile's parent, nil for roots.
func (t *TileNode) Parent() *TileNode { return t.parent }

// Bound returns the tile's bounding sphere.
func (t *TileNode) Bound() math.Sphere { return t.bound }

// MorphConstants returns the precomputed geomorph coefficients, both
// zero when morphing is disabled.
func (t *TileNode) MorphConstants() (float32, float32) {
	return t.morphConstants[0], t.morphConstants[1]
}

// Geometry returns the tile's shared surface mesh.
func (t *TileNode) Geometry() *SharedGeometry { return t.geometry }

// setTraversal records the frame and camera distance of a traversal.
// The distance feeds the priority functions of this tile's jobs, which
// workers re-evaluate on every pick.
func (t *TileNode) setTraversal(frame uint64, distance float64) {
	t.lastFrame.Store(frame)
	t.lastRange.Store(stdmath.Float64bits(distance))
}

// LastFrame returns the frame number of the most recent traversal.
func (t *TileNode) LastFrame() uint64 {
	return t.lastFrame.Load()
}

// LastRange returns the camera distance of the most recent traversal.
func (t *TileNode) LastRange() float64 {
	return stdmath.Float64frombits(t.lastRange.Load())
}

// loadPriority returns the priority function for this tile's jobs:
// closer and coarser tiles run first. Safe to call from workers.
func (t *TileNode) loadPriority() func() float32 {
	level := float32(t.Key.Level)
	return func() float32 {
		return -(float32(stdmath.Sqrt(t.LastRange())) * level)
	}
}

// hasData reports whether the tile's own data has merged, meaning it no
// longer renders inherited state. With the split pipeline both merge
// passes must have landed.
func (t *TileNode) hasData(split bool) bool {
	if !t.dataMerger.Available() {
		return false
	}
	if split && !t.elevationMerger.Available() {
		return false
	}
	return true
}

// mergeModel folds a loaded model into the tile's render state. Called
// on the update thread. Slots the model does not carry keep their
// inherited bindings.
func (t *TileNode) mergeModel(model TileModel, ctx *Context) {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()

	if len(model.ColorLayers) > 0 {
		composited := CompositeColorLayers(model.ColorLayers, 256)
		t.renderModel.Color = ImageSlot{Image: composited, Matrix: math.Identity()}
	}
	if model.Elevation.Heightfield.Valid() {
		t.renderModel.Elevation = HeightfieldSlot{
			Heightfield: model.Elevation.Heightfield,
			Matrix:      math.Identity(),
		}
		t.refreshBoundLocked(model.Elevation.Heightfield)
	}
	if model.Normal.Image.Valid() {
		t.renderModel.Normal = ImageSlot{Image: model.Normal.Image.Image, Matrix: math.Identity()}
	}
	if model.Revision > t.revision {
		t.revision = model.Revision
	}

	ctx.Sink.UpdateTileDescriptors(t.Key, &t.renderModel)
}

// refreshBoundLocked records the height range once real elevations are
// known. The sphere's radius stays horizontal; only the center lifts to
// the mean surface height. Caller holds renderMu.
func (t *TileNode) refreshBoundLocked(hf *geo.Heightfield) {
	min, max := hf.MinMax()
	t.bound.Center.Z = (min + max) / 2
}

// cancelLoads cancels every in-flight job and resets the futures so the
// tile can be re-pinged from scratch.
func (t *TileNode) cancelLoads() {
	if t.loadToken != nil {
		t.loadToken.Cancel()
		t.loadToken = nil
	}
	// A quad that resolved but never attached still owns four geometry
	// references; return them to the pool before dropping the future.
	if t.childrenLoader.Available() && !t.HasChildren() {
		for _, c := range t.childrenLoader.Get() {
			if c != nil {
				c.dispose()
			}
		}
	}
	t.childrenLoader.Cancel()
	t.dataLoader.Cancel()
	t.elevationLoader.Cancel()

	t.childrenLoader = jobs.Future[[4]*TileNode]{}
	t.dataLoader = jobs.Future[TileModel]{}
	t.dataMerger = jobs.Future[bool]{}
	t.elevationLoader = jobs.Future[TileModel]{}
	t.elevationMerger = jobs.Future[bool]{}

	t.queuedForChildren = false
	t.queuedForData = false
	t.queuedForElevation = false
	t.queuedForMerge = false
	t.queuedForElevMerge = false
}

// token returns the tile's shared cancellation token, creating it on
// first use. Every job the tile dispatches shares it, so one cancel
// stops the whole pipeline. A fired token is replaced, so retried work
// starts with a clean one.
func (t *TileNode) token() *jobs.Token {
	if t.loadToken == nil || t.loadToken.Canceled() {
		t.loadToken = jobs.NewToken()
	}
	return t.loadToken
}

// detachChildren cancels the child pipeline and drops the quad,
// returning the detached tiles for disposal. The tile goes back to
// wanting children so a later ping can rebuild them.
func (t *TileNode) detachChildren() []*TileNode {
	t.childrenLoader.Cancel()
	t.childrenLoader = jobs.Future[[4]*TileNode]{}
	t.queuedForChildren = false

	var detached []*TileNode
	for q := 0; q < 4; q++ {
		if c := t.Child(q); c != nil {
			detached = append(detached, c)
		}
	}
	t.children.Clear()
	t.needsChildren = true
	return detached
}

// dispose releases resources owned by the tile. Called exactly once,
// from the update thread, after the tile leaves the registry.
func (t *TileNode) dispose() {
	t.cancelLoads()
	if t.geometry != nil {
		t.geometry.Release()
		t.geometry = nil
	}
	t.parent = nil
}
