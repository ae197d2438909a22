package terrain

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/engine/scene"
	"github.com/openglobe3d/strata/pkg/geo"
)

// maxTilesDisposedPerUpdate caps eviction work per frame so a large
// camera jump does not stall a single update.
const maxTilesDisposedPerUpdate = 64

// RegistryStats is a snapshot of the registry's activity counters.
type RegistryStats struct {
	Tracked  int
	Created  uint64
	Disposed uint64
}

// Registry owns every live tile. Traversal pings tiles it wants to keep
// or refine; Update services the resulting work queues on a single
// goroutine and evicts whatever traversal stopped visiting. The mutex
// makes Ping safe to call while Update runs, though the engine drives
// both from the same frame loop.
type Registry struct {
	ctx *Context

	mu       sync.Mutex
	tiles    map[geo.TileKey]*TileNode
	tracker  *tracker
	disposer scene.Disposer

	// Service queues, filled by Ping and drained in order by Update.
	// A tile enters each queue at most once per frame.
	needChildren  []*TileNode
	needData      []*TileNode
	needElevation []*TileNode
	needMerge     []*TileNode
	needElevMerge []*TileNode
	needAttach    []*TileNode

	frame    uint64
	created  uint64
	disposed uint64
}

// NewRegistry returns an empty registry bound to a context.
func NewRegistry(ctx *Context) *Registry {
	return &Registry{
		ctx:     ctx,
		tiles:   make(map[geo.TileKey]*TileNode),
		tracker: newTracker(),
	}
}

// CreateTile builds and registers a tile. Used for roots; child tiles
// are built on workers and registered when their quad attaches.
func (r *Registry) CreateTile(key geo.TileKey, parent *TileNode) *TileNode {
	tile := newTileNode(key, parent, r.ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(tile)
	return tile
}

func (r *Registry) registerLocked(tile *TileNode) {
	r.tiles[tile.Key] = tile
	r.tracker.Insert(tile)
	r.created++
}

// GetTile returns the registered tile for a key.
func (r *Registry) GetTile(key geo.TileKey) (*TileNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tile, ok := r.tiles[key]
	return tile, ok
}

// Ping marks a tile as alive this frame and advances its loading state
// machine: queue the tile's own data when the parent's has merged,
// queue a merge when a load lands, and, when subdivide says traversal
// wants to refine here, queue child construction once the tile's own
// data is complete. Pinging the same tile many times in one frame
// queues each kind of work at most once.
func (r *Registry) Ping(tile *TileNode, frame uint64, distance float64, subdivide bool) {
	if tile == nil {
		return
	}
	tile.setTraversal(frame, distance)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.Use(tile)

	split := r.ctx.Settings.SplitElevation

	// A tile loads its own data only after its parent's has merged, so
	// refinement walks down the tree without gaps.
	parentReady := tile.parent == nil || tile.parent.hasData(split)

	if parentReady {
		if tile.dataLoader.Empty() && tile.dataMerger.Empty() && !tile.queuedForData {
			tile.queuedForData = true
			r.needData = append(r.needData, tile)
		}
		if split && tile.elevationLoader.Empty() && tile.elevationMerger.Empty() && !tile.queuedForElevation {
			tile.queuedForElevation = true
			r.needElevation = append(r.needElevation, tile)
		}
	}

	if tile.dataLoader.Available() && tile.dataMerger.Empty() && !tile.queuedForMerge {
		tile.queuedForMerge = true
		r.needMerge = append(r.needMerge, tile)
	}
	if split && tile.elevationLoader.Available() && tile.elevationMerger.Empty() && !tile.queuedForElevMerge {
		tile.queuedForElevMerge = true
		r.needElevMerge = append(r.needElevMerge, tile)
	}

	wantsChildren := subdivide && tile.needsChildren &&
		tile.Key.Level < r.ctx.Settings.MaxLevel &&
		tile.hasData(split)
	if wantsChildren && tile.childrenLoader.Empty() && !tile.queuedForChildren {
		tile.queuedForChildren = true
		r.needChildren = append(r.needChildren, tile)
	}

	attachReady := tile.childrenLoader.Available() && !tile.HasChildren()
	if (attachReady || tile.needsUpdate) && !tile.queuedForUpdate {
		tile.queuedForUpdate = true
		r.needAttach = append(r.needAttach, tile)
	}
}

// Update services the queues Ping filled, in dependency order: merges
// land before child loads are dispatched, completed child quads attach,
// and finally tiles nobody pinged since the last update are evicted.
// Must run on the engine's update goroutine.
func (r *Registry) Update(stamp scene.FrameStamp) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frame = stamp.Frame

	r.serviceMergesLocked()
	r.serviceLoadsLocked()
	r.serviceChildrenLocked()
	r.serviceAttachLocked()
	r.evictLocked()

	// Evicted tiles release their resources only now, after the frame
	// can no longer be referencing them.
	r.disposer.Drain(func(n scene.Node) {
		n.(*TileNode).dispose()
	})
}

// serviceMergesLocked folds available loads into tile render state,
// synchronously on the update thread. A canceled load resets the
// loader slot so a later ping can retry.
func (r *Registry) serviceMergesLocked() {
	for _, tile := range r.needMerge {
		tile.queuedForMerge = false
		if !tile.dataLoader.Available() || !tile.dataMerger.Empty() {
			continue
		}
		model := tile.dataLoader.Get()
		if !model.Key.Valid() {
			tile.dataLoader = jobs.Future[TileModel]{}
			continue
		}
		tile.mergeModel(model, r.ctx)
		tile.dataMerger = jobs.Resolved(true)
		r.refreshInheritedLocked(tile)
	}
	r.needMerge = r.needMerge[:0]

	for _, tile := range r.needElevMerge {
		tile.queuedForElevMerge = false
		if !tile.elevationLoader.Available() || !tile.elevationMerger.Empty() {
			continue
		}
		model := tile.elevationLoader.Get()
		if !model.Key.Valid() {
			tile.elevationLoader = jobs.Future[TileModel]{}
			continue
		}
		tile.mergeModel(model, r.ctx)
		tile.elevationMerger = jobs.Resolved(true)
		r.refreshInheritedLocked(tile)
	}
	r.needElevMerge = r.needElevMerge[:0]
}

// refreshInheritedLocked re-seeds the inherited render state of any
// attached child still showing ancestor data, after the ancestor's own
// data changed underneath it. The children get their descriptors pushed
// on their next ping.
func (r *Registry) refreshInheritedLocked(tile *TileNode) {
	if !tile.HasChildren() {
		return
	}
	split := r.ctx.Settings.SplitElevation
	for q := 0; q < 4; q++ {
		child := tile.Child(q)
		if child.hasData(split) {
			continue
		}
		child.inheritFrom(tile)
		child.needsUpdate = true
	}
}

// serviceLoadsLocked dispatches model-factory jobs for tiles whose
// loader slots are still empty.
func (r *Registry) serviceLoadsLocked() {
	for _, tile := range r.needData {
		tile.queuedForData = false
		if !tile.dataLoader.Empty() || !tile.dataMerger.Empty() {
			continue
		}
		key := tile.Key
		tile.dataLoader = jobs.Dispatch(r.ctx.Scheduler, func(c jobs.Cancelable) TileModel {
			return r.ctx.Factory.CreateTileModel(key, CreateTileManifest{}, c)
		}, jobs.Config{
			Name:     "load " + key.String(),
			Priority: tile.loadPriority(),
			Token:    tile.token(),
		})
	}
	r.needData = r.needData[:0]

	for _, tile := range r.needElevation {
		tile.queuedForElevation = false
		if !tile.elevationLoader.Empty() || !tile.elevationMerger.Empty() {
			continue
		}
		key := tile.Key
		tile.elevationLoader = jobs.Dispatch(r.ctx.Scheduler, func(c jobs.Cancelable) TileModel {
			return r.ctx.Factory.CreateElevationModel(key, CreateTileManifest{}, c)
		}, jobs.Config{
			Name:     "load-elevation " + key.String(),
			Priority: tile.loadPriority(),
			Token:    tile.token(),
		})
	}
	r.needElevation = r.needElevation[:0]
}

// serviceChildrenLocked dispatches child-quad construction. The job
// builds all four children so the quad attaches atomically.
func (r *Registry) serviceChildrenLocked() {
	for _, tile := range r.needChildren {
		tile.queuedForChildren = false
		if !tile.childrenLoader.Empty() || !tile.needsChildren {
			continue
		}
		parent := tile
		ctx := r.ctx
		tile.childrenLoader = jobs.Dispatch(r.ctx.Scheduler, func(c jobs.Cancelable) [4]*TileNode {
			var quad [4]*TileNode
			if c.Canceled() {
				return quad
			}
			for q := 0; q < 4; q++ {
				quad[q] = newTileNode(parent.Key.ChildKey(uint32(q)), parent, ctx)
			}
			if c.Canceled() {
				// The parent may already be gone; a quad that will never
				// attach must give its geometry back itself.
				for _, n := range quad {
					n.dispose()
				}
				return [4]*TileNode{}
			}
			return quad
		}, jobs.Config{
			Name:     "children " + tile.Key.String(),
			Priority: tile.loadPriority(),
			Token:    tile.token(),
		})
	}
	r.needChildren = r.needChildren[:0]
}

// serviceAttachLocked attaches completed child quads to their parents,
// registers the new tiles, and pushes pending descriptor refreshes.
// A canceled quad resets the loader.
func (r *Registry) serviceAttachLocked() {
	for _, tile := range r.needAttach {
		tile.queuedForUpdate = false

		if tile.needsUpdate {
			tile.needsUpdate = false
			tile.pushDescriptors(r.ctx)
		}

		if !tile.childrenLoader.Available() || tile.HasChildren() {
			continue
		}
		quad := tile.childrenLoader.Get()
		if quad[0] == nil {
			tile.childrenLoader = jobs.Future[[4]*TileNode]{}
			continue
		}
		for q := 0; q < 4; q++ {
			tile.children.SetChild(q, quad[q])
			r.registerLocked(quad[q])
			quad[q].pushDescriptors(r.ctx)
		}
		tile.needsChildren = false
		tile.childrenLoader = jobs.Future[[4]*TileNode]{}
	}
	r.needAttach = r.needAttach[:0]
}

// evictLocked flushes the recency tracker, disposing dormant tiles.
// Eviction is all-or-nothing per sibling quad: a quad goes only when
// every member is dormant, unpinned, and childless, so the tree never
// holds a partial sibling set.
func (r *Registry) evictLocked() {
	r.tracker.Flush(maxTilesDisposedPerUpdate, func(tile *TileNode) bool {
		if tile.DoNotExpire {
			return false
		}
		parent := tile.parent
		if parent == nil || !parent.HasChildren() {
			return false
		}
		for q := 0; q < 4; q++ {
			sib := parent.Child(q)
			if sib.DoNotExpire || sib.HasChildren() || sib.LastFrame() >= r.frame {
				return false
			}
		}

		for _, sib := range parent.detachChildren() {
			r.tracker.Remove(sib)
			delete(r.tiles, sib.Key)
			r.disposer.Add(sib)
			r.disposed++
		}
		r.ctx.Log.Debug("evicted child quad",
			zap.String("parent", parent.Key.String()),
			zap.Int("tracked", r.tracker.Len()))
		return true
	})
}

// Refresh cancels and clears every tile's loaded state so the next
// pings rebuild it against the map's current layer set. Attached
// children survive; only the data pipeline restarts.
func (r *Registry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tile := range r.tiles {
		tile.cancelLoads()
	}
	r.ctx.Log.Info("registry refresh", zap.Int("tiles", len(r.tiles)))
}

// ReleaseAll cancels all work and disposes every tile. Called on
// shutdown and on profile changes.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, tile := range r.tiles {
		r.tracker.Remove(tile)
		tile.children.Clear()
		tile.dispose()
		delete(r.tiles, key)
		r.disposed++
	}
	r.needChildren = nil
	r.needData = nil
	r.needElevation = nil
	r.needMerge = nil
	r.needElevMerge = nil
	r.needAttach = nil
}

// Stats returns a snapshot of activity counters.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryStats{
		Tracked:  r.tracker.Len(),
		Created:  r.created,
		Disposed: r.disposed,
	}
}

// Size returns the number of registered tiles.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tiles)
}
