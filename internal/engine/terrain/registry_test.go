package terrain

import (
	"sync"
	"testing"
	"time"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/engine/scene"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/layer"
	"github.com/openglobe3d/strata/pkg/geo"
	"github.com/openglobe3d/strata/pkg/math"
)

type testTerrain struct {
	m     *gis.Map
	sched *jobs.Scheduler
	node  *TerrainNode
	clock *scene.ManualClock
}

func newTestTerrain(t *testing.T, maxLevel uint32) *testTerrain {
	t.Helper()

	m := gradientMap()
	sched := jobs.NewScheduler(2)
	settings := testSettings()
	settings.MaxLevel = maxLevel

	node, err := NewTerrainNode(m, settings, sched, nil)
	if err != nil {
		t.Fatalf("NewTerrainNode: %v", err)
	}
	t.Cleanup(func() {
		node.Shutdown()
		sched.Close()
		m.Close()
	})
	return &testTerrain{m: m, sched: sched, node: node, clock: &scene.ManualClock{}}
}

// pumpUntil runs frames (traverse, then update) until cond holds.
func (tt *testTerrain) pumpUntil(t *testing.T, camera math.Vec3, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		stamp := tt.clock.Tick()
		tt.node.Traverse(camera, stamp, nil)
		tt.node.Update(stamp)
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// pumpFrames runs a fixed number of frames without traversing.
func (tt *testTerrain) pumpFrames(n int) {
	for i := 0; i < n; i++ {
		tt.node.Update(tt.clock.Tick())
		time.Sleep(time.Millisecond)
	}
}

// nearCamera sits at the center of the first root tile.
func (tt *testTerrain) nearCamera() math.Vec3 {
	return tt.node.Roots()[0].Bound().Center
}

// farCamera is well outside every level-0 visibility range.
var farCamera = math.Vec3{X: 50000, Y: 50000}

func TestRootTilesLoadOwnData(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]

	tt.pumpUntil(t, farCamera, "root data merge", func() bool {
		return root.hasData(false)
	})

	rm := root.RenderModel()
	if !rm.Color.Valid() || !rm.Elevation.Valid() || !rm.Normal.Valid() {
		t.Error("merged root is missing render slots")
	}
	if root.Revision() != tt.m.Revision() {
		t.Errorf("root revision = %d, want %d", root.Revision(), tt.m.Revision())
	}
}

func TestParentDataMergesBeforeChildrenAttach(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]
	camera := tt.nearCamera()

	tt.pumpUntil(t, camera, "children attach", func() bool {
		if root.HasChildren() && !root.hasData(false) {
			t.Fatal("children attached before the parent's own data merged")
		}
		return root.HasChildren()
	})
}

func TestChildQuadAttachesAtomically(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]
	camera := tt.nearCamera()

	tt.pumpUntil(t, camera, "children attach", func() bool {
		if n := len(root.Children()); n != 0 && n != 4 {
			t.Fatalf("partial sibling set visible: %d children", n)
		}
		return root.HasChildren()
	})

	for q := 0; q < 4; q++ {
		child := root.Child(q)
		if child == nil {
			t.Fatalf("quadrant %d missing after attach", q)
		}
		if child.Key.ParentKey() != root.Key {
			t.Errorf("quadrant %d key %v does not descend from %v", q, child.Key, root.Key)
		}
		if _, ok := tt.node.Registry().GetTile(child.Key); !ok {
			t.Errorf("attached child %v not registered", child.Key)
		}
	}
}

func TestChildrenInheritParentRasters(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]
	camera := tt.nearCamera()

	tt.pumpUntil(t, camera, "children attach", func() bool {
		return root.HasChildren()
	})

	// A freshly attached child that has not merged its own data yet
	// renders the parent's rasters through a quadrant matrix. After its
	// own merge the matrix collapses to identity.
	id := math.Identity()
	for q := 0; q < 4; q++ {
		child := root.Child(q)
		rm := child.RenderModel()
		if !rm.Color.Valid() {
			t.Fatalf("quadrant %d has no color binding at all", q)
		}
		if !child.hasData(false) && rm.Color.Matrix == id {
			t.Errorf("quadrant %d renders inherited data with an identity matrix", q)
		}
	}
}

func TestSubdivisionStopsAtMaxLevel(t *testing.T) {
	tt := newTestTerrain(t, 1)
	camera := tt.nearCamera()

	tt.pumpUntil(t, camera, "level-1 tiles", func() bool {
		return tt.node.Roots()[0].HasChildren()
	})
	tt.pumpFrames(5)

	r := tt.node.Registry()
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.tiles {
		if key.Level > 1 {
			t.Errorf("tile %v exists beyond the configured max level", key)
		}
	}
}

func TestPingQueuesEachKindOnce(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]
	r := tt.node.Registry()

	for i := 0; i < 10; i++ {
		r.Ping(root, 1, 100, false)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.needData) != 1 {
		t.Errorf("ten pings queued %d data loads, want 1", len(r.needData))
	}
	if len(r.needChildren) != 0 {
		t.Errorf("non-subdividing ping queued %d child loads", len(r.needChildren))
	}
}

func TestPinnedRootsSurviveEviction(t *testing.T) {
	tt := newTestTerrain(t, 2)
	roots := tt.node.Roots()

	// Several updates with no traversal at all: everything is dormant,
	// but pinned roots must stay.
	tt.pumpFrames(10)

	for _, root := range roots {
		if _, ok := tt.node.Registry().GetTile(root.Key); !ok {
			t.Errorf("pinned root %v was evicted", root.Key)
		}
	}
	if got := tt.node.Registry().Stats().Disposed; got != 0 {
		t.Errorf("disposed = %d, want 0", got)
	}
}

func TestDormantChildrenEvictAsQuads(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]
	camera := tt.nearCamera()

	tt.pumpUntil(t, camera, "children attach", func() bool {
		return root.HasChildren()
	})
	numRoots := len(tt.node.Roots())

	// Walk away: children go dormant and page out, roots remain.
	tt.pumpUntil(t, farCamera, "children evict", func() bool {
		return tt.node.Registry().Size() == numRoots
	})

	if root.HasChildren() {
		t.Error("root still holds a child quad after eviction")
	}
	if !root.needsChildren {
		t.Error("evicted parent should want children again")
	}
	stats := tt.node.Registry().Stats()
	if stats.Disposed == 0 || stats.Disposed%4 != 0 {
		t.Errorf("disposed = %d, want a positive multiple of 4", stats.Disposed)
	}
}

func TestEvictedQuadReloadsOnReturn(t *testing.T) {
	tt := newTestTerrain(t, 1)
	root := tt.node.Roots()[0]
	camera := tt.nearCamera()

	tt.pumpUntil(t, camera, "first attach", func() bool { return root.HasChildren() })
	numRoots := len(tt.node.Roots())
	tt.pumpUntil(t, farCamera, "eviction", func() bool {
		return tt.node.Registry().Size() == numRoots
	})
	tt.pumpUntil(t, camera, "re-attach", func() bool { return root.HasChildren() })

	for q := 0; q < 4; q++ {
		if root.Child(q) == nil {
			t.Fatalf("quadrant %d missing after reload", q)
		}
	}
}

func TestRefreshRestartsDataPipeline(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]

	tt.pumpUntil(t, farCamera, "initial merge", func() bool {
		return root.hasData(false)
	})

	tt.node.Registry().Refresh()
	if root.hasData(false) {
		t.Fatal("refresh left merged state in place")
	}

	tt.pumpUntil(t, farCamera, "re-merge", func() bool {
		return root.hasData(false)
	})
}

func TestLayerChangeTriggersRefresh(t *testing.T) {
	tt := newTestTerrain(t, 2)
	root := tt.node.Roots()[0]

	tt.pumpUntil(t, farCamera, "initial merge", func() bool {
		return root.hasData(false)
	})

	tt.m.AddLayer(layer.NewGradientLayer("second", 9, 19))
	if root.hasData(false) {
		t.Fatal("layer add did not restart the data pipeline")
	}

	tt.pumpUntil(t, farCamera, "re-merge", func() bool {
		return root.hasData(false)
	})
	if root.Revision() != tt.m.Revision() {
		t.Errorf("root revision = %d, want %d after layer change", root.Revision(), tt.m.Revision())
	}
}

func TestSplitElevationLoadsBothPipelines(t *testing.T) {
	m := gradientMap()
	sched := jobs.NewScheduler(2)
	settings := testSettings()
	settings.MaxLevel = 2
	settings.SplitElevation = true

	node, err := NewTerrainNode(m, settings, sched, nil)
	if err != nil {
		t.Fatalf("NewTerrainNode: %v", err)
	}
	t.Cleanup(func() {
		node.Shutdown()
		sched.Close()
		m.Close()
	})

	tt := &testTerrain{m: m, sched: sched, node: node, clock: &scene.ManualClock{}}
	root := node.Roots()[0]

	tt.pumpUntil(t, farCamera, "split merge", func() bool {
		return root.hasData(true)
	})

	if !root.dataMerger.Available() || !root.elevationMerger.Available() {
		t.Error("split pipeline left a merger unresolved")
	}
	rm := root.RenderModel()
	if !rm.Elevation.Valid() {
		t.Error("split pipeline produced no elevation binding")
	}
}

type recordingSink struct {
	mu      sync.Mutex
	updates map[geo.TileKey]int
}

func (s *recordingSink) UpdateTileDescriptors(key geo.TileKey, _ *RenderModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates == nil {
		s.updates = make(map[geo.TileKey]int)
	}
	s.updates[key]++
}

func (s *recordingSink) count(key geo.TileKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[key]
}

func TestChildrenReinheritAfterParentRemerge(t *testing.T) {
	m := gradientMap()
	sched := jobs.NewScheduler(2)
	sink := &recordingSink{}
	settings := testSettings()
	settings.MaxLevel = 1

	node, err := NewTerrainNode(m, settings, sched, sink)
	if err != nil {
		t.Fatalf("NewTerrainNode: %v", err)
	}
	t.Cleanup(func() {
		node.Shutdown()
		sched.Close()
		m.Close()
	})
	tt := &testTerrain{m: m, sched: sched, node: node, clock: &scene.ManualClock{}}
	root := node.Roots()[0]

	tt.pumpUntil(t, tt.nearCamera(), "children attach", func() bool {
		return root.HasChildren()
	})
	child := root.Child(0)
	before := sink.count(child.Key)
	if before == 0 {
		t.Fatal("attached child never received descriptors")
	}

	// A layer change restarts the pipeline; once the parent re-merges,
	// children still on inherited data must re-inherit and re-push.
	node.Registry().Refresh()
	tt.pumpUntil(t, tt.nearCamera(), "descriptor refresh", func() bool {
		return sink.count(child.Key) > before
	})
}

func TestShutdownDisposesEverything(t *testing.T) {
	m := gradientMap()
	sched := jobs.NewScheduler(2)
	node, err := NewTerrainNode(m, testSettings(), sched, nil)
	if err != nil {
		t.Fatalf("NewTerrainNode: %v", err)
	}
	clock := &scene.ManualClock{}
	tt := &testTerrain{m: m, sched: sched, node: node, clock: clock}
	root := node.Roots()[0]

	tt.pumpUntil(t, tt.nearCamera(), "children attach", func() bool {
		return root.HasChildren()
	})

	node.Shutdown()
	if node.Registry().Size() != 0 {
		t.Errorf("registry holds %d tiles after shutdown", node.Registry().Size())
	}
	sched.Close()
	m.Close()
}
