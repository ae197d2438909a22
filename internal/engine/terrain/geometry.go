package terrain

import (
	"sync"
	"sync/atomic"

	"github.com/openglobe3d/strata/pkg/math"
)

// GridVertex is one vertex of a tile's surface grid, in tile-local unit
// space. Neighbor holds the position the vertex lerps toward while
// geomorphing: the location it would have on the parent level's coarser
// grid (its own position for even rows/columns). With morphing disabled
// Neighbor equals Position and the vertex never moves.
type GridVertex struct {
	Position math.Vec3
	UV       math.Vec2
	Neighbor math.Vec3
}

// SharedGeometry is one reference-counted surface mesh. Every tile of a
// given grid size shares the same unit-square geometry; displacement
// comes from the heightfield at render time, so the mesh itself never
// depends on the tile key.
type SharedGeometry struct {
	Vertices []GridVertex
	Indices  []uint16

	// SkirtIndex is the offset of the first skirt vertex, or
	// len(Vertices) when the mesh has no skirt.
	SkirtIndex int

	refs atomic.Int32
}

// Acquire adds a reference.
func (g *SharedGeometry) Acquire() *SharedGeometry {
	g.refs.Add(1)
	return g
}

// Release drops a reference.
func (g *SharedGeometry) Release() {
	g.refs.Add(-1)
}

// Refs returns the current reference count.
func (g *SharedGeometry) Refs() int {
	return int(g.refs.Load())
}

type geometryKey struct {
	tileSize   int
	skirtRatio float32
	morph      bool
}

// GeometryPool builds and caches the shared surface meshes. Tiles
// acquire a mesh when created and release it when disposed; Sweep drops
// meshes nothing references anymore.
type GeometryPool struct {
	mu    sync.Mutex
	pool  map[geometryKey]*SharedGeometry
	built atomic.Int64
}

// NewGeometryPool returns an empty pool.
func NewGeometryPool() *GeometryPool {
	return &GeometryPool{pool: make(map[geometryKey]*SharedGeometry)}
}

// Acquire returns the shared mesh for the given grid parameters,
// building it on first use. The caller owns one reference.
func (p *GeometryPool) Acquire(tileSize int, skirtRatio float32, morph bool) *SharedGeometry {
	if tileSize < 2 {
		tileSize = 2
	}
	key := geometryKey{tileSize: tileSize, skirtRatio: skirtRatio, morph: morph}

	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.pool[key]
	if !ok {
		g = buildGridGeometry(tileSize, skirtRatio, morph)
		p.pool[key] = g
		p.built.Add(1)
	}
	return g.Acquire()
}

// Sweep removes cached meshes with no outstanding references. Called
// periodically from the update thread.
func (p *GeometryPool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for key, g := range p.pool {
		if g.Refs() <= 0 {
			delete(p.pool, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached meshes.
func (p *GeometryPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

// Built returns how many distinct meshes the pool has ever constructed.
func (p *GeometryPool) Built() int64 {
	return p.built.Load()
}

// buildGridGeometry constructs a tileSize x tileSize vertex grid over
// the unit square, with an optional skirt ring hanging below the edges
// to hide cracks between adjacent LOD levels. morph selects whether
// vertices carry a coarser-grid morph target.
func buildGridGeometry(tileSize int, skirtRatio float32, morph bool) *SharedGeometry {
	n := tileSize
	numSurface := n * n
	numSkirt := 0
	if skirtRatio > 0 {
		numSkirt = 4*n - 4
	}

	g := &SharedGeometry{
		Vertices:   make([]GridVertex, 0, numSurface+numSkirt),
		SkirtIndex: numSurface,
	}

	step := 1.0 / float32(n-1)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			u := float32(col) * step
			v := float32(row) * step
			// Snap odd rows/columns down to the parent grid line so
			// the morph target lies on the coarser mesh.
			nu, nv := u, v
			if morph {
				nu = float32(col-col%2) * step
				nv = float32(row-row%2) * step
			}
			g.Vertices = append(g.Vertices, GridVertex{
				Position: math.Vec3{X: u, Y: v},
				UV:       math.Vec2{X: u, Y: v},
				Neighbor: math.Vec3{X: nu, Y: nv},
			})
		}
	}

	for row := 0; row < n-1; row++ {
		for col := 0; col < n-1; col++ {
			i0 := uint16(row*n + col)
			i1 := i0 + 1
			i2 := i0 + uint16(n)
			i3 := i2 + 1
			g.Indices = append(g.Indices,
				i0, i2, i1,
				i1, i2, i3,
			)
		}
	}

	if skirtRatio > 0 {
		appendSkirt(g, n, skirtRatio)
	}
	return g
}

// appendSkirt adds a ring of vertices below the grid's border and
// stitches them to the border with quads. The drop is expressed in
// unit-square space; the renderer scales it with the tile.
func appendSkirt(g *SharedGeometry, n int, ratio float32) {
	drop := -ratio

	border := make([]int, 0, 4*n-4)
	for col := 0; col < n; col++ { // south edge, west to east
		border = append(border, col)
	}
	for row := 1; row < n; row++ { // east edge, south to north
		border = append(border, row*n+(n-1))
	}
	for col := n - 2; col >= 0; col-- { // north edge, east to west
		border = append(border, (n-1)*n+col)
	}
	for row := n - 2; row >= 1; row-- { // west edge, north to south
		border = append(border, row*n)
	}

	base := len(g.Vertices)
	for _, bi := range border {
		top := g.Vertices[bi]
		g.Vertices = append(g.Vertices, GridVertex{
			Position: math.Vec3{X: top.Position.X, Y: top.Position.Y, Z: drop},
			UV:       top.UV,
			Neighbor: math.Vec3{X: top.Neighbor.X, Y: top.Neighbor.Y, Z: drop},
		})
	}

	ring := len(border)
	for i := 0; i < ring; i++ {
		next := (i + 1) % ring
		t0 := uint16(border[i])
		t1 := uint16(border[next])
		b0 := uint16(base + i)
		b1 := uint16(base + next)
		g.Indices = append(g.Indices,
			t0, b0, t1,
			t1, b0, b1,
		)
	}
}
