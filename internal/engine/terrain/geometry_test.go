package terrain

import "testing"

func TestGridGeometryCounts(t *testing.T) {
	g := buildGridGeometry(5, 0, true)

	if len(g.Vertices) != 25 {
		t.Errorf("vertex count = %d, want 25", len(g.Vertices))
	}
	if len(g.Indices) != 4*4*6 {
		t.Errorf("index count = %d, want %d", len(g.Indices), 4*4*6)
	}
	if g.SkirtIndex != 25 {
		t.Errorf("skirt index = %d, want 25", g.SkirtIndex)
	}
}

func TestGridGeometrySkirtHangsBelowEdges(t *testing.T) {
	g := buildGridGeometry(5, 0.1, true)

	wantSkirt := 4*5 - 4
	if got := len(g.Vertices) - g.SkirtIndex; got != wantSkirt {
		t.Fatalf("skirt vertex count = %d, want %d", got, wantSkirt)
	}
	for i := g.SkirtIndex; i < len(g.Vertices); i++ {
		v := g.Vertices[i]
		if v.Position.Z != -0.1 {
			t.Errorf("skirt vertex %d z = %v, want -0.1", i, v.Position.Z)
		}
	}
	if len(g.Indices) != 4*4*6+wantSkirt*6 {
		t.Errorf("index count = %d, want %d", len(g.Indices), 4*4*6+wantSkirt*6)
	}
}

func TestMorphNeighborsSnapToParentGrid(t *testing.T) {
	const n = 5
	g := buildGridGeometry(n, 0, true)

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			v := g.Vertices[row*n+col]
			if col%2 == 0 && row%2 == 0 {
				if v.Neighbor.X != v.Position.X || v.Neighbor.Y != v.Position.Y {
					t.Errorf("even vertex (%d,%d) neighbor %v != position %v",
						col, row, v.Neighbor, v.Position)
				}
				continue
			}
			// Odd rows/columns snap down to the previous even grid line.
			step := float32(1.0 / float32(n-1))
			wantX := float32(col-col%2) * step
			wantY := float32(row-row%2) * step
			if v.Neighbor.X != wantX || v.Neighbor.Y != wantY {
				t.Errorf("vertex (%d,%d) neighbor = (%v,%v), want (%v,%v)",
					col, row, v.Neighbor.X, v.Neighbor.Y, wantX, wantY)
			}
		}
	}
}

func TestMorphDisabledPinsNeighborsInPlace(t *testing.T) {
	g := buildGridGeometry(5, 0.1, false)

	for i, v := range g.Vertices {
		if v.Neighbor != v.Position {
			t.Errorf("vertex %d neighbor = %v, want position %v",
				i, v.Neighbor, v.Position)
		}
	}

	// The two variants are distinct pool entries.
	p := NewGeometryPool()
	on := p.Acquire(5, 0.1, true)
	off := p.Acquire(5, 0.1, false)
	if on == off {
		t.Error("morph on and off returned the same mesh")
	}
}

func TestGeometryPoolSharesMeshes(t *testing.T) {
	p := NewGeometryPool()

	a := p.Acquire(9, 0.05, true)
	b := p.Acquire(9, 0.05, true)
	if a != b {
		t.Error("same parameters returned distinct meshes")
	}
	if a.Refs() != 2 {
		t.Errorf("refs = %d, want 2", a.Refs())
	}

	c := p.Acquire(17, 0.05, true)
	if c == a {
		t.Error("different tile size returned the same mesh")
	}
	if p.Size() != 2 {
		t.Errorf("pool size = %d, want 2", p.Size())
	}
	if p.Built() != 2 {
		t.Errorf("built = %d, want 2", p.Built())
	}
}

func TestGeometryPoolSweepKeepsReferenced(t *testing.T) {
	p := NewGeometryPool()

	a := p.Acquire(9, 0, true)
	b := p.Acquire(17, 0, true)
	b.Release()

	if removed := p.Sweep(); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
	if p.Size() != 1 {
		t.Errorf("pool size after sweep = %d, want 1", p.Size())
	}

	a.Release()
	if removed := p.Sweep(); removed != 1 {
		t.Errorf("second sweep removed %d, want 1", removed)
	}
	if p.Size() != 0 {
		t.Errorf("pool size = %d, want 0", p.Size())
	}
}
