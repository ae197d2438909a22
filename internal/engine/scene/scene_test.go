package scene

import "testing"

type leaf struct{ name string }

func (l *leaf) Children() []Node { return nil }

func TestQuadGroupIncompleteHidesChildren(t *testing.T) {
	q := NewQuadGroup()
	q.SetChild(0, &leaf{"a"})
	q.SetChild(1, &leaf{"b"})
	q.SetChild(2, &leaf{"c"})

	if q.Complete() {
		t.Error("quad with 3 children should not be complete")
	}
	if got := q.Children(); got != nil {
		t.Errorf("incomplete quad exposed %d children, want none", len(got))
	}

	q.SetChild(3, &leaf{"d"})
	if !q.Complete() {
		t.Error("quad with 4 children should be complete")
	}
	if got := len(q.Children()); got != 4 {
		t.Errorf("complete quad exposed %d children, want 4", got)
	}
}

func TestVisitPreorder(t *testing.T) {
	root := NewGroup()
	mid := NewGroup()
	root.AddChild(mid)
	a, b := &leaf{"a"}, &leaf{"b"}
	mid.AddChild(a)
	mid.AddChild(b)

	var count int
	Visit(root, func(Node) bool {
		count++
		return true
	})
	if count != 4 {
		t.Errorf("visited %d nodes, want 4", count)
	}

	// Prune at mid: only root and mid are seen.
	count = 0
	Visit(root, func(n Node) bool {
		count++
		return n == root
	})
	if count != 2 {
		t.Errorf("pruned visit saw %d nodes, want 2", count)
	}
}

func TestDisposerDrains(t *testing.T) {
	var d Disposer
	a, b := &leaf{"a"}, &leaf{"b"}
	d.Add(a)
	d.Add(b)
	d.Add(nil) // ignored

	var released []Node
	d.Drain(func(n Node) { released = append(released, n) })
	if len(released) != 2 {
		t.Fatalf("released %d nodes, want 2", len(released))
	}

	// Queue is empty after a drain.
	released = nil
	d.Drain(func(n Node) { released = append(released, n) })
	if len(released) != 0 {
		t.Errorf("second drain released %d nodes, want 0", len(released))
	}
}

func TestManualClock(t *testing.T) {
	var c ManualClock
	if c.FrameStamp().Frame != 0 {
		t.Error("fresh clock should be at frame 0")
	}
	c.Tick()
	s := c.Tick()
	if s.Frame != 2 {
		t.Errorf("frame = %d, want 2", s.Frame)
	}
}
