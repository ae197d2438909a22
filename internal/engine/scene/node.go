// Package scene provides the minimal scene-graph abstraction the
// terrain engine attaches to: nodes with child slots, a quad group for
// tile subdivision, and deferred disposal so detaching is safe while a
// host renderer may be mid-traversal on another thread.
package scene

import "sync"

// Node is one element of the render graph. Implementations own their
// child storage; Children returns a stable snapshot for traversal.
type Node interface {
	Children() []Node
}

// Group is a mutable list of child nodes.
type Group struct {
	mu       sync.RWMutex
	children []Node
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{}
}

// AddChild appends a child.
func (g *Group) AddChild(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.children = append(g.children, n)
}

// RemoveChild removes a child by identity.
func (g *Group) RemoveChild(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, c := range g.children {
		if c == n {
			g.children = append(g.children[:i], g.children[i+1:]...)
			return
		}
	}
}

// Clear removes all children.
func (g *Group) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.children = nil
}

// Children implements Node.
func (g *Group) Children() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Node{}, g.children...)
}

// QuadGroup holds exactly four child slots, one per quadrant. Tiles
// subdivide all-or-nothing: either every slot is filled or the group is
// considered incomplete and traversal sees no children.
type QuadGroup struct {
	mu       sync.RWMutex
	children [4]Node
}

// NewQuadGroup returns an empty quad group.
func NewQuadGroup() *QuadGroup {
	return &QuadGroup{}
}

// SetChild fills one quadrant slot.
func (q *QuadGroup) SetChild(quadrant int, n Node) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.children[quadrant] = n
}

// Child returns one quadrant slot.
func (q *QuadGroup) Child(quadrant int) Node {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.children[quadrant]
}

// Complete reports whether all four slots are filled.
func (q *QuadGroup) Complete() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, c := range q.children {
		if c == nil {
			return false
		}
	}
	return true
}

// Clear empties all four slots.
func (q *QuadGroup) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.children = [4]Node{}
}

// Children implements Node. An incomplete quad exposes no children so a
// partially built subdivision is never traversed.
func (q *QuadGroup) Children() []Node {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, c := range q.children {
		if c == nil {
			return nil
		}
	}
	return append([]Node{}, q.children[:]...)
}

// Visit walks the graph preorder. fn returning false prunes the subtree.
func Visit(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Visit(c, fn)
	}
}
