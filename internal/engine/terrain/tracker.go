package terrain

import "container/list"

// tracker keeps tiles ordered by recency of traversal. A sentinel
// element marks the boundary between this frame's visited tiles and the
// rest: Use moves a tile to the front, and Flush walks from the back
// toward the sentinel, disposing everything that was not visited since
// the previous flush. Not safe for concurrent use; the registry's lock
// covers it.
type tracker struct {
	list     *list.List
	sentinel *list.Element
}

func newTracker() *tracker {
	l := list.New()
	t := &tracker{list: l}
	t.sentinel = l.PushFront(nil)
	return t
}

// Insert registers a tile as most recently used.
func (t *tracker) Insert(tile *TileNode) {
	tile.tracking = t.list.PushFront(tile)
}

// Use marks a tracked tile as most recently used.
func (t *tracker) Use(tile *TileNode) {
	if tile.tracking != nil {
		t.list.MoveToFront(tile.tracking)
	}
}

// Remove untracks a tile without disposing it.
func (t *tracker) Remove(tile *TileNode) {
	if tile.tracking != nil {
		t.list.Remove(tile.tracking)
		tile.tracking = nil
	}
}

// Flush visits every tile not used since the last flush, oldest first,
// honoring maxCount (negative means unlimited). dispose reports whether
// the tile was actually evicted; tiles it refuses stay tracked and are
// bumped to the front so they get another full cycle. Afterwards the
// sentinel moves to the front, arming the next cycle.
func (t *tracker) Flush(maxCount int, dispose func(*TileNode) bool) int {
	// Collect first: disposing one tile may untrack its siblings, which
	// would otherwise invalidate the iteration cursor.
	var stale []*list.Element
	for e := t.list.Back(); e != nil && e != t.sentinel; e = e.Prev() {
		stale = append(stale, e)
	}

	disposed := 0
	var refused []*list.Element
	for _, e := range stale {
		if maxCount >= 0 && disposed >= maxCount {
			break
		}
		tile, ok := e.Value.(*TileNode)
		if !ok || tile.tracking != e {
			continue // untracked by an earlier disposal
		}
		if dispose(tile) {
			t.list.Remove(e)
			tile.tracking = nil
			disposed++
		} else {
			refused = append(refused, e)
		}
	}

	t.list.MoveToFront(t.sentinel)
	// Refused tiles move in front of the re-armed sentinel so the next
	// flush does not offer them again.
	for _, e := range refused {
		if tile, ok := e.Value.(*TileNode); ok && tile.tracking == e {
			t.list.MoveToFront(e)
		}
	}
	return disposed
}

// Len returns the number of tracked tiles.
func (t *tracker) Len() int {
	return t.list.Len() - 1
}
