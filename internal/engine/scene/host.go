package scene

import (
	"sync"
	"time"
)

// FrameStamp identifies one frame of the host render loop. The counter
// increases monotonically; the time is informational.
type FrameStamp struct {
	Frame uint64
	Time  time.Time
}

// Clock supplies frame stamps to the engine. The host renderer owns the
// real clock; tests may use ManualClock.
type Clock interface {
	FrameStamp() FrameStamp
}

// ManualClock is a Clock advanced explicitly. Safe for concurrent use.
type ManualClock struct {
	mu    sync.Mutex
	stamp FrameStamp
}

// Tick advances to the next frame and returns its stamp.
func (c *ManualClock) Tick() FrameStamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stamp.Frame++
	c.stamp.Time = time.Now()
	return c.stamp
}

// FrameStamp implements Clock.
func (c *ManualClock) FrameStamp() FrameStamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stamp
}

// Disposer collects nodes detached from the graph and releases them on
// the update thread, after the host renderer can no longer be touching
// them mid-traversal.
type Disposer struct {
	mu      sync.Mutex
	pending []Node
}

// Add queues a node for disposal.
func (d *Disposer) Add(n Node) {
	if n == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, n)
}

// Drain hands every queued node to release and clears the queue.
// Called once per frame from the update thread.
func (d *Disposer) Drain(release func(Node)) {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, n := range pending {
		release(n)
	}
}
