package gis

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/logger"
	"github.com/openglobe3d/strata/pkg/geo"
)

// Revision increments every time the map's layer set changes. Consumers
// compare revisions to detect restructuring.
type Revision int64

// Map is a mutable, thread-safe collection of layers over one profile.
// Layer reads happen from many concurrent jobs; structural changes
// (add/remove) bump the revision and fire callbacks so the terrain can
// invalidate affected tiles.
type Map struct {
	mu       sync.RWMutex
	profile  *geo.Profile
	layers   []Layer
	revision Revision

	onLayerAdded   []func(Layer, Revision)
	onLayerRemoved []func(Layer, Revision)

	log *zap.Logger
}

// NewMap creates an empty map over the given profile.
func NewMap(profile *geo.Profile) *Map {
	return &Map{
		profile: profile,
		log:     logger.Named("map"),
	}
}

// Profile returns the map's tiling profile.
func (m *Map) Profile() *geo.Profile {
	return m.profile
}

// Revision returns the current structural revision.
func (m *Map) Revision() Revision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// AddLayer opens the layer and appends it. A layer that fails to open is
// still added (its status records the failure) so configuration errors
// stay visible; it just never produces data.
func (m *Map) AddLayer(layer Layer) {
	if layer == nil {
		m.log.Warn("AddLayer called with nil layer")
		return
	}

	status := layer.Open()
	if !status.Ok() {
		m.log.Warn("layer failed to open",
			zap.String("layer", layer.Name()),
			zap.String("status", status.String()))
	}

	m.mu.Lock()
	m.layers = append(m.layers, layer)
	m.revision++
	rev := m.revision
	added := append([]func(Layer, Revision){}, m.onLayerAdded...)
	m.mu.Unlock()

	for _, fn := range added {
		fn(layer, rev)
	}
}

// RemoveLayer removes a layer by identity and closes it.
func (m *Map) RemoveLayer(layer Layer) {
	m.mu.Lock()
	found := false
	for i, l := range m.layers {
		if l == layer {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			found = true
			break
		}
	}
	var rev Revision
	var removed []func(Layer, Revision)
	if found {
		m.revision++
		rev = m.revision
		removed = append([]func(Layer, Revision){}, m.onLayerRemoved...)
	}
	m.mu.Unlock()

	if !found {
		return
	}
	_ = layer.Close()
	for _, fn := range removed {
		fn(layer, rev)
	}
}

// OnLayerAdded registers a callback fired after each AddLayer.
func (m *Map) OnLayerAdded(fn func(Layer, Revision)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLayerAdded = append(m.onLayerAdded, fn)
}

// OnLayerRemoved registers a callback fired after each RemoveLayer.
func (m *Map) OnLayerRemoved(fn func(Layer, Revision)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLayerRemoved = append(m.onLayerRemoved, fn)
}

// Layers returns a snapshot of all layers.
func (m *Map) Layers() []Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Layer{}, m.layers...)
}

// ImageLayers returns a snapshot of layers that produce imagery.
func (m *Map) ImageLayers() []ImageLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ImageLayer
	for _, l := range m.layers {
		if il, ok := l.(ImageLayer); ok {
			out = append(out, il)
		}
	}
	return out
}

// ElevationLayers returns a snapshot of layers that produce heightfields.
func (m *Map) ElevationLayers() []ElevationLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ElevationLayer
	for _, l := range m.layers {
		if el, ok := l.(ElevationLayer); ok {
			out = append(out, el)
		}
	}
	return out
}

// Close closes every layer.
func (m *Map) Close() {
	m.mu.Lock()
	layers := m.layers
	m.layers = nil
	m.mu.Unlock()

	for _, l := range layers {
		_ = l.Close()
	}
}
