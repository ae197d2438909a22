package terrain

import (
	stdmath "math"

	"github.com/openglobe3d/strata/pkg/geo"
)

// morphStartRatio places the start of the morph band at two thirds of a
// level's switch distance, so vertices finish lerping toward the parent
// mesh just before the LOD actually switches.
const morphStartRatio = 0.66

// LevelRange holds the precomputed LOD distances for one level.
type LevelRange struct {
	// Visibility is the camera distance below which tiles of this
	// level subdivide into their children.
	Visibility float64

	// MorphStart and MorphEnd bound the geomorphing band. Inside it a
	// vertex blends between its own position and the parent mesh's.
	MorphStart float64
	MorphEnd   float64
}

// SelectionInfo precomputes, per level, the camera distances at which
// tiles subdivide and morph. Building it once per map keeps the
// traversal free of per-tile trigonometry.
type SelectionInfo struct {
	ranges []LevelRange
}

// NewSelectionInfo derives per-level ranges from the profile's tile
// resolution and the configured screen-space error. Smaller SSE pushes
// every switch distance out, loading higher levels sooner.
func NewSelectionInfo(profile *geo.Profile, maxLevel uint32, sse float64) *SelectionInfo {
	if sse <= 0 {
		sse = 128
	}
	ranges := make([]LevelRange, maxLevel+1)
	for level := uint32(0); level <= maxLevel; level++ {
		vis := profile.Resolution(level) * 2048.0 / sse
		end := vis
		ranges[level] = LevelRange{
			Visibility: vis,
			MorphStart: end * morphStartRatio,
			MorphEnd:   end,
		}
	}
	return &SelectionInfo{ranges: ranges}
}

// NumLevels returns how many levels have ranges.
func (s *SelectionInfo) NumLevels() uint32 {
	return uint32(len(s.ranges))
}

// Range returns the LOD distances for a level, clamping past the deepest.
func (s *SelectionInfo) Range(level uint32) LevelRange {
	if int(level) >= len(s.ranges) {
		return s.ranges[len(s.ranges)-1]
	}
	return s.ranges[level]
}

// ShouldSubdivide reports whether a tile at the given level and camera
// distance is close enough to be replaced by its children.
func (s *SelectionInfo) ShouldSubdivide(level uint32, distance float64) bool {
	if int(level)+1 >= len(s.ranges) {
		return false
	}
	return distance < s.Range(level).Visibility
}

// MorphConstants returns the (end/(end-start), 1/(end-start)) pair the
// vertex morph evaluates as factor = clamp(c0 - dist*c1, 0, 1).
func (s *SelectionInfo) MorphConstants(level uint32) (float32, float32) {
	r := s.Range(level)
	span := r.MorphEnd - r.MorphStart
	if span <= 0 || stdmath.IsInf(span, 0) {
		return 0, 0
	}
	return float32(r.MorphEnd / span), float32(1.0 / span)
}
