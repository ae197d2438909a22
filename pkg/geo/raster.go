package geo

import (
	"image"

	"github.com/paulmach/orb"
)

// GeoImage is an image georeferenced to a world extent.
type GeoImage struct {
	Image  image.Image
	Extent orb.Bound
}

// Valid reports whether the image carries pixel data.
func (g GeoImage) Valid() bool {
	return g.Image != nil
}

// NoDataValue marks missing samples in a heightfield.
const NoDataValue = float32(-3.4028235e38)

// Heightfield is a grid of elevation samples georeferenced to a world
// extent. Samples are stored row-major with row 0 at the north edge.
type Heightfield struct {
	Width, Height int
	Samples       []float32
	Extent        orb.Bound
}

// NewHeightfield allocates a heightfield with every sample set to zero.
func NewHeightfield(width, height int, extent orb.Bound) *Heightfield {
	return &Heightfield{
		Width:   width,
		Height:  height,
		Samples: make([]float32, width*height),
		Extent:  extent,
	}
}

// Valid reports whether the heightfield carries sample data.
func (h *Heightfield) Valid() bool {
	return h != nil && len(h.Samples) == h.Width*h.Height && h.Width > 0
}

// At returns the sample at column c, row r.
func (h *Heightfield) At(c, r int) float32 {
	return h.Samples[r*h.Width+c]
}

// Set assigns the sample at column c, row r.
func (h *Heightfield) Set(c, r int, v float32) {
	h.Samples[r*h.Width+c] = v
}

// MinMax returns the lowest and highest valid samples. Returns (0, 0)
// when every sample is no-data.
func (h *Heightfield) MinMax() (min, max float32) {
	found := false
	for _, s := range h.Samples {
		if s == NoDataValue {
			continue
		}
		if !found || s < min {
			min = s
		}
		if !found || s > max {
			max = s
		}
		found = true
	}
	if !found {
		return 0, 0
	}
	return min, max
}

// HeightAtUV samples the heightfield at normalized coordinates (u right,
// v up) with bilinear interpolation. No-data samples are treated as zero.
func (h *Heightfield) HeightAtUV(u, v float64) float32 {
	if !h.Valid() {
		return 0
	}
	fc := u * float64(h.Width-1)
	fr := (1 - v) * float64(h.Height-1)
	c := clampi(int(fc), 0, h.Width-2)
	r := clampi(int(fr), 0, h.Height-2)
	fx := float32(fc - float64(c))
	fy := float32(fr - float64(r))

	s00 := zeroNoData(h.At(c, r))
	s10 := zeroNoData(h.At(c+1, r))
	s01 := zeroNoData(h.At(c, r+1))
	s11 := zeroNoData(h.At(c+1, r+1))

	top := s00*(1-fx) + s10*fx
	bot := s01*(1-fx) + s11*fx
	return top*(1-fy) + bot*fy
}

func zeroNoData(s float32) float32 {
	if s == NoDataValue {
		return 0
	}
	return s
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
