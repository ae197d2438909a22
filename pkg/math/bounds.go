package math

import "math"

// Sphere is a bounding sphere used for tile culling and range tests.
type Sphere struct {
	Center Vec3
	Radius float32
}

// Contains reports whether p lies inside the sphere.
func (s Sphere) Contains(p Vec3) bool {
	return s.Center.Distance(p) <= s.Radius
}

// DistanceTo returns the distance from p to the sphere surface.
// Negative if p is inside.
func (s Sphere) DistanceTo(p Vec3) float32 {
	return s.Center.Distance(p) - s.Radius
}

// ExpandBy grows the sphere to include other.
func (s Sphere) ExpandBy(other Sphere) Sphere {
	if s.Radius <= 0 {
		return other
	}
	if other.Radius <= 0 {
		return s
	}
	d := s.Center.Distance(other.Center)
	if d+other.Radius <= s.Radius {
		return s
	}
	if d+s.Radius <= other.Radius {
		return other
	}
	r := (d + s.Radius + other.Radius) / 2
	t := (r - s.Radius) / d
	return Sphere{Center: s.Center.Lerp(other.Center, t), Radius: r}
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// EmptyBox returns a box that contains nothing; any ExpandByPoint fixes it.
func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Valid reports whether the box contains at least one point.
func (b Box) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// ExpandByPoint grows the box to include p.
func (b Box) ExpandByPoint(p Vec3) Box {
	return Box{
		Min: Vec3{minf(b.Min.X, p.X), minf(b.Min.Y, p.Y), minf(b.Min.Z, p.Z)},
		Max: Vec3{maxf(b.Max.X, p.X), maxf(b.Max.Y, p.Y), maxf(b.Max.Z, p.Z)},
	}
}

// Center returns the box midpoint.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// BoundingSphere returns the sphere that encloses the box.
func (b Box) BoundingSphere() Sphere {
	c := b.Center()
	return Sphere{Center: c, Radius: b.Max.Distance(c)}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
