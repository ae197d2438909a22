package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// TileKey identifies one cell of a quad-tree subdivision: a level of
// detail plus x/y indices within the level's grid. It is an immutable
// value; two keys are equal only if their profiles match.
type TileKey struct {
	Level   uint32
	X, Y    uint32
	Profile *Profile
}

// Valid reports whether the key has a profile and lies inside its grid.
func (k TileKey) Valid() bool {
	if k.Profile == nil {
		return false
	}
	wide, high := k.Profile.NumTiles(k.Level)
	return k.X < wide && k.Y < high
}

// ParentKey returns the key one level coarser that contains this key.
// Level-0 keys return an invalid key.
func (k TileKey) ParentKey() TileKey {
	if k.Level == 0 {
		return TileKey{}
	}
	return TileKey{Level: k.Level - 1, X: k.X / 2, Y: k.Y / 2, Profile: k.Profile}
}

// ChildKey returns the key of one quadrant (0..3) at the next finer level.
// Quadrant bit 0 selects the east column, bit 1 the south row.
func (k TileKey) ChildKey(quadrant uint32) TileKey {
	return TileKey{
		Level:   k.Level + 1,
		X:       k.X*2 + (quadrant & 1),
		Y:       k.Y*2 + (quadrant >> 1),
		Profile: k.Profile,
	}
}

// Quadrant returns which quadrant of its parent this key occupies.
func (k TileKey) Quadrant() uint32 {
	return (k.X & 1) | ((k.Y & 1) << 1)
}

// Extent returns the world extent of the tile.
func (k TileKey) Extent() orb.Bound {
	if k.Profile == nil {
		return orb.Bound{}
	}
	return k.Profile.TileExtent(k)
}

// Less imposes a total order by (level, y, x), sufficient for map keying
// within a single profile.
func (k TileKey) Less(other TileKey) bool {
	if k.Level != other.Level {
		return k.Level < other.Level
	}
	if k.Y != other.Y {
		return k.Y < other.Y
	}
	return k.X < other.X
}

// String returns "level/x/y".
func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Level, k.X, k.Y)
}
