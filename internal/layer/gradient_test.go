package layer

import (
	"testing"

	"github.com/openglobe3d/strata/internal/engine/jobs"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/pkg/geo"
)

func TestGradientDeterministic(t *testing.T) {
	l := NewGradientLayer("base", 17, 10)
	key := geo.TileKey{Level: 2, X: 1, Y: 1, Profile: geo.GlobalGeodetic()}

	a, sa := l.CreateImage(key, gis.IO{})
	b, sb := l.CreateImage(key, gis.IO{})
	if !sa.Ok() || !sb.Ok() {
		t.Fatalf("expected OK statuses, got %v / %v", sa, sb)
	}

	ba := a.Image.Bounds()
	for y := ba.Min.Y; y < ba.Max.Y; y++ {
		for x := ba.Min.X; x < ba.Max.X; x++ {
			if a.Image.At(x, y) != b.Image.At(x, y) {
				t.Fatalf("pixel (%d,%d) differs between identical requests", x, y)
			}
		}
	}
}

func TestGradientHeightfieldSeams(t *testing.T) {
	l := NewGradientLayer("base", 17, 10)
	p := geo.GlobalGeodetic()

	// Two horizontally adjacent tiles must agree on their shared edge.
	left := geo.TileKey{Level: 3, X: 4, Y: 2, Profile: p}
	right := geo.TileKey{Level: 3, X: 5, Y: 2, Profile: p}

	hl, sl := l.CreateHeightfield(left, gis.IO{})
	hr, sr := l.CreateHeightfield(right, gis.IO{})
	if !sl.Ok() || !sr.Ok() {
		t.Fatalf("expected OK statuses, got %v / %v", sl, sr)
	}

	for r := 0; r < hl.Height; r++ {
		a := hl.At(hl.Width-1, r)
		b := hr.At(0, r)
		if a != b {
			t.Fatalf("row %d: edge mismatch %v != %v", r, a, b)
		}
	}
}

func TestGradientRespectsCancellation(t *testing.T) {
	l := NewGradientLayer("base", 17, 10)
	key := geo.TileKey{Level: 1, X: 0, Y: 0, Profile: geo.GlobalGeodetic()}

	token := jobs.NewToken()
	token.Cancel()

	_, status := l.CreateImage(key, gis.NewIO(token))
	if status.Code != gis.StatusCanceled {
		t.Errorf("status = %v, want canceled", status)
	}
}

func TestGradientOutOfRange(t *testing.T) {
	l := NewGradientLayer("base", 17, 4)
	key := geo.TileKey{Level: 9, X: 0, Y: 0, Profile: geo.GlobalGeodetic()}

	_, status := l.CreateImage(key, gis.IO{})
	if status.Code != gis.StatusUnavailable {
		t.Errorf("status = %v, want unavailable", status)
	}
}
