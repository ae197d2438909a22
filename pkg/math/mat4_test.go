package math

import "testing"

func TestIdentityMul(t *testing.T) {
	m := Translate(1, 2, 3)
	got := Identity().Mul(m)
	if got != m {
		t.Errorf("Identity().Mul(m) = %v, want %v", got, m)
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 0, 0).Mul(Scale(2, 2, 2))
	got := m.TransformPoint(Vec3{1, 1, 1})
	want := Vec3{12, 2, 2}
	if got != want {
		t.Errorf("TransformPoint() = %v, want %v", got, want)
	}
}

func TestScaleBias(t *testing.T) {
	// Lower-left quadrant of the parent: scale 0.5, no bias.
	m := ScaleBias(0.5, 0, 0)
	got := m.TransformUV(Vec2{1, 1})
	want := Vec2{0.5, 0.5}
	if got != want {
		t.Errorf("TransformUV() = %v, want %v", got, want)
	}

	// Upper-right quadrant: bias by 0.5 in both axes.
	m = ScaleBias(0.5, 0.5, 0.5)
	got = m.TransformUV(Vec2{0, 0})
	want = Vec2{0.5, 0.5}
	if got != want {
		t.Errorf("TransformUV() = %v, want %v", got, want)
	}
}
