package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{2, 3, 6}
	got := v.Length()
	want := float32(7)
	if got != want {
		t.Errorf("Vec3.Length() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 4, 12}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if zero := (Vec3{}).Normalize(); zero != (Vec3{}) {
		t.Errorf("zero Vec3.Normalize() = %v, want zero", zero)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}
	if got, want := a.Min(b), (Vec3{1, -1, -2}); got != want {
		t.Errorf("Vec3.Min() = %v, want %v", got, want)
	}
	if got, want := a.Max(b), (Vec3{3, 5, 0}); got != want {
		t.Errorf("Vec3.Max() = %v, want %v", got, want)
	}
	if got := a.MaxComponent(); got != 5 {
		t.Errorf("Vec3.MaxComponent() = %v, want 5", got)
	}
}

func TestAABB(t *testing.T) {
	b := BoundsOf([]Vec3{{-1, 0, 2}, {3, 4, 2}, {1, -2, 6}})

	if got, want := b.Min, (Vec3{-1, -2, 2}); got != want {
		t.Errorf("Min = %v, want %v", got, want)
	}
	if got, want := b.Max, (Vec3{3, 4, 6}); got != want {
		t.Errorf("Max = %v, want %v", got, want)
	}
	if got, want := b.Center(), (Vec3{1, 1, 4}); got != want {
		t.Errorf("Center() = %v, want %v", got, want)
	}
	// Largest axis is Y with extent 6.
	if got := b.HalfExtent(); got != 3 {
		t.Errorf("HalfExtent() = %v, want 3", got)
	}
	if !b.Contains(Vec3{0, 0, 3}) {
		t.Error("expected box to contain interior point")
	}
	if b.Contains(Vec3{0, 0, 7}) {
		t.Error("expected box not to contain exterior point")
	}
}

func TestEmptyAABB(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatal("EmptyAABB() should be empty")
	}
	if got := b.Center(); got != (Vec3{}) {
		t.Errorf("empty Center() = %v, want origin", got)
	}
	if got := b.HalfExtent(); got != 0 {
		t.Errorf("empty HalfExtent() = %v, want 0", got)
	}

	b.Include(Vec3{1, 2, 3})
	if b.IsEmpty() {
		t.Error("box with one point should not be empty")
	}
	u := b.Union(AABB{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}})
	if u.Min != (Vec3{0, 0, 0}) || u.Max != (Vec3{1, 2, 3}) {
		t.Errorf("Union() = %+v", u)
	}
}
