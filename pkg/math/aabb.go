package math

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns an inverted box that any Include call will overwrite.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// BoundsOf returns the box enclosing all points. An empty slice yields an
// empty box.
func BoundsOf(points []Vec3) AABB {
	b := EmptyAABB()
	for _, p := range points {
		b.Include(p)
	}
	return b
}

// IsEmpty reports whether the box encloses no point.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Include grows the box to contain p.
func (b *AABB) Include(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Union returns the box enclosing both b and other.
func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Center returns the box center. Empty boxes report the origin.
func (b AABB) Center() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Min.Midpoint(b.Max)
}

// Size returns the extent along each axis.
func (b AABB) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// HalfExtent returns half of the largest axis extent.
func (b AABB) HalfExtent() float32 {
	return b.Size().MaxComponent() * 0.5
}

// Contains reports whether p lies inside the box, bounds included.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
