// Package picking provides ray casting against chunk bounds.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/internal/engine/camera"
	"github.com/Faultbox/meshlod/internal/stream"
	"github.com/Faultbox/meshlod/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// CenterRay returns the ray through the middle of the viewport.
func CenterRay(v camera.View) Ray {
	return Ray{Origin: v.Position, Direction: v.Forward.Normalize()}
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box math.AABB) (t float32, hit bool) {
	if box.IsEmpty() {
		return 0, false
	}

	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float32{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float32{box.Max.X, box.Max.Y, box.Max.Z}

	for axis := range 3 {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// PickChunk returns the chunk whose bounds the ray enters first, resident or
// not.
func PickChunk(vm *stream.VirtualMesh, r Ray) (stream.ChunkID, float32, bool) {
	var (
		best  stream.ChunkID
		bestT float32
		found bool
	)
	for _, c := range vm.Chunks() {
		t, hit := r.IntersectAABB(c.Bounds)
		if hit && (!found || t < bestT) {
			best, bestT, found = c.ID, t, true
		}
	}
	return best, bestT, found
}
